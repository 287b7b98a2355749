package jailconf

import (
	"iter"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Document is the parse result for one input buffer. Blocks and Globals
// preserve source order; blocks sharing a name are kept as separate
// entries because downstream consumers may treat later definitions as
// overrides or extensions of earlier ones. The parser never merges or
// deduplicates.
type Document struct {
	// Blocks holds the named jail blocks in source order.
	Blocks []*JailBlock

	// Globals holds parameters declared outside any block, in source
	// order. They conventionally supply defaults for every jail.
	Globals []*Parameter
}

// All returns an iterator over all blocks in the document.
func (d *Document) All() iter.Seq[*JailBlock] {
	return func(yield func(*JailBlock) bool) {
		for _, b := range d.Blocks {
			if !yield(b) {
				return
			}
		}
	}
}

// Block retrieves the first block with the given name.
// Returns (nil, false) if no block has that name.
func (d *Document) Block(name string) (*JailBlock, bool) {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b, true
		}
	}

	return nil, false
}

// JailBlock is one "name { ... }" unit: a named, brace-delimited group of
// parameters describing one isolated-resource instance. The wildcard name
// "*" denotes the default block.
type JailBlock struct {
	Name   string
	Params []*Parameter
	Pos    Position
}

// All returns an iterator over the block's parameters in source order.
func (b *JailBlock) All() iter.Seq[*Parameter] {
	return func(yield func(*Parameter) bool) {
		for _, p := range b.Params {
			if !yield(p) {
				return
			}
		}
	}
}

// Param retrieves the last parameter with the given key. Later statements
// conventionally override earlier ones, so the final occurrence is the
// effective one. Returns (nil, false) if the key never occurs.
func (b *JailBlock) Param(key string) (*Parameter, bool) {
	for i := len(b.Params) - 1; i >= 0; i-- {
		if b.Params[i].Key == key {
			return b.Params[i], true
		}
	}

	return nil, false
}

// Values assembles the effective value list for a key across the block's
// statements: '=' replaces the accumulated list with its single value,
// '+=' appends one value, and a bare presence statement contributes
// nothing. This is the consumer-side accumulation the parser itself never
// performs.
func (b *JailBlock) Values(key string) []string {
	var values []string

	for _, p := range b.Params {
		if p.Key != key {
			continue
		}

		switch p.Op {
		case OpSet:
			values = append(values[:0], p.Values...)

		case OpAppend:
			values = append(values, p.Values...)

		case OpPresence:
			// Presence statements carry no value.
		}
	}

	return values
}

// Bool reports whether the key is effectively enabled: a presence
// statement enables it, and a '=' statement enables it when its value
// parses as true (strconv.ParseBool). The last occurrence wins.
func (b *JailBlock) Bool(key string) bool {
	p, ok := b.Param(key)
	if !ok {
		return false
	}

	if p.Op == OpPresence {
		return true
	}

	value, ok := p.Value()
	if !ok {
		return false
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}

	return enabled
}

// MatchKeys returns the block's parameter keys fuzzy-matched against
// pattern, best match first. Intended for interactive inspection tooling
// (completion, "did you mean" hints). Duplicate keys are reported once.
func (b *JailBlock) MatchKeys(pattern string) []string {
	keys := make([]string, 0, len(b.Params))
	seen := make(map[string]bool, len(b.Params))

	for _, p := range b.Params {
		if !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}

	matches := fuzzy.Find(pattern, keys)

	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = m.Str
	}

	return result
}

// Parameter is one "key <op> <value>? ;" statement.
type Parameter struct {
	// Key is the dotted parameter name, e.g. "ip4.addr".
	Key string

	// Op is the statement form: OpPresence, OpSet, or OpAppend.
	Op Operator

	// Values holds the statement's string payloads: none for OpPresence,
	// exactly one for OpSet and OpAppend. An empty string is a valid
	// value, distinct from absent.
	Values []string

	Pos Position
}

// Value returns the parameter's single value. The second return is false
// for presence parameters, which carry no value.
func (p *Parameter) Value() (string, bool) {
	if len(p.Values) == 0 {
		return "", false
	}

	return p.Values[0], true
}

// Segments splits the dotted key into its identifier segments.
func (p *Parameter) Segments() []string {
	return strings.Split(p.Key, ".")
}

// Operator indicates the form of a parameter statement.
type Operator int

const (
	// OpPresence is an operator-less statement ("key;") whose mere
	// occurrence signals a boolean flag.
	OpPresence Operator = iota

	// OpSet is the '=' operator: assign a single value.
	OpSet

	// OpAppend is the '+=' operator: contribute one value to a logical
	// multi-value parameter.
	OpAppend
)

// String returns a string representation of the operator.
func (op Operator) String() string {
	switch op {
	case OpPresence:
		return "Presence"

	case OpSet:
		return "Set"

	case OpAppend:
		return "Append"

	default:
		return "Unknown"
	}
}

// Position locates a token in the source buffer.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

// String returns the position as "line:column".
func (pos Position) String() string {
	return strconv.Itoa(pos.Line) + ":" + strconv.Itoa(pos.Column)
}
