package jailconf

import (
	"log/slog"
	"strconv"
	"strings"
)

// Sentinel errors classifying every way a parse can fail. Derived errors
// (with positions and attributes attached) satisfy errors.Is against
// their sentinel.
var (
	// ErrUnterminatedString reports a quoted value missing its closing
	// quote, or containing a raw newline.
	ErrUnterminatedString = NewError("unterminated string")

	// ErrUnbalancedBlock reports a '{' without a matching '}' before end
	// of input.
	ErrUnbalancedBlock = NewError("unbalanced block")

	// ErrMissingSemicolon reports a parameter statement not terminated
	// by ';'.
	ErrMissingSemicolon = NewError("missing semicolon")

	// ErrInvalidKey reports a dotted key with an empty segment, an
	// illegal character, or a leading or trailing dot.
	ErrInvalidKey = NewError("invalid parameter key")

	// ErrInvalidBlockName reports a block header that is neither a valid
	// identifier nor the wildcard '*'.
	ErrInvalidBlockName = NewError("invalid block name")

	// ErrUnexpectedToken reports a token that fits no grammar production
	// at the current parse position.
	ErrUnexpectedToken = NewError("unexpected token")

	// ErrReadInput is returned when reading input fails before parsing
	// begins.
	ErrReadInput = NewError("failed to read input")

	// ErrBlockNotFound is returned by lookup helpers when a requested
	// block does not exist in the source.
	ErrBlockNotFound = NewError("block not found")
)

// Error is a parse failure with an error kind, an optional source
// position, and optional structured logging attributes.
// It implements both error and slog.LogValuer.
type Error struct {
	msg    string
	kind   *Error // sentinel this error derives from (nil for sentinels)
	err    error  // wrapped error (for errors.Unwrap)
	pos    Position
	hasPos bool
	attrs  []slog.Attr
}

// NewError creates a new sentinel Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface. The position, when known, is
// appended as "at line L, column C".
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		if e.hasPos {
			part = append(part, e.msg+
				" at line "+strconv.Itoa(e.pos.Line)+
				", column "+strconv.Itoa(e.pos.Column))
		} else {
			part = append(part, e.msg)
		}
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is this error or the sentinel it derives
// from, so errors.Is(err, ErrMissingSemicolon) works on derived errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t == e || t == e.kind
}

// Position returns the source position attached to the error.
// The second return is false if no position was recorded.
func (e *Error) Position() (Position, bool) {
	return e.pos, e.hasPos
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.hasPos {
		attrs = append(attrs,
			slog.Int("offset", e.pos.Offset),
			slog.String("position", e.pos.String()))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// sentinel returns the kind to record on errors derived from e.
func (e *Error) sentinel() *Error {
	if e.kind != nil {
		return e.kind
	}

	return e
}

// Wrap creates a new Error of the same kind wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:    e.msg,
		kind:   e.sentinel(),
		err:    err,
		pos:    e.pos,
		hasPos: e.hasPos,
		attrs:  e.attrs, // share attrs
	}
}

// WithPosition creates a new Error of the same kind carrying the source
// position of the offending token.
func (e *Error) WithPosition(pos Position) *Error {
	return &Error{
		msg:    e.msg,
		kind:   e.sentinel(),
		err:    e.err,
		pos:    pos,
		hasPos: true,
		attrs:  e.attrs,
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:    e.msg,
		kind:   e.sentinel(),
		err:    e.err,
		pos:    e.pos,
		hasPos: e.hasPos,
		attrs:  newAttrs,
	}
}

// Diagnostic formats the error against its source text as a
// human-readable message with the offending line and a column marker:
//
//	unterminated string at line 2, column 15:
//	  2 |     path = "/usr/jails/www;
//	                 ^
//
// If the error has no position, the plain error message is returned.
func (e *Error) Diagnostic(source string) string {
	if !e.hasPos {
		return e.Error()
	}

	var buf strings.Builder

	buf.WriteString(e.Error())
	buf.WriteString(":\n")

	lines := strings.Split(source, "\n")
	if e.pos.Line < 1 || e.pos.Line > len(lines) {
		return buf.String()
	}

	line := lines[e.pos.Line-1]
	number := strconv.Itoa(e.pos.Line)

	buf.WriteString("  ")
	buf.WriteString(number)
	buf.WriteString(" | ")
	buf.WriteString(line)
	buf.WriteRune('\n')

	// 5 accounts for: 2 leading spaces + " | ".
	padding := len(number) + 5
	if e.pos.Column > 0 {
		padding += e.pos.Column - 1
	}

	buf.WriteString(strings.Repeat(" ", padding))
	buf.WriteString("^\n")

	return buf.String()
}
