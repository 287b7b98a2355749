package jailconf

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jailconf/jailconf/log"
)

// Option configures parsing behavior.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sets the structured logger used to trace parsing.
// The zero Logger discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// ParseReader parses a Document from an io.Reader.
func ParseReader(
	ctx context.Context,
	r io.Reader,
	opts ...Option,
) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return ParseString(ctx, string(data), opts...)
}

// ParseString parses a Document from a string. The pass is synchronous
// and left-to-right; on the first unrecoverable token it returns an
// *Error carrying the source position, never a partial Document.
//
// The parser keeps no state between calls: identical input yields a
// structurally identical Document, and concurrent calls on independent
// buffers are safe.
func ParseString(
	ctx context.Context,
	s string,
	opts ...Option,
) (*Document, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &parser{
		input:  []byte(s),
		pos:    0,
		line:   1,
		col:    1,
		logger: o.logger,
	}

	doc, err := p.parseDocument()
	if err != nil {
		return nil, err
	}

	p.logger.TraceContext(ctx, "parse complete",
		slog.Int("blocks", len(doc.Blocks)),
		slog.Int("globals", len(doc.Globals)))

	return doc, nil
}

// parser holds the parser state.
type parser struct {
	input  []byte
	pos    int
	line   int
	col    int
	logger log.Logger
}

// parseDocument parses the entire input as a sequence of blocks and
// top-level parameters.
func (p *parser) parseDocument() (*Document, error) {
	doc := new(Document)

	for {
		p.skipWhitespaceAndComments()

		if p.eof() {
			break
		}

		if p.startsBlock() {
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			doc.Blocks = append(doc.Blocks, block)

			continue
		}

		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}

		doc.Globals = append(doc.Globals, param)
	}

	return doc, nil
}

// startsBlock reports whether the statement at the current position is a
// block header. The lookahead is bounded: scan one word, skip whitespace
// and comments, and check for '{'. Position is restored before returning.
func (p *parser) startsBlock() bool {
	saved := p.save()
	defer p.restore(saved)

	if p.scanWord() == "" {
		return false
	}

	p.skipWhitespaceAndComments()

	return p.peek() == '{'
}

// parseBlock parses: BlockName '{' Parameter* '}'.
func (p *parser) parseBlock() (*JailBlock, error) {
	pos := p.position()

	name, err := p.parseBlockName()
	if err != nil {
		return nil, err
	}

	p.skipWhitespaceAndComments()

	if !p.expect('{') {
		return nil, ErrUnexpectedToken.WithPosition(p.position()).
			With(slog.String("expected", "{"),
				slog.String("block", name))
	}

	block := &JailBlock{Name: name, Pos: pos}

	for {
		p.skipWhitespaceAndComments()

		if p.eof() {
			return nil, ErrUnbalancedBlock.WithPosition(p.position()).
				With(slog.String("block", name))
		}

		if p.peek() == '}' {
			p.advance()

			break
		}

		// The grammar is flat: block bodies hold parameters only.
		if p.peek() == '{' || p.startsBlock() {
			return nil, ErrUnexpectedToken.WithPosition(p.position()).
				With(slog.String("block", name),
					slog.String("expected", "parameter or '}'"))
		}

		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}

		block.Params = append(block.Params, param)
	}

	return block, nil
}

// parseBlockName parses a block header name: an identifier of letters,
// digits, '_', and '-', or the wildcard '*'.
func (p *parser) parseBlockName() (string, error) {
	pos := p.position()
	name := p.scanWord()

	if name == "*" {
		return name, nil
	}

	if name == "" {
		return "", ErrInvalidBlockName.WithPosition(pos)
	}

	for _, r := range name {
		if !isBlockNameChar(r) {
			return "", ErrInvalidBlockName.WithPosition(pos).
				With(slog.String("name", name))
		}
	}

	return name, nil
}

// parseParameter parses: DottedKey ( '=' Value | '+=' Value )? ';'.
// The '+=' form is tried before '=' so the '+' character is never
// misread, and the bare "key;" form is the final fallback.
func (p *parser) parseParameter() (*Parameter, error) {
	pos := p.position()

	key, err := p.parseKey()
	if err != nil {
		return nil, err
	}

	p.skipWhitespaceAndComments()

	param := &Parameter{Key: key, Pos: pos}

	switch {
	case p.peek() == ';':
		p.advance()

		param.Op = OpPresence

	case p.peekN(2) == "+=":
		p.advance()
		p.advance()

		param.Op = OpAppend

		err = p.parseParameterValue(param)

	case p.peek() == '=':
		p.advance()

		param.Op = OpSet

		err = p.parseParameterValue(param)

	case p.eof():
		return nil, ErrMissingSemicolon.WithPosition(p.position()).
			With(slog.String("key", key))

	default:
		return nil, ErrUnexpectedToken.WithPosition(p.position()).
			With(slog.String("key", key),
				slog.String("expected", "';', '=', or '+='"))
	}

	if err != nil {
		return nil, err
	}

	return param, nil
}

// parseParameterValue parses the value and terminating ';' of a Set or
// Append statement.
func (p *parser) parseParameterValue(param *Parameter) error {
	p.skipWhitespaceAndComments()

	value, err := p.parseValue()
	if err != nil {
		return err
	}

	param.Values = []string{value}

	p.skipWhitespaceAndComments()

	if !p.expect(';') {
		return ErrMissingSemicolon.WithPosition(p.position()).
			With(slog.String("key", param.Key))
	}

	return nil
}

// parseKey parses a dotted key: identifier segments of letters, digits,
// and '_', joined by '.'. No leading, trailing, or doubled dots.
func (p *parser) parseKey() (string, error) {
	pos := p.position()
	start := p.pos

	for !p.eof() && isKeyChar(p.peek()) {
		p.advance()
	}

	key := string(p.input[start:p.pos])

	if key == "" {
		return "", ErrUnexpectedToken.WithPosition(pos).
			With(slog.String("expected", "parameter key"))
	}

	// A key must end at whitespace, an operator, a terminator, or EOF.
	// Anything else is an illegal key character.
	if !p.eof() && !isKeyBoundary(p.peek()) {
		return "", ErrInvalidKey.WithPosition(p.position()).
			With(slog.String("key", key),
				slog.String("char", string(p.peek())))
	}

	for segment := range strings.SplitSeq(key, ".") {
		if segment == "" {
			return "", ErrInvalidKey.WithPosition(pos).
				With(slog.String("key", key))
		}
	}

	return key, nil
}

// parseValue parses a value: a quoted string or a bare token.
func (p *parser) parseValue() (string, error) {
	if p.peek() == '"' {
		return p.parseQuotedString()
	}

	return p.parseBareValue()
}

// parseQuotedString parses: '"' ... '"', with \" and \\ escapes.
// Unknown escapes pass through verbatim. A raw newline or end of input
// before the closing quote is an unterminated string.
func (p *parser) parseQuotedString() (string, error) {
	pos := p.position()

	p.advance() // skip opening quote

	var value strings.Builder

	for {
		if p.eof() {
			return "", ErrUnterminatedString.WithPosition(pos)
		}

		ch := p.peek()

		switch ch {
		case '"':
			p.advance()

			return value.String(), nil

		case '\n':
			return "", ErrUnterminatedString.WithPosition(pos)

		case '\\':
			p.advance()

			if p.eof() {
				return "", ErrUnterminatedString.WithPosition(pos)
			}

			esc := p.peek()
			if esc == '"' || esc == '\\' {
				value.WriteRune(esc)
			} else {
				value.WriteRune('\\')
				value.WriteRune(esc)
			}

			p.advance()

		default:
			value.WriteRune(ch)
			p.advance()
		}
	}
}

// parseBareValue parses an unquoted token: any run of characters
// excluding whitespace, ';', '{', and '}'.
func (p *parser) parseBareValue() (string, error) {
	pos := p.position()
	value := p.scanWord()

	if value == "" {
		return "", ErrUnexpectedToken.WithPosition(pos).
			With(slog.String("expected", "value"))
	}

	return value, nil
}

// scanWord consumes a run of characters excluding whitespace, ';', '{',
// and '}'. Returns the empty string if none are present.
func (p *parser) scanWord() string {
	start := p.pos

	for !p.eof() {
		ch := p.peek()
		if unicode.IsSpace(ch) || ch == ';' || ch == '{' || ch == '}' {
			break
		}

		p.advance()
	}

	return string(p.input[start:p.pos])
}

// Helper methods

type mark struct {
	pos  int
	line int
	col  int
}

func (p *parser) save() mark {
	return mark{pos: p.pos, line: p.line, col: p.col}
}

func (p *parser) restore(m mark) {
	p.pos, p.line, p.col = m.pos, m.line, m.col
}

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(p.input[p.pos:])

	return r
}

func (p *parser) peekN(n int) string {
	if p.pos+n > len(p.input) {
		return string(p.input[p.pos:])
	}

	return string(p.input[p.pos : p.pos+n])
}

func (p *parser) advance() {
	if p.eof() {
		return
	}

	r, size := utf8.DecodeRune(p.input[p.pos:])

	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
}

func (p *parser) expect(ch rune) bool {
	if p.peek() == ch {
		p.advance()

		return true
	}

	return false
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) position() Position {
	return Position{
		Offset: p.pos,
		Line:   p.line,
		Column: p.col,
	}
}

func (p *parser) skipWhitespace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.advance()
	}
}

// skipWhitespaceAndComments skips insignificant whitespace along with
// C ("/* */"), C++ ("//"), and shell ("#") style comments.
func (p *parser) skipWhitespaceAndComments() {
	for {
		p.skipWhitespace()

		if p.eof() {
			return
		}

		if p.peek() == '#' || p.peekN(2) == "//" {
			p.skipLineComment()

			continue
		}

		if p.peekN(2) == "/*" {
			p.skipBlockComment()

			continue
		}

		break
	}
}

func (p *parser) skipLineComment() {
	for !p.eof() && p.peek() != '\n' {
		p.advance()
	}

	if !p.eof() {
		p.advance() // skip '\n'
	}
}

func (p *parser) skipBlockComment() {
	p.advance() // skip '/'
	p.advance() // skip '*'

	for !p.eof() {
		if p.peekN(2) == "*/" {
			p.advance() // skip '*'
			p.advance() // skip '/'

			return
		}

		p.advance()
	}
}

// Character classification

func isKeyChar(r rune) bool {
	return r == '.' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func isKeyBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == ';' || r == '=' || r == '+' ||
		r == '}' || r == '{'
}

func isBlockNameChar(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
