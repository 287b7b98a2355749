// Package jailconf parses the FreeBSD jail.conf(5) configuration format
// into a strongly-typed, read-only document model.
//
// # Philosophy
//
// The format is small and regular: named blocks of parameter statements.
// No parser generator. No generated code. The grammar is simple enough for
// a hand-written recursive descent parser over a fully materialized text
// buffer, and the parser is a single synchronous left-to-right pass.
//
// # Grammar
//
// Informal EBNF:
//
//	Document  → (Block | Parameter)* EOF
//	Block     → BlockName '{' Parameter* '}'
//	BlockName → Identifier | '*'
//	Parameter → DottedKey ( '=' Value | '+=' Value )? ';'
//	Value     → QuotedString | BareValue
//
// Blocks are flat: a block body contains only parameters, never another
// block. Comments in C ("/* */"), C++ ("//"), and shell ("#") style are
// skipped wherever whitespace is skipped.
//
// # Example
//
//	www {
//	    host.hostname = "www.example.org";   // quoted value
//	    ip4.addr = 192.0.2.10;               // bare value
//	    ip4.addr += 192.0.2.11;              // appended occurrence
//	    allow.mount;                         // presence (boolean flag)
//	}
//
// Parsing yields a [Document] whose blocks and parameters preserve source
// order. A parameter without an operator carries [OpPresence] and no
// values; '=' carries [OpSet] and '+=' carries [OpAppend], each with
// exactly one value. Repeated '+=' statements for one key remain separate
// [Parameter] entries; accumulation into a logical array is a consumer
// concern (see [JailBlock.Values] and [Document.ToMap]).
//
// # Errors
//
// Parsing is all-or-nothing. A malformed input never yields a partial
// document and never panics; it yields an [*Error] classified by sentinel
// kind ([ErrUnterminatedString], [ErrUnbalancedBlock], and so on) and
// carrying the source [Position] of the first unrecoverable token.
package jailconf
