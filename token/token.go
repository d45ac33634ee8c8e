// Package token defines the lexical token kinds and the Token value
// produced by the lexer, per spec.md §4.1.
package token

import "github.com/hivellm/tmlc/source"

// Kind enumerates every token kind the lexer produces.
type Kind int

const (
	EOF Kind = iota
	ERROR

	Ident
	IntLit
	FloatLit
	StringLit
	CharLit
	BoolLit

	// String interpolation sub-tokens (spec.md §4.1).
	StringPart
	InterpStart
	InterpEnd

	// Punctuation.
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Semi
	Colon
	ColonColon
	Dot
	DotDot
	DotDotEq
	Arrow   // ->
	FatArrow // =>
	At
	Bang
	Question
	Pipe

	// Operators.
	Plus
	Minus
	Star
	Slash
	Percent
	StarStar
	EqEq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	Amp
	Caret
	Tilde
	Shl
	Shr
	Assign
	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	AmpEq
	PipeEq
	CaretEq
	ShlEq
	ShrEq

	// Keywords.
	KwFunc
	KwLet
	KwMut
	KwReturn
	KwIf
	KwThen
	KwElse
	KwWhen
	KwFor
	KwWhile
	KwLoop
	KwBreak
	KwContinue
	KwDo
	KwType
	KwStruct
	KwEnum
	KwBehavior
	KwExtend
	KwImpl
	KwWhere
	KwMod
	KwUse
	KwPub
	KwRef
	KwMove
	KwTransfer
	KwAnd
	KwOr
	KwNot
	KwTo
	KwThrough
	KwAsync
	KwAwait
	KwCaps
	KwUnit
	KwNever
)

var keywords = map[string]Kind{
	"func": KwFunc, "let": KwLet, "mut": KwMut, "return": KwReturn,
	"if": KwIf, "then": KwThen, "else": KwElse, "when": KwWhen,
	"for": KwFor, "while": KwWhile, "loop": KwLoop,
	"break": KwBreak, "continue": KwContinue, "do": KwDo,
	"type": KwType, "struct": KwStruct, "enum": KwEnum,
	"behavior": KwBehavior, "extend": KwExtend, "impl": KwImpl,
	"where": KwWhere, "mod": KwMod, "use": KwUse, "pub": KwPub,
	"ref": KwRef, "move": KwMove, "transfer": KwTransfer,
	"and": KwAnd, "or": KwOr, "not": KwNot,
	"to": KwTo, "through": KwThrough,
	"async": KwAsync, "await": KwAwait, "caps": KwCaps,
	"true": BoolLit, "false": BoolLit,
}

// Lookup returns the keyword Kind for word, or (Ident, false) if word is not
// a keyword.
func Lookup(word string) (Kind, bool) {
	k, ok := keywords[word]
	if !ok {
		return Ident, false
	}
	return k, true
}

// NumLiteral is the decoded payload of an integer or float literal.
type NumLiteral struct {
	IsFloat  bool
	IntVal   uint64 // valid when !IsFloat
	FloatVal float64
	Suffix   string // e.g. "i32", "u64", "f32"; "" if unsuffixed
}

// Literal is the decoded payload carried by a literal token.
type Literal struct {
	Num    NumLiteral
	Str    string // decoded string/char contents
	Bool   bool
	Raw    bool // string literal was r"..."
}

// Token is one lexical unit. Tokens are immutable once produced.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string // exact source text covered by Span
	Literal Literal
}
