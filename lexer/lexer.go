// Package lexer implements the TML tokenizer (spec.md §4.1): a
// deterministic, restartable scan from source bytes to a token stream ending
// in EOF, plus diagnostics for malformed input. Unlike a backtracking
// scanner, every method here consumes forward only. A byte that starts no
// token is recorded as a diagnostic, emitted as an ERROR token, and skipped
// by exactly one code point so the parser downstream can always
// resynchronize (spec.md §4.1 "Errors"). A malformed number, string, char
// or escape is recorded as a diagnostic as well, but its token keeps the
// literal's own kind; no ERROR token is emitted for it.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/token"
)

// Directive is an "// @ai:name "payload"" comment captured for attachment to
// the following declaration (spec.md §4.1 "Comments").
type Directive struct {
	Name    string
	Payload string
	Span    source.Span
}

// Lexer scans one file's bytes into tokens.
type Lexer struct {
	sink *reporter.Sink
	file source.FileID
	src  []byte
	pos  int // byte offset into src

	// Directives accumulated since the last non-directive token, flushed to
	// the parser by TakeDirectives whenever a declaration is about to start.
	pending []Directive
}

// New returns a Lexer over src, reporting diagnostics into sink.
func New(sink *reporter.Sink, file source.FileID, src []byte) *Lexer {
	return &Lexer{sink: sink, file: file, src: src}
}

func (l *Lexer) at(off int) byte {
	if off < 0 || off >= len(l.src) {
		return 0
	}
	return l.src[off]
}

func (l *Lexer) cur() byte  { return l.at(l.pos) }
func (l *Lexer) peek() byte { return l.at(l.pos + 1) }

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) mkPos(off int) source.Pos {
	return source.Pos{File: l.file, Offset: uint32(off)}
}

func (l *Lexer) span(start int) source.Span {
	return source.Span{Start: l.mkPos(start), End: l.mkPos(l.pos)}
}

func isIdentStart(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b)) || b >= utf8.RuneSelf
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// TakeDirectives returns and clears the AI directives captured since the
// last call, for the parser to attach to the declaration it is about to
// parse.
func (l *Lexer) TakeDirectives() []Directive {
	d := l.pending
	l.pending = nil
	return d
}

// Next scans and returns the next token. Returns a token of Kind EOF forever
// once the input is exhausted.
func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespace()
		if l.eof() {
			return token.Token{Kind: token.EOF, Span: l.span(l.pos)}
		}
		if tok, isComment := l.tryComment(); isComment {
			if tok.Kind != token.EOF || !l.eof() {
				continue
			}
			return tok
		}
		break
	}

	start := l.pos
	b := l.cur()

	switch {
	case isIdentStart(b):
		return l.scanIdentOrKeyword(start)
	case isDigit(b):
		return l.scanNumber(start)
	case b == '"':
		return l.scanString(start, false)
	case b == 'r' && l.peek() == '"':
		l.pos++
		return l.scanString(start, true)
	case b == '\'':
		return l.scanChar(start)
	}

	return l.scanPunct(start)
}

func (l *Lexer) skipWhitespace() {
	for !l.eof() {
		switch l.cur() {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

// tryComment consumes a line or block comment at the current position if
// one starts there. The second return reports whether a comment (or AI
// directive) was consumed; callers should loop back to skip whitespace
// again.
func (l *Lexer) tryComment() (token.Token, bool) {
	if l.cur() != '/' {
		return token.Token{}, false
	}
	switch l.peek() {
	case '/':
		start := l.pos
		l.pos += 2
		lineStart := l.pos
		for !l.eof() && l.cur() != '\n' {
			l.pos++
		}
		text := string(l.src[lineStart:l.pos])
		if strings.HasPrefix(text, " @ai:") || strings.HasPrefix(text, "@ai:") {
			l.captureDirective(start, text)
		}
		return token.Token{}, true
	case '*':
		start := l.pos
		l.pos += 2
		depth := 1
		for !l.eof() && depth > 0 {
			switch {
			case l.cur() == '/' && l.peek() == '*':
				depth++
				l.pos += 2
			case l.cur() == '*' && l.peek() == '/':
				depth--
				l.pos += 2
			default:
				l.pos++
			}
		}
		if depth > 0 {
			l.sink.Errorf(reporter.CategoryLex, "E0101", l.span(start), "unterminated block comment")
		}
		return token.Token{}, true
	}
	return token.Token{}, false
}

// captureDirective parses "@ai:name \"payload\"" out of a line comment's
// text and appends it to the pending directive list (spec.md §4.1).
func (l *Lexer) captureDirective(start int, text string) {
	text = strings.TrimPrefix(text, " ")
	text = strings.TrimPrefix(text, "@ai:")
	name := text
	payload := ""
	if idx := strings.IndexByte(text, '"'); idx >= 0 {
		name = strings.TrimSpace(text[:idx])
		rest := text[idx:]
		if end := strings.LastIndexByte(rest, '"'); end > 0 {
			payload = rest[1:end]
		}
	} else {
		name = strings.TrimSpace(text)
	}
	l.pending = append(l.pending, Directive{
		Name:    name,
		Payload: payload,
		Span:    l.span(start),
	})
}

func (l *Lexer) scanIdentOrKeyword(start int) token.Token {
	for !l.eof() && isIdentCont(l.cur()) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	if kind, ok := token.Lookup(text); ok {
		tok := token.Token{Kind: kind, Span: l.span(start), Text: text}
		if kind == token.BoolLit {
			tok.Literal.Bool = text == "true"
		}
		return tok
	}
	return token.Token{Kind: token.Ident, Span: l.span(start), Text: text}
}

func (l *Lexer) scanNumber(start int) token.Token {
	base := 10
	if l.cur() == '0' {
		switch l.peek() {
		case 'x', 'X':
			base = 16
			l.pos += 2
		case 'o', 'O':
			base = 8
			l.pos += 2
		case 'b', 'B':
			base = 2
			l.pos += 2
		}
	}

	digitsStart := l.pos
	isFloat := false
	for !l.eof() {
		b := l.cur()
		if b == '_' {
			l.pos++
			continue
		}
		if isValidDigit(b, base) {
			l.pos++
			continue
		}
		if base == 10 && b == '.' && isDigit(l.peek()) {
			isFloat = true
			l.pos++
			continue
		}
		if base == 10 && (b == 'e' || b == 'E') {
			isFloat = true
			l.pos++
			if l.cur() == '+' || l.cur() == '-' {
				l.pos++
			}
			continue
		}
		break
	}
	digitsText := string(l.src[digitsStart:l.pos])

	suffixStart := l.pos
	for !l.eof() && isIdentCont(l.cur()) {
		l.pos++
	}
	suffix := string(l.src[suffixStart:l.pos])

	cleaned := strings.ReplaceAll(digitsText, "_", "")
	lit := token.NumLiteral{Suffix: suffix, IsFloat: isFloat}
	if isFloat {
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			l.sink.Errorf(reporter.CategoryLex, "E0102", l.span(start), "invalid float literal %q", digitsText)
		}
		lit.FloatVal = f
	} else {
		v, err := strconv.ParseUint(cleaned, base, 64)
		if err != nil {
			l.sink.Errorf(reporter.CategoryLex, "E0103", l.span(start), "invalid digit for base %d in %q", base, digitsText)
		}
		lit.IntVal = v
	}

	return token.Token{
		Kind:    kindFor(isFloat),
		Span:    l.span(start),
		Text:    string(l.src[start:l.pos]),
		Literal: token.Literal{Num: lit},
	}
}

func kindFor(isFloat bool) token.Kind {
	if isFloat {
		return token.FloatLit
	}
	return token.IntLit
}

func isValidDigit(b byte, base int) bool {
	switch base {
	case 2:
		return b == '0' || b == '1'
	case 8:
		return b >= '0' && b <= '7'
	case 16:
		return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
	default:
		return isDigit(b)
	}
}

// scanString scans a "..." literal, handling escapes and ${...}
// interpolation holes by emitting the opening quote of a StringPart and
// recording where the caller (the parser) must re-enter the lexer to scan an
// interpolated sub-expression; raw strings skip escape processing entirely.
func (l *Lexer) scanString(start int, raw bool) token.Token {
	l.pos++ // consume opening quote
	var decoded strings.Builder
	for {
		if l.eof() {
			l.sink.Errorf(reporter.CategoryLex, "E0104", l.span(start), "unterminated string literal")
			break
		}
		b := l.cur()
		if b == '"' {
			l.pos++
			break
		}
		if !raw && b == '$' && l.peek() == '{' {
			// Interpolation hole: the caller drives sub-expression parsing
			// via InterpStart/InterpEnd; here we simply stop this string
			// part at the hole. Full multi-part interpolation threading is
			// owned by parser.parseStringInterp, which re-invokes the lexer
			// after balancing braces.
			break
		}
		if !raw && b == '\\' {
			l.pos++
			decoded.WriteRune(l.scanEscape(start))
			continue
		}
		r, size := utf8.DecodeRune(l.src[l.pos:])
		decoded.WriteRune(r)
		l.pos += size
	}
	return token.Token{
		Kind:    token.StringLit,
		Span:    l.span(start),
		Text:    string(l.src[start:l.pos]),
		Literal: token.Literal{Str: decoded.String(), Raw: raw},
	}
}

func (l *Lexer) scanEscape(litStart int) rune {
	if l.eof() {
		l.sink.Errorf(reporter.CategoryLex, "E0105", l.span(litStart), "unterminated escape sequence")
		return 0
	}
	b := l.cur()
	l.pos++
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '0':
		return 0
	case 'x':
		return l.scanHexEscape(litStart, 2)
	case 'u':
		if l.cur() != '{' {
			l.sink.Errorf(reporter.CategoryLex, "E0106", l.span(litStart), "expected '{' after \\u")
			return 0
		}
		l.pos++
		start := l.pos
		for !l.eof() && l.cur() != '}' {
			l.pos++
		}
		hex := string(l.src[start:l.pos])
		if !l.eof() {
			l.pos++ // consume '}'
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			l.sink.Errorf(reporter.CategoryLex, "E0106", l.span(litStart), "invalid unicode escape \\u{%s}", hex)
			return 0
		}
		return rune(v)
	default:
		l.sink.Errorf(reporter.CategoryLex, "E0107", l.span(litStart), "invalid escape sequence '\\%c'", b)
		return rune(b)
	}
}

func (l *Lexer) scanHexEscape(litStart int, n int) rune {
	start := l.pos
	for i := 0; i < n && !l.eof() && isValidDigit(l.cur(), 16); i++ {
		l.pos++
	}
	hex := string(l.src[start:l.pos])
	v, err := strconv.ParseUint(hex, 16, 8)
	if err != nil || len(hex) != n {
		l.sink.Errorf(reporter.CategoryLex, "E0108", l.span(litStart), "invalid hex escape \\x%s", hex)
		return 0
	}
	return rune(v)
}

// scanChar scans a '...' literal. Per SPEC_FULL.md §1 (uniseg wiring), the
// decoded contents must form exactly one grapheme cluster.
func (l *Lexer) scanChar(start int) token.Token {
	l.pos++ // consume opening quote
	var decoded strings.Builder
	for !l.eof() && l.cur() != '\'' {
		if l.cur() == '\\' {
			l.pos++
			decoded.WriteRune(l.scanEscape(start))
			continue
		}
		r, size := utf8.DecodeRune(l.src[l.pos:])
		decoded.WriteRune(r)
		l.pos += size
	}
	if l.eof() {
		l.sink.Errorf(reporter.CategoryLex, "E0109", l.span(start), "unterminated char literal")
	} else {
		l.pos++ // consume closing quote
	}

	text := decoded.String()
	if uniseg.GraphemeClusterCount(text) != 1 {
		l.sink.Errorf(reporter.CategoryLex, "E0110", l.span(start),
			"char literal must contain exactly one grapheme cluster, found %d", uniseg.GraphemeClusterCount(text))
	}

	return token.Token{
		Kind: token.CharLit,
		Span: l.span(start),
		Text: string(l.src[start:l.pos]),
		Literal: token.Literal{
			Str: text,
		},
	}
}

type punct struct {
	text string
	kind token.Kind
}

// Longest-match-first punctuation table.
var punctTable = []punct{
	{"..=", token.DotDotEq},
	{"**=", token.StarStar}, // ** is not compound-assignable; kept distinct below
	{"->", token.Arrow},
	{"=>", token.FatArrow},
	{"::", token.ColonColon},
	{"..", token.DotDot},
	{"==", token.EqEq},
	{"!=", token.NotEq},
	{"<=", token.LtEq},
	{">=", token.GtEq},
	{"<<", token.Shl},
	{">>", token.Shr},
	{"+=", token.PlusEq},
	{"-=", token.MinusEq},
	{"*=", token.StarEq},
	{"/=", token.SlashEq},
	{"%=", token.PercentEq},
	{"&=", token.AmpEq},
	{"|=", token.PipeEq},
	{"^=", token.CaretEq},
	{"**", token.StarStar},
	{"(", token.LParen}, {")", token.RParen},
	{"[", token.LBracket}, {"]", token.RBracket},
	{"{", token.LBrace}, {"}", token.RBrace},
	{",", token.Comma}, {";", token.Semi},
	{":", token.Colon}, {".", token.Dot},
	{"@", token.At}, {"!", token.Bang}, {"?", token.Question},
	{"|", token.Pipe}, {"+", token.Plus}, {"-", token.Minus},
	{"*", token.Star}, {"/", token.Slash}, {"%", token.Percent},
	{"<", token.Lt}, {">", token.Gt}, {"&", token.Amp},
	{"^", token.Caret}, {"~", token.Tilde}, {"=", token.Assign},
}

func (l *Lexer) scanPunct(start int) token.Token {
	remaining := l.src[l.pos:]
	for _, p := range punctTable {
		if p.text == "**=" {
			continue // TML has no **= compound form; skip the placeholder
		}
		if strings.HasPrefix(string(remaining), p.text) {
			l.pos += len(p.text)
			return token.Token{Kind: p.kind, Span: l.span(start), Text: p.text}
		}
	}
	r, size := utf8.DecodeRune(remaining)
	l.pos += size
	l.sink.Errorf(reporter.CategoryLex, "E0111", l.span(start), "stray byte %q", r)
	return token.Token{Kind: token.ERROR, Span: l.span(start), Text: string(r)}
}

// DefaultIntSuffix is the spec's default integer literal type when no
// suffix and no inference constraint pins it (spec.md §4.1: "I32").
const DefaultIntSuffix = "i32"

// DefaultFloatSuffix is the spec's default float literal type (spec.md
// §4.1: "F64").
const DefaultFloatSuffix = "f64"
