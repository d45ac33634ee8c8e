// Package parser implements the TML LL(1) recursive-descent parser
// (spec.md §4.2): one token of lookahead, no backtracking, producing an AST
// rooted at Module plus diagnostics, with statement/item-level error
// recovery.
package parser

import (
	"strconv"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/lexer"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/token"
)

// Parser holds the single-token lookahead state for one file.
type Parser struct {
	lex         *lexer.Lexer
	sink        *reporter.Sink
	file        source.FileID
	tok         token.Token
	nextID      ast.NodeID
	noStructLit bool
}

// New returns a Parser reading tokens from lex.
func New(sink *reporter.Sink, file source.FileID, lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex, sink: sink, file: file}
	p.advance()
	return p
}

func (p *Parser) id() ast.NodeID {
	p.nextID++
	return p.nextID
}

func (p *Parser) advance() token.Token {
	cur := p.tok
	p.tok = p.lex.Next()
	return cur
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	if tok, ok := p.accept(k); ok {
		return tok
	}
	p.sink.Errorf(reporter.CategoryParse, "E0201", p.tok.Span, "expected %s, found %q", what, p.tok.Text)
	return token.Token{Kind: token.ERROR, Span: p.tok.Span}
}

func (p *Parser) directives() []ast.AIDirective {
	raw := p.lex.TakeDirectives()
	if len(raw) == 0 {
		return nil
	}
	out := make([]ast.AIDirective, len(raw))
	for i, d := range raw {
		out[i] = ast.AIDirective{Name: d.Name, Payload: d.Payload, Span: d.Span}
	}
	return out
}

// synchronizeStmt skips tokens until a statement boundary, for error
// recovery (spec.md §4.2 "Recovery").
func (p *Parser) synchronizeStmt() {
	for !p.at(token.EOF) {
		if p.at(token.Semi) {
			p.advance()
			return
		}
		if p.at(token.RBrace) {
			return
		}
		if isItemStart(p.tok.Kind) {
			return
		}
		p.advance()
	}
}

// synchronizeItem skips tokens until a top-level item boundary.
func (p *Parser) synchronizeItem() {
	for !p.at(token.EOF) {
		if isItemStart(p.tok.Kind) {
			return
		}
		p.advance()
	}
}

func isItemStart(k token.Kind) bool {
	switch k {
	case token.KwFunc, token.KwType, token.KwStruct, token.KwEnum,
		token.KwBehavior, token.KwExtend, token.KwUse, token.KwMod,
		token.KwPub, token.KwLet:
		return true
	default:
		return false
	}
}

// ParseModule parses one file to completion.
func (p *Parser) ParseModule(path string) *ast.Module {
	start := p.tok.Span
	mod := &ast.Module{Base: ast.Base{ID: p.id()}, Path: path}

	for p.at(token.KwMod) && looksLikeCapsDecl(p) {
		// `caps: [a, b]` pseudo-declaration at file scope; parsed below in
		// parseCaps when the `caps` keyword token itself is seen instead.
		break
	}
	for p.at(token.KwCaps) {
		mod.Caps = p.parseCaps()
	}
	for p.at(token.KwUse) {
		mod.Uses = append(mod.Uses, p.parseUse())
	}
	for !p.at(token.EOF) {
		if p.at(token.KwCaps) {
			mod.Caps = append(mod.Caps, p.parseCaps()...)
			continue
		}
		decl := p.parseDecl()
		if decl != nil {
			mod.Decls = append(mod.Decls, decl)
		}
	}
	mod.Span = source.Span{Start: start.Start, End: p.tok.Span.End}
	return mod
}

func looksLikeCapsDecl(p *Parser) bool { return false }

func (p *Parser) parseCaps() []string {
	p.expect(token.KwCaps, "'caps'")
	p.expect(token.Colon, "':'")
	p.expect(token.LBracket, "'['")
	var caps []string
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		caps = append(caps, p.parseEffectPath())
		if _, ok := p.accept(token.Comma); ok {
			continue
		}
		break
	}
	p.expect(token.RBracket, "']'")
	p.accept(token.Semi)
	return caps
}

// parseEffectPath parses a dotted effect name like `io.file.read`.
func (p *Parser) parseEffectPath() string {
	name := p.expect(token.Ident, "effect name").Text
	for p.at(token.Dot) {
		p.advance()
		name += "." + p.expect(token.Ident, "effect name segment").Text
	}
	return name
}

func (p *Parser) parseUse() *ast.Use {
	start := p.tok.Span
	p.expect(token.KwUse, "'use'")
	var segs []string
	segs = append(segs, p.expect(token.Ident, "path segment").Text)
	for p.at(token.ColonColon) {
		p.advance()
		segs = append(segs, p.expect(token.Ident, "path segment").Text)
	}
	alias := ""
	if p.at(token.Ident) && p.tok.Text == "as" {
		p.advance()
		alias = p.expect(token.Ident, "alias name").Text
	}
	p.accept(token.Semi)
	return &ast.Use{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}, Path: segs, Alias: alias}
}

func (p *Parser) spanSince(start source.Span) source.Span {
	return source.Span{Start: start.Start, End: p.tok.Span.Start}
}

// parseDecl dispatches to the right top-level item parser. On an
// unrecognized token it reports an error and recovers at the next item
// boundary (spec.md §4.2 "Recovery").
func (p *Parser) parseDecl() ast.Decl {
	ai := p.directives()
	public := false
	if _, ok := p.accept(token.KwPub); ok {
		public = true
	}
	switch p.tok.Kind {
	case token.KwFunc:
		return p.parseFunc(ai, public, nil)
	case token.KwType:
		return p.parseTypeDecl(ai, public)
	case token.KwStruct:
		return p.parseAnonStructIsError(ai, public)
	case token.KwBehavior:
		return p.parseBehavior(ai, public)
	case token.KwExtend:
		return p.parseExtend(ai, public)
	case token.KwLet:
		return p.parseConst(ai, public)
	default:
		p.sink.Errorf(reporter.CategoryParse, "E0202", p.tok.Span, "expected a declaration, found %q", p.tok.Text)
		p.synchronizeItem()
		return nil
	}
}

func (p *Parser) parseAnonStructIsError(ai []ast.AIDirective, public bool) ast.Decl {
	// `struct` only ever appears as the RHS of `type Name = struct { ... }`;
	// a bare `struct` at item position is a user error.
	p.sink.Errorf(reporter.CategoryParse, "E0203", p.tok.Span, "'struct' must appear after 'type Name ='")
	p.synchronizeItem()
	return nil
}

func (p *Parser) parseGenerics() []ast.GenericParam {
	if !p.at(token.LBracket) {
		return nil
	}
	p.advance()
	var gens []ast.GenericParam
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		start := p.tok.Span
		name := p.expect(token.Ident, "type parameter name").Text
		var bounds []string
		if _, ok := p.accept(token.Colon); ok {
			bounds = append(bounds, p.expect(token.Ident, "behavior name").Text)
			for p.at(token.Plus) {
				p.advance()
				bounds = append(bounds, p.expect(token.Ident, "behavior name").Text)
			}
		}
		gens = append(gens, ast.GenericParam{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}, Name: name, Bounds: bounds})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBracket, "']'")
	return gens
}

func (p *Parser) parseWhere() []ast.WhereClause {
	if _, ok := p.accept(token.KwWhere); !ok {
		return nil
	}
	var out []ast.WhereClause
	for {
		start := p.tok.Span
		name := p.expect(token.Ident, "type parameter").Text
		p.expect(token.Colon, "':'")
		var behaviors []string
		behaviors = append(behaviors, p.expect(token.Ident, "behavior name").Text)
		for p.at(token.Plus) {
			p.advance()
			behaviors = append(behaviors, p.expect(token.Ident, "behavior name").Text)
		}
		out = append(out, ast.WhereClause{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}, Param: name, Behaviors: behaviors})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	return out
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for !p.at(token.RParen) && !p.at(token.EOF) {
		start := p.tok.Span
		name := p.expect(token.Ident, "parameter name").Text
		var ty ast.TypeExpr
		if _, ok := p.accept(token.Colon); ok {
			ty = p.parseType()
		}
		params = append(params, ast.Param{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}, Name: name, Type: ty})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return params
}

func (p *Parser) parseEffectsClause() []string {
	if !p.at(token.Ident) || p.tok.Text != "effects" {
		return nil
	}
	p.advance()
	p.expect(token.LParen, "'('")
	var effs []string
	for !p.at(token.RParen) && !p.at(token.EOF) {
		effs = append(effs, p.parseEffectPath())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return effs
}

func (p *Parser) parseFunc(ai []ast.AIDirective, public bool, receiver *ast.Param) *ast.FuncDecl {
	start := p.tok.Span
	p.expect(token.KwFunc, "'func'")
	async := false
	if _, ok := p.accept(token.KwAsync); ok {
		async = true
	}
	name := p.expect(token.Ident, "function name").Text
	gens := p.parseGenerics()
	params := p.parseParams()
	var ret ast.TypeExpr
	if _, ok := p.accept(token.Arrow); ok {
		ret = p.parseType()
	}
	effs := p.parseEffectsClause()
	where := p.parseWhere()
	var body *ast.Block
	if p.at(token.LBrace) {
		body = p.parseBlock()
	} else {
		p.accept(token.Semi)
	}
	return &ast.FuncDecl{
		declCommonOf(p, start, name, public, ai),
		gens, params, ret, effs, where, async, body, receiver,
	}
}

// declCommonOf builds the DeclCommon embedded by every declaration kind.
func declCommonOf(p *Parser, start source.Span, name string, public bool, ai []ast.AIDirective) ast.DeclCommon {
	return ast.DeclCommon{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}, Name: name, Public: public, AI: ai}
}

func (p *Parser) parseTypeDecl(ai []ast.AIDirective, public bool) ast.Decl {
	start := p.tok.Span
	p.expect(token.KwType, "'type'")
	name := p.expect(token.Ident, "type name").Text
	gens := p.parseGenerics()
	p.expect(token.Assign, "'='")

	if p.at(token.KwStruct) {
		p.advance()
		p.expect(token.LBrace, "'{'")
		var fields []ast.Field
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			fstart := p.tok.Span
			fpub := false
			if _, ok := p.accept(token.KwPub); ok {
				fpub = true
			}
			fname := p.expect(token.Ident, "field name").Text
			p.expect(token.Colon, "':'")
			fty := p.parseType()
			fields = append(fields, ast.Field{Base: ast.Base{ID: p.id(), Span: p.spanSince(fstart)}, Name: fname, Type: fty, Public: fpub})
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBrace, "'}'")
		return &ast.StructDecl{declCommonOf(p, start, name, public, ai), gens, fields}
	}

	if p.atEnumStart() {
		var variants []ast.Variant
		for {
			vstart := p.tok.Span
			vname := p.expect(token.Ident, "variant name").Text
			var payload []ast.TypeExpr
			if _, ok := p.accept(token.LParen); ok {
				for !p.at(token.RParen) && !p.at(token.EOF) {
					payload = append(payload, p.parseType())
					if _, ok := p.accept(token.Comma); !ok {
						break
					}
				}
				p.expect(token.RParen, "')'")
			}
			variants = append(variants, ast.Variant{Base: ast.Base{ID: p.id(), Span: p.spanSince(vstart)}, Name: vname, Payload: payload})
			if _, ok := p.accept(token.Pipe); !ok {
				break
			}
		}
		p.accept(token.Semi)
		return &ast.EnumDecl{declCommonOf(p, start, name, public, ai), gens, variants}
	}

	target := p.parseType()
	p.accept(token.Semi)
	return &ast.AliasDecl{declCommonOf(p, start, name, public, ai), gens, target}
}

// atEnumStart reports whether the upcoming tokens begin an enum variant
// list: Ident followed by '(' or '|' or ';'/EOF (a single-variant enum).
func (p *Parser) atEnumStart() bool {
	return p.at(token.Ident)
}

func (p *Parser) parseBehavior(ai []ast.AIDirective, public bool) *ast.BehaviorDecl {
	start := p.tok.Span
	p.expect(token.KwBehavior, "'behavior'")
	name := p.expect(token.Ident, "behavior name").Text
	gens := p.parseGenerics()
	p.expect(token.LBrace, "'{'")
	var methods []ast.MethodSig
	var assoc []ast.AssocTypeReq
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.at(token.KwType) {
			astart := p.tok.Span
			p.advance()
			aname := p.expect(token.Ident, "associated type name").Text
			p.accept(token.Semi)
			assoc = append(assoc, ast.AssocTypeReq{Base: ast.Base{ID: p.id(), Span: p.spanSince(astart)}, Name: aname})
			continue
		}
		mstart := p.tok.Span
		p.expect(token.KwFunc, "'func'")
		mname := p.expect(token.Ident, "method name").Text
		mgens := p.parseGenerics()
		hasRecv := false
		p.expect(token.LParen, "'('")
		if p.at(token.Ident) && p.tok.Text == "this" {
			hasRecv = true
			p.advance()
			p.accept(token.Comma)
		}
		var params []ast.Param
		for !p.at(token.RParen) && !p.at(token.EOF) {
			pstart := p.tok.Span
			pname := p.expect(token.Ident, "parameter name").Text
			p.expect(token.Colon, "':'")
			pty := p.parseType()
			params = append(params, ast.Param{Base: ast.Base{ID: p.id(), Span: p.spanSince(pstart)}, Name: pname, Type: pty})
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		var ret ast.TypeExpr
		if _, ok := p.accept(token.Arrow); ok {
			ret = p.parseType()
		}
		p.accept(token.Semi)
		methods = append(methods, ast.MethodSig{
			Base: ast.Base{ID: p.id(), Span: p.spanSince(mstart)}, Name: mname,
			Generics: mgens, Params: params, Return: ret, HasReceiver: hasRecv,
		})
	}
	p.expect(token.RBrace, "'}'")
	return &ast.BehaviorDecl{declCommonOf(p, start, name, public, ai), gens, methods, assoc}
}

func (p *Parser) parseExtend(ai []ast.AIDirective, public bool) *ast.ImplDecl {
	start := p.tok.Span
	p.expect(token.KwExtend, "'extend'")
	name := p.expect(token.Ident, "type name").Text
	gens := p.parseGenerics()
	var typeArgs []ast.TypeExpr
	if p.at(token.LBracket) {
		p.advance()
		for !p.at(token.RBracket) && !p.at(token.EOF) {
			typeArgs = append(typeArgs, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBracket, "']'")
	}
	behavior := ""
	if _, ok := p.accept(token.Colon); ok {
		behavior = p.expect(token.Ident, "behavior name").Text
	}
	where := p.parseWhere()
	p.expect(token.LBrace, "'{'")
	var assoc []ast.AssocTypeDef
	var methods []*ast.FuncDecl
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		mai := p.directives()
		mpub := false
		if _, ok := p.accept(token.KwPub); ok {
			mpub = true
		}
		if p.at(token.KwType) {
			astart := p.tok.Span
			p.advance()
			aname := p.expect(token.Ident, "associated type name").Text
			p.expect(token.Assign, "'='")
			aty := p.parseType()
			p.accept(token.Semi)
			assoc = append(assoc, ast.AssocTypeDef{Base: ast.Base{ID: p.id(), Span: p.spanSince(astart)}, Name: aname, Type: aty})
			continue
		}
		receiver := &ast.Param{Base: ast.Base{ID: p.id()}, Name: "this"}
		methods = append(methods, p.parseFunc(mai, mpub, receiver))
	}
	p.expect(token.RBrace, "'}'")
	return &ast.ImplDecl{declCommonOf(p, start, name, public, ai), gens, typeArgs, behavior, where, assoc, methods}
}

func (p *Parser) parseConst(ai []ast.AIDirective, public bool) *ast.ConstDecl {
	start := p.tok.Span
	p.expect(token.KwLet, "'let'")
	name := p.expect(token.Ident, "constant name").Text
	var ty ast.TypeExpr
	if _, ok := p.accept(token.Colon); ok {
		ty = p.parseType()
	}
	p.expect(token.Assign, "'='")
	val := p.parseExpr()
	p.accept(token.Semi)
	return &ast.ConstDecl{declCommonOf(p, start, name, public, ai), ty, val}
}

// IntLitSuffixDefault and FloatLitSuffixDefault re-export the lexer's
// spec-mandated literal type defaults for convenience of callers building
// literal nodes during desugaring.
const (
	IntLitSuffixDefault   = "i32"
	FloatLitSuffixDefault = "f64"
)

func mustParseUint(s string, base int) uint64 {
	v, _ := strconv.ParseUint(s, base, 64)
	return v
}
