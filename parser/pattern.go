package parser

import (
	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/token"
)

// parsePattern parses one pattern, including a trailing `| p2 | p3`
// OR-pattern chain (spec.md §4.2 "Patterns").
func (p *Parser) parsePattern() ast.Pattern {
	first := p.parsePatternPrimary()
	if !p.at(token.Pipe) {
		return first
	}
	alts := []ast.Pattern{first}
	start := first.NodeSpan()
	for p.at(token.Pipe) {
		p.advance()
		alts = append(alts, p.parsePatternPrimary())
	}
	return &ast.OrPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Alts: alts}
}

func (p *Parser) parsePatternPrimary() ast.Pattern {
	start := p.tok.Span
	switch p.tok.Kind {
	case token.Ident:
		if p.tok.Text == "_" {
			p.advance()
			return &ast.WildcardPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}}
		}
		return p.parseIdentOrPathPattern(start)
	case token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.BoolLit, token.Minus:
		return p.parseLiteralOrRangePattern(start)
	case token.LParen:
		p.advance()
		var elems []ast.Pattern
		for !p.at(token.RParen) && !p.at(token.EOF) {
			elems = append(elems, p.parsePattern())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		return &ast.TuplePattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Elems: elems}
	case token.LBracket:
		p.advance()
		var elems []ast.Pattern
		tail := ""
		hasTail := false
		for !p.at(token.RBracket) && !p.at(token.EOF) {
			if p.at(token.DotDot) {
				p.advance()
				hasTail = true
				if p.at(token.Ident) {
					tail = p.advance().Text
				}
				break
			}
			elems = append(elems, p.parsePattern())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBracket, "']'")
		return &ast.ArrayPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Elems: elems, Tail: tail, HasTail: hasTail}
	default:
		p.sink.Errorf(reporter.CategoryParse, "E0230", p.tok.Span, "expected a pattern, found %q", p.tok.Text)
		p.advance()
		return ast.NewErrorPattern(p.id(), p.spanSince(start))
	}
}

func (p *Parser) parseLiteralOrRangePattern(start source.Span) ast.Pattern {
	lo := p.parseLiteralExpr()
	if p.at(token.KwTo) || p.at(token.KwThrough) {
		inclusive := p.at(token.KwThrough)
		p.advance()
		hi := p.parseLiteralExpr()
		return &ast.RangePattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Lo: lo, Hi: hi, Inclusive: inclusive}
	}
	return &ast.LiteralPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Value: lo}
}

// parseLiteralExpr parses just the small grammar of literal expressions
// valid inside a pattern (including a leading unary minus for negative
// numeric literals).
func (p *Parser) parseLiteralExpr() ast.Expr {
	start := p.tok.Span
	if p.at(token.Minus) {
		p.advance()
		inner := p.parseLiteralExpr()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Op: ast.OpNeg, Operand: inner}
	}
	return p.parsePrimary()
}

func (p *Parser) parseIdentOrPathPattern(start source.Span) ast.Pattern {
	first := p.advance().Text
	var segs []string
	segs = append(segs, first)
	for p.at(token.ColonColon) {
		p.advance()
		segs = append(segs, p.expect(token.Ident, "identifier").Text)
	}

	if len(segs) > 1 || (p.at(token.LParen)) || startsUpper(first) {
		var payload []ast.Pattern
		if _, ok := p.accept(token.LParen); ok {
			for !p.at(token.RParen) && !p.at(token.EOF) {
				payload = append(payload, p.parsePattern())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RParen, "')'")
			return &ast.EnumCtorPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Path: segs, Payload: payload}
		}
		if p.at(token.LBrace) {
			return p.parseStructPattern(segs, start)
		}
		return &ast.EnumCtorPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Path: segs}
	}

	if _, ok := p.accept(token.At); ok {
		sub := p.parsePatternPrimary()
		return &ast.BindPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Name: first, Sub: sub}
	}
	return &ast.BindPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Name: first}
}

func (p *Parser) parseStructPattern(path []string, start source.Span) ast.Pattern {
	p.expect(token.LBrace, "'{'")
	var fields []ast.StructFieldPattern
	rest := false
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.at(token.DotDot) {
			p.advance()
			rest = true
			break
		}
		name := p.expect(token.Ident, "field name").Text
		if _, ok := p.accept(token.Colon); ok {
			sub := p.parsePattern()
			fields = append(fields, ast.StructFieldPattern{Name: name, Pattern: sub})
		} else {
			fields = append(fields, ast.StructFieldPattern{Name: name, Shorthand: true})
		}
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.StructPattern{PatternBase: ast.PatternBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Path: path, Fields: fields, Rest: rest}
}

func startsUpper(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}
