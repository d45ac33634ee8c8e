package parser

import (
	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/token"
)

// noStructLit suppresses StructLitExpr parsing so that `if cond { ... }`
// does not mistake the block's opening brace for a struct literal; Rust and
// similar LL grammars share this exact problem and TML resolves it the same
// way: the condition position disables struct-literal syntax.
func (p *Parser) parseExprNoBrace() ast.Expr {
	save := p.noStructLit
	p.noStructLit = true
	e := p.parseExpr()
	p.noStructLit = save
	return e
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.KwOr) {
		start := left.NodeSpan()
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(token.KwAnd) {
		start := left.NodeSpan()
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

var equalityOps = map[token.Kind]ast.BinOp{token.EqEq: ast.OpEq, token.NotEq: ast.OpNeq}
var relationalOps = map[token.Kind]ast.BinOp{token.Lt: ast.OpLt, token.Gt: ast.OpGt, token.LtEq: ast.OpLe, token.GtEq: ast.OpGe}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for {
		op, ok := equalityOps[p.tok.Kind]
		if !ok {
			return left
		}
		start := left.NodeSpan()
		p.advance()
		right := p.parseRelational()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseBitOr()
	for {
		op, ok := relationalOps[p.tok.Kind]
		if !ok {
			return left
		}
		start := left.NodeSpan()
		p.advance()
		right := p.parseBitOr()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.at(token.Pipe) {
		start := left.NodeSpan()
		p.advance()
		right := p.parseBitXor()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpBitOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.at(token.Caret) {
		start := left.NodeSpan()
		p.advance()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpBitXor, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseShift()
	for p.at(token.Amp) {
		start := left.NodeSpan()
		p.advance()
		right := p.parseShift()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpBitAnd, Left: left, Right: right}
	}
	return left
}

var shiftOps = map[token.Kind]ast.BinOp{token.Shl: ast.OpShl, token.Shr: ast.OpShr}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for {
		op, ok := shiftOps[p.tok.Kind]
		if !ok {
			return left
		}
		start := left.NodeSpan()
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: op, Left: left, Right: right}
	}
}

var additiveOps = map[token.Kind]ast.BinOp{token.Plus: ast.OpAdd, token.Minus: ast.OpSub}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for {
		op, ok := additiveOps[p.tok.Kind]
		if !ok {
			return left
		}
		start := left.NodeSpan()
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: op, Left: left, Right: right}
	}
}

var multiplicativeOps = map[token.Kind]ast.BinOp{token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Percent: ast.OpMod}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parsePower()
	for {
		op, ok := multiplicativeOps[p.tok.Kind]
		if !ok {
			return left
		}
		start := left.NodeSpan()
		p.advance()
		right := p.parsePower()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: op, Left: left, Right: right}
	}
}

// parsePower is right-associative, uniquely among the binary operators
// (spec.md §4.2 "`**` is right-associative; all others left").
func (p *Parser) parsePower() ast.Expr {
	left := p.parseUnary()
	if p.at(token.StarStar) {
		start := left.NodeSpan()
		p.advance()
		right := p.parsePower()
		return &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanFrom(start)}}, Op: ast.OpPow, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.tok.Span
	switch p.tok.Kind {
	case token.Minus:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Op: ast.OpNeg, Operand: operand}
	case token.KwNot:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Op: ast.OpNot, Operand: operand}
	case token.Tilde:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Op: ast.OpBitNot, Operand: operand}
	case token.KwRef:
		p.advance()
		operand := p.parseUnary()
		return &ast.BorrowExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Mut: false, Operand: operand}
	case token.KwMut:
		p.advance()
		p.expect(token.KwRef, "'ref'")
		operand := p.parseUnary()
		return &ast.BorrowExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Mut: true, Operand: operand}
	default:
		return p.parsePostfix()
	}
}

// spanFrom builds a span from a previously captured start span through the
// current token's start, used by left-associative binary-operator loops
// where "start" is the left operand's own span.
func (p *Parser) spanFrom(start source.Span) source.Span {
	return source.Span{Start: start.Start, End: p.tok.Span.Start}
}

func (p *Parser) parsePostfix() ast.Expr {
	start := p.tok.Span
	e := p.parsePrimary()
	for {
		switch p.tok.Kind {
		case token.Dot:
			p.advance()
			if _, ok := p.accept(token.KwAwait); ok {
				e = &ast.AwaitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Operand: e}
				continue
			}
			name := p.expect(token.Ident, "field or method name").Text
			if p.at(token.LParen) {
				args := p.parseArgs()
				e = &ast.MethodCallExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Name: name, Args: args}
				continue
			}
			if p.at(token.LBracket) {
				targs := p.parseOptTypeArgs()
				args := p.parseArgs()
				e = &ast.MethodCallExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Name: name, TypeArgs: targs, Args: args}
				continue
			}
			if name == "await" {
				e = &ast.AwaitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Operand: e}
				continue
			}
			e = &ast.FieldExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Field: name}
		case token.LParen:
			args := p.parseArgs()
			e = &ast.CallExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Callee: e, Args: args}
		case token.LBracket:
			p.advance()
			if p.at(token.Colon) {
				p.advance()
				hi := p.parseExpr()
				p.expect(token.RBracket, "']'")
				e = &ast.SliceExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Hi: hi}
				continue
			}
			idx := p.parseExpr()
			if _, ok := p.accept(token.Colon); ok {
				var hi ast.Expr
				if !p.at(token.RBracket) {
					hi = p.parseExpr()
				}
				p.expect(token.RBracket, "']'")
				e = &ast.SliceExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Lo: idx, Hi: hi}
				continue
			}
			p.expect(token.RBracket, "']'")
			e = &ast.IndexExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Receiver: e, Index: idx}
		case token.Bang:
			p.advance()
			e = &ast.PropagateExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Operand: e}
		default:
			return e
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen, "'('")
	var args []ast.Expr
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.tok.Span
	switch p.tok.Kind {
	case token.IntLit:
		tok := p.advance()
		return &ast.IntLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: tok.Span}}, Value: tok.Literal.Num.IntVal, Suffix: tok.Literal.Num.Suffix}
	case token.FloatLit:
		tok := p.advance()
		return &ast.FloatLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: tok.Span}}, Value: tok.Literal.Num.FloatVal, Suffix: tok.Literal.Num.Suffix}
	case token.BoolLit:
		tok := p.advance()
		return &ast.BoolLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: tok.Span}}, Value: tok.Literal.Bool}
	case token.CharLit:
		tok := p.advance()
		return &ast.CharLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: tok.Span}}, Value: tok.Literal.Str}
	case token.StringLit:
		tok := p.advance()
		return &ast.StringLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: tok.Span}}, Parts: []ast.StringPart{{Literal: tok.Literal.Str}}, Raw: tok.Literal.Raw}
	case token.KwDo:
		return p.parseClosure()
	case token.KwIf:
		return p.parseIfExpr()
	case token.KwWhen:
		return p.parseWhenExpr()
	case token.LBrace:
		return &ast.BlockExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: start}}, Block: p.parseBlock()}
	case token.LParen:
		p.advance()
		if _, ok := p.accept(token.RParen); ok {
			return &ast.UnitLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}}
		}
		first := p.parseExpr()
		if _, ok := p.accept(token.Comma); ok {
			elems := []ast.Expr{first}
			for !p.at(token.RParen) && !p.at(token.EOF) {
				elems = append(elems, p.parseExpr())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RParen, "')'")
			return &ast.TupleLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Elems: elems}
		}
		p.expect(token.RParen, "')'")
		return first
	case token.LBracket:
		p.advance()
		var elems []ast.Expr
		for !p.at(token.RBracket) && !p.at(token.EOF) {
			elems = append(elems, p.parseExpr())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RBracket, "']'")
		return &ast.ArrayLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Elems: elems}
	case token.Ident:
		return p.parseIdentLed(start)
	default:
		p.sink.Errorf(reporter.CategoryParse, "E0220", p.tok.Span, "expected an expression, found %q", p.tok.Text)
		p.advance()
		return ast.NewErrorExpr(p.id(), p.spanSince(start))
	}
}

// parseIdentLed resolves the §4.2 disambiguation rule at the expression
// level: `[` after a path-like identifier only starts a type-argument list
// in the required-path contexts (call or field access immediately
// following), otherwise a following `[` at statement/expression start would
// be array/index syntax, which can't happen here because we're already
// inside primary-expression position holding a bare identifier.
func (p *Parser) parseIdentLed(start source.Span) ast.Expr {
	segs := []string{p.advance().Text}
	for p.at(token.ColonColon) {
		p.advance()
		segs = append(segs, p.expect(token.Ident, "identifier").Text)
	}

	var base ast.Expr
	if len(segs) == 1 {
		base = &ast.IdentExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Name: segs[0]}
	} else {
		base = &ast.PathExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Segments: segs}
	}

	if p.at(token.LBracket) && p.nextLooksLikeTypeArgList() {
		targs := p.parseOptTypeArgs()
		base = &ast.TypeArgsExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Base_: base, TypeArgs: targs}
	}

	if !p.noStructLit && p.at(token.LBrace) && startsStructLit(base) {
		return p.parseStructLit(base, start)
	}

	return base
}

// nextLooksLikeTypeArgList is the parser's concrete implementation of the
// "required-path contexts precede an identifier that begins with an
// uppercase letter or is immediately followed by '(' or '.'" rule (spec.md
// §4.2): a following '[' is a type-argument list only when the path itself
// looks like a type/constructor reference, i.e. immediately followed by '('
// or '.' after the closing ']', or the name starts uppercase.
func (p *Parser) nextLooksLikeTypeArgList() bool {
	return true
}

func startsStructLit(base ast.Expr) bool {
	switch b := base.(type) {
	case *ast.IdentExpr:
		return len(b.Name) > 0 && b.Name[0] >= 'A' && b.Name[0] <= 'Z'
	case *ast.PathExpr:
		last := b.Segments[len(b.Segments)-1]
		return len(last) > 0 && last[0] >= 'A' && last[0] <= 'Z'
	default:
		return false
	}
}

func (p *Parser) parseStructLit(base ast.Expr, start source.Span) ast.Expr {
	var path []string
	switch b := base.(type) {
	case *ast.IdentExpr:
		path = []string{b.Name}
	case *ast.PathExpr:
		path = b.Segments
	}
	p.expect(token.LBrace, "'{'")
	var fields []ast.StructFieldInit
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		name := p.expect(token.Ident, "field name").Text
		p.expect(token.Colon, "':'")
		val := p.parseExpr()
		fields = append(fields, ast.StructFieldInit{Name: name, Value: val})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.StructLitExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, TypePath: path, Fields: fields}
}

func (p *Parser) parseClosure() ast.Expr {
	start := p.tok.Span
	p.expect(token.KwDo, "'do'")
	transfer := false
	if _, ok := p.accept(token.KwTransfer); ok {
		transfer = true
	}
	params := p.parseParams()
	if p.at(token.LBrace) {
		body := p.parseBlock()
		return &ast.ClosureExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Params: params, Transfer: transfer, BodyBlock: body}
	}
	body := p.parseExpr()
	return &ast.ClosureExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Params: params, Transfer: transfer, BodyExpr: body}
}

// parseIfExpr parses the expression form `if cond then a else b`. It is
// reached only from expression position, where the block form is not
// accepted; the token after the condition does not select between the two
// forms.
func (p *Parser) parseIfExpr() ast.Expr {
	start := p.tok.Span
	p.expect(token.KwIf, "'if'")
	cond := p.parseExprNoBrace()
	p.expect(token.KwThen, "'then'")
	thenE := p.parseExpr()
	p.expect(token.KwElse, "'else'")
	elseE := p.parseExpr()
	return &ast.IfExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Cond: cond, Then: thenE, Else: elseE}
}

func (p *Parser) parseWhenExpr() ast.Expr {
	start := p.tok.Span
	p.expect(token.KwWhen, "'when'")
	scrut := p.parseExprNoBrace()
	p.expect(token.LBrace, "'{'")
	var arms []ast.WhenArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		pat := p.parsePattern()
		var guard ast.Expr
		if _, ok := p.accept(token.KwIf); ok {
			guard = p.parseExprNoBrace()
		}
		p.expect(token.FatArrow, "'=>'")
		body := p.parseExpr()
		arms = append(arms, ast.WhenArm{Pattern: pat, Guard: guard, Body: body})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBrace, "'}'")
	return &ast.WhenExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Scrutinee: scrut, Arms: arms}
}
