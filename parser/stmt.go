package parser

import (
	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/token"
)

func (p *Parser) parseBlock() *ast.Block {
	start := p.tok.Span
	p.expect(token.LBrace, "'{'")
	blk := &ast.Block{Base: ast.Base{ID: p.id()}}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if isExprTailStart(p.tok.Kind) {
			// Try tail-expression vs. statement: parse an expression, then
			// decide based on what follows.
			expr := p.parseExpr()
			if p.at(token.RBrace) {
				blk.Tail = expr
				break
			}
			if _, ok := p.accept(token.Semi); ok {
				blk.Stmts = append(blk.Stmts, &ast.ExprStmt{X: expr})
				continue
			}
			if assignOp, isAssign := p.tryAssignOp(); isAssign {
				val := p.parseExpr()
				p.accept(token.Semi)
				blk.Stmts = append(blk.Stmts, &ast.AssignStmt{Target: expr, Op: assignOp, Value: val})
				continue
			}
			blk.Stmts = append(blk.Stmts, &ast.ExprStmt{X: expr})
			continue
		}
		stmt := p.parseStmt()
		if stmt != nil {
			blk.Stmts = append(blk.Stmts, stmt)
		}
	}
	p.expect(token.RBrace, "'}'")
	blk.Span = p.spanSince(start)
	return blk
}

func isExprTailStart(k token.Kind) bool {
	switch k {
	case token.KwLet, token.KwReturn, token.KwBreak, token.KwContinue,
		token.KwIf, token.KwWhen, token.KwFor, token.KwWhile, token.KwLoop:
		return false
	default:
		return true
	}
}

var assignCompound = map[token.Kind]ast.BinOp{
	token.PlusEq:    ast.OpAdd,
	token.MinusEq:   ast.OpSub,
	token.StarEq:    ast.OpMul,
	token.SlashEq:   ast.OpDiv,
	token.PercentEq: ast.OpMod,
	token.AmpEq:     ast.OpBitAnd,
	token.PipeEq:    ast.OpBitOr,
	token.CaretEq:   ast.OpBitXor,
	token.ShlEq:     ast.OpShl,
	token.ShrEq:     ast.OpShr,
}

func (p *Parser) tryAssignOp() (*ast.BinOp, bool) {
	if p.at(token.Assign) {
		p.advance()
		return nil, true
	}
	if op, ok := assignCompound[p.tok.Kind]; ok {
		p.advance()
		opCopy := op
		return &opCopy, true
	}
	return nil, false
}

// parseStmt parses one statement that is not purely an expression-tail
// candidate (the keyword-led forms).
func (p *Parser) parseStmt() ast.Stmt {
	start := p.tok.Span
	switch p.tok.Kind {
	case token.KwLet:
		p.advance()
		mut := false
		if _, ok := p.accept(token.KwMut); ok {
			mut = true
		}
		name := p.expect(token.Ident, "binding name").Text
		var ty ast.TypeExpr
		if _, ok := p.accept(token.Colon); ok {
			ty = p.parseType()
		}
		p.expect(token.Assign, "'='")
		val := p.parseExpr()
		p.accept(token.Semi)
		return &ast.LetStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Mut: mut, Name: name, Type: ty, Value: val}
	case token.KwReturn:
		p.advance()
		var val ast.Expr
		if !p.at(token.Semi) && !p.at(token.RBrace) {
			val = p.parseExpr()
		}
		p.accept(token.Semi)
		return &ast.ReturnStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Value: val}
	case token.KwBreak:
		p.advance()
		label := ""
		if p.at(token.At) {
			p.advance()
			label = p.expect(token.Ident, "label").Text
		}
		var val ast.Expr
		if !p.at(token.Semi) && !p.at(token.RBrace) {
			val = p.parseExpr()
		}
		p.accept(token.Semi)
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Label: label, Value: val}
	case token.KwContinue:
		p.advance()
		label := ""
		if p.at(token.At) {
			p.advance()
			label = p.expect(token.Ident, "label").Text
		}
		p.accept(token.Semi)
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Label: label}
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhen:
		return p.parseWhenStmt()
	case token.KwFor:
		return p.parseForStmt("")
	case token.KwWhile:
		return p.parseWhileStmt("")
	case token.KwLoop:
		return p.parseLoopStmt("")
	default:
		p.sink.Errorf(reporter.CategoryParse, "E0211", p.tok.Span, "expected a statement, found %q", p.tok.Text)
		p.synchronizeStmt()
		return ast.NewErrorStmt(p.id(), p.spanSince(start))
	}
}

// parseIfStmt parses the statement/block form `if cond { ... } else { ... }`.
// An `if` that starts a statement always takes this form: the token after
// the condition does not select the `then` expression form, which is not
// accepted at statement start.
func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.tok.Span
	p.expect(token.KwIf, "'if'")
	cond := p.parseExprNoBrace()
	then := p.parseBlock()
	var els *ast.Block
	if _, ok := p.accept(token.KwElse); ok {
		if p.at(token.KwIf) {
			nested := p.parseIfStmt()
			els = &ast.Block{Base: ast.Base{ID: p.id()}, Stmts: []ast.Stmt{nested}}
		} else {
			els = p.parseBlock()
		}
	}
	return &ast.IfStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhenStmt() *ast.WhenStmt {
	start := p.tok.Span
	p.expect(token.KwWhen, "'when'")
	scrut := p.parseExprNoBrace()
	p.expect(token.LBrace, "'{'")
	var arms []ast.WhenStmtArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		pat := p.parsePattern()
		var guard ast.Expr
		if _, ok := p.accept(token.KwIf); ok {
			guard = p.parseExprNoBrace()
		}
		p.expect(token.FatArrow, "'=>'")
		body := p.parseBlock()
		arms = append(arms, ast.WhenStmtArm{Pattern: pat, Guard: guard, Body: body})
		p.accept(token.Comma)
	}
	p.expect(token.RBrace, "'}'")
	return &ast.WhenStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Scrutinee: scrut, Arms: arms}
}

func (p *Parser) parseForStmt(label string) *ast.ForStmt {
	start := p.tok.Span
	p.expect(token.KwFor, "'for'")
	pat := p.parsePattern()
	if !(p.at(token.Ident) && p.tok.Text == "in") {
		p.sink.Errorf(reporter.CategoryParse, "E0212", p.tok.Span, "expected 'in'")
	} else {
		p.advance()
	}
	iter := p.parseExprNoBrace()
	body := p.parseBlock()
	return &ast.ForStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Label: label, Pattern: pat, Iter: iter, Body: body}
}

func (p *Parser) parseWhileStmt(label string) *ast.WhileStmt {
	start := p.tok.Span
	p.expect(token.KwWhile, "'while'")
	cond := p.parseExprNoBrace()
	body := p.parseBlock()
	return &ast.WhileStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Label: label, Cond: cond, Body: body}
}

func (p *Parser) parseLoopStmt(label string) *ast.LoopStmt {
	start := p.tok.Span
	p.expect(token.KwLoop, "'loop'")
	body := p.parseBlock()
	return &ast.LoopStmt{StmtBase: ast.StmtBase{Base: ast.Base{ID: p.id(), Span: p.spanSince(start)}}, Label: label, Body: body}
}
