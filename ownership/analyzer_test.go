package ownership_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/ownership"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
	"github.com/hivellm/tmlc/types"
)

func widgetIdent(id ast.NodeID) *ast.IdentExpr {
	return &ast.IdentExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: id}}, Name: "s"}
}

func runAnalyzer(t *testing.T, fn *ast.FuncDecl, nonCopyIDs ...ast.NodeID) (*reporter.Sink, *ownership.Analyzer) {
	t.Helper()

	m := &resolver.Module{Path: "demo", AST: &ast.Module{Path: "demo", Decls: []ast.Decl{fn}}}
	prog := &resolver.Program{Modules: map[string]*resolver.Module{"demo": m}, Order: []*resolver.Module{m}}

	sink := reporter.NewSink()
	reg := types.BuildRegistry(prog)
	checker := types.NewChecker(sink, prog, reg)
	widget := &types.Type{Kind: types.KNamed, Name: "Widget"}
	for _, id := range nonCopyIDs {
		checker.Types[id] = widget
	}

	a := ownership.NewAnalyzer(sink, prog, checker)
	a.Check()
	return sink, a
}

func hasCode(diags []reporter.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestUseAfterMoveIsReported(t *testing.T) {
	t.Parallel()

	// let s = Widget{}; let t = s; let u = s;  -- second use of s after the
	// move into t must be flagged E0701.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	useForT := widgetIdent(1)
	letT := &ast.LetStmt{Name: "t", Value: useForT}
	useForU := widgetIdent(2)
	letU := &ast.LetStmt{Name: "u", Value: useForU}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, letT, letU}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0701"))
}

func TestDoubleExclusiveBorrowIsReported(t *testing.T) {
	t.Parallel()

	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	firstBorrow := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: true, Operand: widgetIdent(1)}}
	secondBorrow := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: true, Operand: widgetIdent(2)}}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, firstBorrow, secondBorrow}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0702"))
}

func TestSharedThenExclusiveBorrowConflicts(t *testing.T) {
	t.Parallel()

	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	shared := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: false, Operand: widgetIdent(1)}}
	exclusive := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: true, Operand: widgetIdent(2)}}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, shared, exclusive}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0703"))
}

func TestDanglingReturnOfLocalReferenceIsReported(t *testing.T) {
	t.Parallel()

	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	ret := &ast.ReturnStmt{Value: &ast.BorrowExpr{Operand: widgetIdent(1)}}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, ret}},
	}

	sink, _ := runAnalyzer(t, fn, 1)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0704"))
}

func TestNoFalsePositiveOnDistinctBindings(t *testing.T) {
	t.Parallel()

	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	letT := &ast.LetStmt{Name: "t", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	useS := &ast.ExprStmt{X: widgetIdentNamed(1, "s")}
	useT := &ast.ExprStmt{X: widgetIdentNamed(2, "t")}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, letT, useS, useT}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	assert.False(t, sink.HasErrors())
}

func TestMoveWhileBorrowedIsLifetimeTooShort(t *testing.T) {
	t.Parallel()

	// let s = Widget{}; mut ref s; let t = s;  -- moving s into t while the
	// exclusive borrow above it is still outstanding must be flagged E0706,
	// not silently allowed the way a purely lexical-scope check would miss.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	borrow := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: true, Operand: widgetIdent(1)}}
	moveS := &ast.LetStmt{Name: "t", Value: widgetIdent(2)}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, borrow, moveS}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0706"))
}

func TestMoveAfterBorrowEndsIsNotLifetimeTooShort(t *testing.T) {
	t.Parallel()

	// Moving s into t is fine once s has no outstanding borrow at all.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	moveS := &ast.LetStmt{Name: "t", Value: widgetIdent(1)}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, moveS}},
	}

	sink, _ := runAnalyzer(t, fn, 1)
	assert.False(t, hasCode(sink.Diagnostics(), "E0706"))
}

func TestMoveInOneIfBranchDoesNotPoisonTheOther(t *testing.T) {
	t.Parallel()

	// let s = Widget{}; if cond { use(s) } else { use(s) } -- each branch
	// moves s along a mutually exclusive path, so neither branch's move may
	// be seen as already-having-happened by the other.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	thenUse := &ast.ExprStmt{X: widgetIdent(1)}
	elseUse := &ast.ExprStmt{X: widgetIdent(2)}
	ifStmt := &ast.IfStmt{
		Cond: &ast.BoolLitExpr{Value: true},
		Then: &ast.Block{Stmts: []ast.Stmt{thenUse}},
		Else: &ast.Block{Stmts: []ast.Stmt{elseUse}},
	}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, ifStmt}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	assert.False(t, sink.HasErrors(), "moving s along each independent branch must not be reported as a use of an already-moved value")
}

func TestMoveInOneIfBranchIsMovedAfterTheMerge(t *testing.T) {
	t.Parallel()

	// Once both branches rejoin, s must be considered moved either way:
	// a third use after the if must still be flagged.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	thenUse := &ast.ExprStmt{X: widgetIdent(1)}
	ifStmt := &ast.IfStmt{
		Cond: &ast.BoolLitExpr{Value: true},
		Then: &ast.Block{Stmts: []ast.Stmt{thenUse}},
		Else: &ast.Block{},
	}
	afterUse := &ast.ExprStmt{X: widgetIdent(2)}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, ifStmt, afterUse}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	require.True(t, sink.HasErrors())
	assert.True(t, hasCode(sink.Diagnostics(), "E0701"))
}

func TestBorrowTakenInsideIfBranchIsReleasedAtBranchEnd(t *testing.T) {
	t.Parallel()

	// let s = Widget{}; if cond { mut ref s; } s = Widget{};  -- the
	// exclusive borrow's lifetime ends with the `if`'s Then block, so
	// reassigning s afterward must be allowed.
	letS := &ast.LetStmt{Name: "s", Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}
	borrowInThen := &ast.ExprStmt{X: &ast.BorrowExpr{Mut: true, Operand: widgetIdent(1)}}
	ifStmt := &ast.IfStmt{
		Cond: &ast.BoolLitExpr{Value: true},
		Then: &ast.Block{Stmts: []ast.Stmt{borrowInThen}},
	}
	reassign := &ast.AssignStmt{Target: widgetIdentNamed(2, "s"), Value: &ast.StructLitExpr{TypePath: []string{"Widget"}}}

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "f"},
		Body:       &ast.Block{Stmts: []ast.Stmt{letS, ifStmt, reassign}},
	}

	sink, _ := runAnalyzer(t, fn, 1, 2)
	assert.False(t, sink.HasErrors(), "a borrow taken only inside the if's Then block must be released once that block ends")
}

func widgetIdentNamed(id ast.NodeID, name string) *ast.IdentExpr {
	return &ast.IdentExpr{ExprBase: ast.ExprBase{Base: ast.Base{ID: id}}, Name: name}
}
