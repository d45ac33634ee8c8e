package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/ir"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/resolver"
	"github.com/hivellm/tmlc/stableid"
	"github.com/hivellm/tmlc/types"
)

func programOf(decls ...ast.Decl) *resolver.Program {
	m := &resolver.Module{Path: "demo", AST: &ast.Module{Path: "demo", Decls: decls}}
	return &resolver.Program{Modules: map[string]*resolver.Module{"demo": m}, Order: []*resolver.Module{m}}
}

func newCanonicalizer(prog *resolver.Program) *ir.Canonicalizer {
	reg := types.BuildRegistry(prog)
	sink := reporter.NewSink()
	checker := types.NewChecker(sink, prog, reg)
	checker.Check()
	return ir.NewCanonicalizer(reg, checker, stableid.NewTable())
}

func TestCanonicalizeStructFieldsAreAlphabetized(t *testing.T) {
	t.Parallel()

	sd := &ast.StructDecl{
		DeclCommon: ast.DeclCommon{Name: "Point"},
		Fields: []ast.Field{
			{Name: "z", Type: &ast.PrimitiveType{Name: "I32"}},
			{Name: "a", Type: &ast.PrimitiveType{Name: "I32"}},
		},
	}
	prog := programOf(sd)
	c := newCanonicalizer(prog)
	tree := c.Canonicalize(prog)

	out := tree.String()
	aIdx := indexOf(out, "(field a ")
	zIdx := indexOf(out, "(field z ")
	require.True(t, aIdx >= 0 && zIdx >= 0)
	assert.Less(t, aIdx, zIdx, "struct fields must be emitted in alphabetical order")
}

func TestCanonicalizeEnumVariantsKeepSourceOrder(t *testing.T) {
	t.Parallel()

	ed := &ast.EnumDecl{
		DeclCommon: ast.DeclCommon{Name: "Shape"},
		Variants: []ast.Variant{
			{Name: "Square"},
			{Name: "Circle"},
		},
	}
	prog := programOf(ed)
	c := newCanonicalizer(prog)
	tree := c.Canonicalize(prog)

	out := tree.String()
	squareIdx := indexOf(out, "Square")
	circleIdx := indexOf(out, "Circle")
	require.True(t, squareIdx >= 0 && circleIdx >= 0)
	assert.Less(t, squareIdx, circleIdx, "enum variants must keep source order, not alphabetical")
}

func TestCanonicalizeAssignsStableIDDeterministically(t *testing.T) {
	t.Parallel()

	cd := &ast.ConstDecl{
		DeclCommon: ast.DeclCommon{Name: "MAX"},
		Type:       &ast.PrimitiveType{Name: "I32"},
		Value:      &ast.IntLitExpr{Value: 42},
	}
	prog := programOf(cd)

	first := newCanonicalizer(prog).Canonicalize(prog).String()
	second := newCanonicalizer(prog).Canonicalize(prog).String()
	assert.Equal(t, first, second, "canonicalization of the same program must be deterministic")
}

func TestCanonicalizeDesugarsCompoundAssign(t *testing.T) {
	t.Parallel()

	fn := &ast.FuncDecl{
		DeclCommon: ast.DeclCommon{Name: "bump"},
		Body: &ast.Block{
			Stmts: []ast.Stmt{
				&ast.LetStmt{Mut: true, Name: "x", Value: &ast.IntLitExpr{Value: 1}},
				&ast.AssignStmt{
					Target: &ast.IdentExpr{Name: "x"},
					Op:     opPtr(ast.OpAdd),
					Value:  &ast.IntLitExpr{Value: 2},
				},
			},
		},
	}
	prog := programOf(fn)
	c := newCanonicalizer(prog)
	out := c.Canonicalize(prog).String()

	assert.Contains(t, out, "assign-of-add", "+= must desugar to an explicit assign-of-add node")
}

func opPtr(op ast.BinOp) *ast.BinOp { return &op }

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
