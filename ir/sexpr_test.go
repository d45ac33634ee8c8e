package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/ir"
)

func TestSExprString(t *testing.T) {
	t.Parallel()

	tree := ir.L(ir.A("item"), ir.A("func"), ir.A("@deadbeef"), ir.L(ir.A("params")))
	assert.Equal(t, `(item func @deadbeef (params))`, tree.String())
}

func TestSExprStringEscapesAtoms(t *testing.T) {
	t.Parallel()

	tree := ir.L(ir.A("string"), ir.A("hello world"))
	assert.Equal(t, `(string "hello world")`, tree.String())
}

func TestSExprEqual(t *testing.T) {
	t.Parallel()

	a := ir.L(ir.A("a"), ir.L(ir.A("b"), ir.A("c")))
	b := ir.L(ir.A("a"), ir.L(ir.A("b"), ir.A("c")))
	c := ir.L(ir.A("a"), ir.L(ir.A("b"), ir.A("d")))

	require.True(t, ir.Equal(a, b))
	assert.False(t, ir.Equal(a, c))
	assert.False(t, ir.Equal(a, nil))
}

func TestSExprIsAtom(t *testing.T) {
	t.Parallel()

	assert.True(t, ir.A("x").IsAtom())
	assert.False(t, ir.L(ir.A("x")).IsAtom())
}
