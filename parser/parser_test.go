package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/ast"
	"github.com/hivellm/tmlc/lexer"
	"github.com/hivellm/tmlc/parser"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
)

func parseModule(t *testing.T, src string) (*ast.Module, *reporter.Sink) {
	t.Helper()
	sink := reporter.NewSink()
	srcs := source.NewMap()
	file := srcs.AddFile("test.tml", []byte(src))
	lex := lexer.New(sink, file, []byte(src))
	p := parser.New(sink, file, lex)
	return p.ParseModule("test"), sink
}

func TestParseSimpleFunc(t *testing.T) {
	t.Parallel()

	m, sink := parseModule(t, "func add(a: I32, b: I32) -> I32 { a + b }")
	require.False(t, sink.HasErrors())
	require.Len(t, m.Decls, 1)
	fn, ok := m.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Params, 2)
}

func TestParseStructDecl(t *testing.T) {
	t.Parallel()

	m, sink := parseModule(t, "type Point = struct { x: I32, y: I32 }")
	require.False(t, sink.HasErrors())
	require.Len(t, m.Decls, 1)
	sd, ok := m.Decls[0].(*ast.StructDecl)
	require.True(t, ok)
	assert.Equal(t, "Point", sd.Name)
	assert.Len(t, sd.Fields, 2)
}

func TestParseUseDeclaration(t *testing.T) {
	t.Parallel()

	m, sink := parseModule(t, "use app::net::http")
	require.False(t, sink.HasErrors())
	require.Len(t, m.Uses, 1)
	assert.Equal(t, []string{"app", "net", "http"}, m.Uses[0].Path)
}

func TestParseRecoversFromSyntaxError(t *testing.T) {
	t.Parallel()

	m, sink := parseModule(t, "func ( { }")
	require.NotNil(t, m, "the parser must always produce a tree, even on error")
	assert.True(t, sink.HasErrors())
}
