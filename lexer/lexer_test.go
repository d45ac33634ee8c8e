package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/lexer"
	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
	"github.com/hivellm/tmlc/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, *reporter.Sink) {
	t.Helper()
	sink := reporter.NewSink()
	srcs := source.NewMap()
	file := srcs.AddFile("test.tml", []byte(src))
	l := lexer.New(sink, file, []byte(src))

	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, sink
}

func kinds(toks []token.Token) []token.Kind {
	var ks []token.Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func TestLexIdentifiersAndKeywords(t *testing.T) {
	t.Parallel()

	toks, sink := lexAll(t, "func add")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.KwFunc, token.Ident, token.EOF}, kinds(toks))
}

func TestLexIntegerLiteral(t *testing.T) {
	t.Parallel()

	toks, sink := lexAll(t, "42")
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 2)
	assert.Equal(t, token.IntLit, toks[0].Kind)
	assert.Equal(t, uint64(42), toks[0].Literal.Num.IntVal)
}

func TestLexPunctuationIsMaximalMunch(t *testing.T) {
	t.Parallel()

	toks, sink := lexAll(t, "-> => == != <=")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{
		token.Arrow, token.FatArrow, token.EqEq, token.NotEq, token.LtEq, token.EOF,
	}, kinds(toks))
}

func TestLexBoolKeywords(t *testing.T) {
	t.Parallel()

	toks, sink := lexAll(t, "true false")
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 3)
	assert.Equal(t, token.BoolLit, toks[0].Kind)
	assert.True(t, toks[0].Literal.Bool)
	assert.Equal(t, token.BoolLit, toks[1].Kind)
	assert.False(t, toks[1].Literal.Bool)
}

func TestLexStringLiteral(t *testing.T) {
	t.Parallel()

	toks, sink := lexAll(t, `"hello"`)
	require.False(t, sink.HasErrors())
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}
