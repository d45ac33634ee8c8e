package reporter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/source"
)

func newSpan(srcs *source.Map, file source.FileID) source.Span {
	return source.Span{Start: source.Pos{File: file, Offset: 0}, End: source.Pos{File: file, Offset: 1}}
}

func TestRenderTextIncludesCodeAndMessage(t *testing.T) {
	t.Parallel()

	srcs := source.NewMap()
	file := srcs.AddFile("main.tml", []byte("x"))
	diags := []reporter.Diagnostic{
		{Severity: reporter.Error, Category: reporter.CategoryType, Code: "E0501", Message: "type mismatch", Primary: newSpan(srcs, file)},
	}

	var b strings.Builder
	reporter.RenderText(&b, srcs, diags)
	out := b.String()
	assert.Contains(t, out, "E0501")
	assert.Contains(t, out, "type mismatch")
	assert.Contains(t, out, "main.tml")
}

func TestRenderJSONStampsRunID(t *testing.T) {
	t.Parallel()

	srcs := source.NewMap()
	file := srcs.AddFile("main.tml", []byte("x"))
	diags := []reporter.Diagnostic{
		{Severity: reporter.Warning, Category: reporter.CategoryEffect, Code: "E0603", Message: "missing effect", Primary: newSpan(srcs, file)},
	}

	out, err := reporter.RenderJSON(srcs, diags)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"run_id"`)
	assert.Contains(t, s, "E0603")
}

func TestSinkExitCode(t *testing.T) {
	t.Parallel()

	sink := reporter.NewSink()
	assert.Equal(t, 0, sink.ExitCode())
	sink.Errorf(reporter.CategoryType, "E0501", source.Span{}, "boom")
	assert.Equal(t, 1, sink.ExitCode())
	assert.True(t, sink.HasErrors())
}
