package linkshim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/linkshim"
)

func TestInProcessPoisonsOnEmptyInput(t *testing.T) {
	t.Parallel()

	l := linkshim.NewInProcess()
	require.False(t, l.Poisoned())

	err := l.Link(nil, "out")
	require.Error(t, err)
	assert.True(t, l.Poisoned())

	err = l.Link([]string{"a.o"}, "out")
	assert.Error(t, err, "a poisoned linker must refuse every subsequent call")
}

func TestInProcessLinksWithInputs(t *testing.T) {
	t.Parallel()

	l := linkshim.NewInProcess()
	err := l.Link([]string{"a.o", "b.o"}, "out")
	assert.NoError(t, err)
	assert.False(t, l.Poisoned())
}

func TestFallbackSwitchesOncePoisoned(t *testing.T) {
	t.Parallel()

	l := linkshim.NewInProcess()
	_ = l.Link(nil, "out")
	require.True(t, l.Poisoned())

	fallback := linkshim.Fallback(l, "ld.lld")
	_, isSubprocess := fallback.(*linkshim.Subprocess)
	assert.True(t, isSubprocess)
}

func TestFallbackKeepsPrimaryWhenHealthy(t *testing.T) {
	t.Parallel()

	l := linkshim.NewInProcess()
	got := linkshim.Fallback(l, "ld.lld")
	assert.Same(t, l, got)
}

func TestSubprocessNeverPoisoned(t *testing.T) {
	t.Parallel()

	s := linkshim.NewSubprocess("ld.lld")
	assert.False(t, s.Poisoned())
}
