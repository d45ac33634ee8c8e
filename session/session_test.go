package session_test

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/reporter"
	"github.com/hivellm/tmlc/session"
)

func TestNewSessionHasEmptySharedResources(t *testing.T) {
	t.Parallel()

	s := session.New(session.Config{TargetTriple: "x86_64-unknown-tml"})
	require.NotNil(t, s.Sources)
	require.NotNil(t, s.Interner)
	require.NotNil(t, s.Diags)
	require.NotNil(t, s.StableID)
	assert.Nil(t, s.Policy)
	assert.False(t, s.Diags.HasErrors())
}

func TestNewSessionReportsBadPolicyPathWithoutAborting(t *testing.T) {
	t.Parallel()

	s := session.New(session.Config{PolicyPath: "/nonexistent/tml.policy.toml"})
	assert.Nil(t, s.Policy)
	assert.True(t, s.Diags.HasErrors())
	found := false
	for _, d := range s.Diags.Diagnostics() {
		if d.Category == reporter.CategoryEffect {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAssertOwnerGoroutineIsNoOpWithoutDebugFlag(t *testing.T) {
	os.Unsetenv("TMLC_DEBUG_GOROUTINE")
	s := session.New(session.Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NotPanics(t, s.AssertOwnerGoroutine)
	}()
	wg.Wait()
}

func TestAssertOwnerGoroutinePanicsFromOtherGoroutineWhenEnabled(t *testing.T) {
	t.Setenv("TMLC_DEBUG_GOROUTINE", "1")
	s := session.New(session.Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Panics(t, s.AssertOwnerGoroutine)
	}()
	wg.Wait()
}
