package stableid_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/stableid"
)

func TestAssignIsDeterministic(t *testing.T) {
	t.Parallel()

	a := stableid.NewTable().Assign("app.net", "connect", "func(Str)->Unit")
	b := stableid.NewTable().Assign("app.net", "connect", "func(Str)->Unit")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "@"))
	assert.Len(t, string(a), 9) // '@' + 8 hex digits
}

func TestAssignDiffersBySignature(t *testing.T) {
	t.Parallel()

	table := stableid.NewTable()
	a := table.Assign("app.net", "connect", "func(Str)->Unit")
	b := table.Assign("app.net", "connect", "func(I32)->Unit")
	assert.NotEqual(t, a, b)
}

func TestAssignResolvesCollisionByExtendingPrefix(t *testing.T) {
	t.Parallel()

	table := stableid.NewTable()
	id := table.Assign("app.net", "connect", "func(Str)->Unit")
	table.Reserve(id) // force the next Assign of the same inputs to collide

	second := table.Assign("app.net", "connect", "func(Str)->Unit")
	require.NotEqual(t, id, second)
	assert.True(t, strings.HasPrefix(string(second), string(id)))
	assert.Greater(t, len(string(second)), len(string(id)))
}

func TestZeroStringIsLoud(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<unassigned>", stableid.Zero.String())
}
