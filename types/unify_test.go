package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/types"
)

func TestUnifyBindsFreshVariable(t *testing.T) {
	t.Parallel()

	u := types.NewUnifier()
	v := u.Fresh()
	require.NoError(t, u.Unify(v, types.I32))
	assert.True(t, types.Equal(u.Resolve(v), types.I32))
}

func TestUnifyMismatchedPrimitivesFails(t *testing.T) {
	t.Parallel()

	u := types.NewUnifier()
	err := u.Unify(types.I32, types.Bool)
	require.Error(t, err)
	var unifyErr *types.UnifyError
	require.ErrorAs(t, err, &unifyErr)
}

func TestUnifyOccursCheckRejectsRecursiveType(t *testing.T) {
	t.Parallel()

	u := types.NewUnifier()
	v := u.Fresh()
	self := &types.Type{Kind: types.KSlice, Elem: v}
	err := u.Unify(v, self)
	assert.Error(t, err)
}

func TestTryWidenAllowsWiderSameFamily(t *testing.T) {
	t.Parallel()

	assert.True(t, types.TryWiden(types.Primitive("I8"), types.I32))
	assert.False(t, types.TryWiden(types.I32, types.Primitive("I8")))
	assert.False(t, types.TryWiden(types.I32, types.Bool))
}

func TestResolveDeepFollowsNestedSubstitutions(t *testing.T) {
	t.Parallel()

	u := types.NewUnifier()
	v := u.Fresh()
	require.NoError(t, u.Unify(v, types.I32))
	slice := &types.Type{Kind: types.KSlice, Elem: v}
	resolved := u.ResolveDeep(slice)
	assert.True(t, types.Equal(resolved.Elem, types.I32))
}
