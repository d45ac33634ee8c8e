package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hivellm/tmlc/effect"
)

func TestRowCoversSubeffect(t *testing.T) {
	t.Parallel()

	declared := effect.NewRow("io.file")
	inferred := effect.NewRow("io.file.read", "io.file.write")
	assert.True(t, declared.Covers(inferred))
}

func TestRowDoesNotCoverUnrelatedLeaf(t *testing.T) {
	t.Parallel()

	declared := effect.NewRow("io.file")
	inferred := effect.NewRow("io.network")
	assert.False(t, declared.Covers(inferred))
	assert.Equal(t, []string{"io.network"}, declared.Missing(inferred))
}

func TestIntersectNarrowsToCeiling(t *testing.T) {
	t.Parallel()

	declared := effect.NewRow("io.file.read", "system.alloc")
	ceiling := effect.NewRow("io")
	got := effect.Intersect(declared, ceiling)
	assert.Equal(t, []string{"io.file.read"}, got.Names())
}

func TestPolicyEffectiveNilIsIdentity(t *testing.T) {
	t.Parallel()

	var p *effect.Policy
	declared := effect.NewRow("io.file")
	assert.Equal(t, declared.Names(), p.Effective(declared).Names())
}
