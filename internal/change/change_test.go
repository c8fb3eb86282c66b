package change_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpasquier/faunus/internal/change"
)

// TestChange_EmptyByDefault covers the invariant that must hold outside
// of any trial.
func TestChange_EmptyByDefault(t *testing.T) {
	c := change.New()
	assert.True(t, c.Empty())
	assert.Empty(t, c.AllParticleIndices())
}

// TestChange_AddParticle_TracksPerGroupIndices asserts particle-level
// changes are recorded per group and flatten correctly.
func TestChange_AddParticle_TracksPerGroupIndices(t *testing.T) {
	c := change.New()
	c.AddParticle(0, 3)
	c.AddParticle(0, 5)
	c.AddParticle(1, 9)

	assert.False(t, c.Empty())
	assert.ElementsMatch(t, []int{3, 5, 9}, c.AllParticleIndices())
}

// TestChange_AddWholeGroup_RegistersEmptySlice covers the "whole group
// moved" sentinel: the group key is present but contributes no indices to
// AllParticleIndices.
func TestChange_AddWholeGroup_RegistersEmptySlice(t *testing.T) {
	c := change.New()
	c.AddWholeGroup(2)

	assert.False(t, c.Empty())
	assert.Contains(t, c.Groups, 2)
	assert.Empty(t, c.Groups[2])
	assert.Empty(t, c.AllParticleIndices())
}

// TestChange_SetGeometry_MarksGeometryChange covers the volume-move path.
func TestChange_SetGeometry_MarksGeometryChange(t *testing.T) {
	c := change.New()
	c.SetGeometry(123.5)

	assert.False(t, c.Empty())
	assert.True(t, c.GeometryChange)
	assert.Equal(t, 123.5, c.DeltaV)
}

// TestChange_Clear_ResetsToEmpty asserts Clear fully restores the
// post-trial invariant.
func TestChange_Clear_ResetsToEmpty(t *testing.T) {
	c := change.New()
	c.AddParticle(0, 1)
	c.SetGeometry(5)
	c.Clear()

	assert.True(t, c.Empty())
	assert.False(t, c.GeometryChange)
	assert.Zero(t, c.DeltaV)
	assert.Empty(t, c.AllParticleIndices())
}
