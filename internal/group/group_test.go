package group_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/particle"
)

func threeParticles() []particle.Particle {
	return []particle.Particle{
		{Pos: geom.Vec3{X: 0, Y: 0, Z: 0}},
		{Pos: geom.Vec3{X: 3, Y: 0, Z: 0}},
		{Pos: geom.Vec3{X: 6, Y: 0, Z: 0}},
	}
}

// TestNew_MolecularGroup_ComputesInitialMassCentre covers the constructor's
// initial CommittedCM/TrialCM computation for a molecular group.
func TestNew_MolecularGroup_ComputesInitialMassCentre(t *testing.T) {
	particles := threeParticles()
	g := group.New("mol", 0, 0, 3, true, particles)

	assert.Equal(t, geom.Vec3{X: 3, Y: 0, Z: 0}, g.CommittedCM)
	assert.Equal(t, g.CommittedCM, g.TrialCM)
}

// TestNew_AtomicGroup_LeavesMassCentreZero covers the atomic-group path,
// where the mass centre is irrelevant and left at the zero value.
func TestNew_AtomicGroup_LeavesMassCentreZero(t *testing.T) {
	particles := threeParticles()
	g := group.New("pool", 1, 0, 3, false, particles)
	assert.Equal(t, geom.Zero, g.CommittedCM)
}

// TestGroup_SizeAndIndices covers the half-open range contract.
func TestGroup_SizeAndIndices(t *testing.T) {
	g := group.New("g", 0, 2, 5, false, nil)
	assert.Equal(t, 3, g.Size())
	assert.Equal(t, []int{2, 3, 4}, g.Indices())
	assert.True(t, g.Contains(2))
	assert.True(t, g.Contains(4))
	assert.False(t, g.Contains(5))
	assert.False(t, g.Contains(1))
}

// TestMassCentre_EmptySlice_ReturnsZero covers the degenerate case used
// when a group has been fully depleted (e.g. a salt group with no ions).
func TestMassCentre_EmptySlice_ReturnsZero(t *testing.T) {
	assert.Equal(t, geom.Zero, group.MassCentre(nil))
}

// TestRecomputeTrialCM_MolecularGroup_UpdatesFromTrialVector asserts the
// recompute-from-scratch contract after a single particle moves.
func TestRecomputeTrialCM_MolecularGroup_UpdatesFromTrialVector(t *testing.T) {
	particles := threeParticles()
	g := group.New("mol", 0, 0, 3, true, particles)

	trial := append([]particle.Particle{}, particles...)
	trial[0].Pos = geom.Vec3{X: 9, Y: 0, Z: 0}
	g.RecomputeTrialCM(trial)

	assert.Equal(t, geom.Vec3{X: 6, Y: 0, Z: 0}, g.TrialCM)
	assert.Equal(t, geom.Vec3{X: 3, Y: 0, Z: 0}, g.CommittedCM, "committed mass centre must be untouched")
}

// TestRecomputeTrialCM_AtomicGroup_IsNoOp covers the "irrelevant for atomic
// groups" short-circuit.
func TestRecomputeTrialCM_AtomicGroup_IsNoOp(t *testing.T) {
	particles := threeParticles()
	g := group.New("pool", 0, 0, 3, false, particles)
	g.RecomputeTrialCM(particles)
	assert.Equal(t, geom.Zero, g.TrialCM)
}

// TestShift_OnlyAffectsRangesAtOrAfterInsertionPoint covers the
// insertion/deletion bookkeeping used by grand-canonical moves.
func TestShift_OnlyAffectsRangesAtOrAfterInsertionPoint(t *testing.T) {
	before := group.New("before", 0, 0, 2, false, nil)
	after := group.New("after", 1, 2, 4, false, nil)

	before.Shift(2, 1)
	after.Shift(2, 1)

	assert.Equal(t, 0, before.Front)
	assert.Equal(t, 2, before.Back, "range entirely before the insertion point must be untouched")
	assert.Equal(t, 3, after.Front)
	assert.Equal(t, 5, after.Back, "range at or after the insertion point must shift")
}
