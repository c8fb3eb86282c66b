package space_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/space"
)

// threeGroupSpace builds a molecular dimer, an atomic two-ion salt pool,
// and a trailing molecular dimer, so insertions into the middle group
// exercise the range-shifting of everything after it.
func threeGroupSpace() *space.Space {
	init := []particle.Particle{
		{Pos: geom.Vec3{X: 1}, TypeID: 1},
		{Pos: geom.Vec3{X: 2}, TypeID: 1},
		{Pos: geom.Vec3{X: 5}, TypeID: 2, Charge: 1},
		{Pos: geom.Vec3{X: 6}, TypeID: 3, Charge: -1},
		{Pos: geom.Vec3{X: 10}, TypeID: 1},
		{Pos: geom.Vec3{X: 11}, TypeID: 1},
	}
	groups := []*group.Group{
		group.New("mol-a", 0, 0, 2, true, init),
		group.New("salt", 1, 2, 4, false, init),
		group.New("mol-b", 0, 4, 6, true, init),
	}
	return space.New(init, groups, geom.NewCube(40))
}

func TestInsertParticleShiftsLaterGroupsAndTracker(t *testing.T) {
	sp := threeGroupSpace()
	idx := sp.InsertParticle(1, particle.Particle{Pos: geom.Vec3{X: 7}, TypeID: 2, Charge: 1})

	assert.Equal(t, 4, idx)
	assert.Equal(t, 7, sp.Particles.Len())
	assert.Equal(t, 5, sp.Groups[1].Back)
	// the trailing group slides right by one; the leading group is untouched.
	assert.Equal(t, 5, sp.Groups[2].Front)
	assert.Equal(t, 7, sp.Groups[2].Back)
	assert.Equal(t, 0, sp.Groups[0].Front)
	assert.Equal(t, 2, sp.Groups[0].Back)

	assert.Equal(t, 2, sp.Tracker.Count(2))
	require.True(t, sp.Tracker.Consistent(sp.Particles.Committed))
	require.True(t, sp.Particles.Equal())
}

func TestRemoveParticleShrinksGroupAndTracker(t *testing.T) {
	sp := threeGroupSpace()
	sp.RemoveParticle(1, 2) // the cation

	assert.Equal(t, 5, sp.Particles.Len())
	assert.Equal(t, 3, sp.Groups[1].Back)
	assert.Equal(t, 3, sp.Groups[2].Front)
	assert.Equal(t, 5, sp.Groups[2].Back)
	assert.Equal(t, 0, sp.Tracker.Count(2))
	assert.Equal(t, 1, sp.Tracker.Count(3))
	require.True(t, sp.Tracker.Consistent(sp.Particles.Committed))
	require.True(t, sp.Particles.Equal())
}

func TestCommitAppliesTrialAndMassCentre(t *testing.T) {
	sp := threeGroupSpace()
	g := sp.Groups[0]

	sp.Particles.Trial[0].Pos = geom.Vec3{X: 3}
	sp.Change.AddParticle(0, 0)
	g.RecomputeTrialCM(sp.Particles.Trial)

	sp.Commit()

	require.True(t, sp.Particles.Equal())
	require.True(t, sp.Change.Empty())
	assert.InDelta(t, 2.5, g.CommittedCM.X, 1e-9)
	cm := group.MassCentre(sp.Particles.Committed[g.Front:g.Back])
	assert.InDelta(t, cm.X, g.CommittedCM.X, 1e-6)
}

func TestRejectRestoresTrialAndMassCentre(t *testing.T) {
	sp := threeGroupSpace()
	g := sp.Groups[0]
	before := g.CommittedCM

	sp.Particles.Trial[1].Pos = geom.Vec3{X: 99}
	sp.Change.AddParticle(0, 1)
	g.RecomputeTrialCM(sp.Particles.Trial)

	sp.Reject()

	require.True(t, sp.Particles.Equal())
	require.True(t, sp.Change.Empty())
	assert.Equal(t, before, g.TrialCM)
	assert.InDelta(t, 2.0, sp.Particles.Trial[1].Pos.X, 1e-12)
}

func TestWholeGroupChangeCommitsEveryMember(t *testing.T) {
	sp := threeGroupSpace()
	g := sp.Groups[2]

	for i := g.Front; i < g.Back; i++ {
		sp.Particles.Trial[i].Pos = sp.Particles.Trial[i].Pos.Add(geom.Vec3{Y: 1})
	}
	sp.Change.AddWholeGroup(2)
	g.RecomputeTrialCM(sp.Particles.Trial)

	sp.Commit()

	require.True(t, sp.Particles.Equal())
	assert.InDelta(t, 1.0, sp.Particles.Committed[g.Front].Pos.Y, 1e-12)
}
