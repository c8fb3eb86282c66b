package move_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
)

func seededClusterSystem(side float64) (*space.Space, *hamiltonian.Pairwise) {
	cube := geom.NewCube(side)
	init := []particle.Particle{
		// seed: a 2-particle molecule
		{Pos: geom.Vec3{X: 10, Y: 10, Z: 10}, TypeID: 1, Radius: 1},
		{Pos: geom.Vec3{X: 11, Y: 10, Z: 10}, TypeID: 1, Radius: 1},
		// mobile pool: far away, never within any reasonable threshold
		{Pos: geom.Vec3{X: 40, Y: 40, Z: 40}, TypeID: 2, Radius: 1},
		{Pos: geom.Vec3{X: 42, Y: 42, Z: 42}, TypeID: 2, Radius: 1},
	}
	groups := []*group.Group{
		group.New("seed", 0, 0, 2, true, init),
		group.New("mobile", 1, 2, 4, false, init),
	}
	sp := space.New(init, groups, cube)
	h := hamiltonian.NewPairwise(cube, side/4, side/4)
	h.DefaultLJ = hamiltonian.LJParams{Epsilon: 0, Sigma: 1.0}
	return sp, h
}

// TestCluster_ThresholdZero_SeedAlone exercises spec.md §8's cluster
// correctness property: with threshold=0 and a mobile pool placed far from
// the seed, no mobile atoms are ever recruited, so the cluster reduces to
// the seed group translating/rotating alone, and every trial leaves the
// mobile pool's positions untouched.
func TestCluster_ThresholdZero_SeedAlone(t *testing.T) {
	sp, h := seededClusterSystem(100)
	mobileBefore := append([]particle.Particle{}, sp.Particles.Committed[2:4]...)

	m := move.NewClusterSeeded(1.0, 0, 1, 0, 2.0, 0.5)
	r := rng.New(13)

	for i := 0; i < 300; i++ {
		move.Step(m, sp, h, r)
		require.True(t, sp.Particles.Equal())
	}

	for i, p := range sp.Particles.Committed[2:4] {
		assert.Equal(t, mobileBefore[i].Pos, p.Pos, "mobile pool must be untouched when never recruited")
	}
	report := m.Report()
	assert.InDelta(t, 1.0, report.Acceptance, 0.02, "an isolated non-interacting seed cluster must accept essentially always")
}

// TestCluster_SeededRecruitmentReachesChainedAtoms pins the fixed-point
// growth of the seeded variant: a mobile atom linked to the seed only
// through another mobile atom — one that appears LATER in index order —
// must still be recruited, so the whole chain translates together with
// the seed.
func TestCluster_SeededRecruitmentReachesChainedAtoms(t *testing.T) {
	cube := geom.NewCube(100)
	init := []particle.Particle{
		// seed molecule
		{Pos: geom.Vec3{X: 10, Y: 10, Z: 10}, TypeID: 1, Radius: 1},
		// mobile pool, deliberately ordered so the chain's outer link
		// comes first: index 1 touches only index 2, index 2 touches the
		// seed, index 3 is isolated.
		{Pos: geom.Vec3{X: 16, Y: 10, Z: 10}, TypeID: 2, Radius: 1},
		{Pos: geom.Vec3{X: 13, Y: 10, Z: 10}, TypeID: 2, Radius: 1},
		{Pos: geom.Vec3{X: 60, Y: 60, Z: 60}, TypeID: 2, Radius: 1},
	}
	groups := []*group.Group{
		group.New("seed", 0, 0, 1, true, init),
		group.New("mobile", 1, 1, 4, false, init),
	}
	sp := space.New(init, groups, cube)
	h := hamiltonian.NewPairwise(cube, 25, 25)
	h.DefaultLJ = hamiltonian.LJParams{Epsilon: 0, Sigma: 1.0}

	// threshold 1.5 + radii 1+1: links exist for separations < 3.5, so
	// seed(10)-atom2(13) and atom2(13)-atom1(16) are linked, seed-atom1
	// (separation 6) is not a direct link.
	m := move.NewClusterSeeded(1.0, 0, 1, 1.5, 2.0, 0)
	r := rng.New(17)

	require.True(t, m.Propose(sp, r))
	require.Contains(t, sp.Change.Groups, 1)
	touched := append([]int{}, sp.Change.Groups[1]...)
	assert.Contains(t, touched, 1, "the atom linked only through another mobile atom must be recruited")
	assert.Contains(t, touched, 2)
	assert.NotContains(t, touched, 3, "the isolated atom must not be recruited")

	// the whole chain moved rigidly with the seed
	d01 := geom.Dist(sp.Particles.Trial[0].Pos, sp.Particles.Trial[1].Pos)
	assert.InDelta(t, 6.0, d01, 1e-9)
	assert.Equal(t, sp.Particles.Committed[3], sp.Particles.Trial[3])

	m.Reject(sp)
	require.True(t, sp.Particles.Equal())
}
