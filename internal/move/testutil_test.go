package move_test

import (
	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/space"
)

// idealGasSystem builds n free, uncharged, non-interacting atoms of
// TypeID 1 in a single atomic group inside a cubic box of the given side,
// plus a Pairwise Hamiltonian with epsilon 0 everywhere (ideal gas, always
// returns ΔU=0).
func idealGasSystem(n int, side float64) (*space.Space, *hamiltonian.Pairwise) {
	cube := geom.NewCube(side)
	init := make([]particle.Particle, n)
	for i := range init {
		init[i] = particle.Particle{
			Pos:    geom.Vec3{X: float64(i % 10) + 1, Y: float64(i/10%10) + 1, Z: float64(i/100) + 1},
			TypeID: 1,
		}
	}
	groups := []*group.Group{group.New("gas", 0, 0, n, false, init)}
	sp := space.New(init, groups, cube)
	h := hamiltonian.NewPairwise(cube, side/2, side/2)
	h.DefaultLJ = hamiltonian.LJParams{Epsilon: 0, Sigma: 3.0}
	return sp, h
}

// pairSystem builds a two-particle molecular group (so its mass centre is
// tracked) at the given positions inside a cubic box, with a Pairwise
// Hamiltonian driven by the caller's LJ/charge configuration — used by the
// isobaric-scaling scenario test.
func pairSystem(side float64, a, b geom.Vec3) (*space.Space, *hamiltonian.Pairwise) {
	cube := geom.NewCube(side)
	init := []particle.Particle{
		{Pos: a, TypeID: 1, Radius: 2},
		{Pos: b, TypeID: 1, Radius: 2},
	}
	groups := []*group.Group{group.New("pair", 0, 0, 2, true, init)}
	sp := space.New(init, groups, cube)
	h := hamiltonian.NewPairwise(cube, side/2, side/2)
	return sp, h
}
