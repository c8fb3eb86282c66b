package move_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/rng"
)

// TestPolarize_ZeroPolarisability_ConvergesInOneIteration exercises
// spec.md §8's claim: on a system where every particle's polarisability is
// 0, the field iteration makes no change to any dipole on its first pass,
// so the wrapper converges in a single iteration and behaves as a
// pass-through on top of the wrapped move.
func TestPolarize_ZeroPolarisability_ConvergesInOneIteration(t *testing.T) {
	sp, h := idealGasSystem(10, 50)
	inner := move.NewAtomTranslate(sp, []int{0}, 1.0, 1.0, geom.Vec3{X: 1, Y: 1, Z: 1})
	m := move.NewPolarize(inner, nil, 1e-9, 50)
	r := rng.New(4)

	for i := 0; i < 50; i++ {
		move.Step(m, sp, h, r)
		assert.Equal(t, 1, m.Iterations(), "alpha=0 must converge on the first pass")
	}
}

// TestPolarize_DivergentField_Panics asserts spec.md §7's fatal-error
// disposition: an iteration that cannot reach the threshold within
// MaxIter rounds panics with ErrFieldDivergence rather than silently
// returning a wrong energy.
func TestPolarize_DivergentField_Panics(t *testing.T) {
	sp, h := idealGasSystem(2, 50)
	for i := range sp.Particles.Committed {
		sp.Particles.Committed[i].Charge = 1
		sp.Particles.Trial[i].Charge = 1
	}
	alpha := map[int]float64{1: 1e6} // absurdly large, forces non-convergence
	inner := move.NewAtomTranslate(sp, []int{0}, 1.0, 1.0, geom.Vec3{X: 1, Y: 1, Z: 1})
	m := move.NewPolarize(inner, alpha, 1e-12, 2)
	r := rng.New(9)

	defer func() {
		rec := recover()
		require.NotNil(t, rec, "expected a panic on non-convergent field iteration")
		err, ok := rec.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, move.ErrFieldDivergence)
	}()
	for i := 0; i < 100; i++ {
		move.Step(m, sp, h, r)
	}
}
