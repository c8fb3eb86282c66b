package move_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/rng"
)

// recordingFeed implements move.Feed, capturing every Push call so a test
// can assert the Propagator pushes exactly once per Step.
type recordingFeed struct {
	pushes int
	last   []move.Report
}

func (f *recordingFeed) Push(reports []move.Report) {
	f.pushes++
	f.last = reports
}

// TestPropagator_Run_PushesOncePerStep exercises spec.md §4.11's monitor
// hook: a Propagator with a Monitor attached must push exactly one
// snapshot per outer Step, covering every configured move.
func TestPropagator_Run_PushesOncePerStep(t *testing.T) {
	sp, h := idealGasSystem(10, 50)
	m := move.NewAtomTranslate(sp, []int{0}, 1.0, 1.0, geom.Vec3{X: 1, Y: 1, Z: 1})
	r := rng.New(6)
	prop := move.NewPropagator([]move.Move{m}, r, h, h.FullEnergy(sp.Particles))

	feed := &recordingFeed{}
	prop.Monitor = feed

	const steps = 50
	prop.Run(sp, steps)

	assert.Equal(t, steps, feed.pushes)
	require.Len(t, feed.last, 1)
}

// TestPropagator_Drift_ZeroOnIdealGas asserts that on a zero-interaction
// system, where every trial's ΔU is exactly 0, the running energy total
// never departs from the initial value, so the drift diagnostic reports
// zero drift against a freshly sampled energy.
func TestPropagator_Drift_ZeroOnIdealGas(t *testing.T) {
	sp, h := idealGasSystem(20, 50)
	m := move.NewAtomTranslate(sp, []int{0}, 1.0, 2.0, geom.Vec3{X: 1, Y: 1, Z: 1})
	r := rng.New(17)
	initial := h.FullEnergy(sp.Particles)
	prop := move.NewPropagator([]move.Move{m}, r, h, initial)

	prop.Run(sp, 500)

	sampled := h.FullEnergy(sp.Particles)
	drift, relative, meanEnergy := prop.Drift(sampled)
	assert.Zero(t, drift)
	assert.Zero(t, relative)
	assert.Zero(t, meanEnergy)

	assert.NotPanics(t, func() { prop.AssertDrift(sampled, 1e-6) })
}

// TestPropagator_Step_UsesMoveRNG_NotGlobal asserts that Propagator derives
// a dedicated move-selection RNG at construction (spec.md §9), rather than
// consuming draws from the caller's own RNG instance.
func TestPropagator_Step_UsesMoveRNG_NotGlobal(t *testing.T) {
	sp, h := idealGasSystem(5, 50)
	m := move.NewAtomTranslate(sp, []int{0}, 1.0, 1.0, geom.Vec3{X: 1, Y: 1, Z: 1})
	global := rng.New(55)
	twin := rng.New(55)
	before := global.Uniform()
	twin.Uniform()
	twin.Derive() // the one draw NewPropagator takes from global to seed MoveRNG

	prop := move.NewPropagator([]move.Move{m}, global, h, 0)
	prop.Step(sp)

	// Step draws only from MoveRNG, so global's stream is exactly where the
	// twin's is.
	assert.NotZero(t, before)
	assert.NotNil(t, prop.MoveRNG)
	assert.Equal(t, twin.Uniform(), global.Uniform(), "Step must not draw from the caller's RNG")
}
