package move

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
)

// Feed is the optional live-statistics sink a Propagator pushes a Report
// snapshot to after every Step, implemented by internal/monitor.Feed over
// a websocket broadcast. Kept as a narrow interface here so move does not
// import monitor (which would otherwise import move back for Report,
// a cycle) — monitor depends on move, not the reverse.
type Feed interface {
	Push(reports []Report)
}

// Propagator is the dispatcher that owns a heterogeneous list of Move
// operators, selects one uniformly per step via its own dedicated RNG,
// drives its lifecycle through move.Step, and tracks the cumulative
// energy drift.
//
// Mirrors gonum's optimize.Method protocol the same way the Move interface
// does: a small interface driven by an external loop, here owned by
// Propagator instead of a free function, since the Propagator additionally
// owns cross-move bookkeeping (drift, RNG derivation) the single-move Step
// driver has no business knowing about.
type Propagator struct {
	Moves       []Move
	RNG         *rng.RNG // process-wide user-level RNG
	MoveRNG     *rng.RNG // dedicated move-selection RNG, derived from RNG
	Hamiltonian hamiltonian.Hamiltonian
	Monitor     Feed // optional; nil-safe

	initialEnergy float64
	deltaSum      float64
	samples       []float64
}

// NewPropagator builds a Propagator over moves, deriving its dedicated
// MoveRNG from globalRNG at construction. Move selection and every trial's
// own draws both come from MoveRNG, a stream independent of globalRNG.
func NewPropagator(moves []Move, globalRNG *rng.RNG, h hamiltonian.Hamiltonian, initialEnergy float64) *Propagator {
	return &Propagator{
		Moves:         moves,
		RNG:           globalRNG,
		MoveRNG:       globalRNG.Derive(),
		Hamiltonian:   h,
		initialEnergy: initialEnergy,
	}
}

// Step drives one outer step: sample one move uniformly
// using MoveRNG, invoke its Step(1)-equivalent lifecycle, fold the
// reported ΔU into the running drift accounting, and push a statistics
// snapshot to Monitor if one is attached.
func (p *Propagator) Step(sp *space.Space) float64 {
	if len(p.Moves) == 0 {
		return 0
	}
	i := p.MoveRNG.Pick(len(p.Moves))
	dU := Step(p.Moves[i], sp, p.Hamiltonian, p.MoveRNG)
	p.deltaSum += dU
	p.samples = append(p.samples, p.initialEnergy+p.deltaSum)

	if p.Monitor != nil {
		p.Monitor.Push(p.Summary())
	}
	return dU
}

// Run drives n outer steps in sequence.
func (p *Propagator) Run(sp *space.Space, n int) {
	for i := 0; i < n; i++ {
		p.Step(sp)
	}
}

// CurrentEnergy returns U_initial + ΔU_sum, the running total the drift
// diagnostic compares against a freshly sampled total.
func (p *Propagator) CurrentEnergy() float64 {
	return p.initialEnergy + p.deltaSum
}

// Drift computes an energy-drift diagnostic against a
// directly sampled total energy U_sampled (e.g. the Hamiltonian's
// FullEnergy evaluated fresh against the current committed
// configuration): drift = U_sampled - (U_initial + ΔU_sum), and its
// relative magnitude |drift / U_sampled|. Uses gonum/stat.Mean over the
// recorded running-total samples to report a smoothed trajectory mean
// alongside the instantaneous drift, rather than hand-rolling the
// average.
func (p *Propagator) Drift(sampledEnergy float64) (drift, relative, meanEnergy float64) {
	drift = sampledEnergy - p.CurrentEnergy()
	if sampledEnergy != 0 {
		relative = math.Abs(drift / sampledEnergy)
	}
	if len(p.samples) > 0 {
		meanEnergy = stat.Mean(p.samples, nil)
	}
	return drift, relative, meanEnergy
}

// AssertDrift panics if the relative drift against sampledEnergy exceeds
// tolerance (typically a small fraction such as 0.1%) — an invariant
// breach, not a recoverable runtime condition.
func (p *Propagator) AssertDrift(sampledEnergy, tolerance float64) {
	_, relative, _ := p.Drift(sampledEnergy)
	if relative > tolerance {
		panic(fmt.Sprintf("propagator: relative energy drift %.6g exceeds tolerance %.6g", relative, tolerance))
	}
}

// Summary collects one Report per move, in list order, for JSON output or
// a Monitor push.
func (p *Propagator) Summary() []Report {
	out := make([]Report, len(p.Moves))
	for i, m := range p.Moves {
		out[i] = m.Report()
	}
	return out
}
