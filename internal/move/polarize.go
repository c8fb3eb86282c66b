package move

import (
	"errors"
	"fmt"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
)

// ErrFieldDivergence is wrapped by the error Polarize.EnergyChange panics
// with (the panic propagates, unrecovered, out of move.Step and
// Propagator.Step) when the induced-dipole iteration does not converge
// within MaxIter rounds. This is a fatal runtime error: the configuration is
// malformed or the potential is ill-conditioned, and continuing would
// corrupt acceptance statistics.
var ErrFieldDivergence = errors.New("move: polarisation field iteration did not converge")

// Polarize is a generic decorator that wraps any
// Move and, after the wrapped move's Propose, iterates induced dipoles to
// self-consistency. It reports the full-system energy difference rather
// than the inner move's incremental energy, since any dipole anywhere may
// have changed, and synchronises the whole particle vector on
// accept/reject instead of only the inner move's touched indices.
//
// Generalizes the wrapper-decorator pattern the same way gonum's optimize
// package composes a Method behind a shared interface: Polarize holds a
// Move value behind the same Move interface it implements.
type Polarize struct {
	Inner     Move
	Alpha     map[int]float64 // TypeID -> polarisability, overrides particle.Polarisability when set
	Threshold float64
	MaxIter   int

	iterations int
	err        error
}

// NewPolarize wraps inner with a self-consistent dipole solve.
func NewPolarize(inner Move, alpha map[int]float64, threshold float64, maxIter int) *Polarize {
	return &Polarize{Inner: inner, Alpha: alpha, Threshold: threshold, MaxIter: maxIter}
}

func (m *Polarize) Name() string                       { return "polarize(" + m.Inner.Name() + ")" }
func (m *Polarize) ListEntries() map[int]*MoveListEntry { return m.Inner.ListEntries() }
func (m *Polarize) SetCurrentMolID(id int)              { m.Inner.SetCurrentMolID(id) }

func (m *Polarize) alphaOf(p particle.Particle) float64 {
	if m.Alpha != nil {
		if a, ok := m.Alpha[p.TypeID]; ok {
			return a
		}
	}
	return p.Polarisability
}

// Propose clears m.err and runs the wrapped move. The dipole iteration is
// left to EnergyChange, which panics with an error wrapping
// ErrFieldDivergence when it does not converge — Propose itself cannot
// return an error under the Move interface, and a silent false would
// misreport the failure as mere insufficient inventory, a fundamentally
// different condition.
func (m *Polarize) Propose(sp *space.Space, r *rng.RNG) bool {
	m.err = nil
	if !m.Inner.Propose(sp, r) {
		return false
	}
	return true
}

func (m *Polarize) iterate(sp *space.Space, h hamiltonian.Hamiltonian) error {
	for iter := 0; iter < m.MaxIter; iter++ {
		field := h.Field(sp.Particles)
		maxDelta := 0.0
		for i := range sp.Particles.Trial {
			p := &sp.Particles.Trial[i]
			alpha := m.alphaOf(*p)
			if alpha == 0 {
				continue
			}
			var e hamiltonian.Field
			if i < len(field) {
				e = field[i]
			}
			oldDir := p.DipoleDir
			oldMag := p.DipoleMagnitude
			induced := e.Scale(alpha)
			newDipole := induced.Add(oldDir.Scale(oldMag))
			newMag := newDipole.Norm()
			var newDir hamiltonian.Field
			if newMag > 0 {
				newDir = newDipole.Scale(1 / newMag)
			}
			delta := newDipole.Sub(oldDir.Scale(oldMag)).Norm()
			if delta > maxDelta {
				maxDelta = delta
			}
			p.DipoleDir = newDir
			p.DipoleMagnitude = newMag
		}
		m.iterations = iter + 1
		if maxDelta <= m.Threshold {
			return nil
		}
	}
	return fmt.Errorf("%w: max-norm delta still above threshold after %d iterations", ErrFieldDivergence, m.MaxIter)
}

// EnergyChange drives the dipole iteration and panics with its error if it
// does not converge (move.Step does not recover the panic), then
// returns the full-system trial-minus-committed energy, superseding
// whatever the wrapped move's own EnergyChange would have reported.
func (m *Polarize) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	if err := m.iterate(sp, h); err != nil {
		panic(err)
	}
	before := h.FullEnergy(&particle.Vector{Trial: sp.Particles.Committed})
	after := h.FullEnergy(&particle.Vector{Trial: sp.Particles.Trial})
	return after - before
}

// Iterations returns how many field-iteration rounds the last EnergyChange
// call took, for tests asserting convergence behaviour.
func (m *Polarize) Iterations() int { return m.iterations }

// Accept commits the whole particle vector (every dipole may have
// changed, not just the inner move's touched indices) and defers
// bookkeeping (counters, statistics) to the wrapped move.
func (m *Polarize) Accept(sp *space.Space) {
	sp.Particles.CommitAll()
	for gi := range sp.Change.Groups {
		g := sp.Groups[gi]
		if g.Molecular {
			g.CommittedCM = g.TrialCM
		}
	}
	sp.Change.Clear()
	m.Inner.Accept(sp)
}

// Reject restores the whole particle vector and defers to the wrapped
// move for bookkeeping.
func (m *Polarize) Reject(sp *space.Space) {
	sp.Particles.RejectAll()
	for gi := range sp.Change.Groups {
		g := sp.Groups[gi]
		if g.Molecular {
			g.TrialCM = g.CommittedCM
		}
	}
	sp.Change.Clear()
	m.Inner.Reject(sp)
}

func (m *Polarize) Report() Report {
	r := m.Inner.Report()
	r.Payload = map[string]any{"inner": r.Payload, "iterations": m.iterations}
	return r
}
