// Package move implements the Markov-chain move operator protocol and the
// full family of concrete trial moves: a uniform operator protocol that
// lets two dozen heterogeneous trial moves share one driver (Step) and one
// acceptance-accounting path.
//
// The protocol is expressed as a small interface plus a free driver
// function, the same shape as gonum's optimize.GlobalMethod /
// optimize.Global: a Method implements a handful of verbs, and a
// standalone function owns the control loop and bookkeeping around it.
package move

import (
	"fmt"
	"math"
	"os"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
)

// Move is the polymorphic unit every concrete trial move implements.
// Implementations are stored as boxed interface values in a Propagator's
// move list.
type Move interface {
	// Propose mutates sp.Particles.Trial and records the touched indices
	// in sp.Change. Returns false if the move could not propose at all
	// (e.g. a grand-canonical deletion with insufficient inventory) — this
	// is not a rejection, it is a no-op attempt.
	Propose(sp *space.Space, r *rng.RNG) bool
	// EnergyChange asks h to evaluate the energy delta implied by
	// sp.Change against sp.Particles. +Inf signals a hard-core collision.
	EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64
	// Accept commits the trial (sp.Commit() or move-specific bookkeeping
	// such as inserting/deleting particles) and records statistics.
	Accept(sp *space.Space)
	// Reject rolls the trial back (sp.Reject() or move-specific
	// bookkeeping) and records statistics.
	Reject(sp *space.Space)
	// Report returns this move's structured statistics payload.
	Report() Report
	// Name identifies the move kind, e.g. for a configuration document's
	// keyed move table.
	Name() string
	// ListEntries returns this move's per-molecule MoveListEntry table,
	// or nil if the move does not use a move list (volume, titration,
	// tempering, and the grand-canonical moves all run as a single
	// process with just a probability, not a per-molecule table).
	ListEntries() map[int]*MoveListEntry
	// SetCurrentMolID tells the move which molecule id Step selected this
	// iteration, so Propose can restrict itself to matching groups.
	SetCurrentMolID(id int)
}

// AlternateEnergyReporter is implemented by moves whose reported energy
// differs from the energy used in the Metropolis test — grand-canonical
// moves, whose acceptance includes an ideal-gas term that should not be
// counted toward the Propagator's physical energy-drift diagnostic.
type AlternateEnergyReporter interface {
	AlternateReturnEnergy() (float64, bool)
}

// LockstepMove is implemented by moves whose accept/reject decision must
// be synchronized with an external collaborator rather than drawn from
// this process's own *rng.RNG — parallel tempering (spec.md §4.10/§5:
// "Accept or reject in lockstep", "swaps synchronised at each
// replica-exchange step"). When m implements LockstepMove, Step defers
// entirely to Decide instead of drawing and testing its own Metropolis
// variate, since a locally-drawn variate could disagree with the
// partner's and desynchronize the two replicas' configurations.
type LockstepMove interface {
	Decide(dU float64) bool
}

// MoveListEntry is the per-(move,molecule) configuration a move list
// entry carries: selection probability, displacement parameters, and a
// repeat count.
type MoveListEntry struct {
	Prob float64 // runfraction

	Dir Vec3 // direction unit mask, restricts displacement to a subspace

	DP1, DP2 float64 // two scalar displacement parameters, move-defined

	PerAtom, PerMol bool

	// Repeat is computed at trial time as 1 * (perAtom ? groupSize : 1) *
	// (perMol ? numMoleculesOfType : 1).
	Repeat int
}

// Vec3 re-exported so move-list callers need not import geom directly.
type Vec3 = hamiltonian.Field

// Report is the structured per-move statistics payload.
type Report struct {
	Trials      int
	Accepted    int
	Acceptance  float64
	RunFraction float64
	// Payload carries move-specific extra fields (per-atom mean
	// displacement, per-group mean-squared rotation, GC activity tables,
	// titration per-site acceptance, ...).
	Payload any `json:"payload,omitempty"`
}

// sortedMolIDs returns the keys of a move list in ascending order, so
// Step's weighted random selection is reproducible given a fixed RNG
// stream (Go map iteration order is randomized and would otherwise break
// determinism).
func sortedMolIDs(list map[int]*MoveListEntry) []int {
	ids := make([]int, 0, len(list))
	for id := range list {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// Step drives one Markov step for m:
//
//  1. If m has a move list, sample currentMolId uniformly over its
//     entries, overwrite the repeat count and runfraction from that entry.
//  2. Draw a uniform variate; short-circuit to 0 without counting a trial
//     if it exceeds runfraction.
//  3. Loop the repeat count: propose, notify the Hamiltonian, evaluate
//     ΔU, apply the Metropolis test with exactly one RNG draw regardless
//     of ΔU's sign (so lock-step replicas stay in sync), commit or roll
//     back, clear the Change.
//  4. Assert committed==trial and return the summed ΔU, or, when the last
//     trial was accepted, the move's AlternateReturnEnergy if it declares
//     one.
func Step(m Move, sp *space.Space, h hamiltonian.Hamiltonian, r *rng.RNG) float64 {
	n := 1
	runfraction := 1.0

	if list := m.ListEntries(); len(list) > 0 {
		ids := sortedMolIDs(list)
		chosen := ids[r.Pick(len(ids))]
		entry := list[chosen]
		m.SetCurrentMolID(chosen)
		n = entry.Repeat
		if n < 1 {
			n = 1
		}
		runfraction = entry.Prob
	}

	if r.Uniform() > runfraction {
		return 0
	}

	total := 0.0
	lastAccepted := false
	for i := 0; i < n; i++ {
		lastAccepted = false
		if !m.Propose(sp, r) {
			// insufficient inventory / nothing to propose: counts as an
			// attempt but not a rejection, no energy change.
			sp.Change.Clear()
			continue
		}

		h.NotifyChange(sp.Change)
		dU := m.EnergyChange(sp, h)
		if math.IsNaN(dU) {
			// Logged, not fatal: a transient pathology should not halt
			// sampling; the NaN is used as-is in the test below, which
			// will reject almost surely.
			fmt.Fprintf(os.Stderr, "move: %s reported NaN energy change\n", m.Name())
		}

		var accept bool
		if lm, ok := m.(LockstepMove); ok {
			// The decision is synchronized with the partner replica over
			// its own collaborator rather than this process's RNG; see
			// LockstepMove.
			accept = lm.Decide(dU)
		} else {
			// Exactly one RNG draw, independent of ΔU's sign.
			u := r.Uniform()
			accept = u <= math.Exp(-dU)
		}
		if accept {
			m.Accept(sp)
			total += dU
			lastAccepted = true
		} else {
			m.Reject(sp)
		}
		sp.Change.Clear()
	}

	if !sp.Particles.Equal() {
		panic("move: committed and trial particle vectors diverged after step")
	}

	if alt, ok := m.(AlternateEnergyReporter); ok && lastAccepted {
		if v, has := alt.AlternateReturnEnergy(); has {
			return v
		}
	}
	return total
}
