// Package hamiltonian defines the Hamiltonian collaborator spec.md §1
// excludes from this module's scope ("the pair/energy Hamiltonian itself
// ... treated as external collaborators with named interfaces"). Moves
// depend only on the Hamiltonian interface; pairwise.go provides one
// concrete, testable implementation so the move framework has something
// real to drive in its own test suite.
package hamiltonian

import (
	"github.com/cpasquier/faunus/internal/change"
	"github.com/cpasquier/faunus/internal/particle"
)

// Hamiltonian computes energies against a trial particle configuration. It
// is notified of what changed before EnergyChange is asked to evaluate the
// delta, so implementations can restrict their sweep to the touched
// particles/groups instead of recomputing the whole system.
type Hamiltonian interface {
	// NotifyChange tells the Hamiltonian what the pending trial altered.
	NotifyChange(c *change.Change)
	// EnergyChange returns the trial-minus-committed energy difference in
	// units of kT, given the current trial/committed particle vectors. A
	// return of +Inf signals a container collision / excluded-volume
	// overlap (spec.md §7).
	EnergyChange(pv *particle.Vector) float64
	// GroupInternalEnergy returns the pair energy summed strictly within
	// the given indices at their current trial positions, used by the
	// rejection-free cluster move's recruitment test (§4.5), which needs
	// the cross term between a moved group and a candidate in isolation.
	GroupInternalEnergy(pv *particle.Vector, indices []int) float64
	// Field fills in, for every particle, the electric field from every
	// other particle at the particle's trial position — used by the
	// polarisation decorator (§4.9). Implementations that do not model
	// electrostatics may leave every entry zero.
	Field(pv *particle.Vector) []Field
	// FullEnergy returns the total energy of the trial configuration,
	// needed by the polarisation decorator's energy_change() override and
	// by the Propagator's drift diagnostic (§4.9, §4.11).
	FullEnergy(pv *particle.Vector) float64
}

// Field is a 3-vector electric field sample at one particle.
type Field = particle.Vec3
