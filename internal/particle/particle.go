// Package particle holds the per-particle state and the committed/trial
// double-buffering the move framework mutates (spec.md §3).
package particle

import "github.com/cpasquier/faunus/internal/geom"

// Particle is a single simulated site: position plus the scalar/vector
// attributes individual moves need (charge for electrostatics and charge
// bookkeeping, TypeID for tracker lookups and per-type displacement
// parameters, Radius for cluster-overlap criteria, dipole/polarisability
// for the polarisation decorator, Hydrophobic for cluster segregation).
type Particle struct {
	Pos Vec3

	Charge float64
	TypeID int

	Radius float64

	DipoleMagnitude float64
	DipoleDir       Vec3
	Polarisability  float64

	Hydrophobic bool
}

// Vec3 re-exported for callers that only import particle.
type Vec3 = geom.Vec3

// Vector is the parallel committed/trial particle-vector pair the spec
// mandates: a move mutates Trial only; committing copies Trial over
// Committed, rejecting copies Committed over Trial.
type Vector struct {
	Committed []Particle
	Trial     []Particle
}

// NewVector builds a Vector whose Committed and Trial both start out equal
// to init (a defensive copy is made so the caller's slice is never aliased).
func NewVector(init []Particle) *Vector {
	committed := make([]Particle, len(init))
	copy(committed, init)
	trial := make([]Particle, len(init))
	copy(trial, init)
	return &Vector{Committed: committed, Trial: trial}
}

// Len returns the number of particles (committed and trial are always kept
// the same length outside of a trial).
func (v *Vector) Len() int { return len(v.Committed) }

// CommitIndices copies Trial[i] -> Committed[i] for each i in idx.
func (v *Vector) CommitIndices(idx []int) {
	for _, i := range idx {
		v.Committed[i] = v.Trial[i]
	}
}

// RejectIndices copies Committed[i] -> Trial[i] for each i in idx.
func (v *Vector) RejectIndices(idx []int) {
	for _, i := range idx {
		v.Trial[i] = v.Committed[i]
	}
}

// CommitAll copies the whole Trial vector over Committed (used by moves
// that touch geometry globally, e.g. volume moves, or by the polarisation
// decorator, which may perturb every dipole).
func (v *Vector) CommitAll() {
	copy(v.Committed, v.Trial)
}

// RejectAll copies the whole Committed vector over Trial.
func (v *Vector) RejectAll() {
	copy(v.Trial, v.Committed)
}

// Equal reports whether Committed and Trial are element-wise identical,
// the invariant the spec requires to hold at every quiescent point
// (spec.md §3, §8).
func (v *Vector) Equal() bool {
	if len(v.Committed) != len(v.Trial) {
		return false
	}
	for i := range v.Committed {
		if v.Committed[i] != v.Trial[i] {
			return false
		}
	}
	return true
}

// Insert appends a new particle to both Committed and Trial, returning its
// index — used by grand-canonical insertion (§4.8).
func (v *Vector) Insert(p Particle) int {
	v.Committed = append(v.Committed, p)
	v.Trial = append(v.Trial, p)
	return len(v.Committed) - 1
}

// RemoveAt deletes the particle at index i from both vectors, preserving
// order (O(n) — grand-canonical deletion is not on the hot path the way
// translation is).
func (v *Vector) RemoveAt(i int) {
	v.Committed = append(v.Committed[:i], v.Committed[i+1:]...)
	v.Trial = append(v.Trial[:i], v.Trial[i+1:]...)
}
