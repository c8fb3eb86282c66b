// Package group implements the Group data model: a contiguous half-open
// range of particle indices, with a distinction
// between molecular groups (rigid/flexible macromolecules, whose mass
// centre is tracked) and atomic groups (pools of free ions, whose mass
// centre is irrelevant).
package group

import (
	"github.com/google/uuid"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/particle"
)

// Group is a contiguous half-open range [Front,Back) into a particle
// vector. IDs are minted with uuid (grounded on Gekko3D's entity-id
// pattern) so groups keep a stable identity across insertions/deletions
// that shift surrounding ranges.
type Group struct {
	ID         uuid.UUID
	Name       string
	MoleculeID int
	Front      int
	Back       int // half-open: particles [Front,Back)
	Molecular  bool

	CommittedCM geom.Vec3
	TrialCM     geom.Vec3
}

// New builds a Group over [front,back) and computes its initial committed
// mass centre from the committed particle vector (ignored for atomic
// groups).
func New(name string, moleculeID, front, back int, molecular bool, committed []particle.Particle) *Group {
	g := &Group{
		ID:         uuid.New(),
		Name:       name,
		MoleculeID: moleculeID,
		Front:      front,
		Back:       back,
		Molecular:  molecular,
	}
	if molecular {
		g.CommittedCM = MassCentre(committed[front:back])
		g.TrialCM = g.CommittedCM
	}
	return g
}

// Size returns the number of particles in the group.
func (g *Group) Size() int { return g.Back - g.Front }

// Indices returns every particle index in the group, in order.
func (g *Group) Indices() []int {
	idx := make([]int, g.Size())
	for i := range idx {
		idx[i] = g.Front + i
	}
	return idx
}

// Contains reports whether particle index i falls in the group's range.
func (g *Group) Contains(i int) bool {
	return i >= g.Front && i < g.Back
}

// MassCentre computes the unweighted centre of a slice of particles (mass
// weighting is a Hamiltonian/parameter-database concern outside this
// module's scope; unweighted centroid is the faithful stand-in used
// throughout the move framework unless a weighted variant is supplied by
// the caller).
func MassCentre(particles []particle.Particle) geom.Vec3 {
	if len(particles) == 0 {
		return geom.Zero
	}
	sum := geom.Zero
	for _, p := range particles {
		sum = sum.Add(p.Pos)
	}
	return sum.Scale(1 / float64(len(particles)))
}

// RecomputeTrialCM recalculates TrialCM from scratch against the trial
// particle vector — required whenever a single particle inside a molecular
// group moves: if the containing group is molecular, its trial mass
// centre must be recomputed from scratch rather than incrementally.
func (g *Group) RecomputeTrialCM(trial []particle.Particle) {
	if !g.Molecular {
		return
	}
	g.TrialCM = MassCentre(trial[g.Front:g.Back])
}

// Shift adjusts Front/Back for a group whose range lies entirely after an
// insertion/deletion point, keeping ranges consistent as the salt/GC groups
// grow and shrink. A range that ends exactly at the point is left as it is.
func (g *Group) Shift(at, delta int) {
	if g.Front >= at {
		g.Front += delta
		g.Back += delta
	} else if g.Back > at {
		g.Back += delta
	}
}
