// Package space implements the "Space" collaborator spec.md §5 describes:
// the shared mutable state (particle vectors, group list, trackers,
// geometry) every move borrows, mutably, serially.
package space

import (
	"github.com/cpasquier/faunus/internal/change"
	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/particle"
)

// Space owns every piece of mutable state a trial move reads or writes. It
// has no notion of energy; that is the Hamiltonian's job.
type Space struct {
	Particles *particle.Vector
	Groups    []*group.Group
	Tracker   *particle.Tracker
	Geometry  geom.Geometry
	Change    *change.Change
}

// New builds a Space from an initial particle configuration and group
// layout. Groups must already partition the particle indices.
func New(initial []particle.Particle, groups []*group.Group, geo geom.Geometry) *Space {
	pv := particle.NewVector(initial)
	return &Space{
		Particles: pv,
		Groups:    groups,
		Tracker:   particle.NewTracker(pv.Committed),
		Geometry:  geo,
		Change:    change.New(),
	}
}

// GroupsOfMolecule returns the indices into sp.Groups whose MoleculeID
// matches id.
func (sp *Space) GroupsOfMolecule(id int) []int {
	var out []int
	for i, g := range sp.Groups {
		if g.MoleculeID == id {
			out = append(out, i)
		}
	}
	return out
}

// NumMoleculesOfType counts groups of the given molecule id — used to
// compute MoveListEntry.repeat's "perMol" multiplier.
func (sp *Space) NumMoleculesOfType(id int) int {
	return len(sp.GroupsOfMolecule(id))
}

// Commit applies sp.Change: copies every touched trial particle onto
// committed (or the whole vector, for geometry changes and whole-group
// moves), updates group committed mass centres, and clears Change.
func (sp *Space) Commit() {
	if sp.Change.GeometryChange {
		sp.Particles.CommitAll()
	} else {
		for gi, idx := range sp.Change.Groups {
			if len(idx) == 0 {
				// whole-group change: commit every particle in the group
				sp.Particles.CommitIndices(sp.Groups[gi].Indices())
			} else {
				sp.Particles.CommitIndices(idx)
			}
		}
	}
	for gi := range sp.Change.Groups {
		g := sp.Groups[gi]
		if g.Molecular {
			g.CommittedCM = g.TrialCM
		}
	}
	sp.Change.Clear()
}

// Reject restores sp.Trial from sp.Committed for whatever the Change
// touched, and clears Change.
func (sp *Space) Reject() {
	if sp.Change.GeometryChange {
		sp.Particles.RejectAll()
	} else {
		for gi, idx := range sp.Change.Groups {
			if len(idx) == 0 {
				sp.Particles.RejectIndices(sp.Groups[gi].Indices())
			} else {
				sp.Particles.RejectIndices(idx)
			}
		}
	}
	for gi := range sp.Change.Groups {
		g := sp.Groups[gi]
		if g.Molecular {
			g.TrialCM = g.CommittedCM
		}
	}
	sp.Change.Clear()
}

// InsertParticle appends p to the end of the group at groupIdx, extending
// the group's range and shifting every later group and the tracker
// accordingly. Used by grand-canonical insertion (§4.8).
func (sp *Space) InsertParticle(groupIdx int, p particle.Particle) int {
	g := sp.Groups[groupIdx]
	at := g.Back
	idx := insertAt(sp.Particles, at, p)
	g.Back++
	for i, other := range sp.Groups {
		if i != groupIdx {
			other.Shift(at, 1)
		}
	}
	// every particle from at onwards moved up one index, so the tracker is
	// rebuilt from the committed vector rather than patched.
	*sp.Tracker = *particle.NewTracker(sp.Particles.Committed)
	return idx
}

func insertAt(v *particle.Vector, at int, p particle.Particle) int {
	v.Committed = append(v.Committed[:at:at], append([]particle.Particle{p}, v.Committed[at:]...)...)
	v.Trial = append(v.Trial[:at:at], append([]particle.Particle{p}, v.Trial[at:]...)...)
	return at
}

// RemoveParticle deletes the particle at idx (which must lie in the group
// at groupIdx), shrinking that group's range and shifting every later group
// and the tracker accordingly. Used by grand-canonical deletion (§4.8).
func (sp *Space) RemoveParticle(groupIdx, idx int) {
	typeID := sp.Particles.Committed[idx].TypeID
	sp.Particles.RemoveAt(idx)
	sp.Tracker.Remove(typeID, idx)
	sp.Tracker.ShiftDown(idx)
	g := sp.Groups[groupIdx]
	g.Back--
	for i, other := range sp.Groups {
		if i != groupIdx {
			other.Shift(idx, -1)
		}
	}
}
