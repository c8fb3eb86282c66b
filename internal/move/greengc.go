package move

import (
	"math"
	"sort"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// GCComponent is one atomic species available to a GreenGC combination.
type GCComponent struct {
	TypeID   int
	Charge   float64
	Activity float64 // mol/L
}

// GCCombination is a multiset of species counts inserted or deleted
// together as a single trial, generalising SaltMove's fixed cation/anion
// pair to an arbitrary collection of atomic species (spec.md §4.8.2).
//
// Molecular (conformation-drawing) components are deliberately out of
// scope: Space has no operation to insert or remove a whole group, only
// individual particles (see Space.InsertParticle/RemoveParticle), and
// adding one purely to exercise this one move would be speculative
// plumbing nothing else in the framework needs.
type GCCombination struct {
	Counts map[int]int // TypeID -> multiplicity
}

// GreenGC implements spec.md §4.8.2: a trial draws one configured
// combination, counts its implied inserts/deletes, and composes the
// external-chemical-potential term across every implied species.
type GreenGC struct {
	counter
	prob         float64
	SaltGroup    int
	Components   map[int]GCComponent // keyed by TypeID
	Combinations []GCCombination
	stats        *stats.AcceptanceMap[string]

	insert            bool
	combo             GCCombination
	candidates        []particle.Particle
	deleteIdx         []int
	interactionEnergy float64
}

// NewGreenGC builds a GreenGC move over the given pooled group, species
// table, and set of allowed combinations.
func NewGreenGC(prob float64, saltGroup int, components []GCComponent, combinations []GCCombination) *GreenGC {
	table := make(map[int]GCComponent, len(components))
	for _, c := range components {
		table[c.TypeID] = c
	}
	return &GreenGC{prob: prob, SaltGroup: saltGroup, Components: table, Combinations: combinations, stats: stats.NewAcceptanceMap[string]()}
}

func (m *GreenGC) Name() string                       { return "gc" }
func (m *GreenGC) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *GreenGC) SetCurrentMolID(int)                 {}

func (m *GreenGC) Propose(sp *space.Space, r *rng.RNG) bool {
	if len(m.Combinations) == 0 {
		return false
	}
	m.trial()
	m.combo = m.Combinations[r.Pick(len(m.Combinations))]
	m.insert = r.Uniform() < 0.5
	m.candidates = nil
	m.deleteIdx = nil

	typeIDs := sortedTypeIDs(m.combo.Counts)

	if m.insert {
		for _, t := range typeIDs {
			comp := m.Components[t]
			n := m.combo.Counts[t]
			for i := 0; i < n; i++ {
				pos := sp.Geometry.Random(r.Uniform(), r.Uniform(), r.Uniform())
				m.candidates = append(m.candidates, particle.Particle{Pos: pos, Charge: comp.Charge, TypeID: t})
			}
		}
		return true
	}

	for _, t := range typeIDs {
		n := m.combo.Counts[t]
		if sp.Tracker.Count(t) < n {
			return false // insufficient inventory: not a rejection, spec.md §7
		}
		m.deleteIdx = append(m.deleteIdx, sampleDistinct(sp.Tracker, t, n, r)...)
	}
	return true
}

func sortedTypeIDs(counts map[int]int) []int {
	ids := make([]int, 0, len(counts))
	for t := range counts {
		ids = append(ids, t)
	}
	sort.Ints(ids)
	return ids
}

func (m *GreenGC) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	vol := sp.Geometry.Volume()
	before := h.FullEnergy(&particle.Vector{Trial: sp.Particles.Committed})
	ideal := 0.0

	if m.insert {
		trial := append(append([]particle.Particle{}, sp.Particles.Committed...), m.candidates...)
		after := h.FullEnergy(&particle.Vector{Trial: trial})
		m.interactionEnergy = after - before
		for t, n := range m.combo.Counts {
			comp := m.Components[t]
			mu := math.Log(comp.Activity * avogadro * 1e-27)
			ideal += gcIdealTerm(sp.Tracker.Count(t), n, mu, vol, true)
		}
		return m.interactionEnergy + ideal
	}

	trial := removeIndices(sp.Particles.Committed, m.deleteIdx)
	after := h.FullEnergy(&particle.Vector{Trial: trial})
	m.interactionEnergy = after - before
	for t, n := range m.combo.Counts {
		comp := m.Components[t]
		mu := math.Log(comp.Activity * avogadro * 1e-27)
		ideal += gcIdealTerm(sp.Tracker.Count(t), n, mu, vol, false)
	}
	return m.interactionEnergy + ideal
}

func (m *GreenGC) AlternateReturnEnergy() (float64, bool) {
	return m.interactionEnergy, true
}

func (m *GreenGC) Accept(sp *space.Space) {
	if m.insert {
		for _, p := range m.candidates {
			sp.InsertParticle(m.SaltGroup, p)
		}
	} else {
		idx := append([]int{}, m.deleteIdx...)
		sort.Sort(sort.Reverse(sort.IntSlice(idx)))
		for _, i := range idx {
			sp.RemoveParticle(m.SaltGroup, i)
		}
	}
	m.accept()
	m.stats.RecordTrial("gc", true)
}

func (m *GreenGC) Reject(sp *space.Space) {
	m.stats.RecordTrial("gc", false)
}

func (m *GreenGC) Report() Report {
	return m.report(m.prob, m.stats)
}
