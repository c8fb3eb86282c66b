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

// avogadro converts a molar activity into a reduced chemical potential via
// mu_i = ln(activity * N_A * 1e-27) (1e-27 converts litres to cubic
// Angstrom).
const avogadro = 6.02214076e23

// IonSpecies is one entry in a SaltMove's activity table.
type IonSpecies struct {
	TypeID   int
	Charge   float64
	Activity float64 // mol/L
}

// gcIdealTerm computes the standard grand-canonical ideal-gas telescoping
// term for inserting or deleting k particles of a species currently present
// in count N, chemical potential mu, box volume vol.
func gcIdealTerm(n, k int, mu, vol float64, inserting bool) float64 {
	sum := 0.0
	if inserting {
		for i := 1; i <= k; i++ {
			sum += math.Log(float64(n+i) / vol)
		}
		return sum - float64(k)*mu
	}
	for i := 0; i < k; i++ {
		sum += math.Log(float64(n-i) / vol)
	}
	return float64(k)*mu - sum
}

func sampleDistinct(t *particle.Tracker, typeID, n int, r *rng.RNG) []int {
	count := t.Count(typeID)
	chosen := make(map[int]bool, n)
	var out []int
	for len(out) < n && len(chosen) < count {
		k := r.Int(count)
		if chosen[k] {
			continue
		}
		chosen[k] = true
		if idx, ok := t.IndexAt(typeID, k); ok {
			out = append(out, idx)
		}
	}
	return out
}

func removeIndices(src []particle.Particle, idx []int) []particle.Particle {
	remove := make(map[int]bool, len(idx))
	for _, i := range idx {
		remove[i] = true
	}
	out := make([]particle.Particle, 0, len(src)-len(idx))
	for i, p := range src {
		if !remove[i] {
			out = append(out, p)
		}
	}
	return out
}

// SaltMove implements implicit-electroneutrality salt insertion/deletion
// against one pooled atomic group. Propose never mutates
// sp.Particles directly — candidates and delete targets are computed as
// move-local state, and only Accept commits them via Space's
// InsertParticle/RemoveParticle, since the particle count itself (and so
// the length of both the committed and trial vectors) only needs to change
// on a genuinely accepted trial.
type SaltMove struct {
	counter
	prob            float64
	SaltGroup       int
	Cations, Anions []IonSpecies
	stats           *stats.AcceptanceMap[string]

	insert            bool
	cation, anion     IonSpecies
	nA, nB            int
	candidates        []particle.Particle
	deleteIdx         []int
	interactionEnergy float64
}

// NewSaltMove builds a SaltMove over the given pooled salt group and
// cation/anion activity tables.
func NewSaltMove(prob float64, saltGroup int, cations, anions []IonSpecies) *SaltMove {
	return &SaltMove{prob: prob, SaltGroup: saltGroup, Cations: cations, Anions: anions, stats: stats.NewAcceptanceMap[string]()}
}

func (m *SaltMove) Name() string                       { return "atomgc" }
func (m *SaltMove) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *SaltMove) SetCurrentMolID(int)                 {}

func (m *SaltMove) Propose(sp *space.Space, r *rng.RNG) bool {
	if len(m.Cations) == 0 || len(m.Anions) == 0 {
		return false
	}
	m.trial()
	m.cation = m.Cations[r.Pick(len(m.Cations))]
	m.anion = m.Anions[r.Pick(len(m.Anions))]
	za := int(math.Round(m.cation.Charge))
	zb := int(math.Round(-m.anion.Charge))
	if za <= 0 || zb <= 0 {
		return false
	}
	// lowest-common-integer neutral pair: Na cations and Nb anions such
	// that Na*za == Nb*zb.
	m.nA, m.nB = zb, za

	m.insert = r.Uniform() < 0.5
	m.candidates = nil
	m.deleteIdx = nil

	if m.insert {
		for i := 0; i < m.nA; i++ {
			pos := sp.Geometry.Random(r.Uniform(), r.Uniform(), r.Uniform())
			m.candidates = append(m.candidates, particle.Particle{Pos: pos, Charge: m.cation.Charge, TypeID: m.cation.TypeID})
		}
		for i := 0; i < m.nB; i++ {
			pos := sp.Geometry.Random(r.Uniform(), r.Uniform(), r.Uniform())
			m.candidates = append(m.candidates, particle.Particle{Pos: pos, Charge: m.anion.Charge, TypeID: m.anion.TypeID})
		}
		return true
	}

	if sp.Tracker.Count(m.cation.TypeID) < m.nA || sp.Tracker.Count(m.anion.TypeID) < m.nB {
		return false // insufficient inventory: not a rejection
	}
	m.deleteIdx = append(sampleDistinct(sp.Tracker, m.cation.TypeID, m.nA, r),
		sampleDistinct(sp.Tracker, m.anion.TypeID, m.nB, r)...)
	return true
}

func (m *SaltMove) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	vol := sp.Geometry.Volume()
	muA := math.Log(m.cation.Activity * avogadro * 1e-27)
	muB := math.Log(m.anion.Activity * avogadro * 1e-27)
	before := h.FullEnergy(&particle.Vector{Trial: sp.Particles.Committed})

	if m.insert {
		trial := append(append([]particle.Particle{}, sp.Particles.Committed...), m.candidates...)
		after := h.FullEnergy(&particle.Vector{Trial: trial})
		m.interactionEnergy = after - before

		na := sp.Tracker.Count(m.cation.TypeID)
		nb := sp.Tracker.Count(m.anion.TypeID)
		ideal := gcIdealTerm(na, m.nA, muA, vol, true) + gcIdealTerm(nb, m.nB, muB, vol, true)
		return m.interactionEnergy + ideal
	}

	trial := removeIndices(sp.Particles.Committed, m.deleteIdx)
	after := h.FullEnergy(&particle.Vector{Trial: trial})
	m.interactionEnergy = after - before

	na := sp.Tracker.Count(m.cation.TypeID)
	nb := sp.Tracker.Count(m.anion.TypeID)
	ideal := gcIdealTerm(na, m.nA, muA, vol, false) + gcIdealTerm(nb, m.nB, muB, vol, false)
	return m.interactionEnergy + ideal
}

// AlternateReturnEnergy reports only the interaction-energy component: the
// ideal-gas term is part of the acceptance test but must not be counted
// toward the Propagator's physical energy-drift diagnostic.
func (m *SaltMove) AlternateReturnEnergy() (float64, bool) {
	return m.interactionEnergy, true
}

func (m *SaltMove) Accept(sp *space.Space) {
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
	m.stats.RecordTrial("salt", true)
}

// Reject is a no-op against sp: Propose never mutated the particle vectors,
// so there is nothing to roll back.
func (m *SaltMove) Reject(sp *space.Space) {
	m.stats.RecordTrial("salt", false)
}

func (m *SaltMove) Report() Report {
	return m.report(m.prob, m.stats)
}
