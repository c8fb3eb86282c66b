package move

import (
	"fmt"
	"math"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// Process is one equilibrium acid-base process: a protonated
// type convertible to a deprotonated type (plus a released/absorbed H+,
// which the move framework does not model as its own particle — the
// intrinsic free-energy term already folds in its chemical potential) at a
// given pK, evaluated against a fixed system pH.
type Process struct {
	Bound, Unbound int // TypeID of the protonated / deprotonated endpoint
	PKa            float64
	PH             float64
}

// deltaGIntr is the intrinsic free-energy change, in units of kT, of
// applying p in the bound -> unbound direction: ln(10) * (pH - pKa).
func (p Process) deltaGIntr() float64 {
	return math.Ln10 * (p.PH - p.PKa)
}

// processesFor returns every process for which typeID is either endpoint.
func processesFor(procs []Process, typeID int) []Process {
	var out []Process
	for _, p := range procs {
		if p.Bound == typeID || p.Unbound == typeID {
			out = append(out, p)
		}
	}
	return out
}

// Titrate implements an implicit titration swap move: pick a
// titratable site uniformly, pick one of its applicable equilibrium
// processes, and swap its type to the other endpoint, applying the
// intrinsic free-energy change as part of the Metropolis test.
type Titrate struct {
	counter
	prob        float64
	Processes   []Process
	SaveCharge  map[int]float64 // TypeID -> charge to assign on swap, if configured
	stats       *stats.AcceptanceMap[string]

	siteIdx    int
	oldTypeID  int
	newTypeID  int
	dgIntr     float64
}

// NewTitrate builds a Titrate move over the given equilibrium-process list.
// saveCharge, if non-nil, overrides the charge a type takes on after a
// swap; otherwise the swapped particle's charge
// is left at whatever it already carries.
func NewTitrate(prob float64, procs []Process, saveCharge map[int]float64) *Titrate {
	return &Titrate{prob: prob, Processes: procs, SaveCharge: saveCharge, stats: stats.NewAcceptanceMap[string]()}
}

func (m *Titrate) Name() string                       { return "titrate" }
func (m *Titrate) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *Titrate) SetCurrentMolID(int)                 {}

func (m *Titrate) Propose(sp *space.Space, r *rng.RNG) bool {
	n := sp.Particles.Len()
	if n == 0 || len(m.Processes) == 0 {
		return false
	}
	m.trial()
	m.siteIdx = r.Int(n)
	typeID := sp.Particles.Trial[m.siteIdx].TypeID
	candidates := processesFor(m.Processes, typeID)
	if len(candidates) == 0 {
		return false
	}
	p := candidates[r.Pick(len(candidates))]

	if typeID == p.Bound {
		m.oldTypeID, m.newTypeID = p.Bound, p.Unbound
		m.dgIntr = p.deltaGIntr()
	} else {
		m.oldTypeID, m.newTypeID = p.Unbound, p.Bound
		m.dgIntr = -p.deltaGIntr()
	}

	sp.Particles.Trial[m.siteIdx].TypeID = m.newTypeID
	if m.SaveCharge != nil {
		if q, ok := m.SaveCharge[m.newTypeID]; ok {
			sp.Particles.Trial[m.siteIdx].Charge = q
		}
	}
	sp.Change.AddParticle(siteGroup(sp, m.siteIdx), m.siteIdx)
	return true
}

// siteGroup returns the index into sp.Groups containing particle idx, or -1
// if no group claims it (a titratable site not bound to any group is still
// addressable by Change under a synthetic key of -1).
func siteGroup(sp *space.Space, idx int) int {
	for gi, g := range sp.Groups {
		if g.Contains(idx) {
			return gi
		}
	}
	return -1
}

func (m *Titrate) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles) + m.dgIntr
}

func (m *Titrate) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(fmt.Sprintf("site-%d", m.siteIdx), true)
}

func (m *Titrate) Reject(sp *space.Space) {
	sp.Reject()
	m.stats.RecordTrial(fmt.Sprintf("site-%d", m.siteIdx), false)
}

func (m *Titrate) Report() Report {
	return m.report(m.prob, m.stats)
}

// GrandCanonicalTitrate implements a combined grand-canonical titration
// move: on each trial, flip a coin between a classic salt
// insertion/deletion (SaltMove) and a combined swap+ion move that
// simultaneously flips a titratable site's protonation state and
// inserts/deletes a counter-ion of the opposite sign, keeping total charge
// invariant.
//
// The combined swap+ion branch is defined only for monovalent ions;
// NewGrandCanonicalTitrate refuses to build if any configured counter-ion
// species has |Charge| != 1.
type GrandCanonicalTitrate struct {
	counter
	prob       float64
	salt       *SaltMove
	Processes  []Process
	Cation     IonSpecies
	Anion      IonSpecies
	Neutralize bool // stored from the configuration; the swap+ion branch does not read it and compensates with a cation on every trial
	stats      *stats.AcceptanceMap[string]

	useSalt bool

	// swap+ion trial state
	siteIdx   int
	oldTypeID int
	newTypeID int
	dgIntr    float64
	ionInsert bool
	ion       IonSpecies
	ionPos    particle.Vec3
	ionIdx    int
	ionEnergy float64
}

// NewGrandCanonicalTitrate builds the combined move over a salt reservoir
// (SaltMove sharing the same pooled group) and a titration process list.
// Returns an error if cation or anion is not monovalent.
func NewGrandCanonicalTitrate(prob float64, saltGroup int, cation, anion IonSpecies, procs []Process, neutralize bool) (*GrandCanonicalTitrate, error) {
	if math.Abs(math.Round(cation.Charge)) != 1 || math.Abs(math.Round(anion.Charge)) != 1 {
		return nil, fmt.Errorf("move: GrandCanonicalTitrate requires monovalent counter-ions, got cation charge %g anion charge %g", cation.Charge, anion.Charge)
	}
	salt := NewSaltMove(0, saltGroup, []IonSpecies{cation}, []IonSpecies{anion})
	return &GrandCanonicalTitrate{
		prob:       prob,
		salt:       salt,
		Processes:  procs,
		Cation:     cation,
		Anion:      anion,
		Neutralize: neutralize,
		stats:      stats.NewAcceptanceMap[string](),
	}, nil
}

func (m *GrandCanonicalTitrate) Name() string                       { return "gctit" }
func (m *GrandCanonicalTitrate) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *GrandCanonicalTitrate) SetCurrentMolID(int)                 {}

func (m *GrandCanonicalTitrate) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()
	m.useSalt = r.Uniform() < 0.5
	if m.useSalt {
		return m.salt.Propose(sp, r)
	}
	return m.proposeSwapIon(sp, r)
}

func (m *GrandCanonicalTitrate) proposeSwapIon(sp *space.Space, r *rng.RNG) bool {
	n := sp.Particles.Len()
	if n == 0 || len(m.Processes) == 0 {
		return false
	}
	m.siteIdx = r.Int(n)
	typeID := sp.Particles.Trial[m.siteIdx].TypeID
	candidates := processesFor(m.Processes, typeID)
	if len(candidates) == 0 {
		return false
	}
	p := candidates[r.Pick(len(candidates))]
	if typeID == p.Bound {
		m.oldTypeID, m.newTypeID = p.Bound, p.Unbound
		m.dgIntr = p.deltaGIntr()
		// deprotonation: the site loses +1 of charge to the released H+;
		// compensate by inserting a cation so total system charge holds.
		m.ionInsert = true
		m.ion = m.Cation
	} else {
		m.oldTypeID, m.newTypeID = p.Unbound, p.Bound
		m.dgIntr = -p.deltaGIntr()
		// protonation: the site gains +1; compensate by deleting a cation.
		m.ionInsert = false
		m.ion = m.Cation
	}

	if m.ionInsert {
		m.ionPos = sp.Geometry.Random(r.Uniform(), r.Uniform(), r.Uniform())
	} else {
		if sp.Tracker.Count(m.ion.TypeID) == 0 {
			return false // insufficient inventory
		}
		idx, ok := sp.Tracker.IndexAt(m.ion.TypeID, r.Int(sp.Tracker.Count(m.ion.TypeID)))
		if !ok {
			return false
		}
		m.ionIdx = idx
	}

	sp.Particles.Trial[m.siteIdx].TypeID = m.newTypeID
	// the site's charge moves opposite to the counter-ion's, so the pair
	// leaves the total charge unchanged.
	if m.ionInsert {
		sp.Particles.Trial[m.siteIdx].Charge -= m.ion.Charge
	} else {
		sp.Particles.Trial[m.siteIdx].Charge += m.ion.Charge
	}
	sp.Change.AddParticle(siteGroup(sp, m.siteIdx), m.siteIdx)
	return true
}

func (m *GrandCanonicalTitrate) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	if m.useSalt {
		return m.salt.EnergyChange(sp, h)
	}
	vol := sp.Geometry.Volume()
	mu := math.Log(m.ion.Activity * avogadro * 1e-27)
	before := h.FullEnergy(&particle.Vector{Trial: sp.Particles.Committed})

	// m.ionEnergy is the single source of truth for the interaction delta:
	// the trial slices below already carry the site's swapped TypeID (set
	// in proposeSwapIon), so the full-energy difference spans both the
	// site swap and the inserted/deleted ion. Adding the incremental
	// h.EnergyChange on top would count the site-swap term twice.
	if m.ionInsert {
		trial := append(append([]particle.Particle{}, sp.Particles.Trial...), particle.Particle{Pos: m.ionPos, Charge: m.ion.Charge, TypeID: m.ion.TypeID})
		after := h.FullEnergy(&particle.Vector{Trial: trial})
		m.ionEnergy = after - before
		ideal := gcIdealTerm(sp.Tracker.Count(m.ion.TypeID), 1, mu, vol, true)
		return m.dgIntr + m.ionEnergy + ideal
	}

	trial := removeIndices(sp.Particles.Trial, []int{m.ionIdx})
	after := h.FullEnergy(&particle.Vector{Trial: trial})
	m.ionEnergy = after - before
	ideal := gcIdealTerm(sp.Tracker.Count(m.ion.TypeID), 1, mu, vol, false)
	return m.dgIntr + m.ionEnergy + ideal
}

// AlternateReturnEnergy reports the swap+ion branch's interaction delta
// (site swap plus counter-ion, the m.ionEnergy full-energy difference),
// matching SaltMove's convention of excluding the intrinsic and ideal-gas
// terms from the Propagator's physical drift diagnostic.
func (m *GrandCanonicalTitrate) AlternateReturnEnergy() (float64, bool) {
	if m.useSalt {
		return m.salt.AlternateReturnEnergy()
	}
	return m.ionEnergy, true
}

func (m *GrandCanonicalTitrate) Accept(sp *space.Space) {
	if m.useSalt {
		m.salt.Accept(sp)
		m.accept()
		m.stats.RecordTrial("salt", true)
		return
	}
	sp.Commit()
	if m.ionInsert {
		sp.InsertParticle(m.salt.SaltGroup, particle.Particle{Pos: m.ionPos, Charge: m.ion.Charge, TypeID: m.ion.TypeID})
	} else {
		sp.RemoveParticle(m.salt.SaltGroup, m.ionIdx)
	}
	m.accept()
	m.stats.RecordTrial("swapion", true)
}

func (m *GrandCanonicalTitrate) Reject(sp *space.Space) {
	if m.useSalt {
		m.salt.Reject(sp)
		m.stats.RecordTrial("salt", false)
		return
	}
	sp.Reject()
	m.stats.RecordTrial("swapion", false)
}

func (m *GrandCanonicalTitrate) Report() Report {
	return m.report(m.prob, m.stats)
}
