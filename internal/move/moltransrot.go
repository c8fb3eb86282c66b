package move

import (
	"math"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

const epsDP = 1e-9

// TransRot implements spec.md §4.3: a single molecular group is translated
// and/or rotated as a rigid body. Change registers the group with an empty
// particle list, signalling group-level energy evaluation.
type TransRot struct {
	counter
	list  map[int]*MoveListEntry
	stats *stats.AcceptanceMap[string] // keyed by molecule name

	currentMol int
	groupIdx   int
	sqDisp     float64
}

// NewTransRot builds a TransRot configured per-molecule: dpTrans is the
// translation magnitude, dpRot the rotation magnitude (radians), dir masks
// the translation axes.
func NewTransRot(sp *space.Space, ids []int, prob, dpTrans, dpRot float64, dir geom.Vec3) *TransRot {
	return &TransRot{
		list:  buildMoveList(sp, ids, prob, dpTrans, dpRot, dir, false, true),
		stats: stats.NewAcceptanceMap[string](),
	}
}

func (m *TransRot) Name() string                       { return "moltransrot" }
func (m *TransRot) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *TransRot) SetCurrentMolID(id int)              { m.currentMol = id }

// proposeOne performs the translate/rotate logic of §4.3 against a single
// group index, shared by TransRot and TransRotNBody.
func proposeOne(sp *space.Space, r *rng.RNG, gi int, dpTrans, dpRot float64, dir geom.Vec3) float64 {
	g := sp.Groups[gi]
	sqDisp := 0.0

	if dpRot > epsDP {
		u := geom.RandomUnitVector(r.Uniform(), r.Uniform())
		p := g.TrialCM.Add(u)
		angle := dpRot * r.Half()
		q := geom.AxisAngle(u, angle)
		span := 0.0
		if g.Size() > 1 {
			span = geom.Dist(sp.Particles.Trial[g.Front].Pos, sp.Particles.Trial[g.Back-1].Pos)
		}
		for i := g.Front; i < g.Back; i++ {
			sp.Particles.Trial[i].Pos = q.RotateAbout(sp.Particles.Trial[i].Pos, p)
		}
		if g.Size() > 1 {
			assertClose(span, geom.Dist(sp.Particles.Trial[g.Front].Pos, sp.Particles.Trial[g.Back-1].Pos),
				1e-7, "rigid rotation distorted group geometry")
		}
		g.RecomputeTrialCM(sp.Particles.Trial)
	}

	if dpTrans > epsDP {
		t := geom.Vec3{X: dpTrans / 2 * r.Half(), Y: dpTrans / 2 * r.Half(), Z: dpTrans / 2 * r.Half()}.Mask(dir)
		for i := g.Front; i < g.Back; i++ {
			sp.Particles.Trial[i].Pos = sp.Geometry.Wrap(sp.Particles.Trial[i].Pos.Add(t))
		}
		g.TrialCM = sp.Geometry.Wrap(g.TrialCM.Add(t))
		sqDisp = t.Dot(t)
	}

	sp.Change.AddWholeGroup(gi)
	return sqDisp
}

func (m *TransRot) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	m.trial()
	gi := groups[r.Pick(len(groups))]
	entry := m.list[m.currentMol]
	m.groupIdx = gi
	m.sqDisp = proposeOne(sp, r, gi, entry.DP1, entry.DP2, entry.Dir)
	return true
}

func (m *TransRot) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *TransRot) Accept(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(name, true)
	m.stats.RecordDisplacement(name, m.sqDisp)
}

func (m *TransRot) Reject(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Reject()
	m.stats.RecordTrial(name, false)
}

func (m *TransRot) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

// TransRotNBody implements spec.md §4.3's N-body variant: every molecular
// group is translated+rotated independently in one shot. Energy change is
// left to the Hamiltonian, which sees every touched group via Change and
// sums external + moved-moved pair terms itself.
type TransRotNBody struct {
	counter
	prob       float64
	dpTrans    map[int]float64
	dpRot      map[int]float64
	dir        geom.Vec3
	stats      *stats.AcceptanceMap[string]
	touched    []int
}

// NewTransRotNBody builds an N-body mover with per-molecule-id displacement
// parameters.
func NewTransRotNBody(prob float64, dpTrans, dpRot map[int]float64, dir geom.Vec3) *TransRotNBody {
	return &TransRotNBody{
		prob:    prob,
		dpTrans: dpTrans,
		dpRot:   dpRot,
		dir:     dir,
		stats:   stats.NewAcceptanceMap[string](),
	}
}

func (m *TransRotNBody) Name() string                       { return "moltransrotnbody" }
func (m *TransRotNBody) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *TransRotNBody) SetCurrentMolID(int)                 {}

func (m *TransRotNBody) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()
	m.touched = m.touched[:0]
	for gi, g := range sp.Groups {
		if !g.Molecular {
			continue
		}
		proposeOne(sp, r, gi, m.dpTrans[g.MoleculeID], m.dpRot[g.MoleculeID], m.dir)
		m.touched = append(m.touched, gi)
	}
	return len(m.touched) > 0
}

func (m *TransRotNBody) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *TransRotNBody) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	for _, gi := range m.touched {
		m.stats.RecordTrial(sp.Groups[gi].Name, true)
	}
}

func (m *TransRotNBody) Reject(sp *space.Space) {
	sp.Reject()
	for _, gi := range m.touched {
		m.stats.RecordTrial(sp.Groups[gi].Name, false)
	}
}

func (m *TransRotNBody) Report() Report { return m.report(m.prob, m.stats) }

// TransRotTwoBody implements spec.md §4.3's twobody symmetric variant:
// exactly two groups move symmetrically along their cm-cm vector.
type TransRotTwoBody struct {
	counter
	prob           float64
	GroupA, GroupB int
	DPTrans        float64 // the smaller of the two molecules' dp_trans governs magnitude
	DPRotA, DPRotB float64
	stats          *stats.AcceptanceMap[string]

	sqDisp float64
}

// NewTransRotTwoBody builds a symmetric two-body mover over the given group
// indices.
func NewTransRotTwoBody(prob float64, groupA, groupB int, dpTrans, dpRotA, dpRotB float64) *TransRotTwoBody {
	return &TransRotTwoBody{
		prob: prob, GroupA: groupA, GroupB: groupB,
		DPTrans: dpTrans, DPRotA: dpRotA, DPRotB: dpRotB,
		stats: stats.NewAcceptanceMap[string](),
	}
}

func (m *TransRotTwoBody) Name() string                       { return "moltransrot2body" }
func (m *TransRotTwoBody) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *TransRotTwoBody) SetCurrentMolID(int)                 {}

func (m *TransRotTwoBody) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()
	ga, gb := sp.Groups[m.GroupA], sp.Groups[m.GroupB]
	axis := ga.TrialCM.Sub(gb.TrialCM)
	if axis.Norm() == 0 {
		return false
	}
	dir := axis.Scale(1 / axis.Norm())

	t := m.DPTrans / 2 * r.Half()
	for i := ga.Front; i < ga.Back; i++ {
		sp.Particles.Trial[i].Pos = sp.Particles.Trial[i].Pos.Add(dir.Scale(t))
	}
	for i := gb.Front; i < gb.Back; i++ {
		sp.Particles.Trial[i].Pos = sp.Particles.Trial[i].Pos.Add(dir.Scale(-t))
	}
	ga.TrialCM = ga.TrialCM.Add(dir.Scale(t))
	gb.TrialCM = gb.TrialCM.Add(dir.Scale(-t))
	m.sqDisp = t * t

	if m.DPRotA > epsDP {
		u := geom.RandomUnitVector(r.Uniform(), r.Uniform())
		q := geom.AxisAngle(u, m.DPRotA*r.Half())
		for i := ga.Front; i < ga.Back; i++ {
			sp.Particles.Trial[i].Pos = q.RotateAbout(sp.Particles.Trial[i].Pos, ga.TrialCM)
		}
	}
	if m.DPRotB > epsDP {
		u := geom.RandomUnitVector(r.Uniform(), r.Uniform())
		q := geom.AxisAngle(u, m.DPRotB*r.Half())
		for i := gb.Front; i < gb.Back; i++ {
			sp.Particles.Trial[i].Pos = q.RotateAbout(sp.Particles.Trial[i].Pos, gb.TrialCM)
		}
	}

	sp.Change.AddWholeGroup(m.GroupA)
	sp.Change.AddWholeGroup(m.GroupB)
	return true
}

func (m *TransRotTwoBody) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *TransRotTwoBody) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	m.stats.RecordTrial("pair", true)
	m.stats.RecordDisplacement("pair", m.sqDisp)
}

func (m *TransRotTwoBody) Reject(sp *space.Space) {
	sp.Reject()
	m.stats.RecordTrial("pair", false)
}

func (m *TransRotTwoBody) Report() Report { return m.report(m.prob, m.stats) }

// Conformation is one candidate rigid-body geometry for ConformationSwap,
// expressed as positions relative to the conformation's own mass-centre.
type Conformation struct {
	Offsets []geom.Vec3
}

// ConformationSwap implements spec.md §4.3's conformation-swap variant: the
// molecule's coordinates are replaced wholesale by a randomly chosen library
// conformation, reoriented randomly, about the existing mass-centre (which
// must not drift).
type ConformationSwap struct {
	counter
	list    map[int]*MoveListEntry
	Library map[int][]Conformation // keyed by MoleculeID
	stats   *stats.AcceptanceMap[string]

	currentMol int
	groupIdx   int
}

// NewConformationSwap builds a ConformationSwap from a per-molecule
// conformation library.
func NewConformationSwap(sp *space.Space, ids []int, prob float64, library map[int][]Conformation) *ConformationSwap {
	return &ConformationSwap{
		list:    buildMoveList(sp, ids, prob, 0, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, false, true),
		Library: library,
		stats:   stats.NewAcceptanceMap[string](),
	}
}

func (m *ConformationSwap) Name() string                       { return "conformationswap" }
func (m *ConformationSwap) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *ConformationSwap) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *ConformationSwap) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	lib := m.Library[m.currentMol]
	if len(groups) == 0 || len(lib) == 0 {
		return false
	}
	m.trial()
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	conf := lib[r.Pick(len(lib))]
	if len(conf.Offsets) != g.Size() {
		return false
	}

	axis := geom.RandomUnitVector(r.Uniform(), r.Uniform())
	q := geom.AxisAngle(axis, 2*math.Pi*r.Uniform())

	cm := g.TrialCM
	for k := 0; k < g.Size(); k++ {
		sp.Particles.Trial[g.Front+k].Pos = cm.Add(q.Rotate(conf.Offsets[k]))
	}
	g.RecomputeTrialCM(sp.Particles.Trial)
	assertClose(geom.Dist(cm, g.TrialCM), 0, 1e-6, "conformation swap displaced the mass centre")
	sp.Change.AddWholeGroup(gi)

	m.groupIdx = gi
	return true
}

// EnergyChange reports the swap's complete energy delta. The Hamiltonian
// contract already spans the conformation's own internal terms (a
// whole-group change is evaluated trial-vs-committed across every pair the
// touched particles appear in), so no separate GroupInternalEnergy
// correction is added here — doing so would count the internal delta twice.
func (m *ConformationSwap) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *ConformationSwap) Accept(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(name, true)
}

func (m *ConformationSwap) Reject(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Reject()
	m.stats.RecordTrial(name, false)
}

func (m *ConformationSwap) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}
