package move

import (
	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// chainBounds picks two monomer offsets i<j within group g such that
// minlen <= (j-i-ijAdjust) <= maxlen, returning their absolute particle
// indices. ijAdjust is 1 for crankshaft (j-i-1) and 0 for pivot (j-i).
func chainBounds(g interface{ Size() int }, r *rng.RNG, minlen, maxlen, ijAdjust int) (int, int, bool) {
	n := g.Size()
	if n < 2 {
		return 0, 0, false
	}
	for attempt := 0; attempt < 50; attempt++ {
		i := r.Int(n)
		j := r.Int(n)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		span := j - i - ijAdjust
		if span >= minlen && span <= maxlen {
			return i, j, true
		}
	}
	return 0, 0, false
}

// Crankshaft implements spec.md §4.6: pick two monomers i<j in a chain,
// rotate everything strictly between them about the axis p_i->p_j by a
// uniform angle in ±dp/2.
type Crankshaft struct {
	counter
	list  map[int]*MoveListEntry
	stats *stats.AcceptanceMap[string]

	currentMol       int
	groupIdx         int
	MinLen, MaxLen   int
	touched          []int
	sqAngle          float64
}

// NewCrankshaft builds a Crankshaft configured per-molecule with rotation
// magnitude dp and chain-span bounds [minlen,maxlen].
func NewCrankshaft(sp *space.Space, ids []int, prob, dp float64, minlen, maxlen int) *Crankshaft {
	return &Crankshaft{
		list:   buildMoveList(sp, ids, prob, dp, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, false, true),
		stats:  stats.NewAcceptanceMap[string](),
		MinLen: minlen, MaxLen: maxlen,
	}
}

func (m *Crankshaft) Name() string                       { return "crankshaft" }
func (m *Crankshaft) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *Crankshaft) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *Crankshaft) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	i, j, ok := chainBounds(g, r, m.MinLen, m.MaxLen, 1)
	if !ok {
		return false
	}
	m.trial()
	entry := m.list[m.currentMol]

	pi := sp.Particles.Trial[g.Front+i].Pos
	pj := sp.Particles.Trial[g.Front+j].Pos
	axis := pj.Sub(pi)
	angle := entry.DP1 * r.Half()
	q := geom.AxisAngle(axis, angle)

	m.touched = m.touched[:0]
	for k := i + 1; k < j; k++ {
		idx := g.Front + k
		sp.Particles.Trial[idx].Pos = q.RotateAbout(sp.Particles.Trial[idx].Pos, pi)
		sp.Change.AddParticle(gi, idx)
		m.touched = append(m.touched, idx)
	}
	g.RecomputeTrialCM(sp.Particles.Trial)

	m.groupIdx = gi
	m.sqAngle = angle * angle
	return len(m.touched) > 0
}

func (m *Crankshaft) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *Crankshaft) Accept(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(name, true)
	m.stats.RecordDisplacement(name, m.sqAngle)
}

func (m *Crankshaft) Reject(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Reject()
	m.stats.RecordTrial(name, false)
}

func (m *Crankshaft) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

// Pivot implements spec.md §4.6: pick two monomers i<j, rotate about axis
// p_i->p_j, rotating either every monomer past j or every monomer before i
// (50/50 choice).
type Pivot struct {
	counter
	list           map[int]*MoveListEntry
	stats          *stats.AcceptanceMap[string]
	MinLen, MaxLen int

	currentMol int
	groupIdx   int
	touched    []int
	sqAngle    float64
}

// NewPivot builds a Pivot configured per-molecule, analogous to Crankshaft.
func NewPivot(sp *space.Space, ids []int, prob, dp float64, minlen, maxlen int) *Pivot {
	return &Pivot{
		list:   buildMoveList(sp, ids, prob, dp, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, false, true),
		stats:  stats.NewAcceptanceMap[string](),
		MinLen: minlen, MaxLen: maxlen,
	}
}

func (m *Pivot) Name() string                       { return "pivot" }
func (m *Pivot) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *Pivot) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *Pivot) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	i, j, ok := chainBounds(g, r, m.MinLen, m.MaxLen, 0)
	if !ok {
		return false
	}
	m.trial()
	entry := m.list[m.currentMol]

	pi := sp.Particles.Trial[g.Front+i].Pos
	pj := sp.Particles.Trial[g.Front+j].Pos
	axis := pj.Sub(pi)
	angle := entry.DP1 * r.Half()
	q := geom.AxisAngle(axis, angle)

	m.touched = m.touched[:0]
	pastJ := r.Uniform() < 0.5
	if pastJ {
		for k := j + 1; k < g.Size(); k++ {
			idx := g.Front + k
			sp.Particles.Trial[idx].Pos = q.RotateAbout(sp.Particles.Trial[idx].Pos, pj)
			sp.Change.AddParticle(gi, idx)
			m.touched = append(m.touched, idx)
		}
	} else {
		for k := 0; k < i; k++ {
			idx := g.Front + k
			sp.Particles.Trial[idx].Pos = q.RotateAbout(sp.Particles.Trial[idx].Pos, pi)
			sp.Change.AddParticle(gi, idx)
			m.touched = append(m.touched, idx)
		}
	}
	g.RecomputeTrialCM(sp.Particles.Trial)

	m.groupIdx = gi
	m.sqAngle = angle * angle
	return len(m.touched) > 0
}

func (m *Pivot) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *Pivot) Accept(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(name, true)
	m.stats.RecordDisplacement(name, m.sqAngle)
}

func (m *Pivot) Reject(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Reject()
	m.stats.RecordTrial(name, false)
}

func (m *Pivot) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

// Reptation implements spec.md §4.6: pick the head or tail (50/50), shift
// the chain one index up or down so the opposite end falls off, and place a
// new terminal monomer at the existing terminal bond length (or a
// configured value) in a uniformly random direction.
type Reptation struct {
	counter
	list       map[int]*MoveListEntry
	stats      *stats.AcceptanceMap[string]
	BondLength float64 // -1 selects "use existing terminal bond length"

	currentMol int
	groupIdx   int
}

// NewReptation builds a Reptation configured per-molecule. bondLength of -1
// means "automatic": reuse whatever the existing terminal bond length is.
func NewReptation(sp *space.Space, ids []int, prob, bondLength float64) *Reptation {
	return &Reptation{
		list:       buildMoveList(sp, ids, prob, 0, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, false, true),
		stats:      stats.NewAcceptanceMap[string](),
		BondLength: bondLength,
	}
}

func (m *Reptation) Name() string                       { return "reptate" }
func (m *Reptation) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *Reptation) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *Reptation) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	n := g.Size()
	if n < 2 {
		return false
	}
	m.trial()

	fromHead := r.Uniform() < 0.5
	bond := m.BondLength
	dir := geom.RandomUnitVector(r.Uniform(), r.Uniform())

	if fromHead {
		bond = m.resolveBond(sp, g, g.Front, g.Front+1)
		newHead := sp.Particles.Trial[g.Front].Pos.Add(dir.Scale(bond))
		for k := g.Back - 1; k > g.Front; k-- {
			sp.Particles.Trial[k].Pos = sp.Particles.Trial[k-1].Pos
			sp.Change.AddParticle(gi, k)
		}
		sp.Particles.Trial[g.Front].Pos = sp.Geometry.Wrap(newHead)
		sp.Change.AddParticle(gi, g.Front)
	} else {
		bond = m.resolveBond(sp, g, g.Back-1, g.Back-2)
		newTail := sp.Particles.Trial[g.Back-1].Pos.Add(dir.Scale(bond))
		for k := g.Front; k < g.Back-1; k++ {
			sp.Particles.Trial[k].Pos = sp.Particles.Trial[k+1].Pos
			sp.Change.AddParticle(gi, k)
		}
		sp.Particles.Trial[g.Back-1].Pos = sp.Geometry.Wrap(newTail)
		sp.Change.AddParticle(gi, g.Back-1)
	}
	g.RecomputeTrialCM(sp.Particles.Trial)

	m.groupIdx = gi
	return true
}

func (m *Reptation) resolveBond(sp *space.Space, g *group.Group, a, b int) float64 {
	if m.BondLength >= 0 {
		return m.BondLength
	}
	return geom.Dist(sp.Particles.Trial[a].Pos, sp.Particles.Trial[b].Pos)
}

func (m *Reptation) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *Reptation) Accept(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(name, true)
}

func (m *Reptation) Reject(sp *space.Space) {
	name := sp.Groups[m.groupIdx].Name
	sp.Reject()
	m.stats.RecordTrial(name, false)
}

func (m *Reptation) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}
