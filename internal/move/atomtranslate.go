package move

import (
	"math"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// AtomTranslate implements spec.md §4.2's translation variant: pick a group
// matching currentMolId, pick one particle uniformly within it, displace it
// by a masked, per-component uniform step, and recompute the containing
// group's trial mass-centre if it is molecular.
type AtomTranslate struct {
	counter
	list  map[int]*MoveListEntry
	stats *stats.AcceptanceMap[int] // keyed by atom TypeID

	// DPByType overrides the molecule-level displacement magnitude per
	// atom TypeID; entries that are absent or effectively zero fall back
	// to the generic dp. Set after construction, like Pairwise.DefaultLJ.
	DPByType map[int]float64

	currentMol int
	groupIdx   int
	particle   int
	sqDisp     float64
}

// perTypeDP resolves the displacement magnitude for one atom type: the
// per-type entry when it is effectively nonzero, the generic value
// otherwise.
func perTypeDP(table map[int]float64, typeID int, generic float64) float64 {
	if v := table[typeID]; v > epsDP {
		return v
	}
	return generic
}

// NewAtomTranslate builds an AtomTranslate configured per-molecule from ids,
// with displacement magnitude dp masked by dir (zero components of dir
// freeze that axis).
func NewAtomTranslate(sp *space.Space, ids []int, prob, dp float64, dir geom.Vec3) *AtomTranslate {
	return &AtomTranslate{
		list:  buildMoveList(sp, ids, prob, dp, 0, dir, true, false),
		stats: stats.NewAcceptanceMap[int](),
	}
}

func (m *AtomTranslate) Name() string                        { return "atomtranslate" }
func (m *AtomTranslate) ListEntries() map[int]*MoveListEntry  { return m.list }
func (m *AtomTranslate) SetCurrentMolID(id int)               { m.currentMol = id }

func (m *AtomTranslate) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	if g.Size() == 0 {
		return false
	}
	m.trial()
	pi := g.Front + r.Pick(g.Size())
	entry := m.list[m.currentMol]
	dp := perTypeDP(m.DPByType, sp.Particles.Trial[pi].TypeID, entry.DP1)

	delta := geom.Vec3{X: dp * r.Half(), Y: dp * r.Half(), Z: dp * r.Half()}.Mask(entry.Dir)
	old := sp.Particles.Trial[pi]
	sp.Particles.Trial[pi].Pos = sp.Geometry.Wrap(old.Pos.Add(delta))
	sp.Change.AddParticle(gi, pi)
	g.RecomputeTrialCM(sp.Particles.Trial)

	m.groupIdx, m.particle = gi, pi
	m.sqDisp = delta.Dot(delta)
	return true
}

func (m *AtomTranslate) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *AtomTranslate) Accept(sp *space.Space) {
	typeID := sp.Particles.Trial[m.particle].TypeID
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(typeID, true)
	m.stats.RecordDisplacement(typeID, m.sqDisp)
}

func (m *AtomTranslate) Reject(sp *space.Space) {
	typeID := sp.Particles.Committed[m.particle].TypeID
	sp.Reject()
	m.stats.RecordTrial(typeID, false)
}

func (m *AtomTranslate) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

// AtomRotate implements spec.md §4.2's rotation variant: rotate one
// particle's dipole orientation about a random axis through the origin by a
// signed angle drawn uniformly in ±dprot/2.
type AtomRotate struct {
	counter
	list  map[int]*MoveListEntry
	stats *stats.AcceptanceMap[int]

	// DPByType overrides dprot per atom TypeID, falling back to the
	// molecule-level value for absent or effectively-zero entries.
	DPByType map[int]float64

	currentMol int
	particle   int
	sqAngle    float64
}

// NewAtomRotate builds an AtomRotate configured per-molecule from ids, with
// rotation magnitude dprot (radians).
func NewAtomRotate(sp *space.Space, ids []int, prob, dprot float64) *AtomRotate {
	return &AtomRotate{
		list:  buildMoveList(sp, ids, prob, dprot, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, true, false),
		stats: stats.NewAcceptanceMap[int](),
	}
}

func (m *AtomRotate) Name() string                       { return "atomrotate" }
func (m *AtomRotate) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *AtomRotate) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *AtomRotate) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	if g.Size() == 0 {
		return false
	}
	m.trial()
	pi := g.Front + r.Pick(g.Size())
	entry := m.list[m.currentMol]

	axis := geom.RandomUnitVector(r.Uniform(), r.Uniform())
	angle := perTypeDP(m.DPByType, sp.Particles.Trial[pi].TypeID, entry.DP1) * r.Half()
	q := geom.AxisAngle(axis, angle)

	sp.Particles.Trial[pi].DipoleDir = q.Rotate(sp.Particles.Trial[pi].DipoleDir)
	sp.Change.AddParticle(gi, pi)

	m.particle = pi
	m.sqAngle = angle * angle
	return true
}

func (m *AtomRotate) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *AtomRotate) Accept(sp *space.Space) {
	typeID := sp.Particles.Trial[m.particle].TypeID
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(typeID, true)
	m.stats.RecordDisplacement(typeID, m.sqAngle)
}

func (m *AtomRotate) Reject(sp *space.Space) {
	typeID := sp.Particles.Committed[m.particle].TypeID
	sp.Reject()
	m.stats.RecordTrial(typeID, false)
}

func (m *AtomRotate) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

// SphereRotate implements spec.md §4.2's 2D-sphere variant: a particle is
// confined to the surface of a sphere of fixed radius R centred on the
// origin; its displacement is drawn in the tangential (θ,φ) plane, scaled by
// the local metric (R sinθ for θ, R for φ), then renormalised back onto the
// sphere.
type SphereRotate struct {
	counter
	list   map[int]*MoveListEntry
	stats  *stats.AcceptanceMap[int]
	Radius float64

	// DPByType overrides dp per atom TypeID, falling back to the
	// molecule-level value for absent or effectively-zero entries.
	DPByType map[int]float64

	currentMol int
	particle   int
	sqDisp     float64
}

// NewSphereRotate builds a SphereRotate of the given fixed radius.
func NewSphereRotate(sp *space.Space, ids []int, prob, dp, radius float64) *SphereRotate {
	return &SphereRotate{
		list:   buildMoveList(sp, ids, prob, dp, 0, geom.Vec3{X: 1, Y: 1, Z: 1}, true, false),
		stats:  stats.NewAcceptanceMap[int](),
		Radius: radius,
	}
}

func (m *SphereRotate) Name() string                       { return "atomrotate2d" }
func (m *SphereRotate) ListEntries() map[int]*MoveListEntry { return m.list }
func (m *SphereRotate) SetCurrentMolID(id int)              { m.currentMol = id }

func (m *SphereRotate) Propose(sp *space.Space, r *rng.RNG) bool {
	groups := sp.GroupsOfMolecule(m.currentMol)
	if len(groups) == 0 {
		return false
	}
	gi := groups[r.Pick(len(groups))]
	g := sp.Groups[gi]
	if g.Size() == 0 {
		return false
	}
	m.trial()
	pi := g.Front + r.Pick(g.Size())
	entry := m.list[m.currentMol]

	p := sp.Particles.Trial[pi].Pos
	rad := p.Norm()
	if rad == 0 {
		rad = m.Radius
	}
	theta := math.Acos(clamp(p.Z/rad, -1, 1))
	phi := math.Atan2(p.Y, p.X)

	dp := perTypeDP(m.DPByType, sp.Particles.Trial[pi].TypeID, entry.DP1)
	dTheta := dp * r.Half() / (rad * math.Max(math.Sin(theta), 1e-9))
	dPhi := dp * r.Half() / rad

	theta += dTheta
	phi += dPhi

	newPos := geom.Vec3{
		X: rad * math.Sin(theta) * math.Cos(phi),
		Y: rad * math.Sin(theta) * math.Sin(phi),
		Z: rad * math.Cos(theta),
	}
	// renormalise back onto the sphere of fixed radius, correcting for
	// floating-point drift in theta/phi round-tripping.
	newPos = newPos.Scale(m.Radius / newPos.Norm())

	sp.Particles.Trial[pi].Pos = newPos
	sp.Change.AddParticle(gi, pi)
	g.RecomputeTrialCM(sp.Particles.Trial)

	m.particle = pi
	m.sqDisp = geom.Dist(p, newPos) * geom.Dist(p, newPos)
	return true
}

func (m *SphereRotate) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *SphereRotate) Accept(sp *space.Space) {
	typeID := sp.Particles.Trial[m.particle].TypeID
	sp.Commit()
	m.accept()
	m.stats.RecordTrial(typeID, true)
	m.stats.RecordDisplacement(typeID, m.sqDisp)
}

func (m *SphereRotate) Reject(sp *space.Space) {
	typeID := sp.Particles.Committed[m.particle].TypeID
	sp.Reject()
	m.stats.RecordTrial(typeID, false)
}

func (m *SphereRotate) Report() Report {
	return m.report(m.list[m.currentMol].Prob, m.stats)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
