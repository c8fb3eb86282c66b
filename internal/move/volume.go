package move

import (
	"math"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// cuboidGeometry is satisfied by *geom.Cuboid; declared so volume moves can
// depend on the rescaling operations without hard-coding the concrete type
// beyond what geom.Geometry already exposes.
type cuboidGeometry interface {
	geom.Geometry
	ScaleAnisotropic(s float64)
}

// rescaleGroups applies a uniform scale function to every group's trial
// mass-centre, rigidly translating atomic groups' particles along with
// their (synthetic) centre and molecular groups' particles by the same
// per-group displacement — spec.md §4.7: "atomic groups scale every
// particle; molecular groups scale only the mass-centre and translate each
// particle rigidly by the same vector".
func rescaleGroups(sp *space.Space, scale func(geom.Vec3) geom.Vec3) {
	for gi, g := range sp.Groups {
		if g.Size() == 0 {
			continue
		}
		if g.Molecular {
			oldCM := g.TrialCM
			newCM := scale(oldCM)
			delta := newCM.Sub(oldCM)
			for i := g.Front; i < g.Back; i++ {
				sp.Particles.Trial[i].Pos = sp.Particles.Trial[i].Pos.Add(delta)
			}
			g.TrialCM = newCM
		} else {
			for i := g.Front; i < g.Back; i++ {
				sp.Particles.Trial[i].Pos = scale(sp.Particles.Trial[i].Pos)
			}
		}
		sp.Change.AddWholeGroup(gi)
	}
}

// Isobaric implements spec.md §4.7's NPT volume move: propose V_new =
// exp(ln V_old + dp*(uniform-0.5)) and rescale every group isotropically.
// The pV - N kT ln(Vnew/Vold) ideal-gas term is added by the move's own
// EnergyChange (isobaricIdealTerm); the Hamiltonian is not asked for it
// and contributes only the interaction energy change.
type Isobaric struct {
	counter
	prob        float64
	DP          float64
	PressuremM  float64 // pressure of the pV term in isobaricIdealTerm
	stats       *stats.AcceptanceMap[string]

	oldVolume, newVolume float64
}

// NewIsobaric builds an Isobaric move with ln(V) step size dp and the
// configured pressure (millimolar units, per spec.md §6), which enters the
// acceptance energy through isobaricIdealTerm.
func NewIsobaric(prob, dp, pressuremM float64) *Isobaric {
	return &Isobaric{prob: prob, DP: dp, PressuremM: pressuremM, stats: stats.NewAcceptanceMap[string]()}
}

func (m *Isobaric) Name() string                       { return "isobaric" }
func (m *Isobaric) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *Isobaric) SetCurrentMolID(int)                 {}

func (m *Isobaric) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()
	vOld := sp.Geometry.Volume()
	vNew := vOld * math.Exp(m.DP*r.Half()) // = exp(ln vOld + dp*half), exact for dp=0

	sp.Geometry.SetVolume(vNew)
	rescaleGroups(sp, func(p geom.Vec3) geom.Vec3 {
		factor := math.Cbrt(vNew / vOld)
		return p.Scale(factor)
	})
	sp.Change.SetGeometry(vNew - vOld)

	m.oldVolume, m.newVolume = vOld, vNew
	return true
}

// isobaricIdealTerm is the NPT ensemble's ideal-gas contribution to the
// acceptance exponent for an isotropic volume rescale: P*(Vnew-Vold) -
// N*kT*ln(Vnew/Vold) (kT=1, reduced units), converting the configured
// millimolar pressure the same way SaltMove converts molar activity
// (spec.md §4.8.1's mu_i conversion; 1e-27 converts litres to cubic
// Angstrom). The Hamiltonian only ever reports interaction energy (spec.md
// §1: it is agnostic to ensemble), so the move itself folds in this term.
func isobaricIdealTerm(n int, pressuremM, vOld, vNew float64) float64 {
	p := pressuremM * 1e-3 * avogadro * 1e-27
	return p*(vNew-vOld) - float64(n)*math.Log(vNew/vOld)
}

func (m *Isobaric) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	interaction := h.EnergyChange(sp.Particles)
	ideal := isobaricIdealTerm(sp.Particles.Len(), m.PressuremM, m.oldVolume, m.newVolume)
	return interaction + ideal
}

func (m *Isobaric) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	m.stats.RecordTrial("volume", true)
	m.stats.RecordDisplacement("volume", (m.newVolume-m.oldVolume)*(m.newVolume-m.oldVolume))
}

func (m *Isobaric) Reject(sp *space.Space) {
	sp.Geometry.SetVolume(m.oldVolume)
	sp.Reject()
	m.stats.RecordTrial("volume", false)
}

func (m *Isobaric) Report() Report {
	return m.report(m.prob, m.stats)
}

// Isochoric implements spec.md §4.7's NVT shape-change move: expand the
// z-axis by factor s, contract x,y by 1/sqrt(s), preserving total volume.
type Isochoric struct {
	counter
	prob  float64
	DP    float64
	stats *stats.AcceptanceMap[string]

	factor float64
}

// NewIsochoric builds an Isochoric move with ln(s) step size dp.
func NewIsochoric(prob, dp float64) *Isochoric {
	return &Isochoric{prob: prob, DP: dp, stats: stats.NewAcceptanceMap[string]()}
}

func (m *Isochoric) Name() string                       { return "isochoric" }
func (m *Isochoric) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *Isochoric) SetCurrentMolID(int)                 {}

func (m *Isochoric) Propose(sp *space.Space, r *rng.RNG) bool {
	cube, ok := sp.Geometry.(cuboidGeometry)
	if !ok {
		return false
	}
	m.trial()
	s := math.Exp(m.DP * r.Half())
	m.factor = s

	cube.ScaleAnisotropic(s)
	inv := 1 / math.Sqrt(s)
	rescaleGroups(sp, func(p geom.Vec3) geom.Vec3 {
		return geom.Vec3{X: p.X * inv, Y: p.Y * inv, Z: p.Z * s}
	})
	sp.Change.SetGeometry(0)
	return true
}

func (m *Isochoric) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	return h.EnergyChange(sp.Particles)
}

func (m *Isochoric) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	m.stats.RecordTrial("shape", true)
}

func (m *Isochoric) Reject(sp *space.Space) {
	if cube, ok := sp.Geometry.(cuboidGeometry); ok && m.factor != 0 {
		cube.ScaleAnisotropic(1 / m.factor)
	}
	sp.Reject()
	m.stats.RecordTrial("shape", false)
}

func (m *Isochoric) Report() Report {
	return m.report(m.prob, m.stats)
}
