package move

import (
	"math"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/group"
	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// ClusterMode selects which of spec.md §4.4's two recruitment strategies a
// Cluster move uses.
type ClusterMode int

const (
	// ClusterSeeded grows a cluster of mobile atoms (from MobileGroup)
	// around one fixed macromolecule (SeedGroup) — variant (a).
	ClusterSeeded ClusterMode = iota
	// ClusterFull recursively grows a cluster by visiting every molecular
	// group, excluding any molecule type listed in StaticMolIDs —
	// variant (b).
	ClusterFull
)

// Cluster implements spec.md §4.4: grow a cluster by a geometric overlap
// criterion, translate/rotate it as one rigid body, and correct the
// Metropolis acceptance with the cluster bias factor to preserve detailed
// balance.
type Cluster struct {
	counter
	prob float64
	Mode ClusterMode

	SeedGroup   int // ClusterSeeded
	MobileGroup int // ClusterSeeded: atomic pool to recruit from

	StaticMolIDs map[int]bool // ClusterFull: molecule ids that may not be recruited

	Threshold      float64
	DPTrans, DPRot float64

	stats *stats.AcceptanceMap[string]

	members          []int // flattened particle indices in the cluster this trial
	groupOf          map[int]int
	touchedGroups    map[int]bool
	bias             float64
	suppressRotation int // trials where rotation was suppressed (extent check)
}

// NewClusterSeeded builds a Cluster in variant (a): mobile atoms from
// mobileGroup recruited around the fixed macromolecule seedGroup.
func NewClusterSeeded(prob float64, seedGroup, mobileGroup int, threshold, dpTrans, dpRot float64) *Cluster {
	return &Cluster{
		prob: prob, Mode: ClusterSeeded,
		SeedGroup: seedGroup, MobileGroup: mobileGroup,
		Threshold: threshold, DPTrans: dpTrans, DPRot: dpRot,
		stats: stats.NewAcceptanceMap[string](),
	}
}

// NewClusterFull builds a Cluster in variant (b): full molecular clustering,
// excluding the given static molecule ids from recruitment.
func NewClusterFull(prob float64, staticMolIDs []int, threshold, dpTrans, dpRot float64) *Cluster {
	static := make(map[int]bool, len(staticMolIDs))
	for _, id := range staticMolIDs {
		static[id] = true
	}
	return &Cluster{
		prob: prob, Mode: ClusterFull,
		StaticMolIDs: static,
		Threshold:    threshold, DPTrans: dpTrans, DPRot: dpRot,
		stats: stats.NewAcceptanceMap[string](),
	}
}

func (m *Cluster) Name() string {
	if m.Mode == ClusterSeeded {
		return "moltransrotcluster"
	}
	return "ClusterMove"
}
func (m *Cluster) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *Cluster) SetCurrentMolID(int)                 {}

// anyMemberWithin reports whether probeIdx lies within threshold of any
// particle in members, using trial positions if useTrial else committed.
func anyMemberWithin(sp *space.Space, members []int, probeIdx int, useTrial bool, threshold float64) bool {
	pv := sp.Particles.Committed
	if useTrial {
		pv = sp.Particles.Trial
	}
	probe := pv[probeIdx]
	for _, mi := range members {
		mp := pv[mi]
		if sp.Geometry.Distance(mp.Pos, probe.Pos) < mp.Radius+probe.Radius+threshold {
			return true
		}
	}
	return false
}

func biasTerm(pOld, pNew bool) float64 {
	denom := 1.0
	if pOld {
		denom = 0
	}
	if denom <= 0 {
		// the candidate was already linked before the move, meaning
		// cluster growth should have recruited it: treat as a hard reject
		// rather than dividing by zero.
		return 0
	}
	if pNew {
		return 0
	}
	return 1
}

func (m *Cluster) recruitSeeded(sp *space.Space) ([]int, map[int]int) {
	seed := sp.Groups[m.SeedGroup]
	particles := append([]int{}, seed.Indices()...)
	groupOf := make(map[int]int, len(particles))
	for _, i := range particles {
		groupOf[i] = m.SeedGroup
	}
	mobile := sp.Groups[m.MobileGroup]
	// Grow to a fixed point, like recruitFull: a mobile atom linked only
	// through another mobile atom must still be recruited, or the members
	// set diverges from what computeBias treats as the cluster. Each round
	// tests the not-yet-recruited atoms against the atoms added in the
	// previous round only; earlier members have already been checked.
	recruited := make(map[int]bool)
	frontier := append([]int{}, particles...)
	for len(frontier) > 0 {
		current := frontier
		frontier = nil
		for idx := mobile.Front; idx < mobile.Back; idx++ {
			if recruited[idx] {
				continue
			}
			if anyMemberWithin(sp, current, idx, false, m.Threshold) {
				recruited[idx] = true
				particles = append(particles, idx)
				groupOf[idx] = m.MobileGroup
				frontier = append(frontier, idx)
			}
		}
	}
	return particles, groupOf
}

func (m *Cluster) recruitFull(sp *space.Space, r *rng.RNG) ([]int, map[int]int) {
	var candidates []int
	for gi, g := range sp.Groups {
		if g.Molecular && !m.StaticMolIDs[g.MoleculeID] {
			candidates = append(candidates, gi)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	seedIdx := candidates[r.Pick(len(candidates))]

	recruitedGroups := map[int]bool{seedIdx: true}
	queue := []int{seedIdx}
	var particles []int
	groupOf := make(map[int]int)
	for _, i := range sp.Groups[seedIdx].Indices() {
		groupOf[i] = seedIdx
	}
	particles = append(particles, sp.Groups[seedIdx].Indices()...)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curIndices := sp.Groups[cur].Indices()
		for _, gi := range candidates {
			if recruitedGroups[gi] {
				continue
			}
			linked := false
			for _, idx := range sp.Groups[gi].Indices() {
				if anyMemberWithin(sp, curIndices, idx, false, m.Threshold) {
					linked = true
					break
				}
			}
			if linked {
				recruitedGroups[gi] = true
				queue = append(queue, gi)
				for _, i := range sp.Groups[gi].Indices() {
					groupOf[i] = gi
				}
				particles = append(particles, sp.Groups[gi].Indices()...)
			}
		}
	}
	return particles, groupOf
}

func (m *Cluster) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()

	var particles []int
	var groupOf map[int]int
	if m.Mode == ClusterSeeded {
		particles, groupOf = m.recruitSeeded(sp)
	} else {
		particles, groupOf = m.recruitFull(sp, r)
	}
	if len(particles) == 0 {
		return false
	}

	cm := clusterCentre(sp, particles)

	doRotate := m.DPRot > epsDP
	if doRotate {
		if radial, ok := sp.Geometry.(interface{ LongestExtent() float64 }); ok {
			extent := radial.LongestExtent()
			if extent > 0 && clusterRadius(sp, particles, cm) > extent {
				doRotate = false
				m.suppressRotation++
			}
		}
	}

	t := geom.Vec3{X: m.DPTrans * r.Half(), Y: m.DPTrans * r.Half(), Z: m.DPTrans * r.Half()}
	var q *geom.Quaternion
	if doRotate {
		axis := geom.RandomUnitVector(r.Uniform(), r.Uniform())
		qq := geom.AxisAngle(axis, m.DPRot*r.Half())
		q = &qq
	}

	first, last := particles[0], particles[len(particles)-1]
	span := geom.Dist(sp.Particles.Trial[first].Pos, sp.Particles.Trial[last].Pos)
	var firstMoved, lastMoved geom.Vec3

	m.touchedGroups = make(map[int]bool)
	for _, idx := range particles {
		p := sp.Particles.Trial[idx].Pos
		if q != nil {
			p = q.RotateAbout(p, cm)
		}
		p = p.Add(t)
		// capture the unwrapped positions: the Wrap below can legitimately
		// fold the raw pair distance across a periodic image, while a rigid
		// motion preserves it exactly in unwrapped coordinates.
		if idx == first {
			firstMoved = p
		}
		if idx == last {
			lastMoved = p
		}
		sp.Particles.Trial[idx].Pos = sp.Geometry.Wrap(p)
		gi := groupOf[idx]
		sp.Change.AddParticle(gi, idx)
		m.touchedGroups[gi] = true
	}
	if q != nil && first != last {
		assertClose(span, geom.Dist(firstMoved, lastMoved), 1e-7, "cluster rotation distorted member geometry")
	}
	for gi := range m.touchedGroups {
		sp.Groups[gi].RecomputeTrialCM(sp.Particles.Trial)
	}

	m.members = particles
	m.groupOf = groupOf
	m.bias = m.computeBias(sp, particles)
	return true
}

// clusterCentre computes the unweighted centroid of the given particle
// indices' trial positions, reusing group.MassCentre's formula via a
// throwaway particle slice.
func clusterCentre(sp *space.Space, particles []int) geom.Vec3 {
	slice := make([]particle.Particle, len(particles))
	for i, idx := range particles {
		slice[i] = sp.Particles.Trial[idx]
	}
	return group.MassCentre(slice)
}

func clusterRadius(sp *space.Space, particles []int, cm geom.Vec3) float64 {
	maxR := 0.0
	for _, idx := range particles {
		d := geom.Dist(sp.Particles.Trial[idx].Pos, cm)
		if d > maxR {
			maxR = d
		}
	}
	return maxR
}

func (m *Cluster) computeBias(sp *space.Space, members []int) float64 {
	bias := 1.0
	inCluster := make(map[int]bool, len(members))
	for _, i := range members {
		inCluster[i] = true
	}

	check := func(idx int) {
		pOld := anyMemberWithin(sp, members, idx, false, m.Threshold)
		pNew := anyMemberWithin(sp, members, idx, true, m.Threshold)
		bias *= biasTerm(pOld, pNew)
	}

	if m.Mode == ClusterSeeded {
		mobile := sp.Groups[m.MobileGroup]
		for idx := mobile.Front; idx < mobile.Back; idx++ {
			if !inCluster[idx] {
				check(idx)
			}
		}
		return bias
	}

	for gi, g := range sp.Groups {
		if m.touchedGroups[gi] || !g.Molecular || m.StaticMolIDs[g.MoleculeID] {
			continue
		}
		for _, idx := range g.Indices() {
			check(idx)
		}
	}
	return bias
}

// EnergyChange implements Move: the Hamiltonian's raw energy delta is
// adjusted by -ln(bias), so the standard Metropolis test uniform <=
// exp(-ΔU') reproduces spec.md §4.4's uniform < bias*exp(-ΔU) exactly. A
// near-zero bias drives ΔU' to +Inf, forcing rejection without needing a
// separate code path.
func (m *Cluster) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	if m.bias < 1e-7 {
		return math.Inf(1)
	}
	return h.EnergyChange(sp.Particles) - math.Log(m.bias)
}

func (m *Cluster) Accept(sp *space.Space) {
	sp.Commit()
	m.accept()
	m.stats.RecordTrial("cluster", true)
	m.stats.RecordDisplacement("cluster", float64(len(m.members)))
}

func (m *Cluster) Reject(sp *space.Space) {
	sp.Reject()
	m.stats.RecordTrial("cluster", false)
}

func (m *Cluster) Report() Report {
	return m.report(m.prob, struct {
		Stats             *stats.AcceptanceMap[string]
		// LastBias is the bias of the most recent trial; no running mean
		// of the bias is kept.
		LastBias          float64
		RotationSuppressed int
	}{m.stats, m.bias, m.suppressRotation})
}
