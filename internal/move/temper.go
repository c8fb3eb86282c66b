package move

import (
	"context"
	"math"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/cpasquier/faunus/internal/hamiltonian"
	"github.com/cpasquier/faunus/internal/particle"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
	"github.com/cpasquier/faunus/internal/stats"
)

// ReplicaState is the value a replica-exchange collective sends its
// partner (spec.md §4.10 step 2): the partner's full particle vector and
// box volume, so each side can compute its own ΔU_self against the
// partner's configuration before deciding to swap.
type ReplicaState struct {
	Particles []particle.Particle
	Volume    float64
	// DU carries a replica's self energy-change in the second handshake of
	// spec.md §4.10 step 4, reusing the same envelope as the first
	// (full-configuration) handshake rather than widening ReplicaLink with
	// a second method.
	DU float64
	// U carries the leader's shared Metropolis variate in the third
	// handshake (Temper.Decide), so both replicas test the identical draw
	// against their own combinedDU instead of each drawing independently
	// from their own *rng.RNG.
	U float64
}

// ReplicaLink is the "messaging layer" collaborator spec.md §4.10/§5 names
// ("the geometry primitives... out of scope" extends here to "the actual
// transport is out of scope"): Exchange sends payload to the partner and
// blocks until the partner's own state arrives, matching §5's "collective
// exchange is blocking" ordering guarantee. A production deployment
// implements this over MPI or gRPC; ChannelLink below is the in-process
// stand-in used for single-binary demos and tests.
type ReplicaLink interface {
	Exchange(ctx context.Context, payload ReplicaState) (ReplicaState, error)
}

// ChannelLink is a ReplicaLink between two replicas running as goroutines
// in the same process, communicating over a pair of unbuffered channels —
// grounded on niceyeti-tabular's channel-composed goroutine pipelines in
// reinforcement/learning.go, generalized from a fan-in of worker episodes
// to a point-to-point rendezvous.
type ChannelLink struct {
	send chan<- ReplicaState
	recv <-chan ReplicaState
}

// NewChannelLinkPair builds two ChannelLinks wired to each other: sending
// on one delivers to the other's Exchange call, and vice versa.
func NewChannelLinkPair() (a, b *ChannelLink) {
	ab := make(chan ReplicaState)
	ba := make(chan ReplicaState)
	a = &ChannelLink{send: ab, recv: ba}
	b = &ChannelLink{send: ba, recv: ab}
	return a, b
}

// Exchange implements ReplicaLink by sending payload and blocking for the
// partner's reply, or returning ctx's error if it is cancelled first. The
// send and the receive are served in whichever order the partner's own
// Exchange allows, so both sides of the pair may call Exchange at once.
func (c *ChannelLink) Exchange(ctx context.Context, payload ReplicaState) (ReplicaState, error) {
	send, recv := c.send, c.recv
	var partner ReplicaState
	for send != nil || recv != nil {
		select {
		case send <- payload:
			send = nil
		case partner = <-recv:
			recv = nil
		case <-ctx.Done():
			return ReplicaState{}, ctx.Err()
		}
	}
	return partner, nil
}

// ReplicaSet supervises a collection of replica "done" signals with
// channerics.Merge, the same fan-in helper niceyeti-tabular uses to
// collapse many worker-episode channels into one for a driver loop to
// range over — here fanning in each replica's completion channel so a
// single caller can wait for the whole collective to finish rather than
// polling each replica individually.
type ReplicaSet struct {
	done chan struct{}
}

// NewReplicaSet wires per-replica completion channels into one merged
// stream via channerics.Merge.
func NewReplicaSet(replicaDone ...<-chan struct{}) *ReplicaSet {
	stop := make(chan struct{})
	merged := channerics.Merge(stop, replicaDone...)
	rs := &ReplicaSet{done: make(chan struct{})}
	go func() {
		for range merged {
		}
		close(rs.done)
	}()
	return rs
}

// Wait blocks until every replica registered with NewReplicaSet has
// signalled completion.
func (rs *ReplicaSet) Wait() { <-rs.done }

// Temper implements spec.md §4.10: parallel tempering / replica exchange.
// Every so often, this replica swaps its full configuration with the
// replica at the other end of Link, exchanges ΔU_self values over Link,
// and accepts or rejects the swap in lockstep with the partner's own
// decision. Temper selects no partner itself: it always exchanges with
// whichever replica Link reaches.
type Temper struct {
	counter
	prob  float64
	Link  ReplicaLink
	stats *stats.AcceptanceMap[string]

	// Leader designates which side of a replica pair draws the shared
	// Metropolis variate in Decide; the other side adopts the leader's
	// draw over Link instead of drawing its own. Exactly one replica of
	// each pair must be constructed with leader=true — spec.md §4.10 step
	// 1's partner selection (even ranks pair with rank+1, odd with
	// rank-1) gives a natural, already-asymmetric way to pick it: the
	// lower-numbered replica of each pair is the leader.
	Leader bool

	r *rng.RNG

	partnerState ReplicaState
	selfDU       float64
	combinedDU   float64
}

// NewTemper builds a Temper move that exchanges state over link. leader
// must be true on exactly one side of each exchanging pair; see Leader.
func NewTemper(prob float64, link ReplicaLink, leader bool) *Temper {
	return &Temper{prob: prob, Link: link, Leader: leader, stats: stats.NewAcceptanceMap[string]()}
}

func (m *Temper) Name() string                       { return "temper" }
func (m *Temper) ListEntries() map[int]*MoveListEntry { return singleEntryList(m.prob) }
func (m *Temper) SetCurrentMolID(int)                 {}

// Propose exchanges full configurations with the partner (spec.md §4.10
// steps 1-2) and stages the partner's state as this replica's trial
// configuration, so EnergyChange can evaluate ΔU_self = U(trial) -
// U(committed) against the local Hamiltonian.
func (m *Temper) Propose(sp *space.Space, r *rng.RNG) bool {
	m.trial()
	m.r = r
	self := ReplicaState{
		Particles: append([]particle.Particle{}, sp.Particles.Committed...),
		Volume:    sp.Geometry.Volume(),
	}
	partner, err := m.Link.Exchange(context.Background(), self)
	if err != nil {
		return false
	}
	if len(partner.Particles) != sp.Particles.Len() {
		return false // mismatched replica topology: not exchangeable
	}
	m.partnerState = partner
	sp.Particles.Trial = append([]particle.Particle{}, partner.Particles...)
	sp.Change.SetGeometry(partner.Volume - sp.Geometry.Volume())
	for gi, g := range sp.Groups {
		sp.Change.AddWholeGroup(gi)
		g.RecomputeTrialCM(sp.Particles.Trial)
	}
	return true
}

// EnergyChange computes ΔU_self on the local Hamiltonian, then exchanges
// that value with the partner to form the combined acceptance exponent
// (spec.md §4.10 steps 3-4). The combined ΔU drives the Metropolis test in
// move.Step; Report/AlternateReturnEnergy ensure only ΔU_self is counted
// toward the Propagator's own energy-drift diagnostic, per §4.10's closing
// note ("partner ΔU is not added, preventing apparent drift").
func (m *Temper) EnergyChange(sp *space.Space, h hamiltonian.Hamiltonian) float64 {
	m.selfDU = h.EnergyChange(sp.Particles)
	partner, err := m.Link.Exchange(context.Background(), ReplicaState{DU: m.selfDU})
	if err != nil {
		return math.Inf(1)
	}
	m.combinedDU = m.selfDU + partner.DU
	return m.combinedDU
}

func (m *Temper) AlternateReturnEnergy() (float64, bool) {
	return m.selfDU, true
}

// Decide implements LockstepMove: rather than letting move.Step draw its
// own independent Metropolis variate (which could disagree with the
// partner replica's and desynchronize the two configurations, since
// Propose already staged the partner's full state as this replica's
// trial), the leader of the pair draws the one shared variate and the
// follower adopts it over Link. Both sides then test the identical u
// against their own (already-agreed, see EnergyChange) combinedDU, so
// both reach the same accept/reject outcome.
func (m *Temper) Decide(dU float64) bool {
	var u float64
	if m.Leader {
		u = m.r.Uniform()
	}
	partner, err := m.Link.Exchange(context.Background(), ReplicaState{U: u})
	if err != nil {
		return false
	}
	if !m.Leader {
		u = partner.U
	}
	return u <= math.Exp(-dU)
}

func (m *Temper) Accept(sp *space.Space) {
	sp.Commit()
	sp.Geometry.SetVolume(m.partnerState.Volume)
	m.accept()
	m.stats.RecordTrial("exchange", true)
}

func (m *Temper) Reject(sp *space.Space) {
	sp.Reject()
	m.stats.RecordTrial("exchange", false)
}

func (m *Temper) Report() Report {
	return m.report(m.prob, m.stats)
}
