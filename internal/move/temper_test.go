package move_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/rng"
	"github.com/cpasquier/faunus/internal/space"
)

// TestTemper_ChannelLink_ExchangesAndAccepts runs two in-process replicas
// of an ideal gas (zero interaction energy, so ΔU_self is always 0 on both
// sides and every swap is accepted) connected by a ChannelLink pair,
// exercising spec.md §4.10's full propose/exchange/accept handshake.
func TestTemper_ChannelLink_ExchangesAndAccepts(t *testing.T) {
	linkA, linkB := move.NewChannelLinkPair()

	spA, hA := idealGasSystem(20, 50)
	spB, hB := idealGasSystem(20, 50)

	const steps = 100
	var wg sync.WaitGroup
	wg.Add(2)

	var reportA, reportB move.Report
	go func() {
		defer wg.Done()
		m := move.NewTemper(1.0, linkA, true)
		r := rng.New(1)
		for i := 0; i < steps; i++ {
			move.Step(m, spA, hA, r)
		}
		reportA = m.Report()
	}()
	go func() {
		defer wg.Done()
		m := move.NewTemper(1.0, linkB, false)
		r := rng.New(2)
		for i := 0; i < steps; i++ {
			move.Step(m, spB, hB, r)
		}
		reportB = m.Report()
	}()
	wg.Wait()

	require.Equal(t, steps, reportA.Trials)
	require.Equal(t, steps, reportB.Trials)
	assert.InDelta(t, 1.0, reportA.Acceptance, 0.02, "zero-energy ideal-gas swaps must be accepted essentially always")
	assert.InDelta(t, 1.0, reportB.Acceptance, 0.02)
	assert.True(t, spA.Particles.Equal())
	assert.True(t, spB.Particles.Equal())
}

// TestTemper_ChannelLink_StaysInLockstepWithNonzeroEnergy builds two
// replicas whose Hamiltonians use different LJ parameters (the "different
// parameter" spec.md §4.10 describes two replicas running at), so the
// combined acceptance exponent is nonzero and the Metropolis test actually
// has two possible outcomes. Before Temper.Decide existed, this is exactly
// the scenario that would expose the bug: each replica's Step drew its own
// independent Metropolis variate from its own *rng.RNG against the same
// combinedDU, so the two draws could disagree and only one side would
// commit the swap — permanently desynchronizing the two replicas'
// configurations, since Propose already staged each side's trial as the
// other's full particle vector. With Temper.Decide sharing a single draw
// over Link, both sides must reach the identical decision on every step.
func TestTemper_ChannelLink_StaysInLockstepWithNonzeroEnergy(t *testing.T) {
	linkA, linkB := move.NewChannelLinkPair()

	spA, hA := pairSystem(30, geom.Vec3{X: 10, Y: 10, Z: 10}, geom.Vec3{X: 11.5, Y: 10, Z: 10})
	spB, hB := pairSystem(30, geom.Vec3{X: 5, Y: 5, Z: 5}, geom.Vec3{X: 15, Y: 15, Z: 15})
	hA.DefaultLJ.Epsilon = 0.5
	hB.DefaultLJ.Epsilon = 0.05

	initial := combinedPositions(spA, spB)

	const steps = 200
	var wg sync.WaitGroup
	wg.Add(2)

	var reportA, reportB move.Report
	go func() {
		defer wg.Done()
		m := move.NewTemper(1.0, linkA, true) // leader: draws the shared variate
		r := rng.New(11)
		for i := 0; i < steps; i++ {
			move.Step(m, spA, hA, r)
		}
		reportA = m.Report()
	}()
	go func() {
		defer wg.Done()
		m := move.NewTemper(1.0, linkB, false) // follower: adopts the leader's draw
		r := rng.New(97)
		for i := 0; i < steps; i++ {
			move.Step(m, spB, hB, r)
		}
		reportB = m.Report()
	}()
	wg.Wait()

	require.Equal(t, steps, reportA.Trials)
	require.Equal(t, steps, reportB.Trials)
	assert.True(t, spA.Particles.Equal())
	assert.True(t, spB.Particles.Equal())

	// The core lockstep invariant: both replicas must agree on every single
	// accept/reject decision, so their accepted counts are identical.
	assert.Equal(t, reportA.Accepted, reportB.Accepted, "replicas must agree on every accept/reject decision")

	// A swap either commits on both sides (each replica takes on the
	// other's full configuration) or on neither; either way the combined
	// multiset of particle positions across both replicas is conserved. A
	// one-sided accept would duplicate one replica's pre-swap configuration
	// and lose the other's, breaking this invariant.
	assert.Equal(t, initial, combinedPositions(spA, spB))
}

// combinedPositions returns the sorted combined multiset of committed
// particle positions across both spaces, used to assert that a replica
// swap either commits symmetrically on both sides or not at all.
func combinedPositions(spaces ...*space.Space) []geom.Vec3 {
	var out []geom.Vec3
	for _, sp := range spaces {
		for _, p := range sp.Particles.Committed {
			out = append(out, p.Pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// TestReplicaSet_WaitReturnsAfterAllDone exercises the channerics.Merge
// fan-in directly: Wait must return once every registered replica
// completion channel has fired.
func TestReplicaSet_WaitReturnsAfterAllDone(t *testing.T) {
	doneA := make(chan struct{})
	doneB := make(chan struct{})
	rs := move.NewReplicaSet(doneA, doneB)

	waited := make(chan struct{})
	go func() {
		rs.Wait()
		close(waited)
	}()

	close(doneA)
	close(doneB)
	<-waited
}
