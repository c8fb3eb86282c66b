package particle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpasquier/faunus/internal/particle"
)

func sampleParticles() []particle.Particle {
	return []particle.Particle{
		{TypeID: 1},
		{TypeID: 2},
		{TypeID: 1},
		{TypeID: 2},
	}
}

// TestNewTracker_IndexesByType covers the constructor's initial bucketing.
func TestNewTracker_IndexesByType(t *testing.T) {
	committed := sampleParticles()
	tr := particle.NewTracker(committed)

	assert.Equal(t, 2, tr.Count(1))
	assert.Equal(t, 2, tr.Count(2))
	assert.True(t, tr.Consistent(committed))
}

// TestTracker_Remove_SwapWithLast_KeepsConsistency exercises the O(1)
// removal path used by grand-canonical deletions.
func TestTracker_Remove_SwapWithLast_KeepsConsistency(t *testing.T) {
	committed := sampleParticles()
	tr := particle.NewTracker(committed)

	tr.Remove(1, 0)
	assert.Equal(t, 1, tr.Count(1))

	idx, ok := tr.IndexAt(1, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

// TestTracker_ShiftDown_DecrementsIndicesPastRemoval exercises the
// bookkeeping used after a particle is physically spliced out of the
// backing vector.
func TestTracker_ShiftDown_DecrementsIndicesPastRemoval(t *testing.T) {
	committed := sampleParticles()
	tr := particle.NewTracker(committed)

	tr.Remove(1, 0)
	tr.ShiftDown(0)

	remaining := append(committed[:0:0], committed[1:]...)
	assert.True(t, tr.Consistent(remaining))

	idx, ok := tr.IndexAt(2, 0)
	assert.True(t, ok)
	assert.Equal(t, 0, idx, "index 1 must have shifted down to 0 after removing index 0")
}

// TestTracker_IndexAt_OutOfRange_ReturnsFalse covers the bounds guard.
func TestTracker_IndexAt_OutOfRange_ReturnsFalse(t *testing.T) {
	tr := particle.NewTracker(sampleParticles())
	_, ok := tr.IndexAt(1, 99)
	assert.False(t, ok)
	_, ok = tr.IndexAt(1, -1)
	assert.False(t, ok)
}

// TestTracker_Consistent_DetectsMismatch asserts Consistent actually
// catches a tracker that has drifted from the committed vector, since the
// invariant tests in the move package depend on this being a real check.
func TestTracker_Consistent_DetectsMismatch(t *testing.T) {
	committed := sampleParticles()
	tr := particle.NewTracker(committed)

	committed[0].TypeID = 99 // mutate without updating the tracker
	assert.False(t, tr.Consistent(committed))
}
