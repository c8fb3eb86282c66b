package particle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpasquier/faunus/internal/geom"
	"github.com/cpasquier/faunus/internal/particle"
)

// TestNewVector_StartsEqualAndUnaliased asserts the committed/trial
// double-buffer starts equal, and that mutating one does not alias the
// caller's original slice or the other buffer.
func TestNewVector_StartsEqualAndUnaliased(t *testing.T) {
	init := []particle.Particle{{Pos: geom.Vec3{X: 1}}, {Pos: geom.Vec3{X: 2}}}
	v := particle.NewVector(init)

	assert.True(t, v.Equal())
	assert.Equal(t, 2, v.Len())

	v.Trial[0].Pos.X = 99
	assert.Equal(t, 1.0, init[0].Pos.X, "NewVector must defensively copy the caller's slice")
	assert.Equal(t, 1.0, v.Committed[0].Pos.X, "mutating Trial must not alias Committed")
	assert.False(t, v.Equal())
}

// TestCommitIndices_OnlyCopiesGivenIndices covers the incremental commit
// path most moves use.
func TestCommitIndices_OnlyCopiesGivenIndices(t *testing.T) {
	init := []particle.Particle{{Charge: 1}, {Charge: 2}, {Charge: 3}}
	v := particle.NewVector(init)

	v.Trial[0].Charge = 10
	v.Trial[2].Charge = 30
	v.CommitIndices([]int{0})

	assert.Equal(t, 10.0, v.Committed[0].Charge)
	assert.Equal(t, 3.0, v.Committed[2].Charge, "index 2 was never committed")
	assert.False(t, v.Equal(), "index 2 still diverges between committed and trial")
}

// TestRejectIndices_RestoresOnlyGivenIndices covers the incremental
// rollback path.
func TestRejectIndices_RestoresOnlyGivenIndices(t *testing.T) {
	init := []particle.Particle{{Charge: 1}, {Charge: 2}}
	v := particle.NewVector(init)

	v.Trial[0].Charge = 99
	v.Trial[1].Charge = 99
	v.RejectIndices([]int{0})

	assert.Equal(t, 1.0, v.Trial[0].Charge, "rejected index must be restored from committed")
	assert.Equal(t, 99.0, v.Trial[1].Charge, "un-rejected index must be left alone")
}

// TestCommitAllAndRejectAll cover the whole-vector synchronisation path
// used by volume moves and the polarisation decorator.
func TestCommitAllAndRejectAll(t *testing.T) {
	init := []particle.Particle{{Charge: 1}, {Charge: 2}}
	v := particle.NewVector(init)

	v.Trial[0].Charge = 5
	v.Trial[1].Charge = 6
	v.CommitAll()
	assert.True(t, v.Equal())
	assert.Equal(t, 5.0, v.Committed[0].Charge)

	v.Trial[0].Charge = 100
	v.RejectAll()
	assert.True(t, v.Equal())
	assert.Equal(t, 5.0, v.Trial[0].Charge)
}
