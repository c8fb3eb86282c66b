// Package change implements the Change descriptor: a
// record of which particle indices within which groups were altered by the
// current trial, consumed by the Hamiltonian to compute an incremental
// energy instead of re-evaluating the whole system.
package change

// Change describes what the current trial altered. An empty particle-index
// slice for a group (as opposed to the group being absent from Groups)
// signals "the whole group moved together, evaluate at group granularity"
// — used by whole-group translate/rotate and cluster moves.
type Change struct {
	Groups         map[int][]int
	GeometryChange bool
	DeltaV         float64
}

// New returns an empty Change.
func New() *Change {
	return &Change{Groups: make(map[int][]int)}
}

// AddParticle registers that particle index within groupIdx moved.
func (c *Change) AddParticle(groupIdx, particleIdx int) {
	c.Groups[groupIdx] = append(c.Groups[groupIdx], particleIdx)
}

// AddWholeGroup registers that every particle in groupIdx moved together,
// without enumerating indices.
func (c *Change) AddWholeGroup(groupIdx int) {
	if _, ok := c.Groups[groupIdx]; !ok {
		c.Groups[groupIdx] = []int{}
	}
}

// SetGeometry records a volume change of dV.
func (c *Change) SetGeometry(dV float64) {
	c.GeometryChange = true
	c.DeltaV = dV
}

// Empty reports whether the Change carries no information — the state a
// Change must be in outside of a trial.
func (c *Change) Empty() bool {
	return len(c.Groups) == 0 && !c.GeometryChange
}

// Clear resets the Change to empty, ready for the next trial.
func (c *Change) Clear() {
	for k := range c.Groups {
		delete(c.Groups, k)
	}
	c.GeometryChange = false
	c.DeltaV = 0
}

// AllParticleIndices flattens every registered index across all groups,
// used by Vector.CommitIndices/RejectIndices. Groups registered as "whole
// group" (empty slice) are not expanded here — callers that need full
// enumeration for a whole-group change should use the group's own Indices().
func (c *Change) AllParticleIndices() []int {
	var out []int
	for _, idx := range c.Groups {
		out = append(out, idx...)
	}
	return out
}
