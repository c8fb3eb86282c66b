package move_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/move"
	"github.com/cpasquier/faunus/internal/rng"
)

// TestGreenGC_SingleIonCombination_StaysConsistent exercises spec.md
// §4.8.2 with a one-species combination (the degenerate case of
// SaltMove): repeated insert/delete trials must leave the particle vector
// and tracker consistent.
func TestGreenGC_SingleIonCombination_StaysConsistent(t *testing.T) {
	sp, h := saltSystem(100)
	components := []move.GCComponent{{TypeID: 10, Charge: 1, Activity: 0.2}}
	combos := []move.GCCombination{{Counts: map[int]int{10: 1}}}
	m := move.NewGreenGC(1.0, 0, components, combos)
	r := rng.New(41)

	for i := 0; i < 1000; i++ {
		move.Step(m, sp, h, r)
		require.True(t, sp.Particles.Equal())
		require.True(t, sp.Tracker.Consistent(sp.Particles.Committed))
	}
	report := m.Report()
	assert.Greater(t, report.Trials, 0)
}

// TestGreenGC_MultiSpeciesCombination_InsertsAllMembersTogether checks
// that a combination naming several species inserts/deletes every member
// atomically: after any accepted insert, every species in the combo must
// have grown by its configured multiplicity.
func TestGreenGC_MultiSpeciesCombination_InsertsAllMembersTogether(t *testing.T) {
	sp, h := saltSystem(100)
	components := []move.GCComponent{
		{TypeID: 10, Charge: 2, Activity: 0.1},
		{TypeID: 20, Charge: -1, Activity: 0.1},
	}
	combos := []move.GCCombination{{Counts: map[int]int{10: 1, 20: 2}}}
	m := move.NewGreenGC(1.0, 0, components, combos)
	r := rng.New(19)

	for i := 0; i < 2000; i++ {
		move.Step(m, sp, h, r)
	}
	n10 := sp.Tracker.Count(10)
	n20 := sp.Tracker.Count(20)
	assert.Equal(t, 2*n10, n20, "every accepted insert/delete must move both species by their configured ratio")
}
