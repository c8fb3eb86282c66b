package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpasquier/faunus/internal/stats"
)

// TestAcceptanceMap_RecordTrial_TracksRunningMean covers the online-mean
// acceptance bookkeeping every move's Report() exposes.
func TestAcceptanceMap_RecordTrial_TracksRunningMean(t *testing.T) {
	m := stats.NewAcceptanceMap[string]()
	m.RecordTrial("atom", true)
	m.RecordTrial("atom", true)
	m.RecordTrial("atom", false)
	m.RecordTrial("atom", true)

	e := m.Get("atom")
	assert.EqualValues(t, 4, e.Attempts)
	assert.EqualValues(t, 3, e.Accepts)
	assert.InDelta(t, 0.75, e.Acceptance(), 1e-9)
}

// TestAcceptanceMap_Get_UnknownKey_ReturnsZeroValue asserts Get is
// side-effect free for keys never recorded, so report-only callers cannot
// pollute the map.
func TestAcceptanceMap_Get_UnknownKey_ReturnsZeroValue(t *testing.T) {
	m := stats.NewAcceptanceMap[int]()
	e := m.Get(42)
	assert.Zero(t, e.Attempts)
	assert.Zero(t, e.Acceptance())
	assert.Empty(t, m.Keys())
}

// TestAcceptanceMap_RecordDisplacement_TracksRunningMeanSquare covers the
// mean-squared-displacement accumulator translate/rotate moves feed.
func TestAcceptanceMap_RecordDisplacement_TracksRunningMeanSquare(t *testing.T) {
	m := stats.NewAcceptanceMap[string]()
	m.RecordDisplacement("mol", 1.0)
	m.RecordDisplacement("mol", 3.0)

	e := m.Get("mol")
	assert.InDelta(t, 2.0, e.MeanSquareDisplacement(), 1e-9)
}

// TestAcceptanceMap_Keys_OnlyListsRecordedEntries asserts a key only
// appears once it has at least one recorded trial.
func TestAcceptanceMap_Keys_OnlyListsRecordedEntries(t *testing.T) {
	m := stats.NewAcceptanceMap[string]()
	m.RecordTrial("a", true)
	m.RecordTrial("b", false)

	keys := m.Keys()
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}
