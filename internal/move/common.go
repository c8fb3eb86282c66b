package move

import (
	"fmt"
	"math"

	"github.com/cpasquier/faunus/internal/space"
)

// assertClose panics when a and b differ by more than tol. Invariant
// breaches (a rotation distorting rigid geometry, a conformation swap
// displacing the mass centre) are defects, not runtime conditions
// (spec.md §7), so they surface as panics rather than logged warnings.
func assertClose(a, b, tol float64, what string) {
	if math.Abs(a-b) > tol {
		panic(fmt.Sprintf("move: %s: |%g - %g| exceeds tolerance %g", what, a, b, tol))
	}
}

// buildMoveList constructs a MoveListEntry for every molecule id in ids,
// computing Repeat per spec.md §3: 1 * (perAtom ? group.size : 1) *
// (perMol ? numMoleculesOfType : 1). Shared by every move family that is
// configured per-molecule rather than as a single global process.
func buildMoveList(sp *space.Space, ids []int, prob, dp1, dp2 float64, dir Vec3, perAtom, perMol bool) map[int]*MoveListEntry {
	list := make(map[int]*MoveListEntry, len(ids))
	for _, id := range ids {
		repeat := 1
		if perAtom {
			size := 0
			for _, gi := range sp.GroupsOfMolecule(id) {
				size += sp.Groups[gi].Size()
			}
			repeat *= size
		}
		if perMol {
			repeat *= sp.NumMoleculesOfType(id)
		}
		if repeat < 1 {
			repeat = 1
		}
		list[id] = &MoveListEntry{Prob: prob, Dir: dir, DP1: dp1, DP2: dp2, PerAtom: perAtom, PerMol: perMol, Repeat: repeat}
	}
	return list
}

// singleEntryList builds a one-entry move list under a synthetic molecule id
// 0, for moves that run as a single global process rather than per-molecule
// (volume, titration, tempering, grand-canonical combination moves).
func singleEntryList(prob float64) map[int]*MoveListEntry {
	return map[int]*MoveListEntry{0: {Prob: prob, Repeat: 1}}
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// counter is the shared trials/accepts bookkeeping every concrete move
// embeds, reported through Report.
type counter struct {
	trials, accepts int
}

func (c *counter) trial()            { c.trials++ }
func (c *counter) accept()           { c.accepts++ }
func (c *counter) report(runfraction float64, payload any) Report {
	return Report{
		Trials:      c.trials,
		Accepted:    c.accepts,
		Acceptance:  ratio(c.accepts, c.trials),
		RunFraction: runfraction,
		Payload:     payload,
	}
}
