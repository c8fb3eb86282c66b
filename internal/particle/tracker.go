package particle

// Tracker indexes the current positions in a particle vector where
// particles of a given TypeID reside, so a grand-canonical move can sample
// "a random particle of type t" in O(1) rather than scanning the whole
// vector.
type Tracker struct {
	byType map[int][]int
	// indexOf[i] is the position of particle index i within
	// byType[TypeID], so removal is O(1) swap-with-last instead of O(n) scan.
	indexOf map[int]int
}

// NewTracker builds a Tracker consistent with the given committed vector.
func NewTracker(committed []Particle) *Tracker {
	t := &Tracker{byType: make(map[int][]int), indexOf: make(map[int]int)}
	for i, p := range committed {
		t.add(p.TypeID, i)
	}
	return t
}

func (t *Tracker) add(typeID, idx int) {
	t.byType[typeID] = append(t.byType[typeID], idx)
	t.indexOf[idx] = len(t.byType[typeID]) - 1
}

// Add records that a newly committed particle at idx has the given type.
func (t *Tracker) Add(typeID, idx int) {
	t.add(typeID, idx)
}

// Remove deletes idx from its type's bucket via swap-with-last.
func (t *Tracker) Remove(typeID, idx int) {
	bucket := t.byType[typeID]
	pos, ok := t.indexOf[idx]
	if !ok || pos >= len(bucket) {
		return
	}
	last := len(bucket) - 1
	bucket[pos] = bucket[last]
	t.indexOf[bucket[pos]] = pos
	t.byType[typeID] = bucket[:last]
	delete(t.indexOf, idx)
}

// ShiftDown decrements every tracked index greater than removed, keeping
// the tracker consistent after RemoveAt has shifted the backing slice left.
func (t *Tracker) ShiftDown(removed int) {
	for typeID, bucket := range t.byType {
		for i, idx := range bucket {
			if idx > removed {
				bucket[i] = idx - 1
			}
		}
		t.byType[typeID] = bucket
	}
	newIndexOf := make(map[int]int, len(t.indexOf))
	for idx, pos := range t.indexOf {
		if idx == removed {
			continue
		}
		if idx > removed {
			idx--
		}
		newIndexOf[idx] = pos
	}
	t.indexOf = newIndexOf
}

// Count returns the number of particles of the given type.
func (t *Tracker) Count(typeID int) int {
	return len(t.byType[typeID])
}

// IndexAt returns the particle-vector index of the n-th tracked particle of
// typeID (used together with RNG.Int(Count(typeID)) to sample uniformly).
func (t *Tracker) IndexAt(typeID, n int) (int, bool) {
	bucket := t.byType[typeID]
	if n < 0 || n >= len(bucket) {
		return 0, false
	}
	return bucket[n], true
}

// Consistent reports whether the tracker exactly reflects committed — every
// index i with committed[i].TypeID==id appears in byType[id] once, and
// nowhere else. Used by invariant tests (spec.md §8).
func (t *Tracker) Consistent(committed []Particle) bool {
	seen := make(map[int]bool, len(committed))
	for typeID, bucket := range t.byType {
		for _, idx := range bucket {
			if idx < 0 || idx >= len(committed) {
				return false
			}
			if committed[idx].TypeID != typeID {
				return false
			}
			if seen[idx] {
				return false
			}
			seen[idx] = true
		}
	}
	return len(seen) == len(committed)
}
