package geom

import "math"

// SpatialHash buckets point indices into a uniform 3D grid for O(1)
// neighbor queries, so a concrete Hamiltonian's pairwise sweep does not have
// to fall back to O(n²) scans. Adapted from the teacher's
// physics/spatial_hash.go, generalized from *parser.Atom to bare (index,
// position) pairs so it has no dependency on any particular particle type.
//
// PERFORMANCE: naive pairwise is O(n²); a spatial hash with cell size >=
// cutoff reduces candidate pairs to roughly 27 neighbors per point.
type SpatialHash struct {
	cellSize float64
	grid     map[[3]int][]int
}

// NewSpatialHash builds a grid with the given cell size, which should be at
// least as large as the largest cutoff distance queried against it.
func NewSpatialHash(cellSize float64) *SpatialHash {
	return &SpatialHash{cellSize: cellSize, grid: make(map[[3]int][]int)}
}

func (sh *SpatialHash) cell(p Vec3) [3]int {
	return [3]int{
		int(math.Floor(p.X / sh.cellSize)),
		int(math.Floor(p.Y / sh.cellSize)),
		int(math.Floor(p.Z / sh.cellSize)),
	}
}

// Reset clears the grid so it can be rebuilt for a new trial configuration.
func (sh *SpatialHash) Reset() {
	for k := range sh.grid {
		delete(sh.grid, k)
	}
}

// Insert adds the point at index idx with position p.
func (sh *SpatialHash) Insert(idx int, p Vec3) {
	c := sh.cell(p)
	sh.grid[c] = append(sh.grid[c], idx)
}

// Neighbors returns candidate indices in the 27 cells centered on p. The
// caller must still check the exact distance; this only prunes the search.
func (sh *SpatialHash) Neighbors(p Vec3) []int {
	c := sh.cell(p)
	out := make([]int, 0, 32)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				key := [3]int{c[0] + dx, c[1] + dy, c[2] + dz}
				out = append(out, sh.grid[key]...)
			}
		}
	}
	return out
}
