package geom

import "math"

// Geometry is the named external collaborator spec.md §1 excludes from this
// module's scope ("the geometry primitives (box, periodic boundaries,
// distance functions)"). Moves depend only on this interface; Cuboid below
// is a minimal concrete implementation so the package is runnable and
// testable without a real simulation's geometry engine.
type Geometry interface {
	// Wrap folds p back into the primary periodic image.
	Wrap(p Vec3) Vec3
	// Displacement returns the minimum-image vector from a to b.
	Displacement(a, b Vec3) Vec3
	// Distance returns the minimum-image distance between a and b.
	Distance(a, b Vec3) float64
	// Volume returns the current cell volume.
	Volume() float64
	// SetVolume rescales the cell to the given volume, preserving its shape.
	SetVolume(v float64)
	// Random returns a uniformly random point inside the cell, given three
	// draws in [0,1).
	Random(u1, u2, u3 float64) Vec3
}

// Cuboid is an axis-aligned periodic box, the common case for the move
// framework's volume and insertion moves.
type Cuboid struct {
	Lx, Ly, Lz float64
}

// NewCube returns a cubic Cuboid of side length.
func NewCube(side float64) *Cuboid {
	return &Cuboid{Lx: side, Ly: side, Lz: side}
}

func wrap1(x, l float64) float64 {
	x = math.Mod(x, l)
	if x > l/2 {
		x -= l
	} else if x < -l/2 {
		x += l
	}
	return x
}

// Wrap implements Geometry.
func (c *Cuboid) Wrap(p Vec3) Vec3 {
	return Vec3{X: wrap1(p.X, c.Lx), Y: wrap1(p.Y, c.Ly), Z: wrap1(p.Z, c.Lz)}
}

// Displacement implements Geometry.
func (c *Cuboid) Displacement(a, b Vec3) Vec3 {
	d := b.Sub(a)
	return Vec3{X: wrap1(d.X, c.Lx), Y: wrap1(d.Y, c.Ly), Z: wrap1(d.Z, c.Lz)}
}

// Distance implements Geometry.
func (c *Cuboid) Distance(a, b Vec3) float64 {
	return c.Displacement(a, b).Norm()
}

// Volume implements Geometry.
func (c *Cuboid) Volume() float64 {
	return c.Lx * c.Ly * c.Lz
}

// SetVolume implements Geometry, rescaling all three sides isotropically so
// that Lx*Ly*Lz == v and the aspect ratios are preserved.
func (c *Cuboid) SetVolume(v float64) {
	factor := math.Cbrt(v / c.Volume())
	c.Lx *= factor
	c.Ly *= factor
	c.Lz *= factor
}

// ScaleAnisotropic expands the z axis by s and contracts x,y by 1/sqrt(s),
// preserving total volume — the isochoric shape-change move (§4.7).
func (c *Cuboid) ScaleAnisotropic(s float64) {
	inv := 1 / math.Sqrt(s)
	c.Lx *= inv
	c.Ly *= inv
	c.Lz *= s
}

// Random implements Geometry.
func (c *Cuboid) Random(u1, u2, u3 float64) Vec3 {
	return Vec3{
		X: (u1 - 0.5) * c.Lx,
		Y: (u2 - 0.5) * c.Ly,
		Z: (u3 - 0.5) * c.Lz,
	}
}

// LongestExtent returns half of the shortest box side, the bound the cluster
// move (§4.4 variant b) uses to decide whether a rotation would alias across
// the periodic image.
func (c *Cuboid) LongestExtent() float64 {
	m := c.Lx
	if c.Ly < m {
		m = c.Ly
	}
	if c.Lz < m {
		m = c.Lz
	}
	return m / 2
}
