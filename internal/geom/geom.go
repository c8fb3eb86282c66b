// Package geom holds the small set of geometric primitives the move
// framework needs a concrete answer for: a 3D vector type, rotation about an
// arbitrary axis, and a periodic-boundary box. The Hamiltonian, the full
// geometry engine (non-cuboid cells, Ewald sums, ...) and the particle/atom
// parameter database are named external collaborators the move framework
// does not own (see spec §1); Geometry here is the minimal concrete
// implementation needed to exercise and test the moves.
package geom

import "math"

// Vec3 is a position, displacement, or direction in 3D space. Plain struct
// of components, matching the teacher's own Vector3 type in
// physics/force_field.go (Add/Sub/Scale/Dot/Norm), generalized from
// force-field bookkeeping to particle positions.
type Vec3 struct {
	X, Y, Z float64
}

// Zero is the additive identity vector.
var Zero = Vec3{}

// Add returns v+other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v-other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Dot returns the dot product of v and other.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Mask zeroes out components of v where mask is 0, leaving the rest
// unchanged. Used to restrict a move's displacement to a subspace (e.g.
// z-only), per the MoveListEntry "direction unit mask" field.
func (v Vec3) Mask(mask Vec3) Vec3 {
	return Vec3{X: v.X * mask.X, Y: v.Y * mask.Y, Z: v.Z * mask.Z}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the Euclidean distance between a and b (no boundary
// correction; callers that need minimum-image distances go through a
// Geometry's Distance method instead).
func Dist(a, b Vec3) float64 {
	return a.Sub(b).Norm()
}

// Quaternion is a unit quaternion used for rotating a point about an
// arbitrary axis through the origin. Generalized from the teacher's
// quat_mapping.go (RamachandranToQuaternion/Slerp, which maps backbone
// dihedral pairs onto S³) down to the underlying axis-angle rotation it was
// built on.
type Quaternion struct {
	W, X, Y, Z float64
}

// AxisAngle builds the unit quaternion that rotates by angle radians about
// axis (which need not be normalized).
func AxisAngle(axis Vec3, angle float64) Quaternion {
	n := axis.Norm()
	if n == 0 {
		return Quaternion{W: 1}
	}
	ax := axis.Scale(1 / n)
	half := angle / 2
	s := math.Sin(half)
	return Quaternion{W: math.Cos(half), X: ax.X * s, Y: ax.Y * s, Z: ax.Z * s}
}

// Normalize returns a unit quaternion, guarding against accumulated
// floating-point drift across many incremental rotations.
func (q Quaternion) Normalize() Quaternion {
	norm := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if norm == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{W: q.W / norm, X: q.X / norm, Y: q.Y / norm, Z: q.Z / norm}
}

// Rotate applies q to point p, treating q as a rotation about the origin.
func (q Quaternion) Rotate(p Vec3) Vec3 {
	ux, uy, uz := q.X, q.Y, q.Z
	// t = 2 * cross(u, p)
	tx := 2 * (uy*p.Z - uz*p.Y)
	ty := 2 * (uz*p.X - ux*p.Z)
	tz := 2 * (ux*p.Y - uy*p.X)
	// p' = p + w*t + cross(u, t)
	return Vec3{
		X: p.X + q.W*tx + (uy*tz - uz*ty),
		Y: p.Y + q.W*ty + (uz*tx - ux*tz),
		Z: p.Z + q.W*tz + (ux*ty - uy*tx),
	}
}

// RotateAbout rotates p by q about pivot (rather than the coordinate
// origin) — used by group rotation, which pivots about a point offset from
// the group's mass centre (§4.3).
func (q Quaternion) RotateAbout(p, pivot Vec3) Vec3 {
	return pivot.Add(q.Rotate(p.Sub(pivot)))
}

// RandomUnitVector draws a point uniformly on the unit sphere from two
// uniforms without rejection: a uniform azimuth and a uniform cos(polar
// angle), Archimedes' cylinder projection.
func RandomUnitVector(u1, u2 float64) Vec3 {
	// u1 in [0,1) maps to azimuth, u2 in [0,1) maps to cos(polar angle) so
	// the distribution is uniform on the sphere, not just on the angles.
	phi := 2 * math.Pi * u1
	cosTheta := 2*u2 - 1
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
	return Vec3{X: sinTheta * math.Cos(phi), Y: sinTheta * math.Sin(phi), Z: cosTheta}
}
