package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vector3 is a point or a direction in world space. Components are indexed
// 0 (x), 1 (y) and 2 (z).
type Vector3 = mgl32.Vec3

func NewVector3(x, y, z float32) Vector3 {
	return Vector3{x, y, z}
}

// Splat returns a vector with all components set to v.
func Splat(v float32) Vector3 {
	return Vector3{v, v, v}
}

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

// VectorsEqualWithEpsilon compares a and b component by component with an
// absolute tolerance.
func VectorsEqualWithEpsilon(a, b Vector3, epsilon float64) bool {
	return EqualWithEpsilon(a[0], b[0], epsilon) &&
		EqualWithEpsilon(a[1], b[1], epsilon) &&
		EqualWithEpsilon(a[2], b[2], epsilon)
}

// Normalize returns v scaled to unit length. Unlike Vec3.Normalize, the zero
// vector is returned unchanged.
func Normalize(v Vector3) Vector3 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}

// AbsDot is the dot product of n with the absolute value of every component
// of h. It gives the projected radius of a box with half extents h onto a
// plane normal n.
func AbsDot(n, h Vector3) float32 {
	return mgl32.Abs(n[0]*h[0]) + mgl32.Abs(n[1]*h[1]) + mgl32.Abs(n[2]*h[2])
}

// Min returns the component-wise minimum of a and b.
func Min(a, b Vector3) Vector3 {
	return Vector3{
		float32(math.Min(float64(a[0]), float64(b[0]))),
		float32(math.Min(float64(a[1]), float64(b[1]))),
		float32(math.Min(float64(a[2]), float64(b[2]))),
	}
}

// Max returns the component-wise maximum of a and b.
func Max(a, b Vector3) Vector3 {
	return Vector3{
		float32(math.Max(float64(a[0]), float64(b[0]))),
		float32(math.Max(float64(a[1]), float64(b[1]))),
		float32(math.Max(float64(a[2]), float64(b[2]))),
	}
}

// Less reports whether every component of a is strictly less than the
// matching component of b.
func Less(a, b Vector3) bool {
	return a[0] < b[0] && a[1] < b[1] && a[2] < b[2]
}

// LessOrEqual reports whether every component of a is less than or equal to
// the matching component of b.
func LessOrEqual(a, b Vector3) bool {
	return a[0] <= b[0] && a[1] <= b[1] && a[2] <= b[2]
}
