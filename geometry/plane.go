package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Side is where a volume sits relative to a plane.
type Side int

const (
	// BothSides means the volume straddles the plane.
	BothSides Side = iota
	// NegativeSide means the volume is entirely behind the plane.
	NegativeSide
	// PositiveSide means the volume is entirely in front of the plane, on the
	// side its normal points to.
	PositiveSide
)

func (s Side) String() string {
	switch s {
	case NegativeSide:
		return "negative"
	case PositiveSide:
		return "positive"
	default:
		return "both"
	}
}

// Plane is the set of points p where Normal.Dot(p) + D == 0.
type Plane struct {
	Normal Vector3 `json:"normal"`
	D      float32 `json:"d"`
}

// NewPlane creates the plane with the given normal that passes through
// point.
func NewPlane(normal Vector3, point Vector3) Plane {
	return Plane{
		Normal: normal,
		D:      -normal.Dot(point),
	}
}

// Normalized returns the plane with a unit length normal.
func (p Plane) Normalized() Plane {
	length := p.Normal.Len()
	if length == 0 {
		return p
	}
	return Plane{
		Normal: p.Normal.Mul(1 / length),
		D:      p.D / length,
	}
}

// Distance returns the signed distance from the plane to point. It is a
// true distance only when the normal has unit length.
func (p Plane) Distance(point Vector3) float32 {
	return p.Normal.Dot(point) + p.D
}

// Classify tells on which side of the plane the box given by its center and
// half extents lies.
func (p Plane) Classify(center, halfExtents Vector3) Side {
	dist := p.Distance(center)
	maxAbsDist := AbsDot(p.Normal, halfExtents)

	switch {
	case dist < -maxAbsDist:
		return NegativeSide
	case dist > maxAbsDist:
		return PositiveSide
	default:
		return BothSides
	}
}

// NewPlaneFromVec4 creates the plane a*x + b*y + c*z + d == 0 from the
// coefficients (a, b, c, d), as extracted from the rows of a clip matrix.
func NewPlaneFromVec4(v mgl32.Vec4) Plane {
	return Plane{
		Normal: v.Vec3(),
		D:      v.W(),
	}
}
