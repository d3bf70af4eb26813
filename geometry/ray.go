package geometry

import (
	"math"
)

const parallelEpsilon = 1e-8

// Ray is a half-line starting at Origin. Direction does not need to be
// normalized; hit parameters are expressed in multiples of it.
type Ray struct {
	Origin    Vector3 `json:"origin"`
	Direction Vector3 `json:"direction"`
}

func NewRay(origin, direction Vector3) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction,
	}
}

// Point returns the point at parameter t along the ray.
func (r Ray) Point(t float32) Vector3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectsAABB tests the ray against box with the slab method. It returns
// the parameter of the entry point, or 0 when the origin is inside the box.
func (r Ray) IntersectsAABB(box AABB) (bool, float32) {
	if box.IsNull() {
		return false, 0
	}

	tMin := float32(0)
	tMax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		min := box.Min[axis]
		max := box.Max[axis]
		origin := r.Origin[axis]
		direction := r.Direction[axis]

		if math.Abs((float64)(direction)) < parallelEpsilon {
			if origin < min || origin > max {
				return false, 0
			}
			continue
		}

		invDirection := 1 / direction
		t1 := (min - origin) * invDirection
		t2 := (max - origin) * invDirection
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false, 0
		}
	}

	return true, tMin
}
