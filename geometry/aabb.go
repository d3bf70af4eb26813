package geometry

import (
	"math"
)

// AABB is an axis-aligned bounding box.
//
// A box whose minimum exceeds its maximum on any axis (or holds a NaN) is
// null: it has no volume, contains nothing and intersects nothing. Use
// NullAABB to get one; the zero value is a point box at the origin.
type AABB struct {
	Min Vector3 `json:"min"`
	Max Vector3 `json:"max"`
}

func NewAABB(min, max Vector3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBFromCenter creates a box from its center and half extents.
func NewAABBFromCenter(center, halfExtents Vector3) AABB {
	return AABB{
		Min: center.Sub(halfExtents),
		Max: center.Add(halfExtents),
	}
}

// NullAABB returns an empty box. Merging anything into it yields that thing.
func NullAABB() AABB {
	inf := (float32)(math.Inf(1))
	return AABB{
		Min: Splat(inf),
		Max: Splat(-inf),
	}
}

func (b AABB) IsNull() bool {
	return !LessOrEqual(b.Min, b.Max)
}

func (b AABB) Center() Vector3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the full extent of the box along each axis.
func (b AABB) Size() Vector3 {
	if b.IsNull() {
		return Vector3{}
	}
	return b.Max.Sub(b.Min)
}

func (b AABB) HalfSize() Vector3 {
	return b.Size().Mul(0.5)
}

// Merge returns the smallest box enclosing both b and o.
func (b AABB) Merge(o AABB) AABB {
	switch {
	case o.IsNull():
		return b
	case b.IsNull():
		return o
	}
	return AABB{
		Min: Min(b.Min, o.Min),
		Max: Max(b.Max, o.Max),
	}
}

// Intersects reports whether b and o overlap. Touching faces count as an
// overlap.
func (b AABB) Intersects(o AABB) bool {
	if b.IsNull() || o.IsNull() {
		return false
	}
	return LessOrEqual(b.Min, o.Max) && LessOrEqual(o.Min, b.Max)
}

// Contains reports whether p lies inside b or on its boundary.
func (b AABB) Contains(p Vector3) bool {
	if b.IsNull() {
		return false
	}
	return LessOrEqual(b.Min, p) && LessOrEqual(p, b.Max)
}

// ContainsBox reports whether o lies entirely inside b.
func (b AABB) ContainsBox(o AABB) bool {
	if b.IsNull() || o.IsNull() {
		return false
	}
	return LessOrEqual(b.Min, o.Min) && LessOrEqual(o.Max, b.Max)
}

// Expand returns b grown by v on every side.
func (b AABB) Expand(v Vector3) AABB {
	if b.IsNull() {
		return b
	}
	return AABB{
		Min: b.Min.Sub(v),
		Max: b.Max.Add(v),
	}
}

func (b AABB) Translate(v Vector3) AABB {
	if b.IsNull() {
		return b
	}
	return AABB{
		Min: b.Min.Add(v),
		Max: b.Max.Add(v),
	}
}

// BoundingSphere returns the sphere that passes through the corners of b.
func (b AABB) BoundingSphere() Sphere {
	if b.IsNull() {
		return Sphere{}
	}
	return Sphere{
		Center: b.Center(),
		Radius: b.HalfSize().Len(),
	}
}
