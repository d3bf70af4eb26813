package geometry

// Sphere is a ball in world space.
type Sphere struct {
	Center Vector3 `json:"center"`
	Radius float32 `json:"radius"`
}

func NewSphere(center Vector3, radius float32) Sphere {
	return Sphere{Center: center, Radius: radius}
}

// IntersectsAABB reports whether the sphere overlaps box.
func (s Sphere) IntersectsAABB(box AABB) bool {
	if box.IsNull() || s.Radius < 0 {
		return false
	}

	closest := Min(Max(s.Center, box.Min), box.Max)
	return closest.Sub(s.Center).LenSqr() <= s.Radius*s.Radius
}

// BoundingBox returns the box enclosing the sphere.
func (s Sphere) BoundingBox() AABB {
	if s.Radius < 0 {
		return NullAABB()
	}
	return NewAABBFromCenter(s.Center, Splat(s.Radius))
}
