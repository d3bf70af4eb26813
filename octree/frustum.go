package octree

import (
	"github.com/aukilabs/kenaz/geometry"
)

// Frustum plane indexes, in the order Camera.FrustumPlanes returns them.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Visibility is how much of a box lies inside a frustum.
type Visibility int

const (
	VisibilityNone Visibility = iota
	VisibilityPartial
	VisibilityFull
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPartial:
		return "partial"
	case VisibilityFull:
		return "full"
	default:
		return "none"
	}
}

// FrustumSnapshot holds the clipping planes of a camera at the time it was
// taken. It belongs to a single visibility pass: the camera may move before
// the next one.
type FrustumSnapshot struct {
	planes     [6]geometry.Plane
	farEnabled bool
	position   geometry.Vector3
}

// NewFrustumSnapshot captures the planes and position of cam. The far plane
// is ignored when the camera far clip distance is zero.
func NewFrustumSnapshot(cam Camera) FrustumSnapshot {
	return FrustumSnapshot{
		planes:     cam.FrustumPlanes(),
		farEnabled: cam.FarClipDistance() != 0,
		position:   cam.DerivedPosition(),
	}
}

func (f FrustumSnapshot) Planes() [6]geometry.Plane {
	return f.planes
}

func (f FrustumSnapshot) FarPlaneEnabled() bool {
	return f.farEnabled
}

// Position returns the camera position at the time of the snapshot.
func (f FrustumSnapshot) Position() geometry.Vector3 {
	return f.position
}

// Classify tells whether box is outside, partially inside or fully inside
// the frustum. A null box is never visible.
func (f FrustumSnapshot) Classify(box geometry.AABB) Visibility {
	if box.IsNull() {
		return VisibilityNone
	}

	center := box.Center()
	halfSize := box.HalfSize()
	allInside := true

	for i, plane := range f.planes {
		if i == PlaneFar && !f.farEnabled {
			continue
		}

		switch plane.Classify(center, halfSize) {
		case geometry.NegativeSide:
			return VisibilityNone
		case geometry.BothSides:
			allInside = false
		}
	}

	if allInside {
		return VisibilityFull
	}
	return VisibilityPartial
}

// IsVisible reports whether box is at least partially inside the frustum.
func (f FrustumSnapshot) IsVisible(box geometry.AABB) bool {
	if box.IsNull() {
		return false
	}

	center := box.Center()
	halfSize := box.HalfSize()

	for i, plane := range f.planes {
		if i == PlaneFar && !f.farEnabled {
			continue
		}
		if plane.Classify(center, halfSize) == geometry.NegativeSide {
			return false
		}
	}
	return true
}
