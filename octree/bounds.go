package octree

import (
	"math"

	"github.com/aukilabs/kenaz/geometry"
)

// VisibleBounds accumulates the bounds of everything a visibility pass
// submitted: the enclosing box and the range of distances from the camera.
type VisibleBounds struct {
	Box         geometry.AABB `json:"box"`
	MinDistance float32       `json:"min_distance"`
	MaxDistance float32       `json:"max_distance"`
	Count       int           `json:"count"`
}

func NewVisibleBounds() *VisibleBounds {
	b := &VisibleBounds{}
	b.Reset()
	return b
}

// Reset empties the accumulator.
func (b *VisibleBounds) Reset() {
	b.Box = geometry.NullAABB()
	b.MinDistance = (float32)(math.Inf(1))
	b.MaxDistance = 0
	b.Count = 0
}

func (b *VisibleBounds) Merge(worldBox geometry.AABB, worldSphere geometry.Sphere, cam Camera) {
	b.Box = b.Box.Merge(worldBox)

	distToCenter := worldSphere.Center.Sub(cam.DerivedPosition()).Len()
	minDist := distToCenter - worldSphere.Radius
	if minDist < 0 {
		minDist = 0
	}
	maxDist := distToCenter + worldSphere.Radius

	if minDist < b.MinDistance {
		b.MinDistance = minDist
	}
	if maxDist > b.MaxDistance {
		b.MaxDistance = maxDist
	}
	b.Count++
}

// IsEmpty reports whether nothing was merged since the last reset.
func (b *VisibleBounds) IsEmpty() bool {
	return b.Count == 0
}
