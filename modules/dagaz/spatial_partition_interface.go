package dagaz

import (
	"github.com/aukilabs/kenaz/geometry"
)

type SpatialDebugInfo struct {
	MaxDepth    uint32
	OctantCount uint32
	PlaneCount  uint32
	MergeCount  uint32
	MinPoint    geometry.Vector3
	MaxPoint    geometry.Vector3

	// Quads stored at each depth of the tree, root first.
	Occupancy []uint32
}

type SpatialPartition interface {
	InsertQuad(q Quad)
	IntersectQuad(s Segment) (*Quad, float32)
	GetRegion(min geometry.Vector3, max geometry.Vector3) []*Quad

	// debug stuff:
	GetDebugInfo() SpatialDebugInfo
}
