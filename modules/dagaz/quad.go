package dagaz

import (
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/aukilabs/kenaz/octree"
)

const (
	// QuadTypeMask is the octree type flag of quad elements.
	QuadTypeMask = uint32(1 << 0)

	hitEpsilon = 0.0001
)

func inRangeWithEpsilon(value float32, min float32, max float32, epsilon float32) bool {
	return value+epsilon >= min && value-epsilon <= max
}

func NewVector3FromProtobuf(point *dagazpb.Point) geometry.Vector3 {
	if point == nil {
		return geometry.Vector3{}
	}
	return geometry.NewVector3(point.X, point.Y, point.Z)
}

func vector3ToProtobuf(v geometry.Vector3) *dagazpb.Point {
	return &dagazpb.Point{
		X: v.X(),
		Y: v.Y(),
		Z: v.Z(),
	}
}

// Quad is a horizontal surface sample.
type Quad struct {
	Center  geometry.Vector3
	Extents geometry.Vector3 // Half-Extents!

	// implicit
	Normal geometry.Vector3

	MergeCount uint32
}

func NewQuadFromProtobuf(protoQuad *dagazpb.Quad) Quad {
	center := NewVector3FromProtobuf(protoQuad.Center)
	extents := NewVector3FromProtobuf(protoQuad.Extents)

	return Quad{
		Center:     center,
		Extents:    extents,
		Normal:     calculateNormal(extents),
		MergeCount: protoQuad.MergeCount,
	}
}

func (q *Quad) ToProtobuf() *dagazpb.Quad {
	return &dagazpb.Quad{
		Center:     vector3ToProtobuf(q.Center),
		Extents:    vector3ToProtobuf(q.Extents),
		MergeCount: q.MergeCount,
	}
}

// BoundingBox returns the box spanned by the quad. Horizontal quads give a
// box with no height.
func (q *Quad) BoundingBox() geometry.AABB {
	return geometry.NewAABB(q.Center.Sub(q.Extents), q.Center.Add(q.Extents))
}

func doHorizontalPlanesOverlap(a Quad, b Quad) bool {
	minA := a.Center.Sub(a.Extents)
	maxA := a.Center.Add(a.Extents)
	minB := b.Center.Sub(b.Extents)
	maxB := b.Center.Add(b.Extents)

	if minA.X() >= maxB.X() || maxA.X() <= minB.X() {
		return false
	}
	if minA.Z() >= maxB.Z() || maxA.Z() <= minB.Z() {
		return false
	}

	// overlap on both axes -> must overlap
	return true
}

// calculateNormal returns the normal of the quad spanned by the half extents
// e. Horizontal quads face up.
func calculateNormal(e geometry.Vector3) geometry.Vector3 {
	vectorA := geometry.NewVector3(e.X(), e.Y(), 0)
	vectorB := geometry.NewVector3(0, e.Y(), e.Z())
	return geometry.Normalize(vectorB.Cross(vectorA))
}

// Segment is a ray cast limited to the points between From and To.
type Segment struct {
	From geometry.Vector3
	To   geometry.Vector3
}

func NewSegmentFromProtobuf(protoRay *dagazpb.Ray) Segment {
	if protoRay == nil {
		return Segment{}
	}

	return Segment{
		From: NewVector3FromProtobuf(protoRay.From),
		To:   NewVector3FromProtobuf(protoRay.To),
	}
}

// BoundingBox returns the box spanned by the segment end points.
func (s Segment) BoundingBox() geometry.AABB {
	return geometry.NewAABB(geometry.Min(s.From, s.To), geometry.Max(s.From, s.To))
}

// Ray returns the octree ray going through the segment. A hit parameter of
// 1 is the To point.
func (s Segment) Ray() geometry.Ray {
	return geometry.NewRay(s.From, s.To.Sub(s.From))
}

// IntersectQuad returns whether s crosses q and where, as a parameter between
// 0 (From) and 1 (To).
func IntersectQuad(s Segment, q Quad) (bool, float32) {
	rayDir := s.To.Sub(s.From)

	denominator := q.Normal.Dot(rayDir)
	if denominator != 0 {
		t := (q.Normal.Dot(q.Center) - q.Normal.Dot(s.From)) / denominator
		if t >= 0 && t <= 1 {
			hitPoint := s.From.Add(rayDir.Mul(t))

			// check hitPoint is in bounds:
			minPoint := q.Center.Sub(q.Extents)
			maxPoint := q.Center.Add(q.Extents)
			if inRangeWithEpsilon(hitPoint.X(), minPoint.X(), maxPoint.X(), hitEpsilon) &&
				inRangeWithEpsilon(hitPoint.Y(), minPoint.Y(), maxPoint.Y(), hitEpsilon) &&
				inRangeWithEpsilon(hitPoint.Z(), minPoint.Z(), maxPoint.Z(), hitEpsilon) {
				return true, t
			}
		}
	}
	return false, -1
}

// QuadNode stores a quad in an octree index. It is its own single element.
type QuadNode struct {
	octree.Membership

	Quad Quad
}

func NewQuadNode(q Quad) *QuadNode {
	return &QuadNode{Quad: q}
}

func (n *QuadNode) WorldBoundingBox() geometry.AABB {
	return n.Quad.BoundingBox()
}

func (n *QuadNode) TypeMask() uint32 {
	return QuadTypeMask
}

func (n *QuadNode) QueryMask() uint32 {
	return octree.AllMasks
}

func (n *QuadNode) AttachedElements() []octree.Element {
	return []octree.Element{n}
}

func (n *QuadNode) SubmitToCollector(cam octree.Camera, collector octree.RenderCollector, bounds octree.BoundsAccumulator, shadowCastersOnly bool) {
	octree.SubmitElements(n, cam, collector, bounds, shadowCastersOnly)
}
