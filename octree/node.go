package octree

import (
	"github.com/aukilabs/kenaz/geometry"
	"github.com/google/uuid"
)

// Element is something attached to a node that can be rendered or hit by a
// query.
type Element interface {
	WorldBoundingBox() geometry.AABB
	TypeMask() uint32
	QueryMask() uint32
}

// Renderable is implemented by elements that control how SubmitElements
// hands them to a collector. Elements without it are treated as visible
// shadow casters in the default queue.
type Renderable interface {
	Visible() bool
	CastsShadows() bool
	QueueHint() QueueHint
}

// Node is a positioned element container tracked by an Index.
//
// OctantID and SetOctantID store the id of the octant holding the node. They
// are driven by the index only; a node must not change its id by itself.
// Implementations must be comparable (pointer receivers are the usual way).
type Node interface {
	WorldBoundingBox() geometry.AABB
	OctantID() OctantID
	SetOctantID(OctantID)
	SubmitToCollector(cam Camera, collector RenderCollector, bounds BoundsAccumulator, shadowCastersOnly bool)
	AttachedElements() []Element
}

// Camera is the view a visibility pass is computed for.
type Camera interface {
	DerivedPosition() geometry.Vector3

	// Returns the six clipping planes ordered as PlaneLeft, PlaneRight,
	// PlaneBottom, PlaneTop, PlaneNear and PlaneFar. Normals point inside
	// the frustum.
	FrustumPlanes() [6]geometry.Plane

	// Returns the far clip distance. Zero means an infinite far plane.
	FarClipDistance() float32
}

// QueueHint tells a collector in which render queue an element goes.
type QueueHint uint8

// DefaultQueueHint is the queue of elements that do not pick one.
const DefaultQueueHint QueueHint = 50

// RenderCollector receives the elements a visibility pass found.
type RenderCollector interface {
	AddVisible(e Element, hint QueueHint)
}

// BoundsAccumulator receives the bounds of every submitted element.
type BoundsAccumulator interface {
	Merge(worldBox geometry.AABB, worldSphere geometry.Sphere, cam Camera)
}

// SubmitElements hands every attached element of n that is visible to the
// collector, merging its bounds into bounds when it is not nil. When
// shadowCastersOnly is set, elements that do not cast shadows are skipped.
func SubmitElements(n Node, cam Camera, collector RenderCollector, bounds BoundsAccumulator, shadowCastersOnly bool) {
	for _, e := range n.AttachedElements() {
		hint := DefaultQueueHint

		if r, ok := e.(Renderable); ok {
			if !r.Visible() || (shadowCastersOnly && !r.CastsShadows()) {
				continue
			}
			hint = r.QueueHint()
		}

		collector.AddVisible(e, hint)

		if bounds != nil {
			box := e.WorldBoundingBox()
			bounds.Merge(box, box.BoundingSphere(), cam)
		}
	}
}

// Membership stores the octant a node belongs to. Embed it to satisfy the
// OctantID and SetOctantID methods of Node.
type Membership struct {
	octantID OctantID
}

func (m *Membership) OctantID() OctantID {
	return m.octantID
}

func (m *Membership) SetOctantID(id OctantID) {
	m.octantID = id
}

// BasicNode is a Node whose world bounding box is the union of its attached
// elements. The box is cached: call UpdateBounds after moving elements, then
// Index.Update.
type BasicNode struct {
	Membership

	Name string

	elements []Element
	box      geometry.AABB
}

// NewBasicNode creates a node with a random name holding the given elements.
func NewBasicNode(elements ...Element) *BasicNode {
	n := &BasicNode{
		Name:     uuid.NewString(),
		elements: elements,
	}
	n.UpdateBounds()
	return n
}

func (n *BasicNode) WorldBoundingBox() geometry.AABB {
	return n.box
}

func (n *BasicNode) AttachedElements() []Element {
	return n.elements
}

// Attach adds e to the node and refreshes the cached bounds.
func (n *BasicNode) Attach(e Element) {
	n.elements = append(n.elements, e)
	n.UpdateBounds()
}

// Detach removes e from the node and refreshes the cached bounds. It reports
// whether e was attached.
func (n *BasicNode) Detach(e Element) bool {
	for i, attached := range n.elements {
		if attached == e {
			n.elements = append(n.elements[:i], n.elements[i+1:]...)
			n.UpdateBounds()
			return true
		}
	}
	return false
}

// UpdateBounds recomputes the cached world bounding box from the attached
// elements. A node without elements has a null box.
func (n *BasicNode) UpdateBounds() {
	box := geometry.NullAABB()
	for _, e := range n.elements {
		box = box.Merge(e.WorldBoundingBox())
	}
	n.box = box
}

func (n *BasicNode) SubmitToCollector(cam Camera, collector RenderCollector, bounds BoundsAccumulator, shadowCastersOnly bool) {
	SubmitElements(n, cam, collector, bounds, shadowCastersOnly)
}

// BoxElement is an element occupying a fixed box.
type BoxElement struct {
	Box          geometry.AABB
	Types        uint32
	Queries      uint32
	Hidden       bool
	ShadowCaster bool
	Queue        QueueHint
}

// NewBoxElement creates a visible shadow casting element that matches every
// mask.
func NewBoxElement(box geometry.AABB) *BoxElement {
	return &BoxElement{
		Box:          box,
		Types:        AllMasks,
		Queries:      AllMasks,
		ShadowCaster: true,
		Queue:        DefaultQueueHint,
	}
}

func (e *BoxElement) WorldBoundingBox() geometry.AABB { return e.Box }
func (e *BoxElement) TypeMask() uint32                { return e.Types }
func (e *BoxElement) QueryMask() uint32               { return e.Queries }
func (e *BoxElement) Visible() bool                   { return !e.Hidden }
func (e *BoxElement) CastsShadows() bool              { return e.ShadowCaster }
func (e *BoxElement) QueueHint() QueueHint            { return e.Queue }
