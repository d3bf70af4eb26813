package octree

import (
	"github.com/aukilabs/kenaz/geometry"
)

// OctantID identifies an octant of an index. Zero means no octant.
type OctantID uint32

// sequentialIDGenerator hands out octant ids. It never hands out the same id
// twice, so an id kept by a node across a Resize or Clear cannot resolve to
// an octant of the new tree.
type sequentialIDGenerator struct {
	currentID uint32
}

func (g *sequentialIDGenerator) New() OctantID {
	g.currentID++
	return OctantID(g.currentID)
}

// Octant is a cuboid region of the index holding nodes and up to eight
// children. Child i covers the lower (bit unset) or upper (bit set) half of
// the region along x (bit 0), y (bit 1) and z (bit 2).
type Octant struct {
	id       OctantID
	parent   *Octant
	depth    int
	box      geometry.AABB
	halfSize geometry.Vector3
	children [8]*Octant
	nodes    []Node

	// Nodes held by this octant and all its descendants.
	numNodes int
}

func newOctant(id OctantID, parent *Octant, box geometry.AABB, depth int) *Octant {
	return &Octant{
		id:       id,
		parent:   parent,
		depth:    depth,
		box:      box,
		halfSize: box.HalfSize(),
	}
}

func (o *Octant) ID() OctantID {
	return o.id
}

// Parent returns the parent octant, or nil for the root.
func (o *Octant) Parent() *Octant {
	return o.parent
}

func (o *Octant) Depth() int {
	return o.depth
}

// Region returns the box covered by the octant.
func (o *Octant) Region() geometry.AABB {
	return o.box
}

func (o *Octant) HalfSize() geometry.Vector3 {
	return o.halfSize
}

// Child returns the child at index i, or nil when it was never created.
func (o *Octant) Child(i int) *Octant {
	return o.children[i]
}

// Nodes returns the nodes stored directly in the octant. The slice must not
// be modified.
func (o *Octant) Nodes() []Node {
	return o.nodes
}

// NumNodes returns the number of nodes stored in the octant and all its
// descendants.
func (o *Octant) NumNodes() int {
	return o.numNodes
}

// IsEligibleChild reports whether box is small enough to be handed to a
// child: the box must not be larger than half the octant on any axis.
func (o *Octant) IsEligibleChild(box geometry.AABB) bool {
	if box.IsNull() {
		return false
	}
	return geometry.LessOrEqual(box.Size(), o.halfSize)
}

// SelectChildIndex returns the index of the child on the side of the
// octant center where the center of box lies.
func (o *Octant) SelectChildIndex(box geometry.AABB) int {
	center := o.box.Center()
	boxCenter := box.Center()

	var i int
	for axis := 0; axis < 3; axis++ {
		if boxCenter[axis] > center[axis] {
			i |= 1 << axis
		}
	}
	return i
}

// ChildRegion returns the region the child at index i covers.
func (o *Octant) ChildRegion(i int) geometry.AABB {
	center := o.box.Center()
	min := o.box.Min
	max := o.box.Max

	for axis := 0; axis < 3; axis++ {
		if i&(1<<axis) == 0 {
			max[axis] = center[axis]
		} else {
			min[axis] = center[axis]
		}
	}

	return geometry.NewAABB(min, max)
}

// CullBounds returns the region grown by its half size on every side. Nodes
// may hang over the region they are stored in by up to that much, so this is
// the box to test when culling the octant as a whole.
func (o *Octant) CullBounds() geometry.AABB {
	return o.box.Expand(o.halfSize)
}

// spansChildren reports whether box crosses one of the planes splitting the
// octant into children.
func (o *Octant) spansChildren(box geometry.AABB) bool {
	center := o.box.Center()
	for axis := 0; axis < 3; axis++ {
		c := center[axis]
		if box.Min[axis] < c && box.Max[axis] > c {
			return true
		}
	}
	return false
}

// addNode stores n in the octant and points n back to it.
func (o *Octant) addNode(n Node) {
	o.nodes = append(o.nodes, n)
	n.SetOctantID(o.id)
	o.ref()
}

// removeNode drops n from the octant and clears its back-reference. It
// reports whether n was stored in the octant.
func (o *Octant) removeNode(n Node) bool {
	for i, stored := range o.nodes {
		if stored != n {
			continue
		}

		last := len(o.nodes) - 1
		o.nodes[i] = o.nodes[last]
		o.nodes[last] = nil
		o.nodes = o.nodes[:last]

		n.SetOctantID(0)
		o.unref()
		return true
	}
	return false
}

func (o *Octant) ref() {
	for oct := o; oct != nil; oct = oct.parent {
		oct.numNodes++
	}
}

func (o *Octant) unref() {
	for oct := o; oct != nil; oct = oct.parent {
		oct.numNodes--
	}
}
