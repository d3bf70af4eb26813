package octree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/geometry"
)

const (
	// DefaultMaxDepth is the subdivision depth used when none is configured.
	DefaultMaxDepth = 8

	ErrTypeInvalidBounds = "octree_invalid_bounds"
	ErrTypeInvalidDepth  = "octree_invalid_depth"
	ErrTypeInvariant     = "octree_invariant_violation"
)

// Index is a loose octree over a bounded region of the world. Nodes that do
// not fit the world bounds are kept at the root.
//
// An index is not safe for concurrent use. Mutations (Insert, Update, Remove,
// Resize, Clear) must not run concurrently with anything else; visibility
// passes and queries are read-only.
type Index struct {
	root     *Octant
	bounds   geometry.AABB
	maxDepth int
	octants  map[OctantID]*Octant
	ids      sequentialIDGenerator
}

// NewIndex creates an index covering bounds, subdivided at most maxDepth
// times.
func NewIndex(bounds geometry.AABB, maxDepth int) (*Index, error) {
	if maxDepth < 0 {
		return nil, errors.New("max depth is negative").
			WithType(ErrTypeInvalidDepth).
			WithTag("max_depth", maxDepth)
	}

	idx := &Index{maxDepth: maxDepth}
	if err := idx.Resize(bounds); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) Bounds() geometry.AABB {
	return idx.bounds
}

func (idx *Index) MaxDepth() int {
	return idx.maxDepth
}

func (idx *Index) Root() *Octant {
	return idx.root
}

// NumNodes returns the number of indexed nodes.
func (idx *Index) NumNodes() int {
	return idx.root.numNodes
}

// Octant returns the live octant with the given id.
func (idx *Index) Octant(id OctantID) (*Octant, bool) {
	o, ok := idx.octants[id]
	return o, ok
}

// Owner returns the octant holding n, or nil when n is not indexed.
func (idx *Index) Owner(n Node) *Octant {
	id := n.OctantID()
	if id == 0 {
		return nil
	}
	return idx.octants[id]
}

// Contains reports whether n is indexed.
func (idx *Index) Contains(n Node) bool {
	return idx.Owner(n) != nil
}

// Resize discards the whole tree and starts over with an empty root covering
// bounds. Previously indexed nodes have to be inserted again.
func (idx *Index) Resize(bounds geometry.AABB) error {
	if bounds.IsNull() || !geometry.Less(geometry.Splat(0), bounds.Size()) {
		return errors.New("world bounds must have a volume").
			WithType(ErrTypeInvalidBounds).
			WithTag("bounds", bounds)
	}

	discarded := 0
	if idx.root != nil {
		discarded = idx.root.numNodes
	}

	idx.bounds = bounds
	idx.reset()

	logs.WithTag("bounds", bounds).
		WithTag("max_depth", idx.maxDepth).
		WithTag("discarded_nodes", discarded).
		Debug("octree resized")
	return nil
}

// Clear discards the whole tree, keeping the current bounds. Previously
// indexed nodes have to be inserted again.
func (idx *Index) Clear() {
	discarded := idx.root.numNodes
	idx.reset()

	logs.WithTag("discarded_nodes", discarded).
		Debug("octree cleared")
}

func (idx *Index) reset() {
	idx.octants = make(map[OctantID]*Octant)
	idx.root = idx.newOctant(nil, idx.bounds, 0)
}

func (idx *Index) newOctant(parent *Octant, box geometry.AABB, depth int) *Octant {
	o := newOctant(idx.ids.New(), parent, box, depth)
	idx.octants[o.id] = o
	return o
}

// Insert places n in the deepest octant that can hold it. A node already
// indexed is moved. A node without bounds or that does not fit the world
// bounds is stored at the root.
func (idx *Index) Insert(n Node) {
	if owner := idx.Owner(n); owner != nil {
		owner.removeNode(n)
	}

	box := n.WorldBoundingBox()
	if box.IsNull() {
		idx.addUnbounded(n)
		return
	}
	if !fits(box, idx.bounds) {
		idx.addOverflow(n, box)
		return
	}
	idx.placeInto(n, box, idx.root, 0)
}

func (idx *Index) placeInto(n Node, box geometry.AABB, o *Octant, depth int) {
	if depth >= idx.maxDepth || !o.IsEligibleChild(box) || o.spansChildren(box) {
		o.addNode(n)
		return
	}

	i := o.SelectChildIndex(box)
	child := o.children[i]
	if child == nil {
		child = idx.newOctant(o, o.ChildRegion(i), depth+1)
		o.children[i] = child
	}
	idx.placeInto(n, box, child, depth+1)
}

func (idx *Index) addOverflow(n Node, box geometry.AABB) {
	idx.root.addNode(n)
	instrumentOverflow()

	logs.WithTag("box", box).
		WithTag("bounds", idx.bounds).
		Debug("node does not fit the world bounds, stored at the root")
}

func (idx *Index) addUnbounded(n Node) {
	idx.root.addNode(n)

	logs.WithTag("octant_id", idx.root.id).
		Debug("node has no bounds, stored at the root")
}

// Update re-homes n after its world bounding box changed. Nodes still
// fitting the octant holding them are left alone.
func (idx *Index) Update(n Node) {
	owner := idx.Owner(n)
	if owner == nil {
		idx.Insert(n)
		return
	}

	box := n.WorldBoundingBox()
	if box.IsNull() {
		if owner != idx.root {
			owner.removeNode(n)
			idx.addUnbounded(n)
			instrumentRehome()
		}
		return
	}

	if !fits(box, idx.bounds) {
		if owner != idx.root {
			owner.removeNode(n)
			idx.addOverflow(n, box)
			instrumentRehome()
		}
		return
	}

	if fits(box, owner.box) {
		return
	}

	owner.removeNode(n)
	idx.placeInto(n, box, idx.root, 0)
	instrumentRehome()
}

// Remove drops n from the index.
func (idx *Index) Remove(n Node) {
	if owner := idx.Owner(n); owner != nil {
		owner.removeNode(n)
		return
	}
	n.SetOctantID(0)
}

// StillFits reports whether n, which must be indexed, can stay in an octant
// covering region: the center of its box must be strictly inside region and
// the box must be smaller than region on every axis.
func (idx *Index) StillFits(n Node, region geometry.AABB) bool {
	if !idx.Contains(n) {
		return false
	}
	return fits(n.WorldBoundingBox(), region)
}

func fits(box, region geometry.AABB) bool {
	if box.IsNull() || region.IsNull() {
		return false
	}

	center := box.Center()
	if !geometry.Less(region.Min, center) || !geometry.Less(center, region.Max) {
		return false
	}
	return geometry.Less(box.Size(), region.Size())
}
