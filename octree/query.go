package octree

import (
	"github.com/aukilabs/kenaz/geometry"
)

// AllMasks matches every type and query flag.
const AllMasks = ^uint32(0)

const (
	rayQuery    = "ray"
	volumeQuery = "volume"
	sphereQuery = "sphere"
)

// QueryOptions filter the elements a query reports. An element is reported
// only when it shares at least one bit with QueryMask and one with TypeMask.
type QueryOptions struct {
	QueryMask uint32
	TypeMask  uint32

	// Called for every element a query looks at, before filtering.
	OnElement func(Element)
}

// DefaultQueryOptions returns options matching every element.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		QueryMask: AllMasks,
		TypeMask:  AllMasks,
	}
}

func (opts QueryOptions) accepts(e Element) bool {
	if opts.OnElement != nil {
		opts.OnElement(e)
	}
	return e.QueryMask()&opts.QueryMask != 0 && e.TypeMask()&opts.TypeMask != 0
}

// RayListener receives ray query hits. Returning false stops the query.
type RayListener interface {
	Report(e Element, t float32) bool
}

// RayListenerFunc is a function that satisfies RayListener.
type RayListenerFunc func(e Element, t float32) bool

func (f RayListenerFunc) Report(e Element, t float32) bool {
	return f(e, t)
}

// VolumeListener receives volume query hits.
type VolumeListener interface {
	Report(e Element)
}

// VolumeListenerFunc is a function that satisfies VolumeListener.
type VolumeListenerFunc func(e Element)

func (f VolumeListenerFunc) Report(e Element) {
	f(e)
}

// RayQuery reports every element whose box is hit by ray, along with the hit
// parameter. On each axis the half of an octant the ray travels toward is
// visited first. It returns false when the listener stopped the query.
//
// The root is always visited since it holds the nodes lying outside the
// world bounds.
func (idx *Index) RayQuery(ray geometry.Ray, opts QueryOptions, l RayListener) bool {
	instrumentQuery(rayQuery)

	order := childOrder([3]bool{
		ray.Direction[0] > 0,
		ray.Direction[1] > 0,
		ray.Direction[2] > 0,
	})
	return idx.rayQuery(idx.root, ray, &order, opts, l)
}

func (idx *Index) rayQuery(o *Octant, ray geometry.Ray, order *[8]int, opts QueryOptions, l RayListener) bool {
	if o.numNodes == 0 {
		return true
	}
	if o != idx.root {
		if hit, _ := ray.IntersectsAABB(o.box); !hit {
			return true
		}
	}

	for _, n := range o.nodes {
		for _, e := range n.AttachedElements() {
			if !opts.accepts(e) {
				continue
			}

			hit, t := ray.IntersectsAABB(e.WorldBoundingBox())
			if !hit {
				continue
			}

			instrumentQueryReport(rayQuery)
			if !l.Report(e, t) {
				return false
			}
		}
	}

	for _, i := range order {
		if child := o.children[i]; child != nil {
			if !idx.rayQuery(child, ray, order, opts, l) {
				return false
			}
		}
	}
	return true
}

// VolumeQuery reports every element whose box overlaps box. It returns the
// number of reported elements.
func (idx *Index) VolumeQuery(box geometry.AABB, opts QueryOptions, l VolumeListener) int {
	instrumentQuery(volumeQuery)

	return idx.overlapQuery(idx.root, volumeQuery, box.Intersects, opts, l)
}

// SphereQuery reports every element whose box overlaps sphere. It returns
// the number of reported elements.
func (idx *Index) SphereQuery(sphere geometry.Sphere, opts QueryOptions, l VolumeListener) int {
	instrumentQuery(sphereQuery)

	return idx.overlapQuery(idx.root, sphereQuery, sphere.IntersectsAABB, opts, l)
}

// overlapQuery visits the tree in child index order, pruning octants whose
// cull bounds fail overlaps.
func (idx *Index) overlapQuery(o *Octant, queryType string, overlaps func(geometry.AABB) bool, opts QueryOptions, l VolumeListener) int {
	if o.numNodes == 0 {
		return 0
	}
	if o != idx.root && !overlaps(o.CullBounds()) {
		return 0
	}

	reported := 0
	for _, n := range o.nodes {
		for _, e := range n.AttachedElements() {
			if !opts.accepts(e) || !overlaps(e.WorldBoundingBox()) {
				continue
			}

			instrumentQueryReport(queryType)
			l.Report(e)
			reported++
		}
	}

	for _, child := range o.children {
		if child != nil {
			reported += idx.overlapQuery(child, queryType, overlaps, opts, l)
		}
	}
	return reported
}

// FindNodes returns the nodes whose world box overlaps box.
func (idx *Index) FindNodes(box geometry.AABB) []Node {
	var nodes []Node
	idx.findNodes(idx.root, box, &nodes)
	return nodes
}

func (idx *Index) findNodes(o *Octant, box geometry.AABB, nodes *[]Node) {
	if o.numNodes == 0 {
		return
	}
	if o != idx.root && !box.Intersects(o.CullBounds()) {
		return
	}

	for _, n := range o.nodes {
		if box.Intersects(n.WorldBoundingBox()) {
			*nodes = append(*nodes, n)
		}
	}

	for _, child := range o.children {
		if child != nil {
			idx.findNodes(child, box, nodes)
		}
	}
}
