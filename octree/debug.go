package octree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/geometry"
)

// DebugInfo summarizes the shape of an index.
type DebugInfo struct {
	Bounds       geometry.AABB `json:"bounds"`
	MaxDepth     int           `json:"max_depth"`
	OctantCount  int           `json:"octant_count"`
	NodeCount    int           `json:"node_count"`
	DeepestLevel int           `json:"deepest_level"`

	// Nodes stored directly at each depth, root first.
	Occupancy []int `json:"occupancy"`

	// Nodes stored at the root because they do not fit the world bounds.
	OverflowCount int `json:"overflow_count"`
}

func (idx *Index) DebugInfo() DebugInfo {
	info := DebugInfo{
		Bounds:      idx.bounds,
		MaxDepth:    idx.maxDepth,
		OctantCount: len(idx.octants),
		NodeCount:   idx.root.numNodes,
		Occupancy:   make([]int, idx.maxDepth+1),
	}

	for _, n := range idx.root.nodes {
		if box := n.WorldBoundingBox(); !box.IsNull() && !fits(box, idx.bounds) {
			info.OverflowCount++
		}
	}

	var visit func(o *Octant)
	visit = func(o *Octant) {
		if len(o.nodes) != 0 {
			info.Occupancy[o.depth] += len(o.nodes)
			if o.depth > info.DeepestLevel {
				info.DeepestLevel = o.depth
			}
		}
		for _, child := range o.children {
			if child != nil {
				visit(child)
			}
		}
	}
	visit(idx.root)

	return info
}

// Validate checks that every octant count matches the nodes reachable from
// it, that every stored node points back to the octant holding it, that no
// node is stored twice, that nodes without bounds live at the root and that
// the id lookup matches the tree.
func (idx *Index) Validate() error {
	seen := make(map[Node]OctantID)
	reached := 0

	var check func(o *Octant) (int, error)
	check = func(o *Octant) (int, error) {
		reached++
		if lookup, ok := idx.octants[o.id]; !ok || lookup != o {
			return 0, errors.New("octant is missing from the id lookup").
				WithType(ErrTypeInvariant).
				WithTag("octant_id", o.id)
		}

		count := len(o.nodes)
		for _, n := range o.nodes {
			if n.OctantID() != o.id {
				return 0, errors.New("node does not point back to its octant").
					WithType(ErrTypeInvariant).
					WithTag("octant_id", o.id).
					WithTag("node_octant_id", n.OctantID())
			}
			if o != idx.root && n.WorldBoundingBox().IsNull() {
				return 0, errors.New("node without bounds is stored below the root").
					WithType(ErrTypeInvariant).
					WithTag("octant_id", o.id)
			}
			if other, ok := seen[n]; ok {
				return 0, errors.New("node is stored in more than one octant").
					WithType(ErrTypeInvariant).
					WithTag("octant_id", o.id).
					WithTag("other_octant_id", other)
			}
			seen[n] = o.id
		}

		for _, child := range o.children {
			if child == nil {
				continue
			}
			if child.parent != o {
				return 0, errors.New("child does not point back to its parent").
					WithType(ErrTypeInvariant).
					WithTag("octant_id", child.id)
			}

			n, err := check(child)
			if err != nil {
				return 0, err
			}
			count += n
		}

		if count != o.numNodes {
			return 0, errors.New("octant node count mismatch").
				WithType(ErrTypeInvariant).
				WithTag("octant_id", o.id).
				WithTag("num_nodes", o.numNodes).
				WithTag("reachable_nodes", count)
		}
		return count, nil
	}

	if _, err := check(idx.root); err != nil {
		return err
	}

	if reached != len(idx.octants) {
		return errors.New("id lookup holds unreachable octants").
			WithType(ErrTypeInvariant).
			WithTag("reachable_octants", reached).
			WithTag("lookup_octants", len(idx.octants))
	}
	return nil
}
