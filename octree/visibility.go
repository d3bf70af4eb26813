package octree

import (
	"time"
)

// VisibilityStats describes the work done by a visibility pass.
type VisibilityStats struct {
	OctantsVisited int `json:"octants_visited"`
	OctantsCulled  int `json:"octants_culled"`
	NodesTested    int `json:"nodes_tested"`
	NodesSubmitted int `json:"nodes_submitted"`
}

// FindVisibleObjects submits every indexed node whose box is inside the
// frustum of cam to collector, nearer octants first. bounds may be nil.
func (idx *Index) FindVisibleObjects(cam Camera, collector RenderCollector, bounds BoundsAccumulator, shadowCastersOnly bool) VisibilityStats {
	start := time.Now()

	w := visibilityWalk{
		cam:               cam,
		collector:         collector,
		bounds:            bounds,
		shadowCastersOnly: shadowCastersOnly,
		snapshot:          NewFrustumSnapshot(cam),
		root:              idx.root,
	}
	w.walk(idx.root, false)

	instrumentVisibilityPass(start, w.stats)
	return w.stats
}

type visibilityWalk struct {
	cam               Camera
	collector         RenderCollector
	bounds            BoundsAccumulator
	shadowCastersOnly bool
	snapshot          FrustumSnapshot
	root              *Octant
	stats             VisibilityStats
}

func (w *visibilityWalk) walk(o *Octant, inheritedFull bool) {
	if o.numNodes == 0 {
		return
	}
	w.stats.OctantsVisited++

	var v Visibility
	switch {
	case inheritedFull:
		v = VisibilityFull
	case o == w.root:
		v = VisibilityPartial
	default:
		v = w.snapshot.Classify(o.CullBounds())
	}

	if v == VisibilityNone {
		w.stats.OctantsCulled++
		return
	}

	for _, n := range o.nodes {
		if v == VisibilityPartial {
			w.stats.NodesTested++
			if !w.snapshot.IsVisible(n.WorldBoundingBox()) {
				continue
			}
		}

		n.SubmitToCollector(w.cam, w.collector, w.bounds, w.shadowCastersOnly)
		w.stats.NodesSubmitted++
	}

	center := o.box.Center()
	pos := w.snapshot.position
	order := childOrder([3]bool{
		pos[0] > center[0],
		pos[1] > center[1],
		pos[2] > center[2],
	})

	full := v == VisibilityFull
	for _, i := range order {
		if child := o.children[i]; child != nil {
			w.walk(child, full)
		}
	}
}

// childOrder returns the eight child indexes with x as the outermost axis.
// On every axis flagged in upperFirst the upper half comes before the lower
// one.
func childOrder(upperFirst [3]bool) [8]int {
	var order [8]int
	k := 0
	for _, x := range halves(upperFirst[0]) {
		for _, y := range halves(upperFirst[1]) {
			for _, z := range halves(upperFirst[2]) {
				order[k] = x | y<<1 | z<<2
				k++
			}
		}
	}
	return order
}

func halves(upperFirst bool) [2]int {
	if upperFirst {
		return [2]int{1, 0}
	}
	return [2]int{0, 1}
}
