package dagaz

import (
	"math"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/aukilabs/kenaz/octree"
)

// Octree Spatial Partition
//
// Quads are stored as single element nodes of an octree index. The
// particularities are:
//   - a sample landing on an existing quad at about the same height is merged
//     into it instead of being stored: the existing quad moves 20% of the way
//     toward the sample and is re-homed in the tree.
//   - a merged quad that ends up over another one collapses into it, so
//     repeated samples do not leave stacked duplicates.
//   - quads outside the world bounds are kept at the root of the tree.

const MergeEpsilon = (float32)(0.6)

const mergeFactor = 0.2

type OctreePartition struct {
	mutex      sync.RWMutex
	index      *octree.Index
	planeCount uint32
	mergeCount uint32
}

// NewOctreePartition creates a partition whose octree covers bounds.
func NewOctreePartition(bounds geometry.AABB, maxDepth int) (*OctreePartition, error) {
	index, err := octree.NewIndex(bounds, maxDepth)
	if err != nil {
		return nil, err
	}

	return &OctreePartition{index: index}, nil
}

func (p *OctreePartition) InsertQuad(q Quad) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	sample := q
	var merged *QuadNode

	for {
		hit := p.findMergeCandidate(sample, merged)
		if hit == nil {
			break
		}

		mergeQuads(&hit.Quad, sample)
		p.index.Update(hit)
		p.mergeCount++

		if merged != nil {
			p.index.Remove(merged)
			p.planeCount--
		}

		merged = hit
		sample = hit.Quad
	}

	if merged != nil {
		return
	}

	p.index.Insert(NewQuadNode(q))
	p.planeCount++
}

// findMergeCandidate returns the quad closest in height to q that overlaps it
// horizontally within MergeEpsilon vertically.
func (p *OctreePartition) findMergeCandidate(q Quad, exclude *QuadNode) *QuadNode {
	searchBox := q.BoundingBox().Expand(geometry.NewVector3(0, MergeEpsilon, 0))

	var closest *QuadNode
	closestDistance := float32(math.MaxFloat32)

	for _, n := range p.index.FindNodes(searchBox) {
		candidate, ok := n.(*QuadNode)
		if !ok || candidate == exclude {
			continue
		}

		if !geometry.EqualWithEpsilon(candidate.Quad.Center.Y(), q.Center.Y(), (float64)(MergeEpsilon)) ||
			!doHorizontalPlanesOverlap(candidate.Quad, q) {
			continue
		}

		distance := float32(math.Abs((float64)(candidate.Quad.Center.Y() - q.Center.Y())))
		if distance < closestDistance {
			closest = candidate
			closestDistance = distance
		}
	}

	return closest
}

func mergeQuads(existingQuad *Quad, newQuad Quad) {
	centerDiff := newQuad.Center.Sub(existingQuad.Center)
	extentsDiff := newQuad.Extents.Sub(existingQuad.Extents)

	existingQuad.Center = existingQuad.Center.Add(centerDiff.Mul(mergeFactor))
	existingQuad.Extents = existingQuad.Extents.Add(extentsDiff.Mul(mergeFactor))
	existingQuad.Normal = calculateNormal(existingQuad.Extents)
	existingQuad.MergeCount++
}

// IntersectQuad returns the quad s crosses first, along with the hit
// parameter. It returns nil and -1 when nothing is hit.
//
// Candidates come from a volume query over the box of the segment. A ray
// query skips octants the ray misses, which loses merged quads hanging over
// the octant holding them.
func (p *OctreePartition) IntersectQuad(s Segment) (*Quad, float32) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	var closest *Quad
	closestT := float32(-1)

	opts := octree.DefaultQueryOptions()
	opts.TypeMask = QuadTypeMask

	p.index.VolumeQuery(s.BoundingBox(), opts, octree.VolumeListenerFunc(func(e octree.Element) {
		n, ok := e.(*QuadNode)
		if !ok {
			return
		}

		if hit, t := IntersectQuad(s, n.Quad); hit && (closest == nil || t < closestT) {
			closest = &n.Quad
			closestT = t
		}
	}))

	return closest, closestT
}

// GetRegion returns the quads overlapping the box between min and max.
func (p *OctreePartition) GetRegion(min geometry.Vector3, max geometry.Vector3) []*Quad {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	opts := octree.DefaultQueryOptions()
	opts.TypeMask = QuadTypeMask

	var quads []*Quad
	region := geometry.NewAABB(geometry.Min(min, max), geometry.Max(min, max))
	p.index.VolumeQuery(region, opts, octree.VolumeListenerFunc(func(e octree.Element) {
		if n, ok := e.(*QuadNode); ok {
			quads = append(quads, &n.Quad)
		}
	}))

	return quads
}

func (p *OctreePartition) GetDebugInfo() SpatialDebugInfo {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	info := p.index.DebugInfo()

	occupancy := make([]uint32, len(info.Occupancy))
	for i, count := range info.Occupancy {
		occupancy[i] = (uint32)(count)
	}

	return SpatialDebugInfo{
		MaxDepth:    (uint32)(info.MaxDepth),
		OctantCount: (uint32)(info.OctantCount),
		PlaneCount:  p.planeCount,
		MergeCount:  p.mergeCount,
		MinPoint:    info.Bounds.Min,
		MaxPoint:    info.Bounds.Max,
		Occupancy:   occupancy,
	}
}

// Validate checks the consistency of the underlying octree.
func (p *OctreePartition) Validate() error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if err := p.index.Validate(); err != nil {
		logs.WithTag("plane_count", p.planeCount).
			WithTag("merge_count", p.mergeCount).
			Warn(err)
		return err
	}
	return nil
}
