package dagaz

import (
	"testing"

	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/stretchr/testify/require"
)

func TestIntersectQuad(t *testing.T) {
	quad := Quad{
		Center:  geometry.NewVector3(0, 0, 0),
		Extents: geometry.NewVector3(1, 0, 1),
		Normal:  geometry.NewVector3(0, 1, 0),
	}

	t.Run("hit", func(t *testing.T) {
		s := Segment{
			From: geometry.NewVector3(0, 10, 0),
			To:   geometry.NewVector3(0, -10, 0),
		}

		hit, tHit := IntersectQuad(s, quad)
		require.True(t, hit)
		require.Equal(t, float32(0.5), tHit)
	})

	t.Run("hit on the edge", func(t *testing.T) {
		s := Segment{
			From: geometry.NewVector3(1, 1, 1),
			To:   geometry.NewVector3(1, -1, 1),
		}

		hit, _ := IntersectQuad(s, quad)
		require.True(t, hit)
	})

	t.Run("segment too short", func(t *testing.T) {
		s := Segment{
			From: geometry.NewVector3(0, 10, 0),
			To:   geometry.NewVector3(0, 5, 0),
		}

		hit, tHit := IntersectQuad(s, quad)
		require.False(t, hit)
		require.Equal(t, float32(-1), tHit)
	})

	t.Run("parallel segment", func(t *testing.T) {
		s := Segment{
			From: geometry.NewVector3(-5, 0, 0),
			To:   geometry.NewVector3(5, 0, 0),
		}

		hit, _ := IntersectQuad(s, quad)
		require.False(t, hit)
	})

	t.Run("outside the quad", func(t *testing.T) {
		s := Segment{
			From: geometry.NewVector3(10, 1, 0),
			To:   geometry.NewVector3(0, -1, 0),
		}

		hit, _ := IntersectQuad(s, quad)
		require.False(t, hit)
	})
}

func TestCalculateNormal(t *testing.T) {
	require.Equal(t, geometry.NewVector3(0, 1, 0), calculateNormal(geometry.NewVector3(1, 0, 1)))
	require.Equal(t, geometry.NewVector3(0, 1, 0), calculateNormal(geometry.NewVector3(0.5, 0, 3)))
}

func TestDoHorizontalPlanesOverlap(t *testing.T) {
	a := Quad{Center: geometry.NewVector3(0, 0, 0), Extents: geometry.NewVector3(1, 0, 1)}

	require.True(t, doHorizontalPlanesOverlap(a, Quad{
		Center:  geometry.NewVector3(1.5, 3, 0.5),
		Extents: geometry.NewVector3(1, 0, 1),
	}))

	require.False(t, doHorizontalPlanesOverlap(a, Quad{
		Center:  geometry.NewVector3(2, 0, 0),
		Extents: geometry.NewVector3(1, 0, 1),
	}))

	require.False(t, doHorizontalPlanesOverlap(a, Quad{
		Center:  geometry.NewVector3(0, 0, -3),
		Extents: geometry.NewVector3(1, 0, 1),
	}))
}

func TestQuadFromProtobuf(t *testing.T) {
	q := NewQuadFromProtobuf(&dagazpb.Quad{
		Center:     &dagazpb.Point{X: 1, Y: 2, Z: 3},
		Extents:    &dagazpb.Point{X: 0.5, Y: 0, Z: 0.5},
		MergeCount: 4,
	})

	require.Equal(t, geometry.NewVector3(1, 2, 3), q.Center)
	require.Equal(t, geometry.NewVector3(0.5, 0, 0.5), q.Extents)
	require.Equal(t, geometry.NewVector3(0, 1, 0), q.Normal)
	require.Equal(t, uint32(4), q.MergeCount)

	require.Equal(t, geometry.NewAABB(
		geometry.NewVector3(0.5, 2, 2.5),
		geometry.NewVector3(1.5, 2, 3.5),
	), q.BoundingBox())

	p := q.ToProtobuf()
	require.Equal(t, float32(2), p.Center.Y)
	require.Equal(t, float32(0.5), p.Extents.X)
	require.Equal(t, uint32(4), p.MergeCount)

	require.Equal(t, geometry.Vector3{}, NewVector3FromProtobuf(nil))
	require.Equal(t, Segment{}, NewSegmentFromProtobuf(nil))
}

func TestQuadNode(t *testing.T) {
	n := NewQuadNode(Quad{
		Center:  geometry.NewVector3(0, 1, 0),
		Extents: geometry.NewVector3(1, 0, 1),
	})

	require.Equal(t, n.Quad.BoundingBox(), n.WorldBoundingBox())
	require.Equal(t, QuadTypeMask, n.TypeMask())
	require.Len(t, n.AttachedElements(), 1)
	require.Equal(t, n, n.AttachedElements()[0])
}
