package octree

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/stretchr/testify/require"
)

func TestNewIndex(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		idx := newTestIndex(t)
		require.Equal(t, 8, idx.MaxDepth())
		require.Equal(t, geometry.NewAABB(geometry.Splat(-1000), geometry.Splat(1000)), idx.Bounds())
		require.Equal(t, idx.Bounds(), idx.Root().Region())
		require.Zero(t, idx.NumNodes())
		require.NoError(t, idx.Validate())
	})

	t.Run("negative depth", func(t *testing.T) {
		idx, err := NewIndex(geometry.NewAABB(geometry.Splat(-1), geometry.Splat(1)), -1)
		require.Nil(t, idx)
		require.True(t, errors.IsType(err, ErrTypeInvalidDepth))
	})

	t.Run("null bounds", func(t *testing.T) {
		_, err := NewIndex(geometry.NullAABB(), DefaultMaxDepth)
		require.True(t, errors.IsType(err, ErrTypeInvalidBounds))
	})

	t.Run("flat bounds", func(t *testing.T) {
		_, err := NewIndex(geometry.NewAABB(geometry.Splat(-1), geometry.NewVector3(1, 1, -1)), DefaultMaxDepth)
		require.True(t, errors.IsType(err, ErrTypeInvalidBounds))
	})

	t.Run("zero depth keeps everything at the root", func(t *testing.T) {
		idx, err := NewIndex(geometry.NewAABB(geometry.Splat(-1000), geometry.Splat(1000)), 0)
		require.NoError(t, err)

		n, _ := newCubeNode(geometry.Splat(100.5), 1)
		idx.Insert(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
	})
}

func TestIndexInsert(t *testing.T) {
	t.Run("node straddling the root center stays at the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(0), 1)

		idx.Insert(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.Equal(t, 1, idx.NumNodes())
		require.NoError(t, idx.Validate())
	})

	t.Run("small node descends to max depth", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(100.5), 1)

		idx.Insert(n)
		owner := idx.Owner(n)
		require.NotNil(t, owner)
		require.Equal(t, 8, owner.Depth())
		require.True(t, owner.Region().ContainsBox(n.WorldBoundingBox()))

		for o := owner; o != nil; o = o.Parent() {
			require.Equal(t, 1, o.NumNodes())
		}
		require.Len(t, idx.octants, 9)
		require.NoError(t, idx.Validate())
	})

	t.Run("node too big for any child stays at the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(10), 1500)

		idx.Insert(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
	})

	t.Run("node stops above a dividing plane", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.NewVector3(500, 200, 200), 1)

		idx.Insert(n)
		owner := idx.Owner(n)
		require.Equal(t, 1, owner.Depth())
		require.Equal(t, 7, idx.Root().SelectChildIndex(n.WorldBoundingBox()))
		require.Equal(t, idx.Root().Child(7), owner)
	})

	t.Run("node outside the world overflows to the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.NewVector3(5000, 0, 0), 1)

		idx.Insert(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.Equal(t, 1, idx.DebugInfo().OverflowCount)
	})

	t.Run("node without bounds is stored at the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n := NewBasicNode()
		require.True(t, n.WorldBoundingBox().IsNull())

		idx.Insert(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.True(t, idx.Contains(n))
		require.Zero(t, idx.DebugInfo().OverflowCount)
		require.NoError(t, idx.Validate())
	})

	t.Run("inserting twice keeps a single owner", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(100.5), 1)

		idx.Insert(n)
		idx.Insert(n)
		require.Equal(t, 1, idx.NumNodes())
		require.NoError(t, idx.Validate())
	})

	t.Run("children are created lazily", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(-100.5), 1)

		idx.Insert(n)
		require.NotNil(t, idx.Root().Child(0))
		for i := 1; i < 8; i++ {
			require.Nil(t, idx.Root().Child(i))
		}
	})
}

func TestIndexUpdate(t *testing.T) {
	t.Run("update without movement is a no-op", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(100.5), 1)
		idx.Insert(n)
		owner := idx.Owner(n)

		idx.Update(n)
		idx.Update(n)
		require.Equal(t, owner, idx.Owner(n))
		require.Equal(t, 1, idx.NumNodes())
		require.Len(t, owner.Nodes(), 1)
		require.NoError(t, idx.Validate())
	})

	t.Run("small move keeps the owner", func(t *testing.T) {
		idx := newTestIndex(t)
		n, e := newCubeNode(geometry.Splat(100.5), 1)
		idx.Insert(n)
		owner := idx.Owner(n)

		moveNode(n, e, geometry.Splat(100.6))
		require.True(t, idx.StillFits(n, owner.Region()))

		idx.Update(n)
		require.Equal(t, owner, idx.Owner(n))
	})

	t.Run("large move re-homes the node", func(t *testing.T) {
		idx := newTestIndex(t)
		n, e := newCubeNode(geometry.Splat(100.5), 1)
		idx.Insert(n)
		previous := idx.Owner(n)

		moveNode(n, e, geometry.Splat(-300.5))
		require.False(t, idx.StillFits(n, previous.Region()))

		idx.Update(n)
		owner := idx.Owner(n)
		require.NotEqual(t, previous, owner)
		require.True(t, owner.Region().Contains(n.WorldBoundingBox().Center()))
		require.Zero(t, previous.NumNodes())
		require.Zero(t, idx.Root().Child(7).NumNodes())
		require.Equal(t, 1, idx.Root().Child(0).NumNodes())
		require.Equal(t, 1, idx.NumNodes())
		require.NoError(t, idx.Validate())
	})

	t.Run("leaving the world moves the node to the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, e := newCubeNode(geometry.Splat(100.5), 1)
		idx.Insert(n)

		moveNode(n, e, geometry.NewVector3(0, 0, 3000))
		idx.Update(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.Len(t, idx.Root().Nodes(), 1)
		require.NoError(t, idx.Validate())

		moveNode(n, e, geometry.NewVector3(0, 0, 4000))
		idx.Update(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.Len(t, idx.Root().Nodes(), 1)
	})

	t.Run("updating a node that is not indexed inserts it", func(t *testing.T) {
		idx := newTestIndex(t)
		n, _ := newCubeNode(geometry.Splat(100.5), 1)

		idx.Update(n)
		require.True(t, idx.Contains(n))
		require.Equal(t, 8, idx.Owner(n).Depth())
	})

	t.Run("node losing its bounds moves to the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, e := newCubeNode(geometry.Splat(600), 1)
		idx.Insert(n)
		require.NotEqual(t, idx.Root(), idx.Owner(n))

		require.True(t, n.Detach(e))
		idx.Update(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.Equal(t, 1, idx.NumNodes())
		require.Zero(t, idx.DebugInfo().OverflowCount)
		require.NoError(t, idx.Validate())

		// Staying without bounds is a no-op.
		idx.Update(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
	})

	t.Run("element box turning null moves the node to the root", func(t *testing.T) {
		idx := newTestIndex(t)
		n, e := newCubeNode(geometry.Splat(600), 1)
		idx.Insert(n)

		e.Box = geometry.NullAABB()
		n.UpdateBounds()
		idx.Update(n)
		require.Equal(t, idx.Root(), idx.Owner(n))
		require.NoError(t, idx.Validate())
	})
}

func TestIndexRemove(t *testing.T) {
	idx := newTestIndex(t)
	n, _ := newCubeNode(geometry.Splat(100.5), 1)
	idx.Insert(n)

	idx.Remove(n)
	require.False(t, idx.Contains(n))
	require.Zero(t, n.OctantID())
	require.Zero(t, idx.NumNodes())
	require.NoError(t, idx.Validate())

	idx.Remove(n)
	require.Zero(t, idx.NumNodes())
}

func TestIndexResize(t *testing.T) {
	idx := newTestIndex(t)
	n, _ := newCubeNode(geometry.Splat(100.5), 1)
	idx.Insert(n)
	staleID := n.OctantID()

	err := idx.Resize(geometry.NewAABB(geometry.Splat(-10), geometry.Splat(10)))
	require.NoError(t, err)
	require.Zero(t, idx.NumNodes())
	require.Equal(t, staleID, n.OctantID())
	require.False(t, idx.Contains(n))
	require.Nil(t, idx.Owner(n))

	_, ok := idx.Octant(staleID)
	require.False(t, ok)

	idx.Update(n)
	require.True(t, idx.Contains(n))
	require.Equal(t, idx.Root(), idx.Owner(n))
	require.Equal(t, 1, idx.DebugInfo().OverflowCount)
	require.NoError(t, idx.Validate())

	err = idx.Resize(geometry.NullAABB())
	require.Error(t, err)
	require.Equal(t, geometry.NewAABB(geometry.Splat(-10), geometry.Splat(10)), idx.Bounds())
	require.True(t, idx.Contains(n))
}

func TestIndexClear(t *testing.T) {
	idx := newTestIndex(t)
	bounds := idx.Bounds()

	n, _ := newCubeNode(geometry.Splat(100.5), 1)
	idx.Insert(n)

	idx.Clear()
	require.Equal(t, bounds, idx.Bounds())
	require.Zero(t, idx.NumNodes())
	require.False(t, idx.Contains(n))
	require.Len(t, idx.octants, 1)

	idx.Remove(n)
	require.Zero(t, n.OctantID())

	idx.Insert(n)
	require.Equal(t, 1, idx.NumNodes())
	require.NoError(t, idx.Validate())
}

func TestIndexRandomMutations(t *testing.T) {
	idx := newTestIndex(t)
	rng := rand.New(rand.NewSource(42))

	randomCenter := func() geometry.Vector3 {
		return geometry.NewVector3(
			rng.Float32()*2400-1200,
			rng.Float32()*2400-1200,
			rng.Float32()*2400-1200,
		)
	}

	type entry struct {
		node    *BasicNode
		element *BoxElement
		indexed bool
	}

	entries := make([]*entry, 300)
	for i := range entries {
		n, e := newCubeNode(randomCenter(), 0.5+rng.Float32()*50)
		idx.Insert(n)
		entries[i] = &entry{node: n, element: e, indexed: true}
	}
	require.Equal(t, len(entries), idx.NumNodes())
	require.NoError(t, idx.Validate())

	for i := 0; i < 2000; i++ {
		en := entries[rng.Intn(len(entries))]

		switch rng.Intn(4) {
		case 0:
			idx.Remove(en.node)
			en.indexed = false

		case 1:
			idx.Insert(en.node)
			en.indexed = true

		default:
			moveNode(en.node, en.element, randomCenter())
			idx.Update(en.node)
			en.indexed = true
		}

		if i%100 == 0 {
			require.NoError(t, idx.Validate())
		}
	}

	indexed := 0
	for _, en := range entries {
		require.Equal(t, en.indexed, idx.Contains(en.node))
		if en.indexed {
			indexed++
		}
	}
	require.Equal(t, indexed, idx.NumNodes())
	require.NoError(t, idx.Validate())
}

func TestIndexStillFits(t *testing.T) {
	idx := newTestIndex(t)
	n, _ := newCubeNode(geometry.Splat(100.5), 1)
	require.False(t, idx.StillFits(n, idx.Bounds()))

	idx.Insert(n)
	require.True(t, idx.StillFits(n, idx.Bounds()))
	require.True(t, idx.StillFits(n, geometry.NewAABB(geometry.Splat(100), geometry.Splat(102))))
	require.False(t, idx.StillFits(n, geometry.NewAABB(geometry.Splat(100), geometry.Splat(101))))
	require.False(t, idx.StillFits(n, geometry.NewAABB(geometry.Splat(100.5), geometry.Splat(102))))
}

func TestIndexLogs(t *testing.T) {
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLevel(logs.ParseLevel("debug"))
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})
	defer logs.SetLevel(logs.InfoLevel)

	idx := newTestIndex(t)
	n, _ := newCubeNode(geometry.NewVector3(5000, 0, 0), 1)
	idx.Insert(n)
	idx.Insert(NewBasicNode())
	idx.Clear()

	out := b.String()
	require.Contains(t, out, "octree resized")
	require.Contains(t, out, "node does not fit the world bounds")
	require.Contains(t, out, "node has no bounds")
	require.Contains(t, out, "octree cleared")
	t.Log(out)
}
