package octree

import (
	"testing"

	"github.com/aukilabs/kenaz/geometry"
	"github.com/stretchr/testify/require"
)

// boxCamera sees the inside of an axis-aligned box. It is the simplest
// convex frustum: every plane is a face of the box with its normal pointing
// inward.
type boxCamera struct {
	position geometry.Vector3
	view     geometry.AABB
	far      float32
}

func newBoxCamera(position geometry.Vector3, view geometry.AABB) *boxCamera {
	return &boxCamera{
		position: position,
		view:     view,
		far:      view.Max[2] - position[2],
	}
}

// newForwardCamera returns a camera at position looking toward +z (or -z when
// backward is set), seeing a square tunnel from near to far.
func newForwardCamera(position geometry.Vector3, halfWidth, near, far float32, backward bool) *boxCamera {
	half := geometry.NewVector3(halfWidth, halfWidth, 0)
	min := position.Sub(half)
	max := position.Add(half)

	if backward {
		min[2] = position[2] - far
		max[2] = position[2] - near
	} else {
		min[2] = position[2] + near
		max[2] = position[2] + far
	}

	return &boxCamera{
		position: position,
		view:     geometry.NewAABB(min, max),
		far:      far,
	}
}

func (c *boxCamera) DerivedPosition() geometry.Vector3 {
	return c.position
}

func (c *boxCamera) FrustumPlanes() [6]geometry.Plane {
	min := c.view.Min
	max := c.view.Max

	return [6]geometry.Plane{
		PlaneLeft:   geometry.NewPlane(geometry.NewVector3(1, 0, 0), min),
		PlaneRight:  geometry.NewPlane(geometry.NewVector3(-1, 0, 0), max),
		PlaneBottom: geometry.NewPlane(geometry.NewVector3(0, 1, 0), min),
		PlaneTop:    geometry.NewPlane(geometry.NewVector3(0, -1, 0), max),
		PlaneNear:   geometry.NewPlane(geometry.NewVector3(0, 0, 1), min),
		PlaneFar:    geometry.NewPlane(geometry.NewVector3(0, 0, -1), max),
	}
}

func (c *boxCamera) FarClipDistance() float32 {
	return c.far
}

type recordingCollector struct {
	elements []Element
	hints    []QueueHint
}

func (c *recordingCollector) AddVisible(e Element, hint QueueHint) {
	c.elements = append(c.elements, e)
	c.hints = append(c.hints, hint)
}

func (c *recordingCollector) count(e Element) int {
	n := 0
	for _, collected := range c.elements {
		if collected == e {
			n++
		}
	}
	return n
}

func cube(center geometry.Vector3, size float32) geometry.AABB {
	return geometry.NewAABBFromCenter(center, geometry.Splat(size/2))
}

func newCubeNode(center geometry.Vector3, size float32) (*BasicNode, *BoxElement) {
	e := NewBoxElement(cube(center, size))
	return NewBasicNode(e), e
}

func moveNode(n *BasicNode, e *BoxElement, center geometry.Vector3) {
	e.Box = geometry.NewAABBFromCenter(center, e.Box.HalfSize())
	n.UpdateBounds()
}

func newTestIndex(t *testing.T) *Index {
	idx, err := NewIndex(geometry.NewAABB(geometry.Splat(-1000), geometry.Splat(1000)), 8)
	require.NoError(t, err)
	return idx
}
