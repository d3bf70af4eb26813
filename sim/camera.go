package sim

import (
	"math"

	"github.com/aukilabs/kenaz/geometry"
	"github.com/aukilabs/kenaz/octree"
	"github.com/go-gl/mathgl/mgl32"
)

const infiniteFarRatio = 1e5

// PerspectiveCamera is a pinhole camera looking along Forward.
type PerspectiveCamera struct {
	Position geometry.Vector3 `json:"position"`
	Forward  geometry.Vector3 `json:"forward"`
	Up       geometry.Vector3 `json:"up"`

	// Vertical field of view, in degrees.
	FovY   float32 `json:"fov_y"`
	Aspect float32 `json:"aspect"`
	Near   float32 `json:"near"`

	// Far clip distance. Zero means infinite.
	Far float32 `json:"far"`
}

// NewPerspectiveCamera creates a camera at the origin looking toward -z.
func NewPerspectiveCamera(fovY, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{
		Forward: geometry.NewVector3(0, 0, -1),
		Up:      geometry.NewVector3(0, 1, 0),
		FovY:    fovY,
		Aspect:  aspect,
		Near:    near,
		Far:     far,
	}
}

// LookAt points the camera at target.
func (c *PerspectiveCamera) LookAt(target geometry.Vector3) {
	if dir := target.Sub(c.Position); dir.Len() != 0 {
		c.Forward = dir.Normalize()
	}
}

// Orbit places the camera on a horizontal circle around center and points it
// at center. angle is in radians.
func (c *PerspectiveCamera) Orbit(center geometry.Vector3, radius, height, angle float32) {
	sin, cos := math.Sincos(float64(angle))
	c.Position = center.Add(geometry.NewVector3(
		radius*float32(cos),
		height,
		radius*float32(sin),
	))
	c.LookAt(center)
}

func (c *PerspectiveCamera) DerivedPosition() geometry.Vector3 {
	return c.Position
}

func (c *PerspectiveCamera) FarClipDistance() float32 {
	return c.Far
}

// FrustumPlanes extracts the six clipping planes from the rows of the
// view-projection matrix. Normals point inside the frustum.
func (c *PerspectiveCamera) FrustumPlanes() [6]geometry.Plane {
	clip := c.Projection().Mul4(c.View())

	r0 := clip.Row(0)
	r1 := clip.Row(1)
	r2 := clip.Row(2)
	r3 := clip.Row(3)

	var planes [6]geometry.Plane
	planes[octree.PlaneLeft] = geometry.NewPlaneFromVec4(r3.Add(r0)).Normalized()
	planes[octree.PlaneRight] = geometry.NewPlaneFromVec4(r3.Sub(r0)).Normalized()
	planes[octree.PlaneBottom] = geometry.NewPlaneFromVec4(r3.Add(r1)).Normalized()
	planes[octree.PlaneTop] = geometry.NewPlaneFromVec4(r3.Sub(r1)).Normalized()
	planes[octree.PlaneNear] = geometry.NewPlaneFromVec4(r3.Add(r2)).Normalized()
	planes[octree.PlaneFar] = geometry.NewPlaneFromVec4(r3.Sub(r2)).Normalized()
	return planes
}

// View returns the world to camera transform.
func (c *PerspectiveCamera) View() mgl32.Mat4 {
	forward, up := c.basis()
	return mgl32.LookAtV(c.Position, c.Position.Add(forward), up)
}

// Projection returns the perspective projection. An infinite far distance is
// replaced by a finite one; the far plane is ignored by the culling pass
// then.
func (c *PerspectiveCamera) Projection() mgl32.Mat4 {
	far := c.Far
	if far == 0 {
		far = c.Near * infiniteFarRatio
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, far)
}

// Ray returns the ray leaving the camera along its view direction.
func (c *PerspectiveCamera) Ray() geometry.Ray {
	forward, _ := c.basis()
	return geometry.NewRay(c.Position, forward)
}

// basis returns the normalized forward vector and an up vector that is not
// parallel to it.
func (c *PerspectiveCamera) basis() (geometry.Vector3, geometry.Vector3) {
	forward := geometry.Normalize(c.Forward)

	up := c.Up
	if forward.Cross(up).Len() == 0 {
		// Looking straight along up.
		up = geometry.NewVector3(0, 0, 1)
	}
	return forward, up
}
