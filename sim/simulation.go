package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/featureflag"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/aukilabs/kenaz/octree"
)

const (
	ErrTypeInvalidConfig = "sim_invalid_config"

	// Every hiddenEvery body is hidden from visibility passes. They are
	// still hit by queries.
	hiddenEvery = 16
)

// Config describes a simulated world.
type Config struct {
	Bounds   geometry.AABB
	MaxDepth int

	// The number of moving bodies and their largest half extent.
	BodyCount   int
	BodyMaxSize float32
	MaxSpeed    float32

	// The share of bodies allowed to leave the world bounds.
	EscapeRatio float64

	// The camera orbit around the world center, in world units and
	// radians per second.
	OrbitRadius float32
	OrbitHeight float32
	OrbitSpeed  float32

	// The half extent of the volume queried around the camera every frame.
	QueryRadius float32

	Seed         int64
	FeatureFlags featureflag.FeatureFlag
}

// FrameStats describes what happened during a simulated frame.
type FrameStats struct {
	Frame           uint64                 `json:"frame"`
	Duration        time.Duration          `json:"duration"`
	Camera          PerspectiveCamera      `json:"camera"`
	Visibility      octree.VisibilityStats `json:"visibility"`
	VisibleElements int                    `json:"visible_elements"`
	VisibleBounds   *octree.VisibleBounds  `json:"visible_bounds,omitempty"`
	NodeCount       int                    `json:"node_count"`
	RayHits         int                    `json:"ray_hits"`
	ClosestRayHit   float32                `json:"closest_ray_hit"`
	VolumeHits      int                    `json:"volume_hits"`
	SphereHits      int                    `json:"sphere_hits"`
	Invalid         bool                   `json:"invalid,omitempty"`
}

type body struct {
	node     *octree.BasicNode
	element  *octree.BoxElement
	center   geometry.Vector3
	extents  geometry.Vector3
	velocity geometry.Vector3
	escapes  bool
}

// Simulation moves bodies around an indexed world and looks at them with an
// orbiting camera. It is safe for concurrent use.
type Simulation struct {
	mutex     sync.Mutex
	config    Config
	index     *octree.Index
	bodies    []*body
	camera    *PerspectiveCamera
	collector *Collector
	bounds    *octree.VisibleBounds
	toggles   featureflag.Toggles
	frame     uint64
	angle     float32
}

// NewSimulation creates a simulation whose bodies are placed with the
// configured seed.
func NewSimulation(config Config) (*Simulation, error) {
	if config.BodyCount < 0 {
		return nil, errors.New("body count is negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("body_count", config.BodyCount)
	}
	if config.BodyMaxSize <= 0 {
		return nil, errors.New("body max size is not positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("body_max_size", config.BodyMaxSize)
	}

	index, err := octree.NewIndex(config.Bounds, config.MaxDepth)
	if err != nil {
		return nil, errors.New("creating index failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	s := &Simulation{
		config:    config,
		index:     index,
		camera:    NewPerspectiveCamera(60, 16.0/9, 0.1, config.OrbitRadius*2),
		collector: NewCollector(),
		bounds:    octree.NewVisibleBounds(),
		toggles:   config.FeatureFlags.Toggles(),
	}
	s.spawn(rand.New(rand.NewSource(config.Seed)))
	s.camera.Orbit(config.Bounds.Center(), config.OrbitRadius, config.OrbitHeight, 0)

	logs.WithTag("bodies", config.BodyCount).
		WithTag("max_depth", config.MaxDepth).
		WithTag("seed", config.Seed).
		WithTag("toggles", s.toggles).
		Info("simulation created")
	return s, nil
}

func (s *Simulation) spawn(rnd *rand.Rand) {
	min := s.config.Bounds.Min
	size := s.config.Bounds.Size()
	escaping := int(float64(s.config.BodyCount) * s.config.EscapeRatio)

	random := func(from, to float32) float32 {
		return from + rnd.Float32()*(to-from)
	}

	for i := 0; i < s.config.BodyCount; i++ {
		extents := geometry.NewVector3(
			random(0.1, 1)*s.config.BodyMaxSize,
			random(0.1, 1)*s.config.BodyMaxSize,
			random(0.1, 1)*s.config.BodyMaxSize,
		)
		var center geometry.Vector3
		for axis := 0; axis < 3; axis++ {
			center[axis] = min[axis] + extents[axis] + rnd.Float32()*(size[axis]-2*extents[axis])
		}
		velocity := geometry.NewVector3(
			random(-1, 1)*s.config.MaxSpeed,
			random(-1, 1)*s.config.MaxSpeed,
			random(-1, 1)*s.config.MaxSpeed,
		)

		element := octree.NewBoxElement(geometry.NewAABBFromCenter(center, extents))
		element.Hidden = i%hiddenEvery == hiddenEvery-1

		b := &body{
			node:     octree.NewBasicNode(element),
			element:  element,
			center:   center,
			extents:  extents,
			velocity: velocity,
			escapes:  i < escaping,
		}
		s.bodies = append(s.bodies, b)
		s.index.Insert(b.node)
	}
}

// Step advances the simulation by dt and runs the frame's visibility pass
// and queries.
func (s *Simulation) Step(dt time.Duration) FrameStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	start := time.Now()
	seconds := float32(dt.Seconds())

	s.frame++
	stats := FrameStats{Frame: s.frame}

	if s.toggles.Movement {
		for _, b := range s.bodies {
			s.move(b, seconds)
		}
	}

	s.angle += s.config.OrbitSpeed * seconds
	s.camera.Orbit(s.config.Bounds.Center(), s.config.OrbitRadius, s.config.OrbitHeight, s.angle)
	stats.Camera = *s.camera

	s.collector.Reset()
	s.bounds.Reset()
	stats.Visibility = s.index.FindVisibleObjects(s.camera, s.collector, s.bounds, false)
	stats.VisibleElements = s.collector.Len()
	if !s.bounds.IsEmpty() {
		bounds := *s.bounds
		stats.VisibleBounds = &bounds
	}
	stats.NodeCount = s.index.NumNodes()

	if s.toggles.RayQueries {
		stats.ClosestRayHit = -1
		s.index.RayQuery(s.camera.Ray(), octree.DefaultQueryOptions(), octree.RayListenerFunc(func(e octree.Element, t float32) bool {
			if stats.ClosestRayHit < 0 || t < stats.ClosestRayHit {
				stats.ClosestRayHit = t
			}
			stats.RayHits++
			return true
		}))
	}

	if s.toggles.VolumeQueries {
		noop := octree.VolumeListenerFunc(func(octree.Element) {})

		box := geometry.NewAABBFromCenter(s.camera.Position, geometry.Splat(s.config.QueryRadius))
		stats.VolumeHits = s.index.VolumeQuery(box, octree.DefaultQueryOptions(), noop)

		sphere := geometry.NewSphere(s.config.Bounds.Center(), s.config.QueryRadius)
		stats.SphereHits = s.index.SphereQuery(sphere, octree.DefaultQueryOptions(), noop)
	}

	if s.toggles.ValidateIndex {
		if err := s.index.Validate(); err != nil {
			logs.WithTag("frame", s.frame).Error(err)
			stats.Invalid = true
		}
	}

	stats.Duration = time.Since(start)
	instrumentFrame(start, stats)
	return stats
}

// move advances b by its velocity. Bodies that do not escape bounce on the
// world bounds; escaping ones come back to the world center once they are a
// world size away.
func (s *Simulation) move(b *body, seconds float32) {
	world := s.config.Bounds
	b.center = b.center.Add(b.velocity.Mul(seconds))

	if b.escapes {
		if !world.Expand(world.Size()).Contains(b.center) {
			b.center = world.Center()
		}
	} else {
		b.bounce(world)
	}

	b.element.Box = geometry.NewAABBFromCenter(b.center, b.extents)
	b.node.UpdateBounds()
	s.index.Update(b.node)
}

func (b *body) bounce(world geometry.AABB) {
	for axis := 0; axis < 3; axis++ {
		low := world.Min[axis] + b.extents[axis]
		high := world.Max[axis] - b.extents[axis]

		switch {
		case b.center[axis] < low:
			b.center[axis] = low
			b.velocity[axis] = -b.velocity[axis]
		case b.center[axis] > high:
			b.center[axis] = high
			b.velocity[axis] = -b.velocity[axis]
		}
	}
}

// DebugInfo describes the current shape of the index.
func (s *Simulation) DebugInfo() octree.DebugInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.index.DebugInfo()
}

// Validate checks the index invariants.
func (s *Simulation) Validate() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.index.Validate()
}
