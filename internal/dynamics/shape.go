package dynamics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/internal/collision"
)

// rayMargin backs the sweep start off the bounds so it never begins on the surface.
const rayMargin = 0.01

// Shape is the broad-phase proxy of a rigid body.
type Shape struct {
	id     uint64
	body   BodyHandle
	convex collision.ConvexShape
	pose   collision.Pose
	bounds collision.AABB
}

func newShape(id uint64, body BodyHandle, convex collision.ConvexShape, pose collision.Pose) *Shape {
	s := &Shape{id: id, body: body, convex: convex}
	s.setPose(pose)
	return s
}

func (s *Shape) setPose(p collision.Pose) {
	s.pose = p
	s.bounds = s.convex.BoundingBox(p.Orientation, p.Position)
}

// ProxyID returns the shape's unique ID.
func (s *Shape) ProxyID() uint64 { return s.id }

// Bounds returns the world AABB at the current pose.
func (s *Shape) Bounds() collision.AABB { return s.bounds }

// Body returns the owning body's handle.
func (s *Shape) Body() BodyHandle { return s.body }

// Convex returns the collision geometry.
func (s *Shape) Convex() collision.ConvexShape { return s.convex }

// Pose returns the world pose.
func (s *Shape) Pose() collision.Pose { return s.pose }

// RayCast sweeps a point along direction through the part of the ray inside
// the shape's bounds. direction must be a unit vector.
func (s *Shape) RayCast(origin, direction mgl64.Vec3) (bool, mgl64.Vec3, float64) {
	enter, exit, ok := s.bounds.RayWindow(origin, direction)
	if !ok {
		return false, mgl64.Vec3{}, 0
	}

	enter = max(enter-rayMargin, 0)
	span := exit - enter
	start := collision.At(origin.Add(direction.Mul(enter)))
	res, hit := collision.Sweep(collision.Point{}, start, direction.Mul(span), s.convex, s.pose)
	if !hit {
		return false, mgl64.Vec3{}, 0
	}
	if res.Normal == (mgl64.Vec3{}) {
		// Ray starts inside the shape.
		return true, direction.Mul(-1), enter
	}
	return true, res.Normal, enter + res.Fraction*span
}
