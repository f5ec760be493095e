package query

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

// capsuleBetween builds a capsule whose segment runs from p0 to p1.
func capsuleBetween(p0, p1 mgl64.Vec3, radius float64) (*collision.Capsule, mgl64.Quat, mgl64.Vec3) {
	axis := p1.Sub(p0)
	c := &collision.Capsule{Radius: radius, HalfHeight: axis.Len() / 2}
	return c, math.ShortestArc(math.Up, axis), p0.Add(p1).Mul(0.5)
}

// Sphere

// SphereCast sweeps a sphere along direction and returns the first hit within maxDistance.
func (e *Engine) SphereCast(origin mgl64.Vec3, radius float64, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	return e.ShapeCast(&collision.Sphere{Radius: radius}, mgl64.QuatIdent(), origin, direction, maxDistance, opts...)
}

// SphereCastAll sweeps a sphere along direction and returns every hit ordered by fraction.
func (e *Engine) SphereCastAll(origin mgl64.Vec3, radius float64, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	return e.ShapeCastAll(&collision.Sphere{Radius: radius}, mgl64.QuatIdent(), origin, direction, maxDistance, opts...)
}

// OverlapSphere returns every proxy that a sphere at the given placement overlaps.
func (e *Engine) OverlapSphere(position mgl64.Vec3, radius float64, opts ...Option) []OverlapHit {
	return e.Overlap(&collision.Sphere{Radius: radius}, mgl64.QuatIdent(), position, opts...)
}

// CheckSphere reports whether a sphere at the given placement overlaps anything.
func (e *Engine) CheckSphere(position mgl64.Vec3, radius float64, opts ...Option) bool {
	return e.Check(&collision.Sphere{Radius: radius}, mgl64.QuatIdent(), position, opts...)
}

// Capsule, given by the two end points of its segment

// CapsuleCast sweeps a capsule along direction and returns the first hit within maxDistance.
func (e *Engine) CapsuleCast(p0, p1 mgl64.Vec3, radius float64, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	c, q, center := capsuleBetween(p0, p1, radius)
	return e.ShapeCast(c, q, center, direction, maxDistance, opts...)
}

// CapsuleCastAll sweeps a capsule along direction and returns every hit ordered by fraction.
func (e *Engine) CapsuleCastAll(p0, p1 mgl64.Vec3, radius float64, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	c, q, center := capsuleBetween(p0, p1, radius)
	return e.ShapeCastAll(c, q, center, direction, maxDistance, opts...)
}

// OverlapCapsule returns every proxy that a capsule at the given placement overlaps.
func (e *Engine) OverlapCapsule(p0, p1 mgl64.Vec3, radius float64, opts ...Option) []OverlapHit {
	c, q, center := capsuleBetween(p0, p1, radius)
	return e.Overlap(c, q, center, opts...)
}

// CheckCapsule reports whether a capsule at the given placement overlaps anything.
func (e *Engine) CheckCapsule(p0, p1 mgl64.Vec3, radius float64, opts ...Option) bool {
	c, q, center := capsuleBetween(p0, p1, radius)
	return e.Check(c, q, center, opts...)
}

// Box

// BoxCast sweeps an oriented box along direction and returns the first hit within maxDistance.
func (e *Engine) BoxCast(center, halfExtents mgl64.Vec3, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	return e.ShapeCast(&collision.Box{HalfExtents: halfExtents}, orientation, center, direction, maxDistance, opts...)
}

// BoxCastAll sweeps an oriented box along direction and returns every hit ordered by fraction.
func (e *Engine) BoxCastAll(center, halfExtents mgl64.Vec3, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	return e.ShapeCastAll(&collision.Box{HalfExtents: halfExtents}, orientation, center, direction, maxDistance, opts...)
}

// OverlapBox returns every proxy that an oriented box at the given placement overlaps.
func (e *Engine) OverlapBox(center, halfExtents mgl64.Vec3, orientation mgl64.Quat, opts ...Option) []OverlapHit {
	return e.Overlap(&collision.Box{HalfExtents: halfExtents}, orientation, center, opts...)
}

// CheckBox reports whether an oriented box at the given placement overlaps anything.
func (e *Engine) CheckBox(center, halfExtents mgl64.Vec3, orientation mgl64.Quat, opts ...Option) bool {
	return e.Check(&collision.Box{HalfExtents: halfExtents}, orientation, center, opts...)
}

// Cylinder, axis along local Y

// CylinderCast sweeps a cylinder along direction and returns the first hit within maxDistance.
func (e *Engine) CylinderCast(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	return e.ShapeCast(&collision.Cylinder{Radius: radius, HalfHeight: halfHeight}, orientation, center, direction, maxDistance, opts...)
}

// CylinderCastAll sweeps a cylinder along direction and returns every hit ordered by fraction.
func (e *Engine) CylinderCastAll(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	return e.ShapeCastAll(&collision.Cylinder{Radius: radius, HalfHeight: halfHeight}, orientation, center, direction, maxDistance, opts...)
}

// OverlapCylinder returns every proxy that a cylinder at the given placement overlaps.
func (e *Engine) OverlapCylinder(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, opts ...Option) []OverlapHit {
	return e.Overlap(&collision.Cylinder{Radius: radius, HalfHeight: halfHeight}, orientation, center, opts...)
}

// CheckCylinder reports whether a cylinder at the given placement overlaps anything.
func (e *Engine) CheckCylinder(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, opts ...Option) bool {
	return e.Check(&collision.Cylinder{Radius: radius, HalfHeight: halfHeight}, orientation, center, opts...)
}

// Cone, apex toward local +Y

// ConeCast sweeps a cone along direction and returns the first hit within maxDistance.
func (e *Engine) ConeCast(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	return e.ShapeCast(&collision.Cone{Radius: radius, HalfHeight: halfHeight}, orientation, center, direction, maxDistance, opts...)
}

// ConeCastAll sweeps a cone along direction and returns every hit ordered by fraction.
func (e *Engine) ConeCastAll(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	return e.ShapeCastAll(&collision.Cone{Radius: radius, HalfHeight: halfHeight}, orientation, center, direction, maxDistance, opts...)
}

// OverlapCone returns every proxy that a cone at the given placement overlaps.
func (e *Engine) OverlapCone(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, opts ...Option) []OverlapHit {
	return e.Overlap(&collision.Cone{Radius: radius, HalfHeight: halfHeight}, orientation, center, opts...)
}

// CheckCone reports whether a cone at the given placement overlaps anything.
func (e *Engine) CheckCone(center mgl64.Vec3, radius, halfHeight float64, orientation mgl64.Quat, opts ...Option) bool {
	return e.Check(&collision.Cone{Radius: radius, HalfHeight: halfHeight}, orientation, center, opts...)
}
