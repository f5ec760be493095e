package collision

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/pkg/math"
)

// ConvexShape is the capability every narrow-phase query works against.
type ConvexShape interface {
	// SupportPoint returns the furthest point of the shape along dir, in local space.
	SupportPoint(dir mgl64.Vec3) mgl64.Vec3
	// BoundingBox returns the world AABB of the shape at the given pose.
	BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB
}

// Pose places a shape in the world.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Identity returns the pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// At returns a pose at position with no rotation.
func At(position mgl64.Vec3) Pose {
	return Pose{Position: position, Orientation: mgl64.QuatIdent()}
}

// Translated returns a copy of the pose moved by offset.
func (p Pose) Translated(offset mgl64.Vec3) Pose {
	p.Position = p.Position.Add(offset)
	return p
}

// SupportWorld returns the world-space support point of s at pose p along dir.
func SupportWorld(s ConvexShape, p Pose, dir mgl64.Vec3) mgl64.Vec3 {
	local := p.Orientation.Conjugate().Rotate(dir)
	return p.Position.Add(p.Orientation.Rotate(s.SupportPoint(local)))
}

// supportBounds computes the exact AABB of a convex shape from its support
// points along the six world axes.
func supportBounds(s ConvexShape, q mgl64.Quat, pos mgl64.Vec3) AABB {
	p := Pose{Position: pos, Orientation: q}
	var box AABB
	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1
		box.Max[i] = SupportWorld(s, p, axis)[i]
		box.Min[i] = SupportWorld(s, p, axis.Mul(-1))[i]
	}
	return box
}

// Sphere is a ball centered on its pose.
type Sphere struct {
	Radius float64
}

func (s *Sphere) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	n := math.SafeNormalize(dir)
	if n == (mgl64.Vec3{}) {
		return mgl64.Vec3{0, s.Radius, 0}
	}
	return n.Mul(s.Radius)
}

func (s *Sphere) BoundingBox(_ mgl64.Quat, position mgl64.Vec3) AABB {
	return AABBFromCenter(position, mgl64.Vec3{s.Radius, s.Radius, s.Radius})
}

// Box is an oriented box with the given half extents.
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		sign(dir[0]) * b.HalfExtents[0],
		sign(dir[1]) * b.HalfExtents[1],
		sign(dir[2]) * b.HalfExtents[2],
	}
}

func (b *Box) BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB {
	return AABBFromCenter(position, math.RotatedExtents(orientation, b.HalfExtents))
}

// Capsule is a segment along the local Y axis, from -HalfHeight to
// +HalfHeight, swept by a sphere of Radius.
type Capsule struct {
	Radius     float64
	HalfHeight float64
}

func (c *Capsule) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	p := mgl64.Vec3{0, c.HalfHeight, 0}
	if dir[1] < 0 {
		p[1] = -c.HalfHeight
	}
	n := math.SafeNormalize(dir)
	return p.Add(n.Mul(c.Radius))
}

func (c *Capsule) BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB {
	axis := orientation.Rotate(mgl64.Vec3{0, c.HalfHeight, 0})
	half := math.AbsVec(axis).Add(mgl64.Vec3{c.Radius, c.Radius, c.Radius})
	return AABBFromCenter(position, half)
}

// Cylinder is a right circular cylinder along the local Y axis.
type Cylinder struct {
	Radius     float64
	HalfHeight float64
}

func (c *Cylinder) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	y := c.HalfHeight
	if dir[1] < 0 {
		y = -c.HalfHeight
	}
	s := gomath.Sqrt(dir[0]*dir[0] + dir[2]*dir[2])
	if s < 1e-12 {
		return mgl64.Vec3{0, y, 0}
	}
	return mgl64.Vec3{c.Radius * dir[0] / s, y, c.Radius * dir[2] / s}
}

func (c *Cylinder) BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB {
	return supportBounds(c, orientation, position)
}

// Cone has its apex at +HalfHeight on the local Y axis and its base disc of
// Radius at -HalfHeight.
type Cone struct {
	Radius     float64
	HalfHeight float64
}

func (c *Cone) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	apex := mgl64.Vec3{0, c.HalfHeight, 0}
	l := dir.Len()
	if l < 1e-12 {
		return apex
	}
	sinAngle := c.Radius / gomath.Sqrt(c.Radius*c.Radius+4*c.HalfHeight*c.HalfHeight)
	if dir[1] > l*sinAngle {
		return apex
	}
	s := gomath.Sqrt(dir[0]*dir[0] + dir[2]*dir[2])
	if s < 1e-12 {
		return mgl64.Vec3{0, -c.HalfHeight, 0}
	}
	return mgl64.Vec3{c.Radius * dir[0] / s, -c.HalfHeight, c.Radius * dir[2] / s}
}

func (c *Cone) BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB {
	return supportBounds(c, orientation, position)
}

// Point is a zero-volume shape. Sweeping it is a ray cast.
type Point struct{}

func (Point) SupportPoint(mgl64.Vec3) mgl64.Vec3 { return mgl64.Vec3{} }

func (Point) BoundingBox(_ mgl64.Quat, position mgl64.Vec3) AABB {
	return AABB{Min: position, Max: position}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
