package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/pkg/math"
)

// Triangle is a transient triangle in world space. It satisfies ConvexShape
// when used with the identity pose.
type Triangle struct {
	A, B, C mgl64.Vec3
}

// SupportPoint returns the vertex furthest along dir.
func (t *Triangle) SupportPoint(dir mgl64.Vec3) mgl64.Vec3 {
	da := t.A.Dot(dir)
	db := t.B.Dot(dir)
	dc := t.C.Dot(dir)
	if da >= db && da >= dc {
		return t.A
	}
	if db >= dc {
		return t.B
	}
	return t.C
}

func (t *Triangle) BoundingBox(orientation mgl64.Quat, position mgl64.Vec3) AABB {
	a := position.Add(orientation.Rotate(t.A))
	b := position.Add(orientation.Rotate(t.B))
	c := position.Add(orientation.Rotate(t.C))
	return AABB{
		Min: math.MinVec(a, math.MinVec(b, c)),
		Max: math.MaxVec(a, math.MaxVec(b, c)),
	}
}

// Centroid returns the average of the three vertices.
func (t *Triangle) Centroid() mgl64.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}

// Normal returns the unit face normal, (B-A) x (C-A).
func (t *Triangle) Normal() mgl64.Vec3 {
	return math.SafeNormalize(t.B.Sub(t.A).Cross(t.C.Sub(t.A)))
}

// RayTriangle intersects a ray with triangle (a, b, c) using the
// Möller–Trumbore test. Back faces, whose normal (b-a)x(c-a) faces along dir,
// are culled. Returns the ray parameter of the hit.
func RayTriangle(origin, dir, a, b, c mgl64.Vec3) (float64, bool) {
	const eps = 1e-12

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det < eps {
		return 0, false
	}

	s := origin.Sub(a)
	u := s.Dot(p)
	if u < 0 || u > det {
		return 0, false
	}

	q := s.Cross(e1)
	v := dir.Dot(q)
	if v < 0 || u+v > det {
		return 0, false
	}

	t := e2.Dot(q) / det
	if t < 0 {
		return 0, false
	}
	return t, true
}
