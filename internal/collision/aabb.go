// Package collision implements the narrow phase: convex shapes, GJK distance,
// EPA penetration depth, linear sweeps and ray/triangle intersection.
package collision

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/pkg/math"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB creates an AABB from two corners, ordering each axis.
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{Min: math.MinVec(a, b), Max: math.MaxVec(a, b)}
}

// AABBFromCenter creates an AABB from a center point and half extents.
func AABBFromCenter(center, half mgl64.Vec3) AABB {
	half = math.AbsVec(half)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Overlaps checks if two AABBs overlap. Touching boxes overlap.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// Contains checks if a point is inside the AABB.
func (a AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// Union returns the smallest AABB enclosing both boxes.
func (a AABB) Union(b AABB) AABB {
	return AABB{Min: math.MinVec(a.Min, b.Min), Max: math.MaxVec(a.Max, b.Max)}
}

// Expand grows the box by margin on every side.
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Translate moves the box by offset.
func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}

// Center returns the midpoint of the box.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// IntersectRay tests ray intersection with the box using the slab method.
// Returns the ray parameter of the entry point, or of the exit point when the
// origin is inside the box.
func (a AABB) IntersectRay(origin, dir mgl64.Vec3) (t float64, hit bool) {
	tmin := gomath.Inf(-1)
	tmax := gomath.Inf(1)

	for i := 0; i < 3; i++ {
		if dir[i] != 0 {
			t1 := (a.Min[i] - origin[i]) / dir[i]
			t2 := (a.Max[i] - origin[i]) / dir[i]
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tmin = gomath.Max(tmin, t1)
			tmax = gomath.Min(tmax, t2)
		} else if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
			return 0, false
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// RayWindow returns the parameter range [enter, exit] over which the ray is
// inside the box, with enter clamped to zero.
func (a AABB) RayWindow(origin, dir mgl64.Vec3) (enter, exit float64, hit bool) {
	tmin := gomath.Inf(-1)
	tmax := gomath.Inf(1)

	for i := 0; i < 3; i++ {
		if dir[i] != 0 {
			t1 := (a.Min[i] - origin[i]) / dir[i]
			t2 := (a.Max[i] - origin[i]) / dir[i]
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tmin = gomath.Max(tmin, t1)
			tmax = gomath.Min(tmax, t2)
		} else if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
			return 0, 0, false
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return gomath.Max(tmin, 0), tmax, true
}
