// Package math provides small vector helpers on top of mgl64 for collision code.
package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the canonical up axis (+Y).
var Up = mgl64.Vec3{0, 1, 0}

// XZ returns the horizontal components of v as a Vec2.
func XZ(v mgl64.Vec3) mgl64.Vec2 {
	return mgl64.Vec2{v[0], v[2]}
}

// LenSqrXZ returns the squared length of the horizontal part of v.
func LenSqrXZ(v mgl64.Vec3) float64 {
	return v[0]*v[0] + v[2]*v[2]
}

// NearZero reports whether v has a squared length below eps*eps.
func NearZero(v mgl64.Vec3, eps float64) bool {
	return v.LenSqr() < eps*eps
}

// SafeNormalize returns a unit vector, or the zero vector when v is too short to normalize.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	if NearZero(v, 1e-12) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / v.Len())
}

// MinVec returns the component-wise minimum.
func MinVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{gomath.Min(a[0], b[0]), gomath.Min(a[1], b[1]), gomath.Min(a[2], b[2])}
}

// MaxVec returns the component-wise maximum.
func MaxVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{gomath.Max(a[0], b[0]), gomath.Max(a[1], b[1]), gomath.Max(a[2], b[2])}
}

// AbsVec returns the component-wise absolute value.
func AbsVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{gomath.Abs(v[0]), gomath.Abs(v[1]), gomath.Abs(v[2])}
}

// Perpendicular returns some unit vector orthogonal to v.
func Perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	axis := mgl64.Vec3{1, 0, 0}
	if gomath.Abs(v[0]) > 0.57735 {
		axis = mgl64.Vec3{0, 1, 0}
	}
	return SafeNormalize(v.Cross(axis))
}
