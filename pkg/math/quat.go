package math

import "github.com/go-gl/mathgl/mgl64"

// ShortestArc returns the rotation taking direction from onto direction to.
// Zero-length inputs yield the identity rotation.
func ShortestArc(from, to mgl64.Vec3) mgl64.Quat {
	if NearZero(from, 1e-12) || NearZero(to, 1e-12) {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(from, to).Normalize()
}

// RotationColumns returns the columns of the rotation matrix of q
// (the images of the X, Y and Z axes).
func RotationColumns(q mgl64.Quat) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		q.Rotate(mgl64.Vec3{1, 0, 0}),
		q.Rotate(mgl64.Vec3{0, 1, 0}),
		q.Rotate(mgl64.Vec3{0, 0, 1}),
	}
}

// RotatedExtents returns the half extents of the world AABB enclosing a box
// with local half extents h rotated by q.
func RotatedExtents(q mgl64.Quat, h mgl64.Vec3) mgl64.Vec3 {
	cols := RotationColumns(q)
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		out = out.Add(AbsVec(cols[i]).Mul(h[i]))
	}
	return out
}
