package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestShortestArc(t *testing.T) {
	tests := []struct {
		name string
		to   mgl64.Vec3
	}{
		{"same", mgl64.Vec3{0, 1, 0}},
		{"x axis", mgl64.Vec3{1, 0, 0}},
		{"diagonal", mgl64.Vec3{1, 1, 1}},
		{"opposite", mgl64.Vec3{0, -1, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := ShortestArc(Up, tc.to)
			got := q.Rotate(Up)
			want := tc.to.Normalize()
			if !NearZero(got.Sub(want), 1e-6) {
				t.Errorf("ShortestArc rotated Up to %v, want %v", got, want)
			}
		})
	}
}

func TestShortestArcZero(t *testing.T) {
	q := ShortestArc(Up, mgl64.Vec3{})
	if q != mgl64.QuatIdent() {
		t.Errorf("ShortestArc to zero = %v, want identity", q)
	}
}

func TestRotatedExtents(t *testing.T) {
	h := mgl64.Vec3{1, 2, 3}
	if got := RotatedExtents(mgl64.QuatIdent(), h); !NearZero(got.Sub(h), 1e-9) {
		t.Errorf("RotatedExtents(identity) = %v, want %v", got, h)
	}

	// 90 degrees about Y swaps X and Z extents.
	q := mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 1, 0})
	got := RotatedExtents(q, h)
	want := mgl64.Vec3{3, 2, 1}
	if !NearZero(got.Sub(want), 1e-9) {
		t.Errorf("RotatedExtents(90 about Y) = %v, want %v", got, want)
	}
}
