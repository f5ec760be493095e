package collision

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABBOverlaps(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"inside", AABB{Min: mgl64.Vec3{0.2, 0.2, 0.2}, Max: mgl64.Vec3{0.8, 0.8, 0.8}}, true},
		{"touching", AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, true},
		{"apart x", AABB{Min: mgl64.Vec3{1.1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, false},
		{"apart y", AABB{Min: mgl64.Vec3{0, -3, 0}, Max: mgl64.Vec3{1, -0.5, 1}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(tc.b); got != tc.want {
				t.Errorf("Overlaps() = %v, want %v", got, tc.want)
			}
			if got := tc.b.Overlaps(a); got != tc.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAABBUnion(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{-1, 0.5, 2}, Max: mgl64.Vec3{0.5, 3, 4}}
	got := a.Union(b)
	want := AABB{Min: mgl64.Vec3{-1, 0, 0}, Max: mgl64.Vec3{1, 3, 4}}
	if got != want {
		t.Errorf("Union() = %v, want %v", got, want)
	}
}

func TestNewAABBOrdersCorners(t *testing.T) {
	box := NewAABB(mgl64.Vec3{1, -1, 5}, mgl64.Vec3{-1, 1, 2})
	if box.Min != (mgl64.Vec3{-1, -1, 2}) || box.Max != (mgl64.Vec3{1, 1, 5}) {
		t.Errorf("NewAABB() = %v", box)
	}
}

func TestAABBIntersectRay(t *testing.T) {
	box := AABBFromCenter(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})

	tt, hit := box.IntersectRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	if !hit || tt != 4 {
		t.Errorf("IntersectRay() = %v, %v, want 4, true", tt, hit)
	}

	if _, hit := box.IntersectRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{-1, 0, 0}); hit {
		t.Error("expected miss for ray pointing away")
	}

	if _, hit := box.IntersectRay(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{1, 0, 0}); hit {
		t.Error("expected miss for parallel ray outside slab")
	}

	// Starting inside returns the exit distance.
	tt, hit = box.IntersectRay(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 0, 0})
	if !hit || tt != 1 {
		t.Errorf("IntersectRay() from inside = %v, %v, want 1, true", tt, hit)
	}
}

func TestAABBRayWindow(t *testing.T) {
	box := AABBFromCenter(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})
	enter, exit, hit := box.RayWindow(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	if !hit || enter != 4 || exit != 6 {
		t.Errorf("RayWindow() = %v, %v, %v, want 4, 6, true", enter, exit, hit)
	}
}
