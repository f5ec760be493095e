package collision

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/pkg/math"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name   string
		a      ConvexShape
		pa     Pose
		b      ConvexShape
		pb     Pose
		want   float64
		normal mgl64.Vec3
	}{
		{
			name: "spheres",
			a:    &Sphere{Radius: 1}, pa: At(mgl64.Vec3{0, 0, 0}),
			b: &Sphere{Radius: 1}, pb: At(mgl64.Vec3{5, 0, 0}),
			want: 3, normal: mgl64.Vec3{-1, 0, 0},
		},
		{
			name: "boxes",
			a:    &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, pa: At(mgl64.Vec3{0, 0, 0}),
			b: &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, pb: At(mgl64.Vec3{0, 5, 0}),
			want: 3, normal: mgl64.Vec3{0, -1, 0},
		},
		{
			name: "sphere over box",
			a:    &Sphere{Radius: 0.5}, pa: At(mgl64.Vec3{0, 3, 0}),
			b: &Box{HalfExtents: mgl64.Vec3{2, 1, 2}}, pb: Identity(),
			want: 1.5, normal: mgl64.Vec3{0, 1, 0},
		},
		{
			name: "capsule beside cylinder",
			a:    &Capsule{Radius: 0.5, HalfHeight: 1}, pa: At(mgl64.Vec3{0, 0, 0}),
			b: &Cylinder{Radius: 1, HalfHeight: 1}, pb: At(mgl64.Vec3{0, 0, 4}),
			want: 2.5, normal: mgl64.Vec3{0, 0, -1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := Distance(tc.a, tc.pa, tc.b, tc.pb)
			if !ok {
				t.Fatal("Distance() reported overlap")
			}
			if gomath.Abs(res.Distance-tc.want) > 1e-6 {
				t.Errorf("Distance = %v, want %v", res.Distance, tc.want)
			}
			if !math.NearZero(res.Normal.Sub(tc.normal), 1e-6) {
				t.Errorf("Normal = %v, want %v", res.Normal, tc.normal)
			}
			if got := res.PointA.Sub(res.PointB).Len(); gomath.Abs(got-tc.want) > 1e-6 {
				t.Errorf("|PointA-PointB| = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	a := &Sphere{Radius: 1}
	b := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}

	if !Intersect(a, At(mgl64.Vec3{1.5, 0, 0}), b, Identity()) {
		t.Error("expected overlap")
	}
	if Intersect(a, At(mgl64.Vec3{2.5, 0, 0}), b, Identity()) {
		t.Error("expected separation")
	}
	if _, ok := Distance(a, At(mgl64.Vec3{1.5, 0, 0}), b, Identity()); ok {
		t.Error("Distance() should report overlap")
	}
}

func TestPenetrate(t *testing.T) {
	tests := []struct {
		name   string
		a      ConvexShape
		pa     Pose
		b      ConvexShape
		pb     Pose
		depth  float64
		normal mgl64.Vec3
		tol    float64
	}{
		{
			name: "boxes",
			a:    &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, pa: Identity(),
			b: &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, pb: At(mgl64.Vec3{1.5, 0, 0}),
			depth: 0.5, normal: mgl64.Vec3{-1, 0, 0}, tol: 1e-6,
		},
		{
			name: "sphere in box",
			a:    &Sphere{Radius: 1}, pa: At(mgl64.Vec3{0, 1.5, 0}),
			b: &Box{HalfExtents: mgl64.Vec3{3, 1, 3}}, pb: Identity(),
			depth: 0.5, normal: mgl64.Vec3{0, 1, 0}, tol: 1e-3,
		},
		{
			name: "spheres",
			a:    &Sphere{Radius: 1}, pa: Identity(),
			b: &Sphere{Radius: 1}, pb: At(mgl64.Vec3{1.5, 0, 0}),
			depth: 0.5, normal: mgl64.Vec3{-1, 0, 0}, tol: 1e-2,
		},
		{
			name: "sphere on triangle",
			a:    &Sphere{Radius: 1}, pa: At(mgl64.Vec3{0, 0.5, 0}),
			b: &Triangle{
				A: mgl64.Vec3{-10, 0, -10},
				B: mgl64.Vec3{-10, 0, 10},
				C: mgl64.Vec3{10, 0, 0},
			}, pb: Identity(),
			depth: 0.5, normal: mgl64.Vec3{0, 1, 0}, tol: 1e-2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pen, ok := Penetrate(tc.a, tc.pa, tc.b, tc.pb)
			if !ok {
				t.Fatal("Penetrate() found no penetration")
			}
			if gomath.Abs(pen.Depth-tc.depth) > tc.tol {
				t.Errorf("Depth = %v, want %v", pen.Depth, tc.depth)
			}
			if !math.NearZero(pen.Normal.Sub(tc.normal), tc.tol*10) {
				t.Errorf("Normal = %v, want %v", pen.Normal, tc.normal)
			}
		})
	}
}

func TestPenetrateSeparated(t *testing.T) {
	a := &Sphere{Radius: 1}
	if _, ok := Penetrate(a, Identity(), a, At(mgl64.Vec3{3, 0, 0})); ok {
		t.Error("expected no penetration for separated spheres")
	}
}

func TestSweep(t *testing.T) {
	sphere := &Sphere{Radius: 0.5}
	box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	boxPose := At(mgl64.Vec3{5, 0, 0})

	res, ok := Sweep(sphere, Identity(), mgl64.Vec3{10, 0, 0}, box, boxPose)
	if !ok {
		t.Fatal("Sweep() missed")
	}
	if gomath.Abs(res.Fraction-0.35) > 1e-3 {
		t.Errorf("Fraction = %v, want 0.35", res.Fraction)
	}
	if !math.NearZero(res.Normal.Sub(mgl64.Vec3{-1, 0, 0}), 1e-4) {
		t.Errorf("Normal = %v, want -X", res.Normal)
	}
	if gomath.Abs(res.PointB[0]-4) > 1e-3 {
		t.Errorf("PointB = %v, want on the x=4 face", res.PointB)
	}
}

func TestSweepMiss(t *testing.T) {
	sphere := &Sphere{Radius: 0.5}
	box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	boxPose := At(mgl64.Vec3{5, 0, 0})

	tests := []struct {
		name  string
		start Pose
		sweep mgl64.Vec3
	}{
		{"away", Identity(), mgl64.Vec3{-10, 0, 0}},
		{"too short", Identity(), mgl64.Vec3{3, 0, 0}},
		{"passes above", At(mgl64.Vec3{0, 3, 0}), mgl64.Vec3{10, 0, 0}},
		{"zero", Identity(), mgl64.Vec3{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Sweep(sphere, tc.start, tc.sweep, box, boxPose); ok {
				t.Error("expected miss")
			}
		})
	}
}

func TestSweepStartingInside(t *testing.T) {
	sphere := &Sphere{Radius: 0.5}
	box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}

	res, ok := Sweep(sphere, Identity(), mgl64.Vec3{10, 0, 0}, box, Identity())
	if !ok {
		t.Fatal("expected a hit when starting inside")
	}
	if res.Fraction != 0 {
		t.Errorf("Fraction = %v, want 0", res.Fraction)
	}
	if res.Normal != (mgl64.Vec3{}) {
		t.Errorf("Normal = %v, want zero", res.Normal)
	}
}

func TestSweepPointIsRayCast(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec3{1, 1, 1}}
	res, ok := Sweep(Point{}, At(mgl64.Vec3{0, 0.5, 0.5}), mgl64.Vec3{10, 0, 0}, box, At(mgl64.Vec3{5, 0, 0}))
	if !ok {
		t.Fatal("Sweep() missed")
	}
	if gomath.Abs(res.Fraction-0.4) > 1e-3 {
		t.Errorf("Fraction = %v, want 0.4", res.Fraction)
	}
}
