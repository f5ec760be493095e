package collision

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// SweepTolerance is the separation at which a sweep reports contact.
	SweepTolerance = 1e-4

	// SweepMaxIterations bounds conservative advancement.
	SweepMaxIterations = 64
)

// SweepResult describes the first contact of a linear sweep.
type SweepResult struct {
	Fraction float64    // position along the sweep in [0, 1]
	PointA   mgl64.Vec3 // contact point on the swept shape
	PointB   mgl64.Vec3 // contact point on the static shape
	Normal   mgl64.Vec3 // unit vector from B toward A; zero when the shapes overlap at the start
}

// Sweep moves shape A from pose pa along sweep and reports the first contact
// with shape B, which stays at pb. Orientation is held fixed.
//
// The sweep advances conservatively: at every step the separating plane of
// the GJK closest points bounds how far A can travel without touching B.
func Sweep(a ConvexShape, pa Pose, sweep mgl64.Vec3, b ConvexShape, pb Pose) (SweepResult, bool) {
	lambda := 0.0
	var last DistanceResult
	lastLambda := 0.0

	for i := 0; i < SweepMaxIterations; i++ {
		pose := pa.Translated(sweep.Mul(lambda))

		res, separated := Distance(a, pose, b, pb)
		if !separated {
			if i == 0 {
				return SweepResult{Fraction: 0}, true
			}
			// Advanced onto the surface; report the previous witness.
			return SweepResult{
				Fraction: lambda,
				PointA:   last.PointA.Add(sweep.Mul(lambda - lastLambda)),
				PointB:   last.PointB,
				Normal:   last.Normal,
			}, true
		}

		if res.Distance < SweepTolerance {
			return SweepResult{Fraction: lambda, PointA: res.PointA, PointB: res.PointB, Normal: res.Normal}, true
		}

		closing := -sweep.Dot(res.Normal)
		if closing <= 1e-12 {
			return SweepResult{}, false
		}

		last, lastLambda = res, lambda
		lambda += (res.Distance - SweepTolerance*0.5) / closing
		if lambda > 1 {
			return SweepResult{}, false
		}
	}
	return SweepResult{}, false
}
