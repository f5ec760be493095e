package collision

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// GJKMaxIterations bounds the distance loop. Polytopes converge in a
	// handful of iterations; curved shapes may use more.
	GJKMaxIterations = 64

	// gjkRelTolerance ends the loop once the support point no longer brings
	// the simplex measurably closer to the origin.
	gjkRelTolerance = 1e-10

	// gjkContactTolerance is the squared distance below which the origin is
	// considered to be on the simplex (shapes touching or overlapping).
	gjkContactTolerance = 1e-16
)

// supportVertex is a point of the Minkowski difference A - B along with the
// support points on A and B that produced it.
type supportVertex struct {
	w, a, b mgl64.Vec3
}

type simplex struct {
	v      [4]supportVertex
	lambda [4]float64
	n      int
}

func (s *simplex) add(v supportVertex) {
	s.v[s.n] = v
	s.n++
}

func (s *simplex) contains(w mgl64.Vec3) bool {
	for i := 0; i < s.n; i++ {
		if s.v[i].w.Sub(w).LenSqr() < 1e-20 {
			return true
		}
	}
	return false
}

// witnessPoints returns the closest points on A and B from the barycentric
// weights of the current simplex.
func (s *simplex) witnessPoints() (mgl64.Vec3, mgl64.Vec3) {
	var pa, pb mgl64.Vec3
	for i := 0; i < s.n; i++ {
		pa = pa.Add(s.v[i].a.Mul(s.lambda[i]))
		pb = pb.Add(s.v[i].b.Mul(s.lambda[i]))
	}
	return pa, pb
}

// minkowskiSupport computes furthest(A, dir) - furthest(B, -dir).
func minkowskiSupport(a ConvexShape, pa Pose, b ConvexShape, pb Pose, dir mgl64.Vec3) supportVertex {
	sa := SupportWorld(a, pa, dir)
	sb := SupportWorld(b, pb, dir.Mul(-1))
	return supportVertex{w: sa.Sub(sb), a: sa, b: sb}
}

// DistanceResult describes two separated shapes.
type DistanceResult struct {
	Distance float64
	PointA   mgl64.Vec3 // closest point on A
	PointB   mgl64.Vec3 // closest point on B
	Normal   mgl64.Vec3 // unit vector from B toward A
}

// Distance computes the separation between two convex shapes with GJK.
// Returns false when the shapes touch or overlap.
func Distance(a ConvexShape, pa Pose, b ConvexShape, pb Pose) (DistanceResult, bool) {
	var s simplex
	v, overlap := runGJK(a, pa, b, pb, &s)
	if overlap {
		return DistanceResult{}, false
	}
	pointA, pointB := s.witnessPoints()
	dist := v.Len()
	return DistanceResult{
		Distance: dist,
		PointA:   pointA,
		PointB:   pointB,
		Normal:   v.Mul(1 / dist),
	}, true
}

// Intersect reports whether two convex shapes touch or overlap.
func Intersect(a ConvexShape, pa Pose, b ConvexShape, pb Pose) bool {
	var s simplex
	_, overlap := runGJK(a, pa, b, pb, &s)
	return overlap
}

// runGJK drives the simplex toward the origin of A - B. It returns the
// closest point of the Minkowski difference to the origin and whether the
// origin is enclosed. On overlap the simplex is left for EPA.
func runGJK(a ConvexShape, pa Pose, b ConvexShape, pb Pose, s *simplex) (mgl64.Vec3, bool) {
	dir := pa.Position.Sub(pb.Position)
	if dir.LenSqr() < 1e-16 {
		dir = mgl64.Vec3{1, 0, 0}
	}

	s.n = 0
	s.add(minkowskiSupport(a, pa, b, pb, dir))
	s.lambda[0] = 1
	v := s.v[0].w

	for i := 0; i < GJKMaxIterations; i++ {
		vv := v.LenSqr()
		if vv < gjkContactTolerance {
			return v, true
		}

		w := minkowskiSupport(a, pa, b, pb, v.Mul(-1))
		if vv-v.Dot(w.w) <= gjkRelTolerance*vv || s.contains(w.w) {
			return v, false
		}

		s.add(w)
		next, inside := closestOnSimplex(s)
		if inside {
			return mgl64.Vec3{}, true
		}
		if next.LenSqr() >= vv {
			// No progress: numerical floor reached.
			return v, false
		}
		v = next
	}
	return v, false
}

// closestOnSimplex replaces the simplex with the smallest sub-simplex
// supporting the point closest to the origin and returns that point.
// The boolean is true when a tetrahedron encloses the origin.
func closestOnSimplex(s *simplex) (mgl64.Vec3, bool) {
	switch s.n {
	case 1:
		s.lambda[0] = 1
		return s.v[0].w, false
	case 2:
		return closestOnSegment(s, 0, 1), false
	case 3:
		return closestOnTriangle(s, 0, 1, 2), false
	default:
		return closestOnTetrahedron(s)
	}
}

func keep(s *simplex, idx []int, weights []float64) {
	var v [4]supportVertex
	for i, k := range idx {
		v[i] = s.v[k]
	}
	s.v = v
	s.n = len(idx)
	for i, w := range weights {
		s.lambda[i] = w
	}
}

func closestOnSegment(s *simplex, ia, ib int) mgl64.Vec3 {
	a := s.v[ia].w
	b := s.v[ib].w
	ab := b.Sub(a)
	denom := ab.LenSqr()
	if denom < 1e-20 {
		keep(s, []int{ia}, []float64{1})
		return a
	}
	t := -a.Dot(ab) / denom
	if t <= 0 {
		keep(s, []int{ia}, []float64{1})
		return a
	}
	if t >= 1 {
		keep(s, []int{ib}, []float64{1})
		return b
	}
	keep(s, []int{ia, ib}, []float64{1 - t, t})
	return a.Add(ab.Mul(t))
}

// closestOnTriangle follows the Voronoi region walk of Ericson's
// ClosestPtPointTriangle with the query point at the origin.
func closestOnTriangle(s *simplex, ia, ib, ic int) mgl64.Vec3 {
	a := s.v[ia].w
	b := s.v[ib].w
	c := s.v[ic].w
	ab := b.Sub(a)
	ac := c.Sub(a)

	if ab.Cross(ac).LenSqr() < 1e-24 {
		return closestOnDegenerateTriangle(s, ia, ib, ic)
	}

	ap := a.Mul(-1)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		keep(s, []int{ia}, []float64{1})
		return a
	}

	bp := b.Mul(-1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		keep(s, []int{ib}, []float64{1})
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		keep(s, []int{ia, ib}, []float64{1 - t, t})
		return a.Add(ab.Mul(t))
	}

	cp := c.Mul(-1)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		keep(s, []int{ic}, []float64{1})
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		keep(s, []int{ia, ic}, []float64{1 - t, t})
		return a.Add(ac.Mul(t))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		keep(s, []int{ib, ic}, []float64{1 - t, t})
		return b.Add(c.Sub(b).Mul(t))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	keep(s, []int{ia, ib, ic}, []float64{1 - v - w, v, w})
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

func closestOnDegenerateTriangle(s *simplex, ia, ib, ic int) mgl64.Vec3 {
	pairs := [3][2]int{{ia, ib}, {ia, ic}, {ib, ic}}
	best := -1
	bestDist := 0.0
	var candidates [3]simplex
	var points [3]mgl64.Vec3
	for i, p := range pairs {
		candidates[i] = *s
		points[i] = closestOnSegment(&candidates[i], p[0], p[1])
		d := points[i].LenSqr()
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	*s = candidates[best]
	return points[best]
}

func closestOnTetrahedron(s *simplex) (mgl64.Vec3, bool) {
	faces := [4][4]int{
		{0, 1, 2, 3},
		{0, 3, 1, 2},
		{0, 2, 3, 1},
		{1, 3, 2, 0},
	}

	found := false
	bestDist := 0.0
	var bestSimplex simplex
	var bestPoint mgl64.Vec3

	for _, f := range faces {
		a := s.v[f[0]].w
		n := s.v[f[1]].w.Sub(a).Cross(s.v[f[2]].w.Sub(a))
		signOrigin := n.Dot(a.Mul(-1))
		signOpposite := n.Dot(s.v[f[3]].w.Sub(a))

		degenerate := signOpposite*signOpposite < 1e-24
		if !degenerate && signOrigin*signOpposite >= 0 {
			// Origin is on the same side as the opposite vertex.
			continue
		}

		candidate := *s
		p := closestOnTriangle(&candidate, f[0], f[1], f[2])
		d := p.LenSqr()
		if !found || d < bestDist {
			found, bestDist = true, d
			bestSimplex = candidate
			bestPoint = p
		}
	}

	if !found {
		return mgl64.Vec3{}, true
	}
	*s = bestSimplex
	return bestPoint, false
}
