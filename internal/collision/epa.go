package collision

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/pkg/math"
)

const (
	// EPAMaxIterations limits polytope expansion.
	EPAMaxIterations = 64

	// EPATolerance is the distance improvement below which the closest face
	// is accepted as the boundary of the Minkowski difference.
	EPATolerance = 1e-6

	// MinPenetration is the depth below which shapes count as touching,
	// not penetrating.
	MinPenetration = 1e-9
)

// Penetration describes two overlapping shapes.
type Penetration struct {
	PointA mgl64.Vec3 // deepest point of A inside B
	PointB mgl64.Vec3 // deepest point of B inside A
	Normal mgl64.Vec3 // unit vector from B toward A; moving A by Normal*Depth separates the shapes
	Depth  float64
}

type epaFace struct {
	a, b, c int
	normal  mgl64.Vec3
	dist    float64
}

type epaEdge struct {
	a, b int
}

// Penetrate runs GJK and, on overlap, expands the final simplex with EPA to
// find the penetration depth and contact normal. Returns false when the shapes
// are separated or only touching.
func Penetrate(a ConvexShape, pa Pose, b ConvexShape, pb Pose) (Penetration, bool) {
	var s simplex
	if _, overlap := runGJK(a, pa, b, pb, &s); !overlap {
		return Penetration{}, false
	}

	verts := make([]supportVertex, 0, 32)
	for i := 0; i < s.n; i++ {
		verts = append(verts, s.v[i])
	}
	verts, ok := blowUpSimplex(a, pa, b, pb, verts)
	if !ok {
		return Penetration{}, false
	}

	faces := initialFaces(verts)
	if len(faces) == 0 {
		return Penetration{}, false
	}

	var closest epaFace
	for i := 0; i < EPAMaxIterations; i++ {
		idx := closestFace(faces)
		closest = faces[idx]

		w := minkowskiSupport(a, pa, b, pb, closest.normal)
		d := closest.normal.Dot(w.w)
		if d-closest.dist < EPATolerance {
			break
		}

		verts = append(verts, w)
		faces = expand(faces, verts, len(verts)-1)
		if len(faces) == 0 {
			break
		}
	}

	if closest.dist < MinPenetration {
		return Penetration{}, false
	}

	l0, l1, l2 := barycentric(closest.normal.Mul(closest.dist), verts[closest.a].w, verts[closest.b].w, verts[closest.c].w)
	pointA := verts[closest.a].a.Mul(l0).Add(verts[closest.b].a.Mul(l1)).Add(verts[closest.c].a.Mul(l2))
	pointB := verts[closest.a].b.Mul(l0).Add(verts[closest.b].b.Mul(l1)).Add(verts[closest.c].b.Mul(l2))

	return Penetration{
		PointA: pointA,
		PointB: pointB,
		Normal: closest.normal.Mul(-1),
		Depth:  closest.dist,
	}, true
}

// blowUpSimplex grows a 1-3 point simplex into a tetrahedron.
func blowUpSimplex(a ConvexShape, pa Pose, b ConvexShape, pb Pose, verts []supportVertex) ([]supportVertex, bool) {
	axes := []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

	if len(verts) == 1 {
		for _, d := range axes {
			w := minkowskiSupport(a, pa, b, pb, d)
			if w.w.Sub(verts[0].w).LenSqr() > 1e-12 {
				verts = append(verts, w)
				break
			}
		}
		if len(verts) < 2 {
			return nil, false
		}
	}

	if len(verts) == 2 {
		line := verts[1].w.Sub(verts[0].w)
		p1 := math.Perpendicular(line)
		p2 := math.SafeNormalize(line.Cross(p1))
		for _, d := range []mgl64.Vec3{p1, p1.Mul(-1), p2, p2.Mul(-1)} {
			w := minkowskiSupport(a, pa, b, pb, d)
			if w.w.Sub(verts[0].w).Cross(line).LenSqr() > 1e-12 {
				verts = append(verts, w)
				break
			}
		}
		if len(verts) < 3 {
			return nil, false
		}
	}

	if len(verts) == 3 {
		n := verts[1].w.Sub(verts[0].w).Cross(verts[2].w.Sub(verts[0].w))
		if n.LenSqr() < 1e-24 {
			return nil, false
		}
		n = n.Normalize()
		for _, d := range []mgl64.Vec3{n, n.Mul(-1)} {
			w := minkowskiSupport(a, pa, b, pb, d)
			if gomath.Abs(w.w.Sub(verts[0].w).Dot(n)) > 1e-9 {
				verts = append(verts, w)
				break
			}
		}
		if len(verts) < 4 {
			return nil, false
		}
	}

	return verts, true
}

func initialFaces(verts []supportVertex) []epaFace {
	tri := [4][4]int{
		{0, 1, 2, 3},
		{0, 3, 1, 2},
		{0, 2, 3, 1},
		{1, 3, 2, 0},
	}
	faces := make([]epaFace, 0, 16)
	for _, t := range tri {
		ia, ib, ic := t[0], t[1], t[2]
		n := verts[ib].w.Sub(verts[ia].w).Cross(verts[ic].w.Sub(verts[ia].w))
		if n.Dot(verts[t[3]].w.Sub(verts[ia].w)) > 0 {
			ib, ic = ic, ib
		}
		if f, ok := makeFace(verts, ia, ib, ic); ok {
			faces = append(faces, f)
		}
	}
	return faces
}

func makeFace(verts []supportVertex, ia, ib, ic int) (epaFace, bool) {
	n := verts[ib].w.Sub(verts[ia].w).Cross(verts[ic].w.Sub(verts[ia].w))
	l := n.Len()
	if l < 1e-18 {
		return epaFace{}, false
	}
	n = n.Mul(1 / l)
	d := n.Dot(verts[ia].w)
	if d < 0 {
		// Origin lies on the polytope boundary; clamp rather than flip so
		// winding stays consistent across the hull.
		d = 0
	}
	return epaFace{a: ia, b: ib, c: ic, normal: n, dist: d}, true
}

func closestFace(faces []epaFace) int {
	best := 0
	for i := 1; i < len(faces); i++ {
		if faces[i].dist < faces[best].dist {
			best = i
		}
	}
	return best
}

// expand removes every face visible from vertex iw and stitches the horizon
// to the new vertex.
func expand(faces []epaFace, verts []supportVertex, iw int) []epaFace {
	w := verts[iw].w
	var horizon []epaEdge
	kept := faces[:0]

	for _, f := range faces {
		if f.normal.Dot(w.Sub(verts[f.a].w)) > 1e-12 {
			horizon = toggleEdge(horizon, epaEdge{f.a, f.b})
			horizon = toggleEdge(horizon, epaEdge{f.b, f.c})
			horizon = toggleEdge(horizon, epaEdge{f.c, f.a})
			continue
		}
		kept = append(kept, f)
	}

	for _, e := range horizon {
		if f, ok := makeFace(verts, e.a, e.b, iw); ok {
			kept = append(kept, f)
		}
	}
	return kept
}

// toggleEdge adds e to the horizon, or removes it when the reverse edge is
// already present (the edge is shared by two removed faces).
func toggleEdge(edges []epaEdge, e epaEdge) []epaEdge {
	for i, o := range edges {
		if o.a == e.b && o.b == e.a {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return append(edges, e)
}

// barycentric returns the weights of p with respect to triangle (a, b, c).
func barycentric(p, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if gomath.Abs(denom) < 1e-24 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}
