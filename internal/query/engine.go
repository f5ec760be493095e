// Package query answers ray casts, shape casts and overlap tests against a
// physics world. Queries read the world without locking it for their whole
// duration; run them between steps.
package query

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/dynamics"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

// normalEpsilon is the squared length below which a sweep normal is unusable.
const normalEpsilon = 1e-12

// RaycastHit is the result of a ray query. Body is zero for non-body proxies
// such as terrain.
type RaycastHit struct {
	Body     dynamics.BodyHandle
	Proxy    broadphase.Proxy
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
	Fraction float64 // Distance / maxDistance
}

// ShapeCastHit is the result of a shape cast. Normal points from the hit
// shape toward the caster. Penetration is non-zero only when the caster
// overlapped the shape at the start of the cast.
type ShapeCastHit struct {
	Body        dynamics.BodyHandle
	Shape       *dynamics.Shape
	Fraction    float64
	PointA      mgl64.Vec3 // on the caster
	PointB      mgl64.Vec3 // on the hit shape
	Normal      mgl64.Vec3
	Penetration float64
}

// OverlapHit is one proxy overlapping a query shape. Body is zero for
// non-body proxies.
type OverlapHit struct {
	Body   dynamics.BodyHandle
	Proxy  broadphase.Proxy
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64
}

// Overlapper is implemented by proxies that are not rigid-body shapes but
// can still be tested for overlap, such as terrain.
type Overlapper interface {
	OverlapShape(shape collision.ConvexShape, pose collision.Pose, limit int) []collision.Penetration
}

// layered is implemented by proxies that belong to a collision layer.
type layered interface {
	Layer() int
}

// Option adjusts a single query.
type Option func(*options)

type options struct {
	mask dynamics.LayerMask
}

// WithMask restricts a query to bodies and proxies on the given layers.
func WithMask(mask dynamics.LayerMask) Option {
	return func(o *options) {
		o.mask = mask
	}
}

// Engine runs queries against one world.
type Engine struct {
	world *dynamics.World
}

// New creates an engine for w.
func New(w *dynamics.World) *Engine {
	return &Engine{world: w}
}

// World returns the queried world.
func (e *Engine) World() *dynamics.World { return e.world }

func (e *Engine) resolve(opts []Option) options {
	o := options{mask: e.world.DefaultQueryMask()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// accepts applies the layer mask. Proxies without a layer always pass.
func (e *Engine) accepts(p broadphase.Proxy, mask dynamics.LayerMask) bool {
	switch v := p.(type) {
	case *dynamics.Shape:
		b, ok := e.world.Body(v.Body())
		return ok && mask.Has(b.Layer)
	case layered:
		return mask.Has(v.Layer())
	default:
		return true
	}
}

func bodyOf(p broadphase.Proxy) dynamics.BodyHandle {
	if s, ok := p.(*dynamics.Shape); ok {
		return s.Body()
	}
	return dynamics.BodyHandle{}
}

func orientationOrIdentity(q mgl64.Quat) mgl64.Quat {
	if q == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}
	return q
}

// Raycast returns the closest hit along the ray. A non-positive maxDistance
// selects the world's default ray length.
func (e *Engine) Raycast(origin, direction mgl64.Vec3, maxDistance float64, opts ...Option) (RaycastHit, bool) {
	o := e.resolve(opts)
	maxDistance = e.rayLength(maxDistance)

	h, ok := e.world.Index().RayCast(origin, direction, maxDistance, e.maskFilter(o.mask), nil)
	if !ok {
		return RaycastHit{}, false
	}
	return toRaycastHit(h, maxDistance), true
}

// RaycastAll returns every hit along the ray, nearest first.
func (e *Engine) RaycastAll(origin, direction mgl64.Vec3, maxDistance float64, opts ...Option) []RaycastHit {
	o := e.resolve(opts)
	maxDistance = e.rayLength(maxDistance)

	hits := e.world.Index().RayCastAll(origin, direction, maxDistance, e.maskFilter(o.mask), nil)
	out := make([]RaycastHit, len(hits))
	for i, h := range hits {
		out[i] = toRaycastHit(h, maxDistance)
	}
	return out
}

func (e *Engine) rayLength(d float64) float64 {
	if d <= 0 {
		return e.world.RayMaxDistance()
	}
	return d
}

func (e *Engine) maskFilter(mask dynamics.LayerMask) func(broadphase.Proxy) bool {
	return func(p broadphase.Proxy) bool {
		return e.accepts(p, mask)
	}
}

func toRaycastHit(h broadphase.RayHit, maxDistance float64) RaycastHit {
	return RaycastHit{
		Body:     bodyOf(h.Proxy),
		Proxy:    h.Proxy,
		Point:    h.Point,
		Normal:   h.Normal,
		Distance: h.Distance,
		Fraction: h.Distance / maxDistance,
	}
}

// ShapeCastAll sweeps shape from origin along direction for maxDistance and
// returns every rigid-body shape it hits, by increasing fraction. The
// direction is normalized; a zero direction or distance hits nothing.
func (e *Engine) ShapeCastAll(shape collision.ConvexShape, orientation mgl64.Quat, origin, direction mgl64.Vec3, maxDistance float64, opts ...Option) []ShapeCastHit {
	hits := e.shapeCast(shape, orientation, origin, direction, maxDistance, e.resolve(opts))
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Fraction < hits[j].Fraction })
	return hits
}

// ShapeCast returns the hit with the smallest fraction. Among equal
// fractions the first candidate found wins.
func (e *Engine) ShapeCast(shape collision.ConvexShape, orientation mgl64.Quat, origin, direction mgl64.Vec3, maxDistance float64, opts ...Option) (ShapeCastHit, bool) {
	hits := e.shapeCast(shape, orientation, origin, direction, maxDistance, e.resolve(opts))
	if len(hits) == 0 {
		return ShapeCastHit{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Fraction < best.Fraction {
			best = h
		}
	}
	return best, true
}

func (e *Engine) shapeCast(shape collision.ConvexShape, orientation mgl64.Quat, origin, direction mgl64.Vec3, maxDistance float64, o options) []ShapeCastHit {
	dir := math.SafeNormalize(direction)
	if dir == (mgl64.Vec3{}) || maxDistance <= 0 {
		return nil
	}

	orientation = orientationOrIdentity(orientation)
	start := collision.Pose{Position: origin, Orientation: orientation}
	sweep := dir.Mul(maxDistance)
	swept := shape.BoundingBox(orientation, origin).Union(shape.BoundingBox(orientation, origin.Add(sweep)))

	var hits []ShapeCastHit
	e.world.Index().Query(swept, func(p broadphase.Proxy) bool {
		target, ok := p.(*dynamics.Shape)
		if !ok || !e.accepts(p, o.mask) {
			return true
		}
		if h, ok := castAgainst(shape, start, sweep, target); ok {
			hits = append(hits, h)
		}
		return true
	})
	return hits
}

func castAgainst(shape collision.ConvexShape, start collision.Pose, sweep mgl64.Vec3, target *dynamics.Shape) (ShapeCastHit, bool) {
	res, ok := collision.Sweep(shape, start, sweep, target.Convex(), target.Pose())
	if !ok || res.Fraction < 0 || res.Fraction > 1 {
		return ShapeCastHit{}, false
	}

	h := ShapeCastHit{
		Body:     target.Body(),
		Shape:    target,
		Fraction: res.Fraction,
		PointA:   res.PointA,
		PointB:   res.PointB,
		Normal:   res.Normal,
	}
	if res.Normal.LenSqr() < normalEpsilon {
		// Overlapping at the start: recover the normal from a static test.
		if pen, ok := collision.Penetrate(shape, start, target.Convex(), target.Pose()); ok {
			h.PointA = pen.PointA
			h.PointB = pen.PointB
			h.Normal = pen.Normal
			h.Penetration = pen.Depth
		} else {
			h.Normal = math.SafeNormalize(sweep).Mul(-1)
		}
	}
	return h, true
}

// Overlap returns every rigid-body shape and terrain the shape overlaps at
// the given pose.
func (e *Engine) Overlap(shape collision.ConvexShape, orientation mgl64.Quat, position mgl64.Vec3, opts ...Option) []OverlapHit {
	return e.overlap(shape, orientation, position, e.resolve(opts), 0)
}

// Check reports whether Overlap would return anything.
func (e *Engine) Check(shape collision.ConvexShape, orientation mgl64.Quat, position mgl64.Vec3, opts ...Option) bool {
	return len(e.overlap(shape, orientation, position, e.resolve(opts), 1)) > 0
}

// overlap stops after limit hits; a limit below one means no limit.
func (e *Engine) overlap(shape collision.ConvexShape, orientation mgl64.Quat, position mgl64.Vec3, o options, limit int) []OverlapHit {
	pose := collision.Pose{Position: position, Orientation: orientationOrIdentity(orientation)}
	box := shape.BoundingBox(pose.Orientation, pose.Position)

	var hits []OverlapHit
	e.world.Index().Query(box, func(p broadphase.Proxy) bool {
		if !e.accepts(p, o.mask) {
			return true
		}

		switch v := p.(type) {
		case *dynamics.Shape:
			if !collision.Intersect(shape, pose, v.Convex(), v.Pose()) {
				return true
			}
			h := OverlapHit{Body: v.Body(), Proxy: p}
			if pen, ok := collision.Penetrate(shape, pose, v.Convex(), v.Pose()); ok {
				h.PointA, h.PointB, h.Normal, h.Depth = pen.PointA, pen.PointB, pen.Normal, pen.Depth
			}
			hits = append(hits, h)
		case Overlapper:
			pens := v.OverlapShape(shape, pose, limit)
			if len(pens) == 0 {
				return true
			}
			deepest := pens[0]
			for _, pen := range pens[1:] {
				if pen.Depth > deepest.Depth {
					deepest = pen
				}
			}
			hits = append(hits, OverlapHit{
				Proxy:  p,
				PointA: deepest.PointA,
				PointB: deepest.PointB,
				Normal: deepest.Normal,
				Depth:  deepest.Depth,
			})
		default:
			return true
		}
		return limit < 1 || len(hits) < limit
	})
	return hits
}
