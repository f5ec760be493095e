package terrain

import (
	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/dynamics"
)

// CollisionFilter generates contacts between a terrain and the rigid bodies
// its proxy overlaps. Every pair involving the terrain proxy is handled here
// and never reaches the default narrow phase.
type CollisionFilter struct {
	world         *dynamics.World
	proxy         *HeightmapProxy
	width, height int
	minTriangle   uint64
	maxTriangle   uint64
}

// NewCollisionFilter reserves one ID per terrain triangle, 2*Width*Height in
// total, from the world's allocator.
func NewCollisionFilter(world *dynamics.World, proxy *HeightmapProxy) *CollisionFilter {
	w, h := proxy.provider.Width(), proxy.provider.Height()
	first, last := world.IDs().RequestID(2 * w * h)
	return &CollisionFilter{
		world:       world,
		proxy:       proxy,
		width:       w,
		height:      h,
		minTriangle: first,
		maxTriangle: last,
	}
}

// TriangleRange returns the first and last reserved triangle IDs.
func (f *CollisionFilter) TriangleRange() (first, last uint64) {
	return f.minTriangle, f.maxTriangle
}

// TriangleID returns the stable ID of triangle k (0 or 1) of cell (x, z).
func (f *CollisionFilter) TriangleID(x, z, k int) uint64 {
	return f.minTriangle + uint64(2*(x*f.height+z)+k)
}

// Filter handles pairs involving the terrain proxy and passes everything else.
func (f *CollisionFilter) Filter(a, b broadphase.Proxy) bool {
	var other broadphase.Proxy
	switch {
	case a == broadphase.Proxy(f.proxy):
		other = b
	case b == broadphase.Proxy(f.proxy):
		other = a
	default:
		return true
	}

	if shape, ok := other.(*dynamics.Shape); ok {
		f.ProcessTerrainCollision(shape)
	}
	return false
}

// ProcessTerrainCollision tests the shape against every triangle under its
// bounds and registers a contact for each one it penetrates from above.
// Static, kinematic and inactive bodies are skipped. Returns the number of
// triangles tested.
func (f *CollisionFilter) ProcessTerrainCollision(shape *dynamics.Shape) int {
	body, ok := f.world.Body(shape.Body())
	if !ok || body.Motion != dynamics.Dynamic || !body.Active {
		return 0
	}
	if !f.world.Layers().CanCollide(f.proxy.layer, body.Layer) {
		return 0
	}

	convex, pose := shape.Convex(), shape.Pose()
	return f.proxy.forEachTriangle(shape.Bounds(), func(x, z, k int, tri *collision.Triangle) bool {
		pen, ok := penetrateTriangle(convex, pose, tri)
		if !ok {
			return true
		}
		f.world.RegisterContact(shape.ProxyID(), f.TriangleID(x, z, k), dynamics.ContactPoint{
			PointA: pen.PointA,
			PointB: pen.PointB,
			Normal: pen.Normal,
			Depth:  pen.Depth,
		})
		return true
	})
}
