package terrain

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

const (
	// MaxTraversalDistance caps the horizontal distance a ray walks, in world units.
	MaxTraversalDistance = 10000.0

	// horizontalEpsilon is the squared XZ length below which a ray direction
	// is treated as vertical. Vertical rays miss.
	horizontalEpsilon = 1e-8

	// boundsMargin keeps flat terrain from having a zero-thickness AABB.
	boundsMargin = 1e-3
)

// Contact is one triangle of the terrain penetrating a shape.
type Contact struct {
	X, Z     int // cell
	Triangle int // 0 or 1 within the cell
	collision.Penetration
}

// HeightmapProxy is the broad-phase entry of a terrain. Grid vertex (x, z)
// sits at origin + (x*cellSize, height, z*cellSize).
type HeightmapProxy struct {
	id       uint64
	provider HeightProvider
	origin   mgl64.Vec3
	cellSize float64
	layer    int
	bounds   collision.AABB
}

// NewHeightmapProxy creates a proxy and computes its bounds.
func NewHeightmapProxy(id uint64, provider HeightProvider, origin mgl64.Vec3, cellSize float64, layer int) *HeightmapProxy {
	p := &HeightmapProxy{
		id:       id,
		provider: provider,
		origin:   origin,
		cellSize: cellSize,
		layer:    layer,
	}
	p.updateBounds()
	return p
}

func (p *HeightmapProxy) updateBounds() {
	lo, hi := heightRange(p.provider)
	p.bounds = collision.AABB{
		Min: mgl64.Vec3{p.origin[0], p.origin[1] + lo, p.origin[2]},
		Max: mgl64.Vec3{
			p.origin[0] + float64(p.provider.Width())*p.cellSize,
			p.origin[1] + hi,
			p.origin[2] + float64(p.provider.Height())*p.cellSize,
		},
	}.Expand(boundsMargin)
}

// ProxyID returns the broadphase id assigned at construction.
func (p *HeightmapProxy) ProxyID() uint64 { return p.id }

// Bounds returns the world box covering every height sample, padded by a
// small margin.
func (p *HeightmapProxy) Bounds() collision.AABB { return p.bounds }

// Layer returns the collision layer queries filter on.
func (p *HeightmapProxy) Layer() int { return p.layer }

// Origin returns the world position of grid corner (0, 0) at height zero.
func (p *HeightmapProxy) Origin() mgl64.Vec3 { return p.origin }

// CellSize returns the world edge length of one grid cell.
func (p *HeightmapProxy) CellSize() float64 { return p.cellSize }

// Provider returns the height source the proxy samples.
func (p *HeightmapProxy) Provider() HeightProvider { return p.provider }

// WorldToGrid converts a world position to fractional grid coordinates.
func (p *HeightmapProxy) WorldToGrid(pos mgl64.Vec3) (gx, gz float64) {
	return (pos[0] - p.origin[0]) / p.cellSize, (pos[2] - p.origin[2]) / p.cellSize
}

func (p *HeightmapProxy) vertex(x, z int, h float64) mgl64.Vec3 {
	return mgl64.Vec3{
		p.origin[0] + float64(x)*p.cellSize,
		p.origin[1] + h,
		p.origin[2] + float64(z)*p.cellSize,
	}
}

// CellTriangles returns the two world-space triangles of cell (x, z), split
// along the (x, z)-(x+1, z+1) diagonal and wound so their normals face up.
// Returns false if any corner height is missing.
func (p *HeightmapProxy) CellTriangles(x, z int) ([2]collision.Triangle, bool) {
	h00, ok00 := p.provider.TryGetHeight(x, z)
	h10, ok10 := p.provider.TryGetHeight(x+1, z)
	h11, ok11 := p.provider.TryGetHeight(x+1, z+1)
	h01, ok01 := p.provider.TryGetHeight(x, z+1)
	if !ok00 || !ok10 || !ok11 || !ok01 {
		return [2]collision.Triangle{}, false
	}

	v00 := p.vertex(x, z, h00)
	v10 := p.vertex(x+1, z, h10)
	v11 := p.vertex(x+1, z+1, h11)
	v01 := p.vertex(x, z+1, h01)
	return [2]collision.Triangle{
		{A: v00, B: v11, C: v10},
		{A: v00, B: v01, C: v11},
	}, true
}

// RayCast walks the cells under the ray in the XZ plane and tests the two
// triangles of each valid cell. The first cell with a hit wins. Rays with no
// horizontal component miss. lambda is the distance along the normalized
// direction.
func (p *HeightmapProxy) RayCast(origin, direction mgl64.Vec3) (bool, mgl64.Vec3, float64) {
	dir := math.SafeNormalize(direction)
	if math.LenSqrXZ(dir) < horizontalEpsilon {
		return false, mgl64.Vec3{}, 0
	}
	flat := math.XZ(dir).Normalize()

	gx, gz := p.WorldToGrid(origin)
	x := int(gomath.Floor(gx))
	z := int(gomath.Floor(gz))
	stepX, tMaxX, tDeltaX := ddaAxis(gx, flat[0])
	stepZ, tMaxZ, tDeltaZ := ddaAxis(gz, flat[1])

	w, h := p.provider.Width(), p.provider.Height()
	limit := MaxTraversalDistance / p.cellSize

	for t := 0.0; t <= limit; {
		if p.provider.IsValidCell(x, z) {
			if normal, lambda, ok := p.rayCell(x, z, origin, dir); ok {
				return true, normal, lambda
			}
		}
		if leaving(x, stepX, w) || leaving(z, stepZ, h) {
			break
		}

		if tMaxX < tMaxZ {
			t = tMaxX
			tMaxX += tDeltaX
			x += stepX
		} else {
			t = tMaxZ
			tMaxZ += tDeltaZ
			z += stepZ
		}
	}
	return false, mgl64.Vec3{}, 0
}

// rayCell returns the nearer of the two triangle hits in cell (x, z).
func (p *HeightmapProxy) rayCell(x, z int, origin, dir mgl64.Vec3) (mgl64.Vec3, float64, bool) {
	tris, ok := p.CellTriangles(x, z)
	if !ok {
		return mgl64.Vec3{}, 0, false
	}

	var normal mgl64.Vec3
	best := gomath.Inf(1)
	for i := range tris {
		tri := &tris[i]
		if t, hit := collision.RayTriangle(origin, dir, tri.A, tri.B, tri.C); hit && t < best {
			best = t
			normal = tri.Normal()
		}
	}
	if gomath.IsInf(best, 1) {
		return mgl64.Vec3{}, 0, false
	}
	return normal, best, true
}

// ddaAxis sets up one axis of the grid walk in grid units.
func ddaAxis(pos, d float64) (step int, tMax, tDelta float64) {
	cell := gomath.Floor(pos)
	switch {
	case d > 0:
		return 1, (cell + 1 - pos) / d, 1 / d
	case d < 0:
		return -1, (pos - cell) / -d, -1 / d
	default:
		return 0, gomath.Inf(1), gomath.Inf(1)
	}
}

// leaving reports whether coordinate c is outside [0, n) and will never come back.
func leaving(c, step, n int) bool {
	return (c < 0 && step <= 0) || (c >= n && step >= 0)
}

// HeightAt interpolates the ground height under a world position. Returns
// false over holes and outside the grid.
func (p *HeightmapProxy) HeightAt(worldX, worldZ float64) (float64, bool) {
	gx, gz := p.WorldToGrid(mgl64.Vec3{worldX, 0, worldZ})
	h, ok := sampleBilinear(p.provider, gx, gz)
	if !ok {
		return 0, false
	}
	return p.origin[1] + h, true
}

// cellRange maps a world AABB to the inclusive rectangle of cells it covers,
// clamped to the grid.
func (p *HeightmapProxy) cellRange(box collision.AABB) (x0, z0, x1, z1 int, ok bool) {
	w, h := p.provider.Width(), p.provider.Height()
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0, false
	}

	minX, minZ := p.WorldToGrid(box.Min)
	maxX, maxZ := p.WorldToGrid(box.Max)
	if maxX < 0 || maxZ < 0 || minX > float64(w) || minZ > float64(h) {
		return 0, 0, 0, 0, false
	}

	x0 = math.Clamp(int(gomath.Floor(minX)), 0, w-1)
	z0 = math.Clamp(int(gomath.Floor(minZ)), 0, h-1)
	x1 = math.Clamp(int(gomath.Floor(maxX)), 0, w-1)
	z1 = math.Clamp(int(gomath.Floor(maxZ)), 0, h-1)
	return x0, z0, x1, z1, true
}

// forEachTriangle calls fn for both triangles of every valid cell covered by
// box. Iteration stops when fn returns false. Returns the number of
// triangles visited.
func (p *HeightmapProxy) forEachTriangle(box collision.AABB, fn func(x, z, k int, tri *collision.Triangle) bool) int {
	x0, z0, x1, z1, ok := p.cellRange(box)
	if !ok {
		return 0
	}

	n := 0
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			if !p.provider.IsValidCell(x, z) {
				continue
			}
			tris, ok := p.CellTriangles(x, z)
			if !ok {
				continue
			}
			for k := range tris {
				n++
				if !fn(x, z, k, &tris[k]) {
					return n
				}
			}
		}
	}
	return n
}

// Penetrate returns every terrain triangle the shape penetrates from above.
func (p *HeightmapProxy) Penetrate(shape collision.ConvexShape, pose collision.Pose) []Contact {
	var out []Contact
	box := shape.BoundingBox(pose.Orientation, pose.Position)
	p.forEachTriangle(box, func(x, z, k int, tri *collision.Triangle) bool {
		if pen, ok := penetrateTriangle(shape, pose, tri); ok {
			out = append(out, Contact{X: x, Z: z, Triangle: k, Penetration: pen})
		}
		return true
	})
	return out
}

// OverlapShape reports up to limit triangles that intersect the shape, as
// penetrations. A limit below one means no limit. Triangles that touch the
// shape but yield no usable penetration are reported with zero depth.
func (p *HeightmapProxy) OverlapShape(shape collision.ConvexShape, pose collision.Pose, limit int) []collision.Penetration {
	var out []collision.Penetration
	box := shape.BoundingBox(pose.Orientation, pose.Position)
	p.forEachTriangle(box, func(_, _, _ int, tri *collision.Triangle) bool {
		if !collision.Intersect(shape, pose, tri, collision.Identity()) {
			return true
		}
		pen, ok := collision.Penetrate(shape, pose, tri, collision.Identity())
		if !ok {
			pen = collision.Penetration{Normal: tri.Normal()}
		}
		out = append(out, pen)
		return limit < 1 || len(out) < limit
	})
	return out
}

// penetrateTriangle runs EPA between a shape and a terrain triangle and drops
// results whose normal faces into the ground.
func penetrateTriangle(shape collision.ConvexShape, pose collision.Pose, tri *collision.Triangle) (collision.Penetration, bool) {
	pen, ok := collision.Penetrate(shape, pose, tri, collision.Identity())
	if !ok || pen.Normal.Dot(tri.Normal()) <= 0 {
		return collision.Penetration{}, false
	}
	return pen, true
}
