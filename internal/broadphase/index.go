// Package broadphase implements the spatial index used to find candidate
// collision pairs, AABB query results and ray-cast candidates.
package broadphase

import (
	gomath "math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

const (
	// DefaultCellSize is the spatial hash cell edge used when none is configured.
	DefaultCellSize = 4.0

	// DefaultMaxCellsPerProxy is the largest number of cells a proxy may
	// cover before it is kept in the oversized list instead.
	DefaultMaxCellsPerProxy = 64
)

// Proxy is anything the index can hold.
type Proxy interface {
	ProxyID() uint64
	Bounds() collision.AABB
}

// RayCaster is implemented by proxies that answer exact ray queries.
// direction is a unit vector and lambda is the distance along it.
type RayCaster interface {
	RayCast(origin, direction mgl64.Vec3) (hit bool, normal mgl64.Vec3, lambda float64)
}

// RayHit is the exact result of a ray against one proxy.
type RayHit struct {
	Proxy    Proxy
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// CellKey addresses one spatial hash cell.
type CellKey struct {
	X, Y, Z int
}

type entry struct {
	proxy     Proxy
	bounds    collision.AABB
	min, max  CellKey
	oversized bool
}

// Index is a spatial hash grid. Queries take a read lock and may run
// concurrently; Add, Remove and Update take the write lock.
type Index struct {
	mu        sync.RWMutex
	cellSize  float64
	maxCells  int
	cells     map[CellKey][]uint64
	entries   map[uint64]*entry
	oversized map[uint64]struct{}
	extent    collision.AABB // union of all bounds ever added
	hasExtent bool
}

// NewIndex creates an index. Non-positive arguments select the defaults.
func NewIndex(cellSize float64, maxCellsPerProxy int) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if maxCellsPerProxy <= 0 {
		maxCellsPerProxy = DefaultMaxCellsPerProxy
	}
	return &Index{
		cellSize:  cellSize,
		maxCells:  maxCellsPerProxy,
		cells:     make(map[CellKey][]uint64),
		entries:   make(map[uint64]*entry),
		oversized: make(map[uint64]struct{}),
	}
}

// CellSize returns the cell edge length.
func (ix *Index) CellSize() float64 {
	return ix.cellSize
}

func (ix *Index) cellOf(p mgl64.Vec3) CellKey {
	return CellKey{
		X: int(gomath.Floor(p[0] / ix.cellSize)),
		Y: int(gomath.Floor(p[1] / ix.cellSize)),
		Z: int(gomath.Floor(p[2] / ix.cellSize)),
	}
}

// cellCount is the number of cells in the inclusive range lo..hi. It is
// computed in float64 so boxes spanning millions of cells per axis compare
// as large instead of wrapping.
func cellCount(lo, hi CellKey) float64 {
	return (float64(hi.X) - float64(lo.X) + 1) *
		(float64(hi.Y) - float64(lo.Y) + 1) *
		(float64(hi.Z) - float64(lo.Z) + 1)
}

// Add inserts a proxy. Adding a proxy that is already present re-bins it.
func (ix *Index) Add(p Proxy) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.entries[p.ProxyID()]; ok {
		ix.removeLocked(p.ProxyID())
	}
	ix.insertLocked(p)
}

func (ix *Index) insertLocked(p Proxy) {
	id := p.ProxyID()
	b := p.Bounds()
	e := &entry{proxy: p, bounds: b, min: ix.cellOf(b.Min), max: ix.cellOf(b.Max)}

	if ix.hasExtent {
		ix.extent = ix.extent.Union(b)
	} else {
		ix.extent, ix.hasExtent = b, true
	}

	if cells := cellCount(e.min, e.max); cells > float64(ix.maxCells) {
		e.oversized = true
		ix.oversized[id] = struct{}{}
		ix.entries[id] = e
		logger.Named("broadphase").Debug("oversized proxy",
			zap.Uint64("id", id),
			zap.Float64("cells", cells))
		return
	}

	for x := e.min.X; x <= e.max.X; x++ {
		for y := e.min.Y; y <= e.max.Y; y++ {
			for z := e.min.Z; z <= e.max.Z; z++ {
				k := CellKey{x, y, z}
				ix.cells[k] = append(ix.cells[k], id)
			}
		}
	}
	ix.entries[id] = e
}

// Remove deletes a proxy. Returns false if it was not present.
func (ix *Index) Remove(p Proxy) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(p.ProxyID())
}

func (ix *Index) removeLocked(id uint64) bool {
	e, ok := ix.entries[id]
	if !ok {
		return false
	}
	delete(ix.entries, id)

	if e.oversized {
		delete(ix.oversized, id)
		return true
	}

	for x := e.min.X; x <= e.max.X; x++ {
		for y := e.min.Y; y <= e.max.Y; y++ {
			for z := e.min.Z; z <= e.max.Z; z++ {
				k := CellKey{x, y, z}
				ids := ix.cells[k]
				for i, other := range ids {
					if other == id {
						ids[i] = ids[len(ids)-1]
						ids = ids[:len(ids)-1]
						break
					}
				}
				if len(ids) == 0 {
					delete(ix.cells, k)
				} else {
					ix.cells[k] = ids
				}
			}
		}
	}
	return true
}

// Update re-bins a proxy after its bounds changed. Unknown proxies are added.
func (ix *Index) Update(p Proxy) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := p.ProxyID()
	if e, ok := ix.entries[id]; ok {
		b := p.Bounds()
		if b == e.bounds {
			return
		}
		ix.removeLocked(id)
	}
	ix.insertLocked(p)
}

// Len returns the number of proxies.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Contains reports whether a proxy with the given ID is indexed.
func (ix *Index) Contains(id uint64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[id]
	return ok
}

// Query calls fn for every proxy whose bounds overlap box, in ascending ID
// order, each at most once. Iteration stops when fn returns false.
func (ix *Index) Query(box collision.AABB, fn func(Proxy) bool) {
	ix.mu.RLock()
	candidates := ix.queryLocked(box)
	ix.mu.RUnlock()

	for _, p := range candidates {
		if !fn(p) {
			return
		}
	}
}

func (ix *Index) queryLocked(box collision.AABB) []Proxy {
	seen := make(map[uint64]struct{})
	lo, hi := ix.cellOf(box.Min), ix.cellOf(box.Max)

	if cells := cellCount(lo, hi); cells > float64(len(ix.cells)) {
		// Cheaper to scan every entry than every covered cell.
		for id := range ix.entries {
			seen[id] = struct{}{}
		}
	} else {
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for z := lo.Z; z <= hi.Z; z++ {
					for _, id := range ix.cells[CellKey{x, y, z}] {
						seen[id] = struct{}{}
					}
				}
			}
		}
		for id := range ix.oversized {
			seen[id] = struct{}{}
		}
	}

	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		if ix.entries[id].bounds.Overlaps(box) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Proxy, len(ids))
	for i, id := range ids {
		out[i] = ix.entries[id].proxy
	}
	return out
}

// Pair is an unordered overlapping pair with A.ProxyID() < B.ProxyID().
type Pair struct {
	A, B Proxy
}

type pairKey struct {
	lo, hi uint64
}

func makePairKey(a, b uint64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Pairs returns every pair of proxies whose bounds overlap, each once,
// sorted by (A, B) ID.
func (ix *Index) Pairs() []Pair {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := make(map[pairKey]struct{})
	consider := func(a, b uint64) {
		if a == b {
			return
		}
		k := makePairKey(a, b)
		if _, ok := keys[k]; ok {
			return
		}
		if ix.entries[a].bounds.Overlaps(ix.entries[b].bounds) {
			keys[k] = struct{}{}
		}
	}

	for _, ids := range ix.cells {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				consider(ids[i], ids[j])
			}
		}
	}
	for big := range ix.oversized {
		for id := range ix.entries {
			consider(big, id)
		}
	}

	sorted := make([]pairKey, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].lo != sorted[j].lo {
			return sorted[i].lo < sorted[j].lo
		}
		return sorted[i].hi < sorted[j].hi
	})

	pairs := make([]Pair, len(sorted))
	for i, k := range sorted {
		pairs[i] = Pair{A: ix.entries[k.lo].proxy, B: ix.entries[k.hi].proxy}
	}
	return pairs
}

// RayCast returns the closest exact hit within maxDistance. pre filters
// proxies before the exact test and post filters exact hits; either may be nil.
// Proxies that do not implement RayCaster are skipped.
func (ix *Index) RayCast(origin, direction mgl64.Vec3, maxDistance float64, pre func(Proxy) bool, post func(Proxy, RayHit) bool) (RayHit, bool) {
	var best RayHit
	found := false
	ix.rayCandidates(origin, direction, maxDistance, func(tCell float64) bool {
		return !found || tCell <= best.Distance
	}, pre, post, func(h RayHit) {
		if !found || h.Distance < best.Distance {
			best, found = h, true
		}
	})
	return best, found
}

// RayCastAll returns every exact hit within maxDistance, nearest first.
func (ix *Index) RayCastAll(origin, direction mgl64.Vec3, maxDistance float64, pre func(Proxy) bool, post func(Proxy, RayHit) bool) []RayHit {
	var hits []RayHit
	ix.rayCandidates(origin, direction, maxDistance, nil, pre, post, func(h RayHit) {
		hits = append(hits, h)
	})
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// rayCandidates walks the cells crossed by the ray and runs the exact test on
// every new candidate. more, when non-nil, is asked before visiting a cell
// entered at distance tCell.
func (ix *Index) rayCandidates(origin, direction mgl64.Vec3, maxDistance float64, more func(tCell float64) bool, pre func(Proxy) bool, post func(Proxy, RayHit) bool, emit func(RayHit)) {
	dir := math.SafeNormalize(direction)
	if dir == (mgl64.Vec3{}) || maxDistance <= 0 {
		return
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[uint64]struct{})
	test := func(id uint64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		e := ix.entries[id]
		if t, ok := e.bounds.IntersectRay(origin, dir); !ok || (t > maxDistance && !e.bounds.Contains(origin)) {
			return
		}
		if pre != nil && !pre(e.proxy) {
			return
		}
		rc, ok := e.proxy.(RayCaster)
		if !ok {
			return
		}
		hit, normal, lambda := rc.RayCast(origin, dir)
		if !hit || lambda < 0 || lambda > maxDistance {
			return
		}
		h := RayHit{Proxy: e.proxy, Point: origin.Add(dir.Mul(lambda)), Normal: normal, Distance: lambda}
		if post != nil && !post(e.proxy, h) {
			return
		}
		emit(h)
	}

	ids := make([]uint64, 0, len(ix.oversized))
	for id := range ix.oversized {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		test(id)
	}

	if !ix.hasExtent {
		return
	}
	enter, exit, ok := ix.extent.RayWindow(origin, dir)
	if !ok || enter > maxDistance {
		return
	}
	exit = gomath.Min(exit, maxDistance)

	ix.traverse(origin, dir, enter, exit, func(k CellKey, tCell float64) bool {
		if more != nil && !more(tCell) {
			return false
		}
		for _, id := range ix.cells[k] {
			test(id)
		}
		return true
	})
}

// traverse visits grid cells along the ray between distances t0 and t1 using
// a 3D DDA. visit returns false to stop.
func (ix *Index) traverse(origin, dir mgl64.Vec3, t0, t1 float64, visit func(CellKey, float64) bool) {
	start := origin.Add(dir.Mul(t0))
	cell := ix.cellOf(start)
	pos := [3]int{cell.X, cell.Y, cell.Z}

	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
			boundary := float64(pos[i]+1) * ix.cellSize
			tMax[i] = t0 + (boundary-start[i])/dir[i]
			tDelta[i] = ix.cellSize / dir[i]
		case dir[i] < 0:
			step[i] = -1
			boundary := float64(pos[i]) * ix.cellSize
			tMax[i] = t0 + (boundary-start[i])/dir[i]
			tDelta[i] = -ix.cellSize / dir[i]
		default:
			tMax[i] = gomath.Inf(1)
			tDelta[i] = gomath.Inf(1)
		}
	}

	t := t0
	for t <= t1 {
		if !visit(CellKey{pos[0], pos[1], pos[2]}, t) {
			return
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		pos[axis] += step[axis]
		tMax[axis] += tDelta[axis]
	}
}
