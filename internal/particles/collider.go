// Package particles collides point particles with the world through ray
// casts. The Quality setting trades accuracy for ray count.
package particles

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/query"
)

// Quality selects how particle collisions are resolved.
type Quality int

const (
	// QualityHigh casts one ray per moving particle.
	QualityHigh Quality = iota
	// QualityMedium casts one ray per small voxel bucket and shares the hit
	// plane with the bucket.
	QualityMedium
	// QualityLow is QualityMedium with larger buckets.
	QualityLow
)

func (q Quality) String() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityMedium:
		return "medium"
	case QualityLow:
		return "low"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// VoxelSize returns the bucket edge length for q; zero for QualityHigh.
func VoxelSize(q Quality) float64 {
	switch q {
	case QualityMedium:
		return 0.5
	case QualityLow:
		return 2.0
	default:
		return 0
	}
}

const (
	DefaultRadius = 0.05
	DefaultBounce = 0.5

	// minMotion is the step length below which a particle is treated as resting.
	minMotion = 1e-9
)

// Particle is a point with a velocity.
type Particle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// Raycaster is the ray query a collider needs; *query.Engine implements it.
type Raycaster interface {
	Raycast(origin, direction mgl64.Vec3, maxDistance float64, opts ...query.Option) (query.RaycastHit, bool)
}

// Collider moves particles and bounces them off whatever the rays hit.
type Collider struct {
	Quality Quality
	Radius  float64
	Bounce  float64 // fraction of normal speed kept after a bounce

	rays Raycaster
	opts []query.Option
}

// NewCollider creates a collider with the default radius and bounce. opts
// are passed to every ray query.
func NewCollider(rays Raycaster, quality Quality, opts ...query.Option) *Collider {
	return &Collider{
		Quality: quality,
		Radius:  DefaultRadius,
		Bounce:  DefaultBounce,
		rays:    rays,
		opts:    opts,
	}
}

// plane is a ray hit shared by a bucket.
type plane struct {
	point, normal mgl64.Vec3
}

// Collide advances every particle by dt and reflects the velocity of those
// that hit something. Returns the number of collisions.
func (c *Collider) Collide(ps []Particle, dt float64) int {
	if dt <= 0 || len(ps) == 0 {
		return 0
	}
	if c.Quality == QualityHigh || VoxelSize(c.Quality) <= 0 {
		return c.collideExact(ps, dt)
	}
	return c.collideBucketed(ps, dt, VoxelSize(c.Quality))
}

func (c *Collider) collideExact(ps []Particle, dt float64) int {
	n := 0
	for i := range ps {
		p := &ps[i]
		motion := p.Velocity.Mul(dt)
		dist := motion.Len()
		if dist < minMotion {
			continue
		}

		hit, ok := c.rays.Raycast(p.Position, motion, dist+c.Radius, c.opts...)
		if ok && hit.Distance-c.Radius <= dist {
			c.bounce(p, hit.Point, hit.Normal)
			n++
			continue
		}
		p.Position = p.Position.Add(motion)
	}
	return n
}

func (c *Collider) collideBucketed(ps []Particle, dt, voxel float64) int {
	buckets := make(map[broadphase.CellKey][]int)
	var order []broadphase.CellKey
	for i := range ps {
		k := voxelOf(ps[i].Position, voxel)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], i)
	}

	n := 0
	for _, k := range order {
		members := buckets[k]
		hitPlane, ok := c.sample(ps, members, dt, voxel)
		for _, i := range members {
			p := &ps[i]
			motion := p.Velocity.Mul(dt)
			if ok && c.crossPlane(p, motion, hitPlane) {
				n++
				continue
			}
			p.Position = p.Position.Add(motion)
		}
	}
	return n
}

// sample casts one ray for a bucket from its first moving particle. The ray
// is long enough to cover the fastest member plus the bucket size.
func (c *Collider) sample(ps []Particle, members []int, dt, voxel float64) (plane, bool) {
	rep := -1
	reach := 0.0
	for _, i := range members {
		d := ps[i].Velocity.Mul(dt).Len()
		if d < minMotion {
			continue
		}
		if rep < 0 {
			rep = i
		}
		reach = gomath.Max(reach, d)
	}
	if rep < 0 {
		return plane{}, false
	}

	motion := ps[rep].Velocity.Mul(dt)
	hit, ok := c.rays.Raycast(ps[rep].Position, motion, reach+c.Radius+voxel*gomath.Sqrt(3), c.opts...)
	if !ok {
		return plane{}, false
	}
	return plane{point: hit.Point, normal: hit.Normal}, true
}

// crossPlane moves p onto the plane if its step crosses it from the front.
func (c *Collider) crossPlane(p *Particle, motion mgl64.Vec3, pl plane) bool {
	approach := motion.Dot(pl.normal)
	if approach >= 0 {
		return false
	}
	gap := p.Position.Sub(pl.point).Dot(pl.normal) - c.Radius
	if gap < 0 || gap+approach > 0 {
		return false
	}

	t := gap / -approach
	contact := p.Position.Add(motion.Mul(t)).Sub(pl.normal.Mul(c.Radius))
	c.bounce(p, contact, pl.normal)
	return true
}

// bounce puts p one radius off the surface point and reflects its velocity.
func (c *Collider) bounce(p *Particle, point, normal mgl64.Vec3) {
	p.Position = point.Add(normal.Mul(c.Radius))
	vn := p.Velocity.Dot(normal)
	if vn < 0 {
		p.Velocity = p.Velocity.Sub(normal.Mul((1 + c.Bounce) * vn))
	}
}

func voxelOf(p mgl64.Vec3, size float64) broadphase.CellKey {
	return broadphase.CellKey{
		X: int(gomath.Floor(p[0] / size)),
		Y: int(gomath.Floor(p[1] / size)),
		Z: int(gomath.Floor(p[2] / size)),
	}
}
