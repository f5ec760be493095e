package terrain

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/config"
	"github.com/Faultbox/midgard-collision/internal/dynamics"
	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/pkg/formats"
)

// ErrInvalidTerrain is returned when a terrain cannot be built.
var ErrInvalidTerrain = errors.New("invalid terrain")

// Options places a heightmap in the world.
type Options struct {
	CellSize float64
	Origin   mgl64.Vec3
	Layer    int
}

// OptionsFrom places a heightfield file using the terrain section of the
// config. Cell size and origin come from the file unless the config sets them.
func OptionsFrom(c config.TerrainConfig, f *formats.Heightfield) Options {
	opts := OptionsFromFile(f, c.Layer)
	if c.CellSize > 0 {
		opts.CellSize = c.CellSize
	}
	if c.Origin != nil {
		opts.Origin = mgl64.Vec3(*c.Origin)
	}
	return opts
}

// OptionsFromFile takes the placement stored in an HFLD file.
func OptionsFromFile(f *formats.Heightfield, layer int) Options {
	return Options{
		CellSize: float64(f.CellSize),
		Origin:   mgl64.Vec3{float64(f.Origin[0]), float64(f.Origin[1]), float64(f.Origin[2])},
		Layer:    layer,
	}
}

// Terrain owns a height provider together with its proxy and filter, and
// registers them with a world.
type Terrain struct {
	world    *dynamics.World
	provider HeightProvider
	opts     Options
	proxy    *HeightmapProxy
	filter   *CollisionFilter
	attached bool
}

func finite(f float64) bool {
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}

// New builds a detached terrain.
func New(world *dynamics.World, provider HeightProvider, opts Options) (*Terrain, error) {
	if world == nil || provider == nil {
		return nil, fmt.Errorf("%w: nil world or provider", ErrInvalidTerrain)
	}
	if provider.Width() <= 0 || provider.Height() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d cells", ErrInvalidTerrain, provider.Width(), provider.Height())
	}
	if !finite(opts.CellSize) || opts.CellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size %v", ErrInvalidTerrain, opts.CellSize)
	}
	if !finite(opts.Origin[0]) || !finite(opts.Origin[1]) || !finite(opts.Origin[2]) {
		return nil, fmt.Errorf("%w: origin %v", ErrInvalidTerrain, opts.Origin)
	}
	if opts.Layer < 0 || opts.Layer >= config.NumLayers {
		return nil, fmt.Errorf("%w: layer %d", ErrInvalidTerrain, opts.Layer)
	}

	id, _ := world.IDs().RequestID(1)
	proxy := NewHeightmapProxy(id, provider, opts.Origin, opts.CellSize, opts.Layer)
	t := &Terrain{
		world:    world,
		provider: provider,
		opts:     opts,
		proxy:    proxy,
		filter:   NewCollisionFilter(world, proxy),
	}

	first, last := t.filter.TriangleRange()
	logger.Named("terrain").Info("terrain created",
		zap.Int("width", provider.Width()),
		zap.Int("height", provider.Height()),
		zap.Float64("cell_size", opts.CellSize),
		zap.Uint64("proxy", id),
		zap.Uint64("first_triangle", first),
		zap.Uint64("last_triangle", last))
	return t, nil
}

// Load reads c.File and builds a detached terrain placed by OptionsFrom.
func Load(world *dynamics.World, c config.TerrainConfig) (*Terrain, error) {
	f, err := formats.ParseHeightfieldFile(c.File)
	if err != nil {
		return nil, err
	}
	return New(world, FromFile(f), OptionsFrom(c, f))
}

func (t *Terrain) Proxy() *HeightmapProxy   { return t.proxy }
func (t *Terrain) Filter() *CollisionFilter { return t.filter }
func (t *Terrain) Provider() HeightProvider { return t.provider }
func (t *Terrain) Options() Options         { return t.opts }
func (t *Terrain) Attached() bool           { return t.attached }

// Attach registers the proxy and filter with the world. Attaching twice is a no-op.
func (t *Terrain) Attach() {
	if t.attached {
		return
	}
	t.world.RegisterTerrain(t.proxy, t.filter)
	t.attached = true
}

// Detach unregisters the terrain. Contacts against its triangles age out on
// the next step.
func (t *Terrain) Detach() {
	if !t.attached {
		return
	}
	t.world.UnregisterTerrain(t.proxy, t.filter)
	t.attached = false
}

// Rebuild picks up changes made to the provider. It must not run concurrently
// with Step or queries. Triangle IDs are kept unless the grid size changed.
func (t *Terrain) Rebuild() {
	wasAttached := t.attached
	t.Detach()

	t.proxy.updateBounds()
	if t.provider.Width() != t.filter.width || t.provider.Height() != t.filter.height {
		t.filter = NewCollisionFilter(t.world, t.proxy)
		first, last := t.filter.TriangleRange()
		logger.Named("terrain").Debug("terrain resized",
			zap.Int("width", t.provider.Width()),
			zap.Int("height", t.provider.Height()),
			zap.Uint64("first_triangle", first),
			zap.Uint64("last_triangle", last))
	}

	if wasAttached {
		t.Attach()
	}
}
