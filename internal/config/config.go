// Package config handles collision world configuration loading and management.
package config

import (
	"errors"
	"fmt"
	gomath "math"
)

// NumLayers is the number of collision layers a world supports.
const NumLayers = 32

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all collision settings.
type Config struct {
	Physics PhysicsConfig `yaml:"physics"`
	Terrain TerrainConfig `yaml:"terrain"`
	Layers  LayersConfig  `yaml:"layers"`
	Logging LoggingConfig `yaml:"logging"`
}

// PhysicsConfig holds world and query settings.
type PhysicsConfig struct {
	BroadphaseCellSize float64 `yaml:"broadphase_cell_size"` // spatial hash cell edge in world units
	MaxCellsPerProxy   int     `yaml:"max_cells_per_proxy"`  // larger proxies go to the oversized list
	Workers            int     `yaml:"workers"`              // narrow-phase goroutines per step
	DefaultQueryMask   uint32  `yaml:"default_query_mask"`
	RayMaxDistance     float64 `yaml:"ray_max_distance"`
}

// TerrainConfig holds heightmap placement settings. CellSize and Origin
// override the placement stored in the heightfield file; zero and nil keep it.
type TerrainConfig struct {
	File     string      `yaml:"file"`
	CellSize float64     `yaml:"cell_size,omitempty"`
	Origin   *[3]float64 `yaml:"origin,omitempty"`
	Layer    int         `yaml:"layer"`
}

// LayersConfig names layers and lists layer pairs that never collide.
type LayersConfig struct {
	Names    map[string]int `yaml:"names"`
	Disabled [][2]string    `yaml:"disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{
			BroadphaseCellSize: 4.0,
			MaxCellsPerProxy:   64,
			Workers:            4,
			DefaultQueryMask:   0xFFFFFFFF,
			RayMaxDistance:     1000,
		},
		Terrain: TerrainConfig{
			Layer: 0,
		},
		Layers: LayersConfig{
			Names: map[string]int{"default": 0},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// DefaultPhysics returns the default physics settings.
func DefaultPhysics() PhysicsConfig {
	return Default().Physics
}

func finite(f float64) bool {
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}

// Validate checks settings that would otherwise fail deep inside a world.
func (c *Config) Validate() error {
	p := c.Physics
	if !finite(p.BroadphaseCellSize) || p.BroadphaseCellSize <= 0 {
		return fmt.Errorf("%w: broadphase_cell_size must be positive, got %v", ErrInvalidConfig, p.BroadphaseCellSize)
	}
	if p.MaxCellsPerProxy < 1 {
		return fmt.Errorf("%w: max_cells_per_proxy must be at least 1, got %d", ErrInvalidConfig, p.MaxCellsPerProxy)
	}
	if p.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, p.Workers)
	}
	if !finite(p.RayMaxDistance) || p.RayMaxDistance <= 0 {
		return fmt.Errorf("%w: ray_max_distance must be positive, got %v", ErrInvalidConfig, p.RayMaxDistance)
	}
	if !finite(c.Terrain.CellSize) || c.Terrain.CellSize < 0 {
		return fmt.Errorf("%w: terrain cell_size must be positive or 0 for the file value, got %v", ErrInvalidConfig, c.Terrain.CellSize)
	}
	if o := c.Terrain.Origin; o != nil && (!finite(o[0]) || !finite(o[1]) || !finite(o[2])) {
		return fmt.Errorf("%w: terrain origin %v", ErrInvalidConfig, *o)
	}
	if c.Terrain.Layer < 0 || c.Terrain.Layer >= NumLayers {
		return fmt.Errorf("%w: terrain layer %d out of range", ErrInvalidConfig, c.Terrain.Layer)
	}
	for name, l := range c.Layers.Names {
		if l < 0 || l >= NumLayers {
			return fmt.Errorf("%w: layer %q index %d out of range", ErrInvalidConfig, name, l)
		}
	}
	return nil
}
