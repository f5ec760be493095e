package config

import "github.com/spf13/pflag"

// Flags holds CLI overrides. Zero values leave the config untouched.
type Flags struct {
	Config          string
	Debug           bool
	LogFile         string
	CellSize        float64
	Workers         int
	TerrainFile     string
	TerrainCellSize float64
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to file")
	fs.Float64Var(&f.CellSize, "broadphase-cell", 0, "Broad-phase cell size")
	fs.IntVar(&f.Workers, "workers", 0, "Narrow-phase worker count")
	fs.StringVar(&f.TerrainFile, "terrain", "", "Heightfield file")
	fs.Float64Var(&f.TerrainCellSize, "terrain-cell", 0, "Terrain cell size (0 = value stored in the file)")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.CellSize > 0 {
		cfg.Physics.BroadphaseCellSize = f.CellSize
	}
	if f.Workers > 0 {
		cfg.Physics.Workers = f.Workers
	}
	if f.TerrainFile != "" {
		cfg.Terrain.File = f.TerrainFile
	}
	if f.TerrainCellSize > 0 {
		cfg.Terrain.CellSize = f.TerrainCellSize
	}
}
