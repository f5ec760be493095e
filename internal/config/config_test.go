package config

import (
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test physics defaults
	if cfg.Physics.BroadphaseCellSize != 4.0 {
		t.Errorf("expected cell size 4.0, got %v", cfg.Physics.BroadphaseCellSize)
	}
	if cfg.Physics.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Physics.Workers)
	}
	if cfg.Physics.DefaultQueryMask != 0xFFFFFFFF {
		t.Errorf("expected all-layers query mask, got %#x", cfg.Physics.DefaultQueryMask)
	}

	// Test terrain defaults
	// Terrain placement comes from the heightfield file unless overridden.
	if cfg.Terrain.CellSize != 0 || cfg.Terrain.Origin != nil {
		t.Errorf("expected no terrain placement override, got %v %v", cfg.Terrain.CellSize, cfg.Terrain.Origin)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
physics:
  broadphase_cell_size: 8
  workers: 2
  default_query_mask: 3

terrain:
  file: "prontera.hfld"
  cell_size: 5
  origin: [10, 0, -10]
  layer: 2

layers:
  names:
    ground: 2
    debris: 7
  disabled:
    - [ground, debris]

logging:
  level: "debug"
  log_file: "collision.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Physics.BroadphaseCellSize != 8 {
		t.Errorf("expected cell size 8, got %v", cfg.Physics.BroadphaseCellSize)
	}
	if cfg.Physics.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Physics.Workers)
	}
	if cfg.Physics.DefaultQueryMask != 3 {
		t.Errorf("expected query mask 3, got %d", cfg.Physics.DefaultQueryMask)
	}
	// Untouched keys keep their defaults.
	if cfg.Physics.RayMaxDistance != 1000 {
		t.Errorf("expected default ray distance, got %v", cfg.Physics.RayMaxDistance)
	}

	if cfg.Terrain.File != "prontera.hfld" {
		t.Errorf("expected terrain file, got %s", cfg.Terrain.File)
	}
	if cfg.Terrain.Origin == nil || *cfg.Terrain.Origin != [3]float64{10, 0, -10} {
		t.Errorf("unexpected origin %v", cfg.Terrain.Origin)
	}
	if cfg.Terrain.CellSize != 5 {
		t.Errorf("expected terrain cell size 5, got %v", cfg.Terrain.CellSize)
	}
	if cfg.Terrain.Layer != 2 {
		t.Errorf("expected terrain layer 2, got %d", cfg.Terrain.Layer)
	}

	if cfg.Layers.Names["debris"] != 7 {
		t.Errorf("expected debris layer 7, got %d", cfg.Layers.Names["debris"])
	}
	if len(cfg.Layers.Disabled) != 1 {
		t.Errorf("expected 1 disabled pair, got %d", len(cfg.Layers.Disabled))
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
physics:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cell size", func(c *Config) { c.Physics.BroadphaseCellSize = 0 }},
		{"NaN cell size", func(c *Config) { c.Physics.BroadphaseCellSize = gomath.NaN() }},
		{"infinite cell size", func(c *Config) { c.Physics.BroadphaseCellSize = gomath.Inf(1) }},
		{"no cells per proxy", func(c *Config) { c.Physics.MaxCellsPerProxy = 0 }},
		{"no workers", func(c *Config) { c.Physics.Workers = 0 }},
		{"zero ray distance", func(c *Config) { c.Physics.RayMaxDistance = 0 }},
		{"negative ray distance", func(c *Config) { c.Physics.RayMaxDistance = -5 }},
		{"NaN ray distance", func(c *Config) { c.Physics.RayMaxDistance = gomath.NaN() }},
		{"negative terrain cell", func(c *Config) { c.Terrain.CellSize = -1 }},
		{"NaN terrain cell", func(c *Config) { c.Terrain.CellSize = gomath.NaN() }},
		{"infinite terrain origin", func(c *Config) { c.Terrain.Origin = &[3]float64{0, gomath.Inf(-1), 0} }},
		{"terrain layer too high", func(c *Config) { c.Terrain.Layer = NumLayers }},
		{"named layer too high", func(c *Config) { c.Layers.Names["sky"] = 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"defaults", func(c *Config) {}},
		{"terrain cell from file", func(c *Config) { c.Terrain.CellSize = 0 }},
		{"terrain overrides", func(c *Config) {
			c.Terrain.CellSize = 0.25
			c.Terrain.Origin = &[3]float64{-100, 5, 100}
		}},
		{"single cell per proxy", func(c *Config) { c.Physics.MaxCellsPerProxy = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)

	err := fs.Parse([]string{"--debug", "--workers", "8", "--terrain-cell", "2.5", "--terrain", "map.hfld"})
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg := Default()
	flags.apply(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Physics.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Physics.Workers)
	}
	if cfg.Terrain.CellSize != 2.5 {
		t.Errorf("expected terrain cell 2.5, got %v", cfg.Terrain.CellSize)
	}
	if cfg.Terrain.File != "map.hfld" {
		t.Errorf("expected terrain file map.hfld, got %s", cfg.Terrain.File)
	}
	// Unset flags leave defaults.
	if cfg.Physics.BroadphaseCellSize != 4.0 {
		t.Errorf("expected default cell size, got %v", cfg.Physics.BroadphaseCellSize)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
physics:
  broadphase_cell_size: 16
  workers: 3
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"--config", configPath, "--workers", "6"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Workers should be from flag (6), not file (3)
	if cfg.Physics.Workers != 6 {
		t.Errorf("expected 6 workers from flag, got %d", cfg.Physics.Workers)
	}
	// Cell size should be from file since no flag override
	if cfg.Physics.BroadphaseCellSize != 16 {
		t.Errorf("expected cell size 16 from file, got %v", cfg.Physics.BroadphaseCellSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("physics:\n  workers: -1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(configPath, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Terrain.CellSize = 3
	cfg.Layers.Disabled = [][2]string{{"0", "1"}}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Terrain.CellSize != 3 {
		t.Errorf("expected cell size 3, got %v", loaded.Terrain.CellSize)
	}
	if len(loaded.Layers.Disabled) != 1 {
		t.Errorf("expected disabled pair to survive, got %v", loaded.Layers.Disabled)
	}
}

type recordingMatrix struct {
	disabled [][2]int
}

func (m *recordingMatrix) Disable(a, b int) {
	m.disabled = append(m.disabled, [2]int{a, b})
}

func TestLayersApply(t *testing.T) {
	layers := LayersConfig{
		Names:    map[string]int{"ground": 2, "debris": 7},
		Disabled: [][2]string{{"ground", "debris"}, {"3", "debris"}},
	}
	m := &recordingMatrix{}
	if err := layers.Apply(m); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := [][2]int{{2, 7}, {3, 7}}
	if len(m.disabled) != len(want) {
		t.Fatalf("expected %d disabled pairs, got %v", len(want), m.disabled)
	}
	for i := range want {
		if m.disabled[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, m.disabled[i], want[i])
		}
	}

	layers.Disabled = [][2]string{{"ground", "water"}}
	if err := layers.Apply(m); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("expected ErrUnknownLayer, got %v", err)
	}
}
