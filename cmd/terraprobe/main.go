// terraprobe is a CLI utility for heightfield terrain files: it generates and
// inspects them, and runs ray, shape and particle queries against them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/config"
	"github.com/Faultbox/midgard-collision/internal/dynamics"
	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/internal/query"
	"github.com/Faultbox/midgard-collision/internal/terrain"
)

var errNoTerrain = errors.New("no terrain file: pass --terrain or set terrain.file")

// app is the state shared by all subcommands.
type app struct {
	flags *config.Flags
	cfg   *config.Config
	mask  uint32
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	c := &cobra.Command{
		Use:           "terraprobe",
		Short:         "Heightfield terrain collision utility",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("", a.flags)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags = config.BindFlags(c.PersistentFlags())
	c.PersistentFlags().Uint32Var(&a.mask, "mask", 0, "Query layer mask (0 = config default)")

	c.AddCommand(
		infoCmd(a),
		genCmd(a),
		raycastCmd(a),
		spherecastCmd(a),
		overlapCmd(a),
		dropCmd(a),
	)
	return c
}

// world builds a world from the config and attaches the configured terrain.
func (a *app) world() (*dynamics.World, *terrain.Terrain, error) {
	if a.cfg.Terrain.File == "" {
		return nil, nil, errNoTerrain
	}

	w := dynamics.NewWorld(a.cfg.Physics)
	if err := w.ApplyLayers(a.cfg.Layers); err != nil {
		w.Close()
		return nil, nil, err
	}
	t, err := terrain.Load(w, a.cfg.Terrain)
	if err != nil {
		logger.Error("terrain load failed", zap.String("file", a.cfg.Terrain.File), zap.Error(err))
		w.Close()
		return nil, nil, err
	}
	t.Attach()

	logger.Debug("world ready",
		zap.String("terrain", a.cfg.Terrain.File),
		zap.Float64("cell_size", t.Options().CellSize),
		zap.Int("proxies", w.Index().Len()))
	return w, t, nil
}

func (a *app) queryOptions() []query.Option {
	if a.mask == 0 {
		return nil
	}
	return []query.Option{query.WithMask(dynamics.LayerMask(a.mask))}
}

func vec3(name string, v []float64) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("--%s needs 3 components, got %d", name, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v[0], v[1], v[2])
}
