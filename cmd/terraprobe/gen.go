package main

import (
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/internal/terrain"
)

// heightFunc returns the vertex height generator for kind.
func heightFunc(kind string, amplitude float64, seed uint64) (func(x, z int) float64, error) {
	switch kind {
	case "flat":
		return func(x, z int) float64 { return 0 }, nil
	case "slope":
		return func(x, z int) float64 { return amplitude * float64(x) }, nil
	case "noise":
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return func(x, z int) float64 { return amplitude * r.Float64() }, nil
	case "wave":
		return func(x, z int) float64 {
			return amplitude * gomath.Sin(float64(x)/4) * gomath.Cos(float64(z)/4)
		}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q (flat, slope, noise, wave)", kind)
	}
}

func genCmd(a *app) *cobra.Command {
	var (
		width, height int
		cellSize      float64
		origin        []float64
		kind          string
		amplitude     float64
		seed          uint64
		holes         []int
	)
	c := &cobra.Command{
		Use:   "gen <output.hfld>",
		Short: "Generate a heightfield file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 || height <= 0 || cellSize <= 0 {
				return fmt.Errorf("invalid grid %dx%d with cell size %v", width, height, cellSize)
			}
			o, err := vec3("origin", origin)
			if err != nil {
				return err
			}
			fn, err := heightFunc(kind, amplitude, seed)
			if err != nil {
				return err
			}
			if len(holes)%2 != 0 {
				return fmt.Errorf("--hole takes x,z pairs")
			}

			hf := terrain.NewHeightfield(width, height)
			hf.Fill(fn)
			for i := 0; i < len(holes); i += 2 {
				hf.SetHole(holes[i], holes[i+1], true)
			}

			f := hf.ToFile(cellSize, [3]float64(o))
			if err := f.WriteFile(args[0]); err != nil {
				return err
			}
			logger.Info("heightfield written",
				zap.String("path", args[0]),
				zap.String("kind", kind),
				zap.Int("width", width),
				zap.Int("height", height))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d, %d holes)\n", args[0], width, height, f.CountHoles())
			return nil
		},
	}
	c.Flags().IntVar(&width, "width", 64, "Cells along X")
	c.Flags().IntVar(&height, "height", 64, "Cells along Z")
	c.Flags().Float64Var(&cellSize, "cell", 1, "Cell size in world units")
	c.Flags().Float64SliceVar(&origin, "origin", []float64{0, 0, 0}, "World position of vertex (0, 0)")
	c.Flags().StringVar(&kind, "kind", "flat", "Height pattern: flat, slope, noise, wave")
	c.Flags().Float64Var(&amplitude, "amplitude", 1, "Height scale")
	c.Flags().Uint64Var(&seed, "seed", 1, "Noise seed")
	c.Flags().IntSliceVar(&holes, "hole", nil, "Cell to mark as a hole, as x,z (repeatable)")
	return c
}
