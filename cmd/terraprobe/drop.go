package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/internal/particles"
	"github.com/Faultbox/midgard-collision/internal/query"
)

func parseQuality(s string) (particles.Quality, error) {
	for _, q := range []particles.Quality{particles.QualityHigh, particles.QualityMedium, particles.QualityLow} {
		if q.String() == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quality %q (high, medium, low)", s)
}

// dropCmd rains a grid of particles onto the terrain and reports how many
// bounce.
func dropCmd(a *app) *cobra.Command {
	var (
		quality  string
		count    int
		altitude float64
		steps    int
		dt       float64
		drift    float64
	)
	c := &cobra.Command{
		Use:   "drop",
		Short: "Drop particles onto the terrain",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuality(quality)
			if err != nil {
				return err
			}
			if count <= 0 || steps <= 0 || dt <= 0 {
				return fmt.Errorf("count, steps and dt must be positive")
			}
			w, t, err := a.world()
			if err != nil {
				return err
			}
			defer w.Close()

			b := t.Proxy().Bounds()
			ps := make([]particles.Particle, 0, count*count)
			for i := 0; i < count; i++ {
				for j := 0; j < count; j++ {
					x := b.Min[0] + (b.Max[0]-b.Min[0])*(float64(i)+0.5)/float64(count)
					z := b.Min[2] + (b.Max[2]-b.Min[2])*(float64(j)+0.5)/float64(count)
					ps = append(ps, particles.Particle{
						Position: mgl64.Vec3{x, b.Max[1] + altitude, z},
						Velocity: mgl64.Vec3{drift, 0, drift},
					})
				}
			}

			col := particles.NewCollider(query.New(w), q, a.queryOptions()...)
			gravity := mgl64.Vec3{0, -9.81, 0}
			total := 0
			start := time.Now()
			for s := 0; s < steps; s++ {
				for i := range ps {
					ps[i].Velocity = ps[i].Velocity.Add(gravity.Mul(dt))
				}
				total += col.Collide(ps, dt)
			}
			elapsed := time.Since(start)

			logger.Debug("drop finished",
				zap.Stringer("quality", q),
				zap.Int("particles", len(ps)),
				zap.Int("collisions", total),
				zap.Duration("elapsed", elapsed))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Quality:    %s\n", q)
			fmt.Fprintf(out, "Particles:  %d\n", len(ps))
			fmt.Fprintf(out, "Steps:      %d\n", steps)
			fmt.Fprintf(out, "Collisions: %d\n", total)
			fmt.Fprintf(out, "Elapsed:    %v\n", elapsed)
			return nil
		},
	}
	c.Flags().StringVar(&quality, "quality", "high", "Collision quality: high, medium, low")
	c.Flags().IntVar(&count, "count", 16, "Particles per side of the grid")
	c.Flags().Float64Var(&altitude, "altitude", 5, "Drop height above the highest terrain point")
	c.Flags().IntVar(&steps, "steps", 120, "Simulation steps")
	c.Flags().Float64Var(&dt, "dt", 1.0/60, "Step length in seconds")
	c.Flags().Float64Var(&drift, "drift", 0.5, "Horizontal speed; rays need it to reach terrain")
	return c
}
