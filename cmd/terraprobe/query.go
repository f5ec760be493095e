package main

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-collision/internal/query"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

const marchRefine = 20

func raycastCmd(a *app) *cobra.Command {
	var (
		from, dir []float64
		length    float64
		all       bool
	)
	c := &cobra.Command{
		Use:   "raycast",
		Short: "Cast a ray against the terrain",
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := vec3("from", from)
			if err != nil {
				return err
			}
			direction, err := vec3("dir", dir)
			if err != nil {
				return err
			}
			w, _, err := a.world()
			if err != nil {
				return err
			}
			defer w.Close()

			e := query.New(w)
			out := cmd.OutOrStdout()
			if all {
				hits := e.RaycastAll(origin, direction, length, a.queryOptions()...)
				for _, h := range hits {
					fmt.Fprintf(out, "proxy %-6d  point %s  normal %s  distance %.4f\n",
						h.Proxy.ProxyID(), formatVec(h.Point), formatVec(h.Normal), h.Distance)
				}
				fmt.Fprintf(out, "(%d hits)\n", len(hits))
				return nil
			}

			h, ok := e.Raycast(origin, direction, length, a.queryOptions()...)
			if !ok {
				fmt.Fprintln(out, "No hit")
				return nil
			}
			fmt.Fprintf(out, "Point:    %s\n", formatVec(h.Point))
			fmt.Fprintf(out, "Normal:   %s\n", formatVec(h.Normal))
			fmt.Fprintf(out, "Distance: %.4f\n", h.Distance)
			fmt.Fprintf(out, "Fraction: %.4f\n", h.Fraction)
			return nil
		},
	}
	c.Flags().Float64SliceVar(&from, "from", nil, "Ray origin x,y,z")
	c.Flags().Float64SliceVar(&dir, "dir", nil, "Ray direction x,y,z (needs a horizontal component to reach terrain)")
	c.Flags().Float64Var(&length, "length", 0, "Ray length (0 = config default)")
	c.Flags().BoolVar(&all, "all", false, "Report every hit")
	return c
}

// spherecastCmd moves a sphere along the path in steps of half its radius
// and reports the first position where it touches the terrain. Shape casts
// proper only sweep against rigid bodies.
func spherecastCmd(a *app) *cobra.Command {
	var (
		from, dir []float64
		radius    float64
		length    float64
	)
	c := &cobra.Command{
		Use:   "spherecast",
		Short: "Sweep a sphere and report where it first touches the terrain",
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := vec3("from", from)
			if err != nil {
				return err
			}
			direction, err := vec3("dir", dir)
			if err != nil {
				return err
			}
			if radius <= 0 || length <= 0 {
				return fmt.Errorf("radius and length must be positive")
			}
			w, _, err := a.world()
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			at, dist, ok := marchSphere(query.New(w), origin, direction, radius, length, a.queryOptions()...)
			if !ok {
				fmt.Fprintln(out, "No hit")
				return nil
			}
			fmt.Fprintf(out, "Center:   %s\n", formatVec(at))
			fmt.Fprintf(out, "Distance: %.4f\n", dist)
			fmt.Fprintf(out, "Fraction: %.4f\n", dist/length)
			return nil
		},
	}
	c.Flags().Float64SliceVar(&from, "from", nil, "Sphere start x,y,z")
	c.Flags().Float64SliceVar(&dir, "dir", []float64{0, -1, 0}, "Sweep direction x,y,z")
	c.Flags().Float64Var(&radius, "radius", 0.5, "Sphere radius")
	c.Flags().Float64Var(&length, "length", 100, "Sweep length")
	return c
}

// marchSphere returns the first sphere center along the path that touches
// anything, refined by bisection between the last free and first blocked step.
func marchSphere(e *query.Engine, origin, direction mgl64.Vec3, radius, length float64, opts ...query.Option) (mgl64.Vec3, float64, bool) {
	dir := math.SafeNormalize(direction)
	if dir == (mgl64.Vec3{}) {
		return mgl64.Vec3{}, 0, false
	}
	at := func(d float64) mgl64.Vec3 { return origin.Add(dir.Mul(d)) }
	if e.CheckSphere(origin, radius, opts...) {
		return origin, 0, true
	}

	step := radius / 2
	free := 0.0
	for d := step; free < length; d += step {
		d = gomath.Min(d, length)
		if !e.CheckSphere(at(d), radius, opts...) {
			free = d
			continue
		}
		blocked := d
		for i := 0; i < marchRefine; i++ {
			mid := (free + blocked) / 2
			if e.CheckSphere(at(mid), radius, opts...) {
				blocked = mid
			} else {
				free = mid
			}
		}
		return at(blocked), blocked, true
	}
	return mgl64.Vec3{}, 0, false
}

func overlapCmd(a *app) *cobra.Command {
	var (
		at     []float64
		radius float64
	)
	c := &cobra.Command{
		Use:   "overlap",
		Short: "List everything a sphere overlaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := vec3("at", at)
			if err != nil {
				return err
			}
			w, _, err := a.world()
			if err != nil {
				return err
			}
			defer w.Close()

			hits := query.New(w).OverlapSphere(pos, radius, a.queryOptions()...)
			out := cmd.OutOrStdout()
			for _, h := range hits {
				fmt.Fprintf(out, "proxy %-6d  normal %s  depth %.4f\n",
					h.Proxy.ProxyID(), formatVec(h.Normal), h.Depth)
			}
			fmt.Fprintf(out, "(%d overlaps)\n", len(hits))
			return nil
		},
	}
	c.Flags().Float64SliceVar(&at, "at", nil, "Sphere center x,y,z")
	c.Flags().Float64Var(&radius, "radius", 0.5, "Sphere radius")
	return c
}
