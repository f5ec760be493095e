package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-collision/pkg/formats"
)

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file.hfld]",
		Short: "Show heightfield file information",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Terrain.File
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return errNoTerrain
			}

			hf, err := formats.ParseHeightfieldFile(path)
			if err != nil {
				return err
			}

			lo, hi := hf.GetHeightRange()
			cells := int(hf.Width) * int(hf.Height)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:      %s\n", path)
			fmt.Fprintf(out, "Version:   %s\n", hf.Version)
			fmt.Fprintf(out, "Cells:     %d x %d (%d)\n", hf.Width, hf.Height, cells)
			fmt.Fprintf(out, "Cell size: %.4f\n", hf.CellSize)
			fmt.Fprintf(out, "Origin:    (%.4f, %.4f, %.4f)\n", hf.Origin[0], hf.Origin[1], hf.Origin[2])
			fmt.Fprintf(out, "Heights:   %.4f .. %.4f\n", lo, hi)
			fmt.Fprintf(out, "Holes:     %d\n", hf.CountHoles())
			fmt.Fprintf(out, "Triangles: %d\n", 2*cells)
			return nil
		},
	}
}
