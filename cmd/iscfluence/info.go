package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iscfluence/pkg/fluence"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display information about a fluence file",
	Long:  "Show the grid size, spacing, origin, the extent of the non-zero fluence and value statistics.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	g, err := fluence.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading fluence file: %w", err)
	}
	s := g.Summarize()

	fmt.Println("Fluence Information")
	fmt.Println("===================")
	fmt.Printf("Beam: %s\n", g.BeamID)
	fmt.Printf("File: %s\n\n", filename)

	fmt.Println("Grid:")
	fmt.Printf("  Size: %d x %d\n", g.SizeX, g.SizeY)
	fmt.Printf("  Spacing: %g x %g mm\n", g.SpacingX, g.SpacingY)
	fmt.Printf("  Origin: (%g, %g) mm\n", g.OriginX, g.OriginY)
	fmt.Printf("  Extent: x [%g, %g], y [%g, %g] mm\n\n", g.X(0), g.X(g.SizeX-1), g.Y(g.SizeY-1), g.Y(0))

	fmt.Println("Non-zero fluence:")
	fmt.Printf("  Pixels: %d of %d\n", s.NonZero, g.SizeX*g.SizeY)
	if s.NonZero > 0 {
		e := g.Edges
		fmt.Printf("  Columns: %d - %d\n", e.MinX, e.MaxX)
		fmt.Printf("  Rows: %d - %d\n", e.MinY, e.MaxY)
		fmt.Printf("  Mean: %.6f\n", s.NonZeroMean)
	}
	fmt.Println()

	fmt.Println("Values:")
	fmt.Printf("  Minimum: %.6f\n", s.Min)
	fmt.Printf("  Maximum: %.6f\n", s.Max)
	fmt.Printf("  Mean: %.6f\n", s.Mean)
	fmt.Printf("  Std. dev.: %.6f\n", s.StdDev)
	fmt.Printf("  Sum: %.6f\n", s.Sum)
	return nil
}
