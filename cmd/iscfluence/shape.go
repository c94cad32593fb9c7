package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iscfluence/internal/models"
	"iscfluence/pkg/fluence"
	"iscfluence/pkg/visualization"
)

var shapeOpts struct {
	plan   string
	beam   string
	output string
}

var shapeCmd = &cobra.Command{
	Use:   "shape [fluence-file]",
	Short: "Fit a fluence to the aperture of a template beam",
	Long: `Shape a fluence file with the MLC aperture of the first control point of a
beam in a plan. Pixels outside the field are cleared, empty pixels inside the
field get the flush value and low pixels are raised to the minimum fluence.`,
	Args: cobra.ExactArgs(1),
	RunE: runShape,
}

func init() {
	f := shapeCmd.Flags()
	f.StringVarP(&shapeOpts.plan, "plan", "p", "", "Plan description file")
	f.StringVarP(&shapeOpts.beam, "beam", "b", "", "Template beam id (default: the fluence beam id)")
	f.StringVarP(&shapeOpts.output, "output", "o", "", "Output file (default: overwrite the input)")
	shapeCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(shapeCmd)
}

func runShape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig("shape")
	if err != nil {
		return err
	}

	g, err := fluence.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading fluence file: %w", err)
	}

	plan, err := models.LoadPlan(shapeOpts.plan)
	if err != nil {
		return err
	}

	beamID := shapeOpts.beam
	if beamID == "" {
		beamID = g.BeamID
	}
	beam, ok := plan.Beam(beamID)
	if !ok {
		return fmt.Errorf("plan %s has no beam %s", plan.ID, beamID)
	}

	ap, err := beam.Aperture(0)
	if err != nil {
		return err
	}
	opts := fluence.ShapeOptions{
		Margin:         cfg.Shaping.Margin,
		FlushValue:     cfg.Shaping.FlushValue,
		MinimumFluence: cfg.Shaping.MinimumFluence,
	}
	if err := g.Shape(ap, beam.ControlPoints[0].GantryAngle, opts); err != nil {
		return err
	}

	output := shapeOpts.output
	if output == "" {
		output = args[0]
	}
	if err := g.WriteFile(output); err != nil {
		return err
	}
	logger.WithField("beam", beamID).Infof("shaped fluence written to %s", output)

	if cfg.Output.SaveImages {
		if err := visualization.SaveBeamImages(cfg.Output.ImageDir, g, nil); err != nil {
			logger.Warnf("failed to save preview: %v", err)
		}
	}
	return nil
}
