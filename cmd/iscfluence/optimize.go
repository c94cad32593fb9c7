package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"iscfluence/internal/models"
	"iscfluence/pkg/config"
	"iscfluence/pkg/fluence"
	"iscfluence/pkg/optimizer"
	"iscfluence/pkg/visualization"
)

var optimizeOpts struct {
	outputDir  string
	fluenceDir string
	threshold  float64
	steps      int
	step       int
	noShape    bool
	images     bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [plan-file]",
	Short: "Reduce the optimal fluences of a plan",
	Long: `Collect the points where the plan dose is above the threshold, compute the
fluence reduction of every beam and write the reduced fluences.

With more than one step the range from the maximum dose down to the threshold
is split into equal steps and --step selects the threshold of this run; the
plan dose has to be recalculated between steps.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVarP(&optimizeOpts.outputDir, "output", "o", ".", "Directory for the reduced fluence files")
	f.StringVar(&optimizeOpts.fluenceDir, "fluence-dir", "", "Directory with <beam id><extension> fluence files for beams without fluenceFile (default: the plan directory)")
	f.Float64VarP(&optimizeOpts.threshold, "threshold", "t", 0, "Dose threshold in percent (default from config)")
	f.IntVar(&optimizeOpts.steps, "steps", 0, "Number of threshold steps (default from config)")
	f.IntVar(&optimizeOpts.step, "step", -1, "Threshold step of this run (default from config)")
	f.BoolVar(&optimizeOpts.noShape, "no-shape", false, "Do not fit the reduced fluences to the MLC apertures")
	f.BoolVar(&optimizeOpts.images, "images", false, "Save JPEG previews of the reduced fluences")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig("optimize")
	if err != nil {
		return err
	}

	applyOptimizeFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	planPath := args[0]
	plan, err := models.LoadPlan(planPath)
	if err != nil {
		return err
	}

	maxDose := plan.MaxDose()
	threshold, err := selectThreshold(cfg, maxDose)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"maxDose":   maxDose,
		"step":      cfg.Optimization.Step + 1,
		"steps":     cfg.Optimization.NumberOfSteps,
		"threshold": threshold,
	}).Info("threshold selected")

	fluenceDir := optimizeOpts.fluenceDir
	if fluenceDir == "" {
		fluenceDir = filepath.Dir(planPath)
	}
	fluences := make(map[string]*fluence.Grid, len(plan.Beams))
	for i := range plan.Beams {
		beam := &plan.Beams[i]
		path := beam.FluenceFile
		if path == "" {
			path = filepath.Join(fluenceDir, beam.ID+cfg.Output.FileExtension)
		}
		g, err := fluence.ReadFile(path)
		if err != nil {
			return fmt.Errorf("beam %s: %w", beam.ID, err)
		}
		fluences[beam.ID] = g
	}

	opts := optimizer.Options{
		ThresholdPercent: threshold,
		SAD:              cfg.Optimization.SourceAxisDistance,
		Shape:            cfg.Shaping.Enabled,
		ShapeOptions: fluence.ShapeOptions{
			Margin:         cfg.Shaping.Margin,
			FlushValue:     cfg.Shaping.FlushValue,
			MinimumFluence: cfg.Shaping.MinimumFluence,
		},
		NumCores: cfg.Processing.NumCores,
	}

	startTime := time.Now()
	o := optimizer.New(plan, opts, logger)
	results, err := o.Run(fluences)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	logger.Infof("reduced %d beams in %.2f seconds", len(results), time.Since(startTime).Seconds())

	for i, region := range o.HotSpots() {
		logger.WithFields(logrus.Fields{
			"voxels":   region.Size(),
			"centroid": fmt.Sprintf("(%.1f, %.1f, %.1f)", region.Centroid.X, region.Centroid.Y, region.Centroid.Z),
		}).Debugf("hot spot %d", i+1)
	}

	if err := os.MkdirAll(optimizeOpts.outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	fmt.Printf("\nPlan %s: %d points above %.2f%%\n", plan.ID, len(o.Points()), threshold)
	fmt.Println("==============================================")
	for _, res := range results {
		name := cfg.Output.FilePrefix + res.Beam.ID + cfg.Output.FileExtension
		path := filepath.Join(optimizeOpts.outputDir, name)
		if err := res.Fluence.WriteFile(path); err != nil {
			return fmt.Errorf("beam %s: %w", res.Beam.ID, err)
		}

		before := fluences[res.Beam.ID].Summarize()
		after := res.Fluence.Summarize()
		factors := fluence.SummarizeMatrix(res.FactorMap)
		fmt.Printf("%-12s sum %.3f -> %.3f  min factor %.4f  -> %s\n",
			res.Beam.ID, before.Sum, after.Sum, factors.Min, path)

		if cfg.Output.SaveImages {
			if err := visualization.SaveBeamImages(cfg.Output.ImageDir, res.Fluence, res.FactorMap); err != nil {
				logger.Warnf("failed to save previews of beam %s: %v", res.Beam.ID, err)
			}
		}
	}
	return nil
}

// applyOptimizeFlags overrides the configuration with the flags that were set
func applyOptimizeFlags(cfg *config.Config) {
	if optimizeOpts.threshold > 0 {
		cfg.Optimization.ThresholdPercent = optimizeOpts.threshold
	}
	if optimizeOpts.steps > 0 {
		cfg.Optimization.NumberOfSteps = optimizeOpts.steps
	}
	if optimizeOpts.step >= 0 {
		cfg.Optimization.Step = optimizeOpts.step
	}
	if optimizeOpts.noShape {
		cfg.Shaping.Enabled = false
	}
	if optimizeOpts.images {
		cfg.Output.SaveImages = true
	}
}

// selectThreshold returns the threshold percent of the configured step
func selectThreshold(cfg *config.Config, maxDose float64) (float64, error) {
	schedule, err := optimizer.ThresholdSchedule(maxDose, cfg.Optimization.ThresholdPercent, cfg.Optimization.NumberOfSteps)
	if err != nil {
		return 0, err
	}
	step := cfg.Optimization.Step
	if step < 0 || step >= len(schedule) {
		return 0, fmt.Errorf("step %d is outside the %d step schedule", step, len(schedule))
	}
	return schedule[step], nil
}
