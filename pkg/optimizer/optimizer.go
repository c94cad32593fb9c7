package optimizer

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"iscfluence/internal/models"
	"iscfluence/pkg/fluence"
	"iscfluence/pkg/geometry"
	"iscfluence/pkg/hotspot"
)

// Options configures an optimization run
type Options struct {
	// ThresholdPercent is the dose threshold in percent of the prescription
	ThresholdPercent float64

	// SAD is the source to axis distance in mm; 0 means geometry.DefaultSAD
	SAD float64

	// Shape fits each reduced fluence to the aperture of its first control point
	Shape        bool
	ShapeOptions fluence.ShapeOptions

	// NumCores bounds how many beams are processed at once
	NumCores int
}

// DefaultOptions returns the options of a single step run at 107%.
func DefaultOptions() Options {
	return Options{
		ThresholdPercent: 107,
		SAD:              geometry.DefaultSAD,
		Shape:            true,
		ShapeOptions:     fluence.DefaultShapeOptions(),
		NumCores:         runtime.NumCPU(),
	}
}

// BeamResult is the outcome for one beam
type BeamResult struct {
	Beam *models.Beam

	// Factors are the reduction factors of every collected point
	Factors []ReductionFactor

	// FactorMap holds the smallest factor per fluence cell
	FactorMap *mat.Dense

	// Fluence is the reduced (and shaped) fluence
	Fluence *fluence.Grid
}

// Optimizer reduces the fluences of a plan
type Optimizer struct {
	plan   *models.Plan
	opts   Options
	logger logrus.FieldLogger

	points []PointDose
}

// New creates an optimizer. The points above the threshold are collected
// immediately.
func New(plan *models.Plan, opts Options, logger logrus.FieldLogger) *Optimizer {
	if opts.NumCores < 1 {
		opts.NumCores = 1
	}
	if opts.SAD <= 0 {
		opts.SAD = geometry.DefaultSAD
	}

	o := &Optimizer{plan: plan, opts: opts, logger: logger}
	o.points = CollectPoints(plan, opts.ThresholdPercent, opts.NumCores)

	logger.WithFields(logrus.Fields{
		"plan":      plan.ID,
		"threshold": opts.ThresholdPercent,
		"points":    len(o.points),
	}).Info("collected points above threshold")
	return o
}

// Points returns the collected dose breakdowns
func (o *Optimizer) Points() []PointDose {
	return o.points
}

// HotSpots groups the collected points into regions of touching voxels,
// diagonal neighbors included.
func (o *Optimizer) HotSpots() []hotspot.Region {
	res := o.plan.Dose.Resolution
	radius := 1.01 * math.Sqrt(res[0]*res[0]+res[1]*res[1]+res[2]*res[2])

	positions := make([]geometry.RoomPoint, len(o.points))
	for i, p := range o.points {
		positions[i] = p.Position
	}
	return hotspot.Regions(positions, radius)
}

// AbsoluteThreshold returns the dose threshold in Gy
func (o *Optimizer) AbsoluteThreshold() float64 {
	return AbsoluteThreshold(o.opts.ThresholdPercent, o.plan.PrescribedDosePerFraction)
}

// Run reduces the fluence of every beam. fluences maps beam ids to their
// optimal fluence; the grids are not modified. Results are in plan beam order.
func (o *Optimizer) Run(fluences map[string]*fluence.Grid) ([]BeamResult, error) {
	numBeams := len(o.plan.Beams)
	for i := range o.plan.Beams {
		id := o.plan.Beams[i].ID
		if _, ok := fluences[id]; !ok {
			return nil, fmt.Errorf("no fluence for beam %s", id)
		}
	}

	orientation, err := o.plan.PatientOrientation()
	if err != nil {
		return nil, err
	}

	// Create a channel for results
	type beamResult struct {
		index  int
		result BeamResult
		err    error
	}
	resultChan := make(chan beamResult)
	sem := make(chan struct{}, o.opts.NumCores)

	for i := range o.plan.Beams {
		go func(beamIdx int) {
			sem <- struct{}{}
			defer func() { <-sem }()

			beam := &o.plan.Beams[beamIdx]
			g := beam.Geometry(o.opts.SAD)
			g.Orientation = orientation

			res, err := o.reduceBeam(beamIdx, beam, g, fluences[beam.ID])
			resultChan <- beamResult{index: beamIdx, result: res, err: err}
		}(i)
	}

	// Collect results
	results := make([]BeamResult, numBeams)
	var firstErr error
	for completed := 0; completed < numBeams; completed++ {
		res := <-resultChan
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("beam %s: %w", o.plan.Beams[res.index].ID, res.err)
			}
			continue
		}
		results[res.index] = res.result
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (o *Optimizer) reduceBeam(beamIdx int, beam *models.Beam, g *geometry.BeamGeometry, optimal *fluence.Grid) (BeamResult, error) {
	threshold := o.AbsoluteThreshold()
	log := o.logger.WithField("beam", beam.ID)

	factors, err := BeamReductionFactors(g, o.points, beamIdx, threshold)
	if err != nil {
		return BeamResult{}, err
	}

	factorMap, err := MinReductionFactorMap(optimal, factors)
	if err != nil {
		return BeamResult{}, err
	}

	reduced := optimal.Clone()
	reduced.BeamID = beam.ID
	if o.opts.Shape {
		ap, err := beam.Aperture(0)
		if err != nil {
			return BeamResult{}, err
		}
		err = reduced.ReduceAndShape(factorMap, ap, beam.ControlPoints[0].GantryAngle, o.opts.ShapeOptions)
		if err != nil {
			return BeamResult{}, err
		}
	} else if err := reduced.ApplyReduction(factorMap); err != nil {
		return BeamResult{}, err
	}

	if len(factors) > 0 {
		values := make([]float64, len(factors))
		for i, f := range factors {
			values[i] = f.Value
		}
		mean, std := stat.MeanStdDev(values, nil)
		log = log.WithFields(logrus.Fields{"meanFactor": mean, "stdFactor": std})
	}
	log.WithField("points", len(factors)).Debug("reduced fluence")

	return BeamResult{
		Beam:      beam,
		Factors:   factors,
		FactorMap: factorMap,
		Fluence:   reduced,
	}, nil
}
