// Package optimizer reduces the optimal fluence of each beam so that the
// summed dose of the plan falls to a threshold at every point above it.
//
// Points whose total dose exceeds the threshold are collected from the plan
// dose, their dose is broken down per beam, and every beam gets a reduction
// factor per point proportional to its share of the squared dose. The
// factors are projected onto the isocenter plane of the beam, binned into the
// fluence grid keeping the smallest factor per cell, and multiplied into the
// fluence.
package optimizer

import (
	"sync"

	"iscfluence/internal/models"
	"iscfluence/pkg/geometry"
)

// PointDose is the dose at one point broken down per beam
type PointDose struct {
	// Position is the point in the room frame
	Position geometry.RoomPoint

	// TotalDose is the sum of the beam doses in Gy
	TotalDose float64

	// TotalSquaredDose is the sum of the squared beam doses
	TotalSquaredDose float64

	// BeamDoses holds the dose of each beam, in plan beam order
	BeamDoses []float64
}

// NewPointDose builds a breakdown from the per-beam doses.
func NewPointDose(p geometry.RoomPoint, beamDoses []float64) PointDose {
	pd := PointDose{Position: p, BeamDoses: beamDoses}
	for _, d := range beamDoses {
		pd.TotalDose += d
		pd.TotalSquaredDose += d * d
	}
	return pd
}

// BeamPointDose converts a beam dose value per unit reference dose into Gy
// for the beam's meterset.
func BeamPointDose(dose, metersetPerGy, meterset float64) float64 {
	return meterset / metersetPerGy * dose
}

// AbsoluteThreshold converts a threshold in percent of the prescription to Gy.
func AbsoluteThreshold(thresholdPercent, prescribedDose float64) float64 {
	return thresholdPercent / 100 * prescribedDose
}

// CollectPoints returns the dose breakdown of every voxel whose plan dose,
// in percent, is above thresholdPercent. Voxels are visited z slowest and x
// fastest, and the result keeps that order.
func CollectPoints(plan *models.Plan, thresholdPercent float64, numCores int) []PointDose {
	dose := &plan.Dose
	numSlices := dose.SizeZ
	if numCores < 1 {
		numCores = 1
	}

	scale := make([]float64, len(plan.Beams))
	for m := range plan.Beams {
		b := &plan.Beams[m]
		scale[m] = BeamPointDose(1, b.MetersetPerGy, b.Meterset) * plan.PrescribedDosePerFraction / plan.NormalizationValue
	}

	// Divide the slices among the available cores
	slicesPerCore := (numSlices + numCores - 1) / numCores
	perCore := make([][]PointDose, numCores)

	var wg sync.WaitGroup
	for c := 0; c < numCores; c++ {
		wg.Add(1)

		go func(coreID int) {
			defer wg.Done()

			startSlice := coreID * slicesPerCore
			endSlice := (coreID + 1) * slicesPerCore
			if endSlice > numSlices {
				endSlice = numSlices
			}

			var points []PointDose
			for z := startSlice; z < endSlice; z++ {
				for y := 0; y < dose.SizeY; y++ {
					for x := 0; x < dose.SizeX; x++ {
						idx := dose.Index(x, y, z)
						if dose.Values[idx] <= thresholdPercent {
							continue
						}

						beamDoses := make([]float64, len(plan.Beams))
						for m := range plan.Beams {
							beamDoses[m] = plan.Beams[m].Dose.Values[idx] * scale[m]
						}
						points = append(points, NewPointDose(dose.Position(x, y, z), beamDoses))
					}
				}
			}
			perCore[coreID] = points
		}(c)
	}
	wg.Wait()

	var all []PointDose
	for _, points := range perCore {
		all = append(all, points...)
	}
	return all
}
