package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"iscfluence/pkg/fluence"
	"iscfluence/pkg/geometry"
)

// ReductionFactor is the fluence reduction one point asks of one beam,
// located on the beam's isocenter plane.
type ReductionFactor struct {
	// X and Y are the beam-frame x and z of the projected point in mm
	X, Y float64

	BeamDose      float64
	TotalDose     float64
	DoseThreshold float64

	// Value is the factor the fluence is multiplied by
	Value float64
}

// ReductionFactorValue returns 1 - beamDose*(totalDose-threshold)/totalSquaredDose.
//
// Scaling every beam by its own factor brings the summed dose at the point
// down to the threshold. A point without any beam dose gives 1.
func ReductionFactorValue(beamDose, totalDose, totalSquaredDose, threshold float64) float64 {
	if totalSquaredDose == 0 {
		return 1
	}
	return 1 - beamDose*(totalDose-threshold)/totalSquaredDose
}

// BeamReductionFactors computes the reduction factor of beam beamIndex at
// every point, projected onto the isocenter plane of g.
func BeamReductionFactors(g *geometry.BeamGeometry, points []PointDose, beamIndex int, threshold float64) ([]ReductionFactor, error) {
	factors := make([]ReductionFactor, 0, len(points))
	for _, p := range points {
		if beamIndex < 0 || beamIndex >= len(p.BeamDoses) {
			return nil, fmt.Errorf("beam index %d out of range for %d beam doses", beamIndex, len(p.BeamDoses))
		}
		beamDose := p.BeamDoses[beamIndex]

		projected, err := g.ProjectToIsocenterPlane(p.Position)
		if err != nil {
			return nil, err
		}

		factors = append(factors, ReductionFactor{
			X:             projected.X,
			Y:             projected.Z,
			BeamDose:      beamDose,
			TotalDose:     p.TotalDose,
			DoseThreshold: threshold,
			Value:         ReductionFactorValue(beamDose, p.TotalDose, p.TotalSquaredDose, threshold),
		})
	}
	return factors, nil
}

// MinReductionFactorMap bins the factors into the cells of grid and keeps the
// smallest factor per cell. Cells without a factor are 1. A factor outside the
// grid fails with fluence.ErrOutOfBounds.
func MinReductionFactorMap(grid *fluence.Grid, factors []ReductionFactor) (*mat.Dense, error) {
	m := mat.NewDense(grid.SizeY, grid.SizeX, nil)
	for i := 0; i < grid.SizeY; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = 1
		}
	}

	for _, f := range factors {
		row, col, err := grid.CellIndex(f.X, f.Y)
		if err != nil {
			return nil, fmt.Errorf("beam %s: %w", grid.BeamID, err)
		}
		if f.Value < m.At(row, col) {
			m.Set(row, col, f.Value)
		}
	}
	return m, nil
}
