package fluence

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"iscfluence/pkg/aperture"
)

// ShapeOptions controls how a fluence is fitted to an aperture.
type ShapeOptions struct {
	// Margin expands every field edge outward, in mm
	Margin float64

	// FlushValue is assigned to in-field pixels that had no fluence
	FlushValue float64

	// MinimumFluence is the floor for in-field pixels
	MinimumFluence float64
}

// DefaultShapeOptions returns the options used when nothing else is configured.
func DefaultShapeOptions() ShapeOptions {
	return ShapeOptions{
		Margin:         1.25,
		FlushValue:     0.5,
		MinimumFluence: 0,
	}
}

// Shape fits the grid to the aperture of a template control point.
//
// Pixels outside the bounding box of the originally non-zero pixels are
// zeroed. For the flush region of a breast tangent the box is opened on one
// lateral side: towards the first column for gantry angles in [0, 180) and
// towards the last column otherwise. Inside the box, pixels outside the field
// are zeroed, in-field pixels without fluence get the flush value and in-field
// pixels below the minimum are raised to it.
func (g *Grid) Shape(ap *aperture.Aperture, gantryAngle float64, opts ShapeOptions) error {
	return g.shape(ap, gantryAngle, opts, mat.DenseCopyOf(g.Values))
}

// ApplyReduction multiplies every pixel by the matching reduction factor.
func (g *Grid) ApplyReduction(factors *mat.Dense) error {
	r, c := factors.Dims()
	if r != g.SizeY || c != g.SizeX {
		return fmt.Errorf("factor map is %dx%d, fluence is %dx%d", c, r, g.SizeX, g.SizeY)
	}
	g.Values.MulElem(g.Values, factors)
	return nil
}

// ReduceAndShape applies the reduction factors and then shapes the result.
// The flush test looks at the values before the reduction, so a pixel only
// gets the flush value when it was empty to begin with.
func (g *Grid) ReduceAndShape(factors *mat.Dense, ap *aperture.Aperture, gantryAngle float64, opts ShapeOptions) error {
	original := mat.DenseCopyOf(g.Values)
	if err := g.ApplyReduction(factors); err != nil {
		return err
	}
	return g.shape(ap, gantryAngle, opts, original)
}

func (g *Grid) shape(ap *aperture.Aperture, gantryAngle float64, opts ShapeOptions, original *mat.Dense) error {
	if !ap.HasMLC() {
		return fmt.Errorf("shape fluence of beam %s: %w", g.BeamID, aperture.ErrNoMLC)
	}

	box := g.Edges
	if 0 <= gantryAngle && gantryAngle < 180 {
		box.MinX = 0
	} else {
		box.MaxX = g.SizeX
	}

	for i := 0; i < g.SizeY; i++ {
		y := g.Y(i)
		for j := 0; j < g.SizeX; j++ {
			if !box.Contains(i, j) {
				g.Values.Set(i, j, 0)
				continue
			}

			value := g.Values.At(i, j)
			if !ap.IsInFieldWithMargin(g.X(j), y, opts.Margin) {
				if value > 0 {
					g.Values.Set(i, j, 0)
				}
				continue
			}

			if original.At(i, j) == 0 {
				g.Values.Set(i, j, opts.FlushValue)
			} else if value < opts.MinimumFluence {
				g.Values.Set(i, j, opts.MinimumFluence)
			}
		}
	}
	return nil
}
