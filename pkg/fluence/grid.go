// Package fluence holds the 2D fluence grid of a beam, its text file format
// and the aperture based shaping applied after a fluence reduction.
package fluence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrOutOfBounds is returned when a coordinate maps outside the grid.
var ErrOutOfBounds = errors.New("index out of grid bounds")

// Grid is a fluence map over a regular grid in the beam frame.
//
// Row i and column j map to x = OriginX + SpacingX*j and y = OriginY - SpacingY*i:
// the origin is the upper-left cell and the row index grows while y decreases.
type Grid struct {
	// BeamID identifies the beam the fluence belongs to
	BeamID string

	// SizeX and SizeY are the number of columns and rows
	SizeX int
	SizeY int

	// SpacingX and SpacingY are the pixel spacings in mm
	SpacingX float64
	SpacingY float64

	// OriginX and OriginY are the coordinates of cell (0, 0) in mm
	OriginX float64
	OriginY float64

	// Values holds the intensities, SizeY rows by SizeX columns
	Values *mat.Dense

	// Edges is the bounding box of the non-zero pixels when the grid was built
	Edges Edges
}

// Edges are the minimum and maximum indices of the finite fluence pixels.
// For an all-zero grid Min is SizeX-1 (SizeY-1) and Max is 0.
type Edges struct {
	MinX, MaxX int
	MinY, MaxY int
}

// Contains reports whether (row, col) is inside the bounding box
func (e Edges) Contains(row, col int) bool {
	return col >= e.MinX && col <= e.MaxX && row >= e.MinY && row <= e.MaxY
}

// NewGrid creates a grid. values is row-major with SizeY*SizeX entries, or nil
// for an all-zero grid.
func NewGrid(beamID string, sizeX, sizeY int, spacingX, spacingY, originX, originY float64, values []float64) (*Grid, error) {
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", sizeX, sizeY)
	}
	if spacingX <= 0 || spacingY <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, got %gx%g", spacingX, spacingY)
	}
	if values != nil && len(values) != sizeX*sizeY {
		return nil, fmt.Errorf("expected %d values for a %dx%d grid, got %d", sizeX*sizeY, sizeX, sizeY, len(values))
	}

	var data []float64
	if values != nil {
		data = make([]float64, len(values))
		copy(data, values)
	}

	g := &Grid{
		BeamID:   beamID,
		SizeX:    sizeX,
		SizeY:    sizeY,
		SpacingX: spacingX,
		SpacingY: spacingY,
		OriginX:  originX,
		OriginY:  originY,
		Values:   mat.NewDense(sizeY, sizeX, data),
	}
	g.UpdateEdges()
	return g, nil
}

// X returns the x coordinate of column j
func (g *Grid) X(j int) float64 {
	return g.OriginX + g.SpacingX*float64(j)
}

// Y returns the y coordinate of row i
func (g *Grid) Y(i int) float64 {
	return g.OriginY - g.SpacingY*float64(i)
}

// At returns the value at row i, column j
func (g *Grid) At(i, j int) float64 {
	return g.Values.At(i, j)
}

// UpdateEdges recomputes the bounding box of the non-zero pixels.
func (g *Grid) UpdateEdges() {
	e := Edges{MinX: g.SizeX - 1, MaxX: 0, MinY: g.SizeY - 1, MaxY: 0}
	for i := 0; i < g.SizeY; i++ {
		for j := 0; j < g.SizeX; j++ {
			if g.Values.At(i, j) == 0 {
				continue
			}
			if j < e.MinX {
				e.MinX = j
			}
			if j > e.MaxX {
				e.MaxX = j
			}
			if i < e.MinY {
				e.MinY = i
			}
			if i > e.MaxY {
				e.MaxY = i
			}
		}
	}
	g.Edges = e
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	c := *g
	c.Values = mat.DenseCopyOf(g.Values)
	return &c
}

// GridIndex maps a coordinate to a cell index along one axis. Cells are
// centered on origin + k*spacing; a negative spacing walks the axis downward.
func GridIndex(coord, origin, spacing float64) int {
	return int(cellOffset(coord, origin, spacing))
}

func cellOffset(coord, origin, spacing float64) float64 {
	start := origin - spacing/2
	return math.Abs((coord - start) / spacing)
}

// CellIndex returns the row and column of the cell containing (x, y).
// Coordinates beyond the grid, infinite or NaN fail with ErrOutOfBounds.
func (g *Grid) CellIndex(x, y float64) (int, int, error) {
	col, ok := cellInRange(cellOffset(x, g.OriginX, g.SpacingX), g.SizeX)
	if !ok {
		return 0, 0, fmt.Errorf("x: %g, xSize: %d: %w", x, g.SizeX, ErrOutOfBounds)
	}
	row, ok := cellInRange(cellOffset(y, g.OriginY, -g.SpacingY), g.SizeY)
	if !ok {
		return 0, 0, fmt.Errorf("y: %g, ySize: %d: %w", y, g.SizeY, ErrOutOfBounds)
	}
	return row, col, nil
}

// cellInRange converts a cell offset to an index in [0, size). The offset is
// checked as a float so huge values never reach the int conversion.
func cellInRange(offset float64, size int) (int, bool) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) || offset < 0 || offset >= float64(size) {
		return 0, false
	}
	idx := int(offset)
	if idx < 0 || idx >= size {
		return 0, false
	}
	return idx, true
}

// Summary holds descriptive statistics of a grid
type Summary struct {
	Min, Max    float64
	Sum         float64
	Mean        float64
	StdDev      float64
	NonZero     int
	NonZeroMean float64
}

// Summarize computes statistics over all pixels of the grid.
func (g *Grid) Summarize() Summary {
	return SummarizeMatrix(g.Values)
}

// SummarizeMatrix computes statistics over every element of m.
func SummarizeMatrix(m *mat.Dense) Summary {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	var nonZero []float64
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		data = append(data, row...)
		for _, v := range row {
			if v != 0 {
				nonZero = append(nonZero, v)
			}
		}
	}

	mean, std := stat.MeanStdDev(data, nil)
	s := Summary{
		Min:     floats.Min(data),
		Max:     floats.Max(data),
		Sum:     floats.Sum(data),
		Mean:    mean,
		StdDev:  std,
		NonZero: len(nonZero),
	}
	if len(nonZero) > 0 {
		s.NonZeroMean = stat.Mean(nonZero, nil)
	}
	return s
}
