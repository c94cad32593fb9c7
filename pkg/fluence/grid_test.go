package fluence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	g, err := NewGrid("B1", 3, 2, 2.5, 1.5, -10, 4, []float64{
		0, 1, 0,
		0, 0, 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, g.SizeX)
	assert.Equal(t, 2, g.SizeY)
	assert.Equal(t, 2.0, g.At(1, 2))

	assert.Equal(t, -10.0, g.X(0))
	assert.Equal(t, -5.0, g.X(2))
	assert.Equal(t, 4.0, g.Y(0))
	assert.Equal(t, 2.5, g.Y(1))

	assert.Equal(t, Edges{MinX: 1, MaxX: 2, MinY: 0, MaxY: 1}, g.Edges)
}

func TestNewGridValidation(t *testing.T) {
	_, err := NewGrid("B1", 0, 2, 1, 1, 0, 0, nil)
	assert.Error(t, err)

	_, err = NewGrid("B1", 2, 2, 0, 1, 0, 0, nil)
	assert.Error(t, err)

	_, err = NewGrid("B1", 2, 2, 1, 1, 0, 0, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestEmptyGridEdges(t *testing.T) {
	g, err := NewGrid("B1", 4, 3, 1, 1, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, Edges{MinX: 3, MaxX: 0, MinY: 2, MaxY: 0}, g.Edges)
	assert.False(t, g.Edges.Contains(1, 1))
}

func TestCloneIsDeep(t *testing.T) {
	g, err := NewGrid("B1", 2, 2, 1, 1, 0, 0, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	c := g.Clone()
	c.Values.Set(0, 0, 9)
	assert.Equal(t, 1.0, g.At(0, 0))
	assert.Equal(t, 9.0, c.At(0, 0))
}

func TestGridIndex(t *testing.T) {
	// cells centered on 0, 2.5, 5, ...
	assert.Equal(t, 0, GridIndex(-1.2, 0, 2.5))
	assert.Equal(t, 0, GridIndex(1.2, 0, 2.5))
	assert.Equal(t, 1, GridIndex(1.3, 0, 2.5))
	assert.Equal(t, 2, GridIndex(5, 0, 2.5))

	// negative spacing walks downward from the origin
	assert.Equal(t, 0, GridIndex(10.4, 10, -1))
	assert.Equal(t, 1, GridIndex(9.4, 10, -1))
	assert.Equal(t, 3, GridIndex(7, 10, -1))
}

func TestCellIndex(t *testing.T) {
	g, err := NewGrid("B1", 4, 3, 2, 2, -3, 2, nil)
	require.NoError(t, err)

	row, col, err := g.CellIndex(-3, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, err = g.CellIndex(3.5, -2.5)
	require.NoError(t, err)
	assert.Equal(t, 2, row)
	assert.Equal(t, 3, col)

	_, _, err = g.CellIndex(4.5, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, _, err = g.CellIndex(0, -3.5)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestCellIndexNonFinite(t *testing.T) {
	g, err := NewGrid("B1", 10, 10, 1, 1, -4.5, 4.5, nil)
	require.NoError(t, err)

	// far beyond the range of int after the cell conversion
	for _, v := range []float64{8.796e20, -8.796e20, 1e300, math.Inf(1), math.Inf(-1), math.NaN()} {
		_, _, err = g.CellIndex(v, 0)
		assert.ErrorIs(t, err, ErrOutOfBounds, "x = %g", v)

		_, _, err = g.CellIndex(0, v)
		assert.ErrorIs(t, err, ErrOutOfBounds, "y = %g", v)
	}
}

func TestSummarize(t *testing.T) {
	g, err := NewGrid("B1", 2, 2, 1, 1, 0, 0, []float64{0, 2, 4, 6})
	require.NoError(t, err)

	s := g.Summarize()
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 6.0, s.Max)
	assert.Equal(t, 12.0, s.Sum)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 3, s.NonZero)
	assert.Equal(t, 4.0, s.NonZeroMean)
}
