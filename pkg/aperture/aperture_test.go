package aperture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampAperture has bank B fixed at -30 and bank A opening by 1 mm per leaf,
// starting at 10 mm for leaf 0.
func rampAperture(t *testing.T, jaws Jaws) *Aperture {
	t.Helper()
	banks := [][]float64{make([]float64, NumberOfLeaves), make([]float64, NumberOfLeaves)}
	for i := 0; i < NumberOfLeaves; i++ {
		banks[BankB][i] = -30
		banks[BankA][i] = 10 + float64(i)
	}
	a, err := New(jaws, banks)
	require.NoError(t, err)
	return a
}

func TestLeafTable(t *testing.T) {
	leaves := Leaves()

	assert.Equal(t, -195.0, leaves.Centers[0])
	assert.Equal(t, -97.5, leaves.Centers[10])
	assert.Equal(t, 97.5, leaves.Centers[49])
	assert.Equal(t, 195.0, leaves.Centers[59])

	total := 0.0
	for i, w := range leaves.Widths {
		total += w
		// symmetric about 0
		assert.Equal(t, w, leaves.Widths[NumberOfLeaves-1-i])
		assert.InDelta(t, -leaves.Centers[i], leaves.Centers[NumberOfLeaves-1-i], 1e-12)
	}
	assert.Equal(t, 400.0, total)

	lo, hi := leaves.Span()
	assert.Equal(t, -200.0, lo)
	assert.Equal(t, 200.0, hi)
}

func TestJawOnlyAperture(t *testing.T) {
	a, err := New(Jaws{X1: -50, X2: 50, Y1: -50, Y2: 50}, nil)
	require.NoError(t, err)
	assert.False(t, a.HasMLC())

	assert.True(t, a.IsInField(0, 0))
	assert.False(t, a.IsInField(60, 0))
	assert.False(t, a.IsInField(50, 0), "the jaw edge is outside")
	assert.False(t, a.IsInField(0, -50))

	assert.True(t, a.IsInFieldWithMargin(55, 0, 10))
	assert.False(t, a.IsInFieldWithMargin(60, 0, 10))

	assert.True(t, a.IsInFieldNoInterpolation(49, -49))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Jaws{X1: 10, X2: -10, Y1: -10, Y2: 10}, nil)
	assert.Error(t, err)

	_, err = New(Jaws{X1: -10, X2: 10, Y1: -10, Y2: 10}, [][]float64{make([]float64, NumberOfLeaves)})
	assert.Error(t, err)

	_, err = New(Jaws{X1: -10, X2: 10, Y1: -10, Y2: 10}, [][]float64{make([]float64, 60), make([]float64, 59)})
	assert.Error(t, err)
}

func TestLeafInterpolationMonotonic(t *testing.T) {
	a := rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -200, Y2: 200})
	leaves := Leaves()

	for i := 0; i < NumberOfLeaves-1; i++ {
		lo, hi := leaves.Centers[i], leaves.Centers[i+1]
		for _, f := range []float64{0, 0.25, 0.5, 0.75} {
			y := lo + f*(hi-lo)
			bankB, bankA := a.BankPositions(y)
			assert.Equal(t, -30.0, bankB)
			assert.GreaterOrEqual(t, bankA, a.LeafEnd(BankA, i), "y=%g", y)
			assert.LessOrEqual(t, bankA, a.LeafEnd(BankA, i+1), "y=%g", y)
		}
	}

	_, bankA := a.BankPositions(0)
	assert.InDelta(t, 39.5, bankA, 1e-12)

	// Outside the outermost centers the outermost leaf is used.
	_, bankA = a.BankPositions(-199)
	assert.Equal(t, 10.0, bankA)
	_, bankA = a.BankPositions(199)
	assert.Equal(t, 69.0, bankA)
}

func TestIsInFieldWithMLC(t *testing.T) {
	a := rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -200, Y2: 200})

	assert.True(t, a.IsInField(39.4, 0))
	assert.False(t, a.IsInField(39.6, 0))
	assert.False(t, a.IsInField(-30, 0))
	assert.True(t, a.IsInField(-29.9, 0))

	// The nearest-leaf policy takes leaf 30 (ends at 40) for y = 0.
	assert.True(t, a.IsInFieldNoInterpolation(39.6, 0))
	assert.False(t, a.IsInFieldNoInterpolation(40, 0))

	assert.True(t, a.IsInFieldWithMargin(40.4, 0, 1))
	assert.True(t, a.IsInFieldWithMargin(-30.9, 0, 1))
	assert.False(t, a.IsInFieldWithMargin(40.6, 0, 1))
}

func TestJawSnapY1(t *testing.T) {
	// Y1 inside the lower leaf's half width: only the interval end moves.
	a := rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -1, Y2: 200})
	_, bankA := a.BankPositions(1)
	assert.InDelta(t, 39+2/3.5, bankA, 1e-12)

	// Y1 past the lower leaf's half width: the upper leaf value is carried down.
	a = rampAperture(t, Jaws{X1: -100, X2: 100, Y1: 1, Y2: 200})
	_, bankA = a.BankPositions(1.5)
	assert.Equal(t, 40.0, bankA)
}

func TestJawSnapY2(t *testing.T) {
	// Y2 inside the lower leaf's half width: the lower leaf value is carried up.
	a := rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -200, Y2: -1})
	_, bankA := a.BankPositions(-2)
	assert.Equal(t, 39.0, bankA)

	// Y2 past the lower leaf's half width: only the interval end moves.
	a = rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -200, Y2: 1})
	_, bankA = a.BankPositions(0)
	assert.InDelta(t, 39+2.5/3.5, bankA, 1e-12)
}

func TestJawSnapOnLeafBoundary(t *testing.T) {
	// Both jaws exactly on the boundary between leaves 29 and 30 (y = 0).
	// Y1 takes the upper leaf, Y2 keeps the lower leaf.
	a := rampAperture(t, Jaws{X1: -100, X2: 100, Y1: 0, Y2: 200})
	_, bankA := a.BankPositions(1)
	assert.Equal(t, 40.0, bankA)

	a = rampAperture(t, Jaws{X1: -100, X2: 100, Y1: -200, Y2: 0})
	_, bankA = a.BankPositions(-1)
	assert.Equal(t, 39.0, bankA)
}

func TestLeafIndexForPosition(t *testing.T) {
	cases := []struct {
		y    float64
		want int
	}{
		{-200, 0},
		{-190, 0},
		{-189.9, 1},
		{-100, 9},
		{-99.9, 10},
		{0, 29},
		{0.1, 30},
		{199, 59},
		{200, 59},
	}
	for _, c := range cases {
		got, err := LeafIndexForPosition(c.y)
		require.NoError(t, err, "y=%g", c.y)
		assert.Equal(t, c.want, got, "y=%g", c.y)
	}

	_, err := LeafIndexForPosition(200.1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = LeafIndexForPosition(-200.5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
