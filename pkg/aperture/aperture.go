package aperture

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a transverse position lies outside the leaf stack.
	ErrOutOfRange = errors.New("position outside the leaf stack")

	// ErrNoMLC is returned when leaf data is required but the aperture is jaw-only.
	ErrNoMLC = errors.New("aperture has no MLC")
)

// LeafBank identifies one of the two opposing leaf banks.
type LeafBank int

const (
	// BankB is the bank on the X1 side; its leaf ends bound the field from below in x.
	BankB LeafBank = iota
	// BankA is the bank on the X2 side.
	BankA
)

// Jaws holds the jaw edges in the beam frame in mm. X1 <= X2 and Y1 <= Y2.
type Jaws struct {
	X1 float64 `yaml:"x1"`
	X2 float64 `yaml:"x2"`
	Y1 float64 `yaml:"y1"`
	Y2 float64 `yaml:"y2"`
}

// Aperture is the field shape of one control point. The edge of the field
// counts as outside.
type Aperture struct {
	Jaws Jaws

	leafEnds [2][NumberOfLeaves]float64
	hasMLC   bool
	leaves   LeafTable
}

// New creates an aperture from jaw edges and leaf end positions. leafPositions
// is either empty (jaw-only) or holds two rows of NumberOfLeaves values, bank
// B first.
func New(jaws Jaws, leafPositions [][]float64) (*Aperture, error) {
	if jaws.X1 > jaws.X2 || jaws.Y1 > jaws.Y2 {
		return nil, fmt.Errorf("invalid jaws X1=%g X2=%g Y1=%g Y2=%g", jaws.X1, jaws.X2, jaws.Y1, jaws.Y2)
	}

	a := &Aperture{Jaws: jaws, leaves: Leaves()}
	if len(leafPositions) == 0 {
		return a, nil
	}

	if len(leafPositions) != 2 {
		return nil, fmt.Errorf("expected 2 leaf banks, got %d", len(leafPositions))
	}
	for bank, row := range leafPositions {
		if len(row) != NumberOfLeaves {
			return nil, fmt.Errorf("bank %d: expected %d leaves, got %d", bank, NumberOfLeaves, len(row))
		}
		copy(a.leafEnds[bank][:], row)
	}
	a.hasMLC = true
	return a, nil
}

// HasMLC reports whether the aperture carries leaf data
func (a *Aperture) HasMLC() bool {
	return a.hasMLC
}

// LeafEnd returns the end position of a leaf.
func (a *Aperture) LeafEnd(bank LeafBank, leaf int) float64 {
	return a.leafEnds[bank][leaf]
}

// IsInField reports whether (x, y) lies strictly inside the field. Leaf end
// positions are linearly interpolated between adjacent leaf centers.
func (a *Aperture) IsInField(x, y float64) bool {
	return a.isInField(x, y, 0)
}

// IsInFieldWithMargin is IsInField with every edge moved outward by margin mm.
func (a *Aperture) IsInFieldWithMargin(x, y, margin float64) bool {
	return a.isInField(x, y, margin)
}

// IsInFieldNoInterpolation reports whether (x, y) lies inside the field,
// taking the bank positions of the single leaf whose band contains y.
func (a *Aperture) IsInFieldNoInterpolation(x, y float64) bool {
	if !a.underJawOpening(x, y, 0) {
		return false
	}
	if !a.hasMLC {
		return true
	}

	var bankB, bankA float64
	for i := 0; i < NumberOfLeaves; i++ {
		if y < a.leaves.upperEdge(i) {
			bankB = a.leafEnds[BankB][i]
			bankA = a.leafEnds[BankA][i]
			break
		}
	}
	return bankB < x && x < bankA
}

// LeafIndex returns the index of the leaf whose band contains y.
func (a *Aperture) LeafIndex(y float64) (int, error) {
	return LeafIndexForPosition(y)
}

// LeafIndexForPosition returns the 0-based index of the leaf whose band
// contains y. A position on the boundary between two leaves belongs to the lower one.
func LeafIndexForPosition(y float64) (int, error) {
	t := Leaves()
	lo, hi := t.Span()
	if y < lo || y > hi {
		return -1, fmt.Errorf("y = %g not in [%g, %g]: %w", y, lo, hi, ErrOutOfRange)
	}
	for i := 0; i < NumberOfLeaves; i++ {
		if y <= t.upperEdge(i) {
			return i, nil
		}
	}
	return NumberOfLeaves - 1, nil
}

func (a *Aperture) underJawOpening(x, y, margin float64) bool {
	j := a.Jaws
	return x > j.X1-margin && x < j.X2+margin && y > j.Y1-margin && y < j.Y2+margin
}

func (a *Aperture) isInField(x, y, margin float64) bool {
	if !a.underJawOpening(x, y, margin) {
		return false
	}
	if !a.hasMLC {
		return true
	}

	bankB, bankA := a.BankPositions(y)
	return bankB-margin < x && x < bankA+margin
}

// BankPositions returns the interpolated leaf end positions of banks B and A
// at transverse position y.
//
// Beyond the outermost leaf centers the outermost leaf is used. Where a Y jaw
// lies inside the interval between two leaf centers, the interval end is
// moved to the jaw. The Y1 and Y2 cases are not mirror images:
// Y1 only carries the upper leaf value down when the jaw is past the lower
// leaf's half width, while Y2 carries the lower leaf value up when the jaw is
// within (or exactly on) the lower leaf's half width.
func (a *Aperture) BankPositions(y float64) (float64, float64) {
	t := &a.leaves
	last := NumberOfLeaves - 1

	if y < t.Centers[0] {
		return a.leafEnds[BankB][0], a.leafEnds[BankA][0]
	}
	if y >= t.Centers[last] {
		return a.leafEnds[BankB][last], a.leafEnds[BankA][last]
	}

	lower, upper := 0, 0
	for i := 1; i < NumberOfLeaves; i++ {
		if y < t.Centers[i] {
			lower, upper = i-1, i
			break
		}
	}

	yLower, yUpper := t.Centers[lower], t.Centers[upper]
	lowerB, upperB := a.leafEnds[BankB][lower], a.leafEnds[BankB][upper]
	lowerA, upperA := a.leafEnds[BankA][lower], a.leafEnds[BankA][upper]
	lowerEdge := t.upperEdge(lower)
	y1, y2 := a.Jaws.Y1, a.Jaws.Y2

	if t.Centers[lower] <= y1 && lowerEdge > y1 {
		yLower = y1
	} else if t.Centers[upper] > y1 && lowerEdge <= y1 {
		lowerA, lowerB = upperA, upperB
		yLower = y1
	}

	if t.Centers[lower] <= y2 && lowerEdge >= y2 {
		yUpper = y2
		upperA, upperB = lowerA, lowerB
	} else if t.Centers[upper] > y2 && lowerEdge < y2 {
		yUpper = y2
	}

	bankB := LinearInterpolation1D(y, yLower, yUpper, lowerB, upperB)
	bankA := LinearInterpolation1D(y, yLower, yUpper, lowerA, upperA)
	return bankB, bankA
}
