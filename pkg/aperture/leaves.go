// Package aperture evaluates whether points at the isocenter plane lie inside
// a field shaped by jaws and a 120-leaf MLC.
package aperture

import "sync"

// Leaf geometry of the MLC. Lengths are in mm. Transverse means the direction
// transverse to the leaf motion.
const (
	NumberOfLeaves      = 60
	NumberOfOuterLeaves = 20
	NumberOfInnerLeaves = 40

	OuterLeafWidth = 10.0
	InnerLeafWidth = 5.0

	MinimumLeafTransversePosition = -200.0
)

// LeafTable holds the transverse centers and widths of every leaf pair.
type LeafTable struct {
	Centers [NumberOfLeaves]float64
	Widths  [NumberOfLeaves]float64
}

var (
	leafTableOnce sync.Once
	leafTable     LeafTable
)

// Leaves returns the leaf table shared by every aperture. The returned value
// is a copy.
func Leaves() LeafTable {
	leafTableOnce.Do(func() {
		leafTable = buildLeafTable()
	})
	return leafTable
}

func buildLeafTable() LeafTable {
	var t LeafTable

	lowerOuter := NumberOfOuterLeaves / 2
	for i := 0; i < lowerOuter; i++ {
		t.Widths[i] = OuterLeafWidth
		t.Widths[NumberOfLeaves-1-i] = OuterLeafWidth
	}
	for i := lowerOuter; i < lowerOuter+NumberOfInnerLeaves; i++ {
		t.Widths[i] = InnerLeafWidth
	}

	t.Centers[0] = MinimumLeafTransversePosition + t.Widths[0]/2
	for i := 1; i < NumberOfLeaves; i++ {
		t.Centers[i] = t.Centers[i-1] + (t.Widths[i-1]+t.Widths[i])/2
	}
	return t
}

// upperEdge is the transverse position of the upper edge of leaf i
func (t *LeafTable) upperEdge(i int) float64 {
	return t.Centers[i] + t.Widths[i]/2
}

// Span returns the lower and upper transverse edges of the whole leaf stack.
func (t *LeafTable) Span() (float64, float64) {
	return t.Centers[0] - t.Widths[0]/2, t.upperEdge(NumberOfLeaves - 1)
}
