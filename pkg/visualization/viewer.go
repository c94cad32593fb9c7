package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"iscfluence/pkg/fluence"
)

// Viewer renders a 2D map, such as a fluence or a reduction factor map, as a
// grayscale image. Values are scaled linearly so that low is black and high
// is white.
type Viewer struct {
	// data holds the map, row 0 at the top of the image
	data mat.Matrix

	// dimensions of the map
	width  int
	height int

	// display window
	low  float64
	high float64
}

// NewViewer creates a viewer for m with the display window [low, high]
func NewViewer(m mat.Matrix, low, high float64) *Viewer {
	rows, cols := m.Dims()
	return &Viewer{
		data:   m,
		width:  cols,
		height: rows,
		low:    low,
		high:   high,
	}
}

// NewGridViewer creates a viewer for a fluence grid windowed from 0 to its maximum
func NewGridViewer(g *fluence.Grid) *Viewer {
	high := mat.Max(g.Values)
	if high <= 0 {
		high = 1
	}
	return NewViewer(g.Values, 0, high)
}

// Image renders the map
func (v *Viewer) Image() image.Image {
	img := image.NewGray16(image.Rect(0, 0, v.width, v.height))
	span := v.high - v.low
	if span <= 0 {
		span = 1
	}

	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			t := (v.data.At(y, x) - v.low) / span
			value := uint16(math.Max(0, math.Min(65535, t*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// Profile extracts a line through the map: a row for axis "x" and a column for axis "y".
func (v *Viewer) Profile(axis string, position int) ([]float64, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	switch axis {
	case "x", "X":
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		profile := make([]float64, v.width)
		for x := range profile {
			profile[x] = v.data.At(position, x)
		}
		return profile, nil

	case "y", "Y":
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		profile := make([]float64, v.height)
		for y := range profile {
			profile[y] = v.data.At(y, position)
		}
		return profile, nil

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x or y)", axis)
	}
}

// SaveImage saves an image as a JPEG
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// Save renders the map and saves it as a JPEG
func (v *Viewer) Save(filename string) error {
	return SaveImage(v.Image(), filename)
}

// SaveBeamImages writes <beam>_fluence.jpg and, when factors is not nil,
// <beam>_factors.jpg to outputDir. Factor maps are windowed to [0, 1].
func SaveBeamImages(outputDir string, g *fluence.Grid, factors *mat.Dense) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	filename := filepath.Join(outputDir, fmt.Sprintf("%s_fluence.jpg", g.BeamID))
	if err := NewGridViewer(g).Save(filename); err != nil {
		return err
	}

	if factors != nil {
		filename = filepath.Join(outputDir, fmt.Sprintf("%s_factors.jpg", g.BeamID))
		if err := NewViewer(factors, 0, 1).Save(filename); err != nil {
			return err
		}
	}
	return nil
}
