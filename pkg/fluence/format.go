package fluence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrFormat is returned for a malformed fluence file.
var ErrFormat = errors.New("malformed fluence file")

const (
	fluenceTag = "optimalfluence"
	valuesTag  = "values"
	utf8BOM    = "\ufeff"
)

// ReadFile reads a fluence grid from a file
func ReadFile(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	g, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Read parses a fluence grid.
//
// The layout is a "# <beam id> - Fluence" header, the optimalfluence tag,
// six key<TAB>value lines (sizex, sizey, spacingx, spacingy, originx, originy),
// the values tag and then sizey rows of sizex tab separated values, top row first.
func Read(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0

	next := func() ([]string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("line %d: unexpected end of file: %w", line+1, ErrFormat)
		}
		line++
		text := scanner.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, utf8BOM)
		}
		return strings.Fields(text), nil
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("line 1: missing beam id: %w", ErrFormat)
	}
	beamID := header[1]

	// tag line
	if _, err := next(); err != nil {
		return nil, err
	}

	keys := []string{"sizex", "sizey", "spacingx", "spacingy", "originx", "originy"}
	params := make(map[string]string, len(keys))
	for _, key := range keys {
		fields, err := next()
		if err != nil {
			return nil, err
		}
		if len(fields) < 2 || fields[0] != key {
			return nil, fmt.Errorf("line %d: expected %q: %w", line, key, ErrFormat)
		}
		params[key] = fields[1]
	}

	sizeX, err := strconv.Atoi(params["sizex"])
	if err != nil {
		return nil, fmt.Errorf("sizex: %v: %w", err, ErrFormat)
	}
	sizeY, err := strconv.Atoi(params["sizey"])
	if err != nil {
		return nil, fmt.Errorf("sizey: %v: %w", err, ErrFormat)
	}
	var reals [4]float64
	for i, key := range keys[2:] {
		reals[i], err = strconv.ParseFloat(params[key], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", key, err, ErrFormat)
		}
	}
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("size %dx%d: %w", sizeX, sizeY, ErrFormat)
	}

	// values tag
	if _, err := next(); err != nil {
		return nil, err
	}

	values := make([]float64, 0, sizeX*sizeY)
	for i := 0; i < sizeY; i++ {
		fields, err := next()
		if err != nil {
			return nil, err
		}
		if len(fields) < sizeX {
			return nil, fmt.Errorf("line %d: expected %d values, got %d: %w", line, sizeX, len(fields), ErrFormat)
		}
		for j := 0; j < sizeX; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %v: %w", line, j, err, ErrFormat)
			}
			values = append(values, v)
		}
	}

	return NewGrid(beamID, sizeX, sizeY, reals[0], reals[1], reals[2], reals[3], values)
}

// WriteFile writes the grid to a file, prefixed with a UTF-8 byte order mark.
func (g *Grid) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fluence file: %w", err)
	}

	if err := g.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write serializes the grid in the fluence text format.
func (g *Grid) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, utf8BOM)
	fmt.Fprintf(bw, "# %s - Fluence\r\n", g.BeamID)
	fmt.Fprintf(bw, "%s\r\n", fluenceTag)
	fmt.Fprintf(bw, "sizex\t%d\r\n", g.SizeX)
	fmt.Fprintf(bw, "sizey\t%d\r\n", g.SizeY)
	fmt.Fprintf(bw, "spacingx\t%s\r\n", formatGeneral(g.SpacingX))
	fmt.Fprintf(bw, "spacingy\t%s\r\n", formatGeneral(g.SpacingY))
	fmt.Fprintf(bw, "originx\t%s\r\n", formatGeneral(g.OriginX))
	fmt.Fprintf(bw, "originy\t%s\r\n", formatGeneral(g.OriginY))
	fmt.Fprintf(bw, "%s\r\n", valuesTag)

	for i := 0; i < g.SizeY; i++ {
		for j := 0; j < g.SizeX; j++ {
			bw.WriteString(formatGeneral(g.Values.At(i, j)))
			bw.WriteByte('\t')
		}
		bw.WriteString("\r\n")
	}
	bw.WriteString("\r\n")

	return bw.Flush()
}

// formatGeneral formats like the .NET "G" specifier for doubles: 15
// significant digits, exponent form for very small or large magnitudes.
func formatGeneral(v float64) string {
	return strconv.FormatFloat(v, 'G', 15, 64)
}
