// Package models holds the treatment plan data supplied by the host system:
// the plan, its beams and control points, and the 3D dose grids.
package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"iscfluence/pkg/aperture"
	"iscfluence/pkg/geometry"
)

// ErrInvalidPlan is returned when a plan description is incomplete or inconsistent.
var ErrInvalidPlan = errors.New("invalid plan")

// Plan represents a treatment plan with its total dose and beams
type Plan struct {
	// ID identifies the plan
	ID string `yaml:"id"`

	// PrescribedDosePerFraction is the fraction dose in Gy
	PrescribedDosePerFraction float64 `yaml:"prescribedDosePerFraction"`

	// NormalizationValue is the plan normalization, 100 for an unnormalized plan
	NormalizationValue float64 `yaml:"normalizationValue"`

	// Orientation is the patient orientation name, e.g. HeadFirstSupine
	Orientation string `yaml:"orientation,omitempty"`

	// Dose is the total plan dose in percent of the prescription
	Dose DoseGrid `yaml:"dose"`

	// Beams are the treatment beams in delivery order
	Beams []Beam `yaml:"beams"`
}

// Beam represents one treatment beam
type Beam struct {
	// ID is the beam identifier used in fluence file names
	ID string `yaml:"id"`

	// Meterset is the number of monitor units of the beam
	Meterset float64 `yaml:"meterset"`

	// MetersetPerGy is the monitor units per Gy at the reference point
	MetersetPerGy float64 `yaml:"metersetPerGy"`

	// Isocenter is the isocenter position in the room frame in mm
	Isocenter [3]float64 `yaml:"isocenter"`

	// ControlPoints hold the machine state; the first one defines the beam geometry
	ControlPoints []ControlPoint `yaml:"controlPoints"`

	// Dose is the dose of this beam per unit reference dose
	Dose DoseGrid `yaml:"dose"`

	// FluenceFile is the optimal fluence file of the beam
	FluenceFile string `yaml:"fluenceFile,omitempty"`
}

// ControlPoint is the machine state at one control point
type ControlPoint struct {
	GantryAngle     float64 `yaml:"gantryAngle"`
	CollimatorAngle float64 `yaml:"collimatorAngle"`
	CouchAngle      float64 `yaml:"couchAngle"`

	// Jaws are the jaw edges in mm
	Jaws aperture.Jaws `yaml:"jaws"`

	// LeafPositions is empty for a jaw-only field, otherwise two rows of
	// leaf end positions: bank B first, then bank A
	LeafPositions [][]float64 `yaml:"leafPositions,omitempty"`
}

// DoseGrid is a 3D dose distribution sampled on a regular grid
type DoseGrid struct {
	SizeX int `yaml:"sizeX"`
	SizeY int `yaml:"sizeY"`
	SizeZ int `yaml:"sizeZ"`

	// Resolution is the voxel spacing along x, y and z in mm
	Resolution [3]float64 `yaml:"resolution"`

	// Origin is the room position of voxel (0, 0, 0) in mm
	Origin [3]float64 `yaml:"origin"`

	// Values holds SizeX*SizeY*SizeZ doses, x fastest, then y, then z
	Values []float64 `yaml:"values,omitempty"`

	// File is a raw little-endian float64 file used when Values is empty
	File string `yaml:"file,omitempty"`
}

// Len returns the number of voxels
func (d *DoseGrid) Len() int {
	return d.SizeX * d.SizeY * d.SizeZ
}

// Index returns the position of voxel (x, y, z) in Values
func (d *DoseGrid) Index(x, y, z int) int {
	return z*d.SizeY*d.SizeX + y*d.SizeX + x
}

// At returns the dose of voxel (x, y, z)
func (d *DoseGrid) At(x, y, z int) float64 {
	return d.Values[d.Index(x, y, z)]
}

// Position returns the room coordinates of voxel (x, y, z)
func (d *DoseGrid) Position(x, y, z int) geometry.RoomPoint {
	return geometry.NewRoomPoint(
		d.Origin[0]+float64(x)*d.Resolution[0],
		d.Origin[1]+float64(y)*d.Resolution[1],
		d.Origin[2]+float64(z)*d.Resolution[2],
	)
}

// SameShape reports whether two grids share size, resolution and origin
func (d *DoseGrid) SameShape(other *DoseGrid) bool {
	return d.SizeX == other.SizeX && d.SizeY == other.SizeY && d.SizeZ == other.SizeZ &&
		d.Resolution == other.Resolution && d.Origin == other.Origin
}

// Geometry returns the beam geometry defined by the first control point
func (b *Beam) Geometry(sad float64) *geometry.BeamGeometry {
	cp := b.ControlPoints[0]
	g := geometry.NewBeamGeometry(cp.GantryAngle, cp.CollimatorAngle, cp.CouchAngle,
		geometry.RoomPoint(geometry.Vector3FromArray(b.Isocenter)))
	if sad > 0 {
		g.SAD = sad
	}
	return g
}

// Aperture returns the aperture of control point i
func (b *Beam) Aperture(i int) (*aperture.Aperture, error) {
	if i < 0 || i >= len(b.ControlPoints) {
		return nil, fmt.Errorf("beam %s has no control point %d", b.ID, i)
	}
	cp := b.ControlPoints[i]
	return aperture.New(cp.Jaws, cp.LeafPositions)
}

// LoadPlan reads a plan description from a YAML file. Dose files and fluence
// files given as relative paths are resolved against the plan's directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading plan file: %w", err)
	}

	plan := &Plan{}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("error parsing plan file: %w", err)
	}
	if plan.NormalizationValue == 0 {
		plan.NormalizationValue = 100
	}

	dir := filepath.Dir(path)
	if err := plan.Dose.load(dir); err != nil {
		return nil, fmt.Errorf("plan dose: %w", err)
	}
	for i := range plan.Beams {
		beam := &plan.Beams[i]
		if err := beam.Dose.load(dir); err != nil {
			return nil, fmt.Errorf("beam %s dose: %w", beam.ID, err)
		}
		if beam.FluenceFile != "" {
			beam.FluenceFile = resolve(dir, beam.FluenceFile)
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks that the plan is complete and that all dose grids line up.
func (p *Plan) Validate() error {
	if p.PrescribedDosePerFraction <= 0 {
		return fmt.Errorf("prescribed dose per fraction %g: %w", p.PrescribedDosePerFraction, ErrInvalidPlan)
	}
	if p.NormalizationValue <= 0 {
		return fmt.Errorf("normalization value %g: %w", p.NormalizationValue, ErrInvalidPlan)
	}
	if err := p.Dose.validate(); err != nil {
		return fmt.Errorf("plan dose: %w", err)
	}
	if len(p.Beams) == 0 {
		return fmt.Errorf("plan %s has no beams: %w", p.ID, ErrInvalidPlan)
	}
	if _, err := p.PatientOrientation(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidPlan)
	}

	seen := make(map[string]bool, len(p.Beams))
	for i := range p.Beams {
		b := &p.Beams[i]
		if b.ID == "" {
			return fmt.Errorf("beam %d has no id: %w", i, ErrInvalidPlan)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate beam id %s: %w", b.ID, ErrInvalidPlan)
		}
		seen[b.ID] = true

		if b.MetersetPerGy <= 0 {
			return fmt.Errorf("beam %s: meterset per Gy %g: %w", b.ID, b.MetersetPerGy, ErrInvalidPlan)
		}
		if len(b.ControlPoints) == 0 {
			return fmt.Errorf("beam %s has no control points: %w", b.ID, ErrInvalidPlan)
		}
		for j, cp := range b.ControlPoints {
			if n := len(cp.LeafPositions); n != 0 && n != 2 {
				return fmt.Errorf("beam %s control point %d: %d leaf banks: %w", b.ID, j, n, ErrInvalidPlan)
			}
			for bank, row := range cp.LeafPositions {
				if len(row) != aperture.NumberOfLeaves {
					return fmt.Errorf("beam %s control point %d bank %d: %d leaves, want %d: %w",
						b.ID, j, bank, len(row), aperture.NumberOfLeaves, ErrInvalidPlan)
				}
			}
		}
		if err := b.Dose.validate(); err != nil {
			return fmt.Errorf("beam %s dose: %w", b.ID, err)
		}
		if !b.Dose.SameShape(&p.Dose) {
			return fmt.Errorf("beam %s dose grid does not match the plan dose grid: %w", b.ID, ErrInvalidPlan)
		}
	}
	return nil
}

// PatientOrientation returns the parsed patient orientation
func (p *Plan) PatientOrientation() (geometry.PatientOrientation, error) {
	return geometry.ParsePatientOrientation(p.Orientation)
}

// MaxDose returns the maximum of the plan dose
func (p *Plan) MaxDose() float64 {
	max := 0.0
	for _, v := range p.Dose.Values {
		if v > max {
			max = v
		}
	}
	return max
}

// Beam returns the beam with the given id
func (p *Plan) Beam(id string) (*Beam, bool) {
	for i := range p.Beams {
		if p.Beams[i].ID == id {
			return &p.Beams[i], true
		}
	}
	return nil, false
}

func (d *DoseGrid) validate() error {
	if d.SizeX <= 0 || d.SizeY <= 0 || d.SizeZ <= 0 {
		return fmt.Errorf("size %dx%dx%d: %w", d.SizeX, d.SizeY, d.SizeZ, ErrInvalidPlan)
	}
	if len(d.Values) != d.Len() {
		return fmt.Errorf("expected %d values, got %d: %w", d.Len(), len(d.Values), ErrInvalidPlan)
	}
	return nil
}

func (d *DoseGrid) load(dir string) error {
	if len(d.Values) > 0 || d.File == "" {
		return nil
	}
	path := resolve(dir, d.File)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening dose file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() != int64(d.Len())*8 {
		return fmt.Errorf("%s holds %d bytes, expected %d: %w", path, info.Size(), d.Len()*8, ErrInvalidPlan)
	}

	values := make([]float64, d.Len())
	if err := binary.Read(file, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("error reading dose file %s: %w", path, err)
	}
	d.Values = values
	return nil
}

// WriteDoseFile writes values as raw little-endian float64 data.
func WriteDoseFile(path string, values []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating dose file: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, values); err != nil {
		file.Close()
		return fmt.Errorf("error writing dose file: %w", err)
	}
	return file.Close()
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
