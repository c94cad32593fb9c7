package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PatientOrientation is the patient position on the couch.
type PatientOrientation int

// Sitting is not defined.
const (
	NoOrientation PatientOrientation = iota
	HeadFirstSupine
	HeadFirstProne
	HeadFirstDecubitusRight
	HeadFirstDecubitusLeft
	FeetFirstSupine
	FeetFirstProne
	FeetFirstDecubitusRight
	FeetFirstDecubitusLeft
)

var orientationNames = [...]string{
	"NoOrientation",
	"HeadFirstSupine",
	"HeadFirstProne",
	"HeadFirstDecubitusRight",
	"HeadFirstDecubitusLeft",
	"FeetFirstSupine",
	"FeetFirstProne",
	"FeetFirstDecubitusRight",
	"FeetFirstDecubitusLeft",
}

// patientToCouch holds the row-major patient to couch matrices, indexed by orientation.
var patientToCouch = [...][9]float64{
	NoOrientation:           {1, 0, 0, 0, 1, 0, 0, 0, 1},
	HeadFirstSupine:         {1, 0, 0, 0, 1, 0, 0, 0, 1},
	HeadFirstProne:          {-1, 0, 0, 0, -1, 0, 0, 0, 1},
	HeadFirstDecubitusRight: {0, 1, 0, -1, 0, 0, 0, 0, 1},
	HeadFirstDecubitusLeft:  {0, -1, 0, 1, 0, 0, 0, 0, 1},
	FeetFirstSupine:         {-1, 0, 0, 0, 1, 0, 0, 0, -1},
	FeetFirstProne:          {1, 0, 0, 0, -1, 0, 0, 0, -1},
	FeetFirstDecubitusRight: {0, -1, 0, -1, 0, 0, 0, 0, -1},
	FeetFirstDecubitusLeft:  {0, 1, 0, 1, 0, 0, 0, 0, -1},
}

// String returns the orientation name
func (o PatientOrientation) String() string {
	if o < 0 || int(o) >= len(orientationNames) {
		return fmt.Sprintf("PatientOrientation(%d)", int(o))
	}
	return orientationNames[o]
}

// ParsePatientOrientation maps an orientation name to its value. An empty
// string is NoOrientation.
func ParsePatientOrientation(name string) (PatientOrientation, error) {
	if name == "" {
		return NoOrientation, nil
	}
	for i, n := range orientationNames {
		if n == name {
			return PatientOrientation(i), nil
		}
	}
	return NoOrientation, fmt.Errorf("unknown patient orientation %q", name)
}

// PatientToCouchMatrix returns a fresh copy of the sign/permutation matrix
// relating the patient frame to the couch frame.
func PatientToCouchMatrix(o PatientOrientation) (*mat.Dense, error) {
	if o < 0 || int(o) >= len(patientToCouch) {
		return nil, fmt.Errorf("patient orientation %d out of range [0, %d)", int(o), len(patientToCouch))
	}
	data := patientToCouch[o]
	return mat.NewDense(3, 3, data[:]), nil
}
