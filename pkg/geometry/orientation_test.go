package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPatientToCouchMatrix(t *testing.T) {
	identity := mat.NewDiagDense(3, []float64{1, 1, 1})

	for o := NoOrientation; o <= FeetFirstDecubitusLeft; o++ {
		m, err := PatientToCouchMatrix(o)
		require.NoError(t, err, o.String())

		// Every entry is a signed permutation, so M^T M = I.
		var p mat.Dense
		p.Mul(m.T(), m)
		assert.True(t, mat.EqualApprox(&p, identity, 1e-15), "%s is not orthonormal", o)
	}

	hfs, err := PatientToCouchMatrix(HeadFirstSupine)
	require.NoError(t, err)
	assert.True(t, mat.Equal(hfs, identity))

	hfp, err := PatientToCouchMatrix(HeadFirstProne)
	require.NoError(t, err)
	assert.Equal(t, -1.0, hfp.At(0, 0))
	assert.Equal(t, -1.0, hfp.At(1, 1))
	assert.Equal(t, 1.0, hfp.At(2, 2))

	// Returned matrices are copies.
	hfs.Set(0, 0, 5)
	again, _ := PatientToCouchMatrix(HeadFirstSupine)
	assert.Equal(t, 1.0, again.At(0, 0))

	_, err = PatientToCouchMatrix(PatientOrientation(9))
	assert.Error(t, err)
}

func TestParsePatientOrientation(t *testing.T) {
	o, err := ParsePatientOrientation("FeetFirstProne")
	require.NoError(t, err)
	assert.Equal(t, FeetFirstProne, o)

	o, err = ParsePatientOrientation("")
	require.NoError(t, err)
	assert.Equal(t, NoOrientation, o)

	_, err = ParsePatientOrientation("Sitting")
	assert.Error(t, err)

	assert.Equal(t, "PatientOrientation(12)", PatientOrientation(12).String())
}
