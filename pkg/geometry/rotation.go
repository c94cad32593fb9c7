package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// The sign pattern of these matrices encodes the direction in which the linac
// angles increase. Rz is clockwise for a positive angle seen from +Z, and Ry
// carries the negated sine on its upper row.

// RotationMatrixX returns the rotation about the X axis for an angle in radians.
//
//	[1     0      0]
//	[0  cosθ   sinθ]
//	[0 -sinθ   cosθ]
func RotationMatrixX(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}

// RotationMatrixY returns the rotation about the Y axis for an angle in radians.
//
//	[cosθ 0 -sinθ]
//	[0    1     0]
//	[sinθ 0  cosθ]
func RotationMatrixY(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, -s,
		0, 1, 0,
		s, 0, c,
	})
}

// RotationMatrixZ returns the rotation about the Z axis for an angle in radians.
//
//	[ cosθ sinθ 0]
//	[-sinθ cosθ 0]
//	[ 0    0    1]
func RotationMatrixZ(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

// Transform applies a 3x3 matrix to a vector.
func Transform(m mat.Matrix, v Vector3) Vector3 {
	in := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(m, in)
	return Vector3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// RotateX rotates v about the X axis by an angle in degrees.
func RotateX(angleDegrees float64, v Vector3) Vector3 {
	return Transform(RotationMatrixX(Radians(angleDegrees)), v)
}

// RotateY rotates v about the Y axis by an angle in degrees.
func RotateY(angleDegrees float64, v Vector3) Vector3 {
	return Transform(RotationMatrixY(Radians(angleDegrees)), v)
}

// RotateZ rotates v about the Z axis by an angle in degrees.
func RotateZ(angleDegrees float64, v Vector3) Vector3 {
	return Transform(RotationMatrixZ(Radians(angleDegrees)), v)
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
