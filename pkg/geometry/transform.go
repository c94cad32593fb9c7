package geometry

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSAD is the default source to axis distance in mm.
const DefaultSAD = 1000.0

// ErrBehindSource is returned when a point lies on or behind the source plane
// and cannot be projected onto the isocenter plane.
var ErrBehindSource = errors.New("point is on or behind the source plane")

// Angles holds the three machine rotations of a beam in degrees.
type Angles struct {
	Gantry     float64
	Collimator float64
	Couch      float64
}

// GantryRotation rotates about the beam-frame Z axis.
func GantryRotation(angleDegrees float64, v Vector3) Vector3 {
	return RotateZ(angleDegrees, v)
}

// CollimatorRotation rotates about the Y axis in the negative sense.
func CollimatorRotation(angleDegrees float64, v Vector3) Vector3 {
	return RotateY(-angleDegrees, v)
}

// CouchRotation rotates about the Y axis.
func CouchRotation(angleDegrees float64, v Vector3) Vector3 {
	return RotateY(angleDegrees, v)
}

// ToBeamFrame transforms a room point into the beam frame.
//
// The point is translated to the isocenter, then rotated by the couch, the
// gantry and the collimator in that order.
func ToBeamFrame(isocenter RoomPoint, angles Angles, p RoomPoint) BeamPoint {
	v := Vector3(p).Sub(Vector3(isocenter))
	v = CouchRotation(angles.Couch, v)
	v = GantryRotation(angles.Gantry, v)
	v = CollimatorRotation(angles.Collimator, v)
	return BeamPoint(v)
}

// ToRoomFrame is the inverse of ToBeamFrame.
func ToRoomFrame(isocenter RoomPoint, angles Angles, b BeamPoint) RoomPoint {
	v := CollimatorRotation(-angles.Collimator, Vector3(b))
	v = GantryRotation(-angles.Gantry, v)
	v = CouchRotation(-angles.Couch, v)
	return RoomPoint(v.Add(Vector3(isocenter)))
}

// SourcePosition returns the room coordinates of the radiation source.
func SourcePosition(isocenter RoomPoint, angles Angles, sad float64) RoomPoint {
	return ToRoomFrame(isocenter, angles, BeamPoint{Y: -sad})
}

// SourceToPointDistance returns the distance from the source to p.
func SourceToPointDistance(p, isocenter RoomPoint, angles Angles, sad float64) float64 {
	b := ToBeamFrame(isocenter, angles, p)
	return math.Sqrt(b.X*b.X + (b.Y+sad)*(b.Y+sad) + b.Z*b.Z)
}

// OffAxisDistanceAtIsocenterPlane returns the radial distance of p from the
// central axis, scaled to the isocenter plane by similar triangles.
func OffAxisDistanceAtIsocenterPlane(p, isocenter RoomPoint, angles Angles, sad float64) float64 {
	b := ToBeamFrame(isocenter, angles, p)
	radial := math.Sqrt(b.X*b.X + b.Z*b.Z)
	depth := math.Abs(b.Y + sad)
	return radial * sad / depth
}

// InverseSquareFactor returns (depth/SAD)^2 where depth is the distance of p
// from the source along the central axis.
func InverseSquareFactor(p, isocenter RoomPoint, angles Angles, sad float64) float64 {
	b := ToBeamFrame(isocenter, angles, p)
	depth := math.Abs(b.Y + sad)
	return math.Pow(depth/sad, 2)
}

// ProjectToIsocenterPlane projects p along the ray from the source onto the
// plane through the isocenter perpendicular to the central axis. The result is
// in the beam frame, so its Y component is zero up to rounding.
func ProjectToIsocenterPlane(p, isocenter RoomPoint, angles Angles, sad float64) (BeamPoint, error) {
	source := Vector3{Y: -sad}
	b := ToBeamFrame(isocenter, angles, p)

	ray := Vector3(b).Sub(source)
	if ray.Y < math.SmallestNonzeroFloat64 {
		return BeamPoint{}, fmt.Errorf("project (%g, %g, %g): beam-frame y %g vs source y %g: %w",
			p.X, p.Y, p.Z, b.Y, source.Y, ErrBehindSource)
	}

	scale := sad / math.Abs(ray.Y)
	return BeamPoint(source.Add(ray.Mul(scale))), nil
}
