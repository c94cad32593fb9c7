// Package geometry implements the rigid transforms between the room (planning)
// coordinate system and the rotating beam (unit) coordinate system of a linac.
//
// Scales are in mm and angles in degrees. The linac scale is IEC 61217 with the
// couch rotation sense reversed, and the planning coordinate system is fixed in
// the room. Only the directions of the axes matter.
package geometry

import "math"

// Vector3 is a point or displacement without a frame attached.
type Vector3 struct {
	X, Y, Z float64
}

// RoomPoint is a point in the room (planning) coordinate system.
type RoomPoint Vector3

// BeamPoint is a point in the beam (unit) coordinate system. The source lies
// on the -Y axis of this frame.
type BeamPoint Vector3

// NewRoomPoint creates a room-frame point
func NewRoomPoint(x, y, z float64) RoomPoint {
	return RoomPoint{X: x, Y: y, Z: z}
}

// NewBeamPoint creates a beam-frame point
func NewBeamPoint(x, y, z float64) BeamPoint {
	return BeamPoint{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub returns the difference between two vectors
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Mul multiplies the vector by a scalar
func (v Vector3) Mul(scalar float64) Vector3 {
	return Vector3{
		X: v.X * scalar,
		Y: v.Y * scalar,
		Z: v.Z * scalar,
	}
}

// Length returns the magnitude of the vector
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Array returns the components as an array in x, y, z order.
func (v Vector3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Vector3FromArray is the inverse of Array.
func Vector3FromArray(a [3]float64) Vector3 {
	return Vector3{X: a[0], Y: a[1], Z: a[2]}
}

// Distance returns the distance between two room points
func (p RoomPoint) Distance(other RoomPoint) float64 {
	return Vector3(p).Sub(Vector3(other)).Length()
}
