package geometry

// BeamGeometry describes the position of one beam. The source position is
// always derived from the angles, isocenter and SAD when it is read.
//
// TODO: compose the patient orientation into the transforms once the
// composition point for non head-first-supine setups is settled. The
// orientation is carried but not applied.
type BeamGeometry struct {
	// Angles are the gantry, collimator and couch angles in degrees
	Angles Angles

	// Isocenter is the rotation center in the room frame in mm
	Isocenter RoomPoint

	// SAD is the source to axis distance in mm
	SAD float64

	// Orientation is the patient orientation on the couch
	Orientation PatientOrientation
}

// NewBeamGeometry creates a beam geometry with the default SAD and no patient orientation.
func NewBeamGeometry(gantry, collimator, couch float64, isocenter RoomPoint) *BeamGeometry {
	return &BeamGeometry{
		Angles: Angles{
			Gantry:     gantry,
			Collimator: collimator,
			Couch:      couch,
		},
		Isocenter: isocenter,
		SAD:       DefaultSAD,
	}
}

// SourcePosition returns the source position in the room frame
func (g *BeamGeometry) SourcePosition() RoomPoint {
	return SourcePosition(g.Isocenter, g.Angles, g.SAD)
}

// ToBeamFrame transforms a room point into this beam's frame
func (g *BeamGeometry) ToBeamFrame(p RoomPoint) BeamPoint {
	return ToBeamFrame(g.Isocenter, g.Angles, p)
}

// ToRoomFrame transforms a beam-frame point back to the room
func (g *BeamGeometry) ToRoomFrame(b BeamPoint) RoomPoint {
	return ToRoomFrame(g.Isocenter, g.Angles, b)
}

// SourceToPointDistance returns the source to p distance in mm
func (g *BeamGeometry) SourceToPointDistance(p RoomPoint) float64 {
	return SourceToPointDistance(p, g.Isocenter, g.Angles, g.SAD)
}

// OffAxisDistanceAtIsocenterPlane returns the distance of p from the central axis, scaled to the isocenter plane
func (g *BeamGeometry) OffAxisDistanceAtIsocenterPlane(p RoomPoint) float64 {
	return OffAxisDistanceAtIsocenterPlane(p, g.Isocenter, g.Angles, g.SAD)
}

// InverseSquareFactor returns (depth/SAD)^2 for p
func (g *BeamGeometry) InverseSquareFactor(p RoomPoint) float64 {
	return InverseSquareFactor(p, g.Isocenter, g.Angles, g.SAD)
}

// ProjectToIsocenterPlane projects p onto the isocenter plane of this beam.
// See the package level ProjectToIsocenterPlane.
func (g *BeamGeometry) ProjectToIsocenterPlane(p RoomPoint) (BeamPoint, error) {
	return ProjectToIsocenterPlane(p, g.Isocenter, g.Angles, g.SAD)
}
