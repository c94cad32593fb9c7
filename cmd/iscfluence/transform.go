package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"iscfluence/pkg/geometry"
)

var transformOpts struct {
	gantry     float64
	collimator float64
	couch      float64
	sad        float64
	isocenter  []float64
	point      []float64
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Show the beam geometry of a room point",
	Long: `Transform a room point into the frame of a beam with the given angles and
print the round trip back to the room, the source position, the source to point
distance, the off-axis distance, the inverse square factor and the projection
onto the isocenter plane.`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	f := transformCmd.Flags()
	f.Float64VarP(&transformOpts.gantry, "gantry", "g", 0, "Gantry angle in degrees")
	f.Float64Var(&transformOpts.collimator, "collimator", 0, "Collimator angle in degrees")
	f.Float64Var(&transformOpts.couch, "couch", 0, "Couch angle in degrees")
	f.Float64Var(&transformOpts.sad, "sad", geometry.DefaultSAD, "Source to axis distance in mm")
	f.Float64SliceVar(&transformOpts.isocenter, "isocenter", []float64{0, 0, 0}, "Isocenter x,y,z in mm")
	f.Float64SliceVarP(&transformOpts.point, "point", "p", nil, "Room point x,y,z in mm")
	transformCmd.MarkFlagRequired("point")
	rootCmd.AddCommand(transformCmd)
}

func toRoomPoint(name string, v []float64) (geometry.RoomPoint, error) {
	if len(v) != 3 {
		return geometry.RoomPoint{}, fmt.Errorf("--%s needs 3 coordinates, got %d", name, len(v))
	}
	return geometry.NewRoomPoint(v[0], v[1], v[2]), nil
}

func formatPoint(v geometry.Vector3) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

func runTransform(cmd *cobra.Command, args []string) error {
	iso, err := toRoomPoint("isocenter", transformOpts.isocenter)
	if err != nil {
		return err
	}
	p, err := toRoomPoint("point", transformOpts.point)
	if err != nil {
		return err
	}
	if transformOpts.sad <= 0 {
		return fmt.Errorf("--sad must be positive, got %g", transformOpts.sad)
	}

	g := geometry.NewBeamGeometry(transformOpts.gantry, transformOpts.collimator, transformOpts.couch, iso)
	g.SAD = transformOpts.sad

	b := g.ToBeamFrame(p)

	fmt.Println("Beam Geometry")
	fmt.Println("=============")
	fmt.Printf("Gantry: %g  Collimator: %g  Couch: %g\n", g.Angles.Gantry, g.Angles.Collimator, g.Angles.Couch)
	fmt.Printf("Isocenter: %s\n", formatPoint(geometry.Vector3(iso)))
	fmt.Printf("SAD: %g mm\n\n", g.SAD)

	fmt.Printf("Room point: %s\n", formatPoint(geometry.Vector3(p)))
	fmt.Printf("Beam frame: %s\n", formatPoint(geometry.Vector3(b)))
	fmt.Printf("Round trip: %s\n", formatPoint(geometry.Vector3(g.ToRoomFrame(b))))
	fmt.Printf("Source: %s\n\n", formatPoint(geometry.Vector3(g.SourcePosition())))

	fmt.Printf("Source to point distance: %.4f mm\n", g.SourceToPointDistance(p))
	fmt.Printf("Off-axis distance: %.4f mm\n", g.OffAxisDistanceAtIsocenterPlane(p))
	fmt.Printf("Inverse square factor: %.6f\n", g.InverseSquareFactor(p))

	projected, err := g.ProjectToIsocenterPlane(p)
	switch {
	case errors.Is(err, geometry.ErrBehindSource):
		fmt.Println("Isocenter plane projection: undefined, the point is behind the source")
	case err != nil:
		return err
	default:
		fmt.Printf("Isocenter plane projection: %s\n", formatPoint(geometry.Vector3(projected)))
	}
	return nil
}
