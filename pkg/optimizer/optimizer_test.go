package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"iscfluence/internal/models"
	"iscfluence/pkg/aperture"
	"iscfluence/pkg/fluence"
	"iscfluence/pkg/geometry"
	"iscfluence/pkg/logging"
)

func TestReductionFactorBringsDoseToThreshold(t *testing.T) {
	beamDoses := []float64{1.2, 0.8, 0.35}
	p := NewPointDose(geometry.NewRoomPoint(0, 0, 0), beamDoses)
	threshold := 2.0

	assert.InDelta(t, 2.35, p.TotalDose, 1e-12)
	assert.InDelta(t, 1.44+0.64+0.1225, p.TotalSquaredDose, 1e-12)

	reduced := 0.0
	for _, d := range beamDoses {
		reduced += d * ReductionFactorValue(d, p.TotalDose, p.TotalSquaredDose, threshold)
	}
	assert.InDelta(t, threshold, reduced, 1e-12)

	assert.InDelta(t, 1-1.2*0.35/2.2025, ReductionFactorValue(1.2, 2.35, 2.2025, 2), 1e-15)
	assert.Equal(t, 1.0, ReductionFactorValue(0, 0, 0, 2))
}

func TestMinReductionFactorMapOrderIndependent(t *testing.T) {
	grid, err := fluence.NewGrid("B1", 4, 4, 1, 1, -1.5, 1.5, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	factors := make([]ReductionFactor, 200)
	for i := range factors {
		factors[i] = ReductionFactor{
			X:     rng.Float64()*3.9 - 1.95,
			Y:     rng.Float64()*3.9 - 1.95,
			Value: rng.Float64()*0.4 + 0.6,
		}
	}

	expected, err := MinReductionFactorMap(grid, factors)
	require.NoError(t, err)

	for k := 0; k < 10; k++ {
		rng.Shuffle(len(factors), func(i, j int) { factors[i], factors[j] = factors[j], factors[i] })
		got, err := MinReductionFactorMap(grid, factors)
		require.NoError(t, err)
		assert.True(t, mat.Equal(expected, got), "permutation %d", k)
	}
}

func TestMinReductionFactorMapKeepsMinimum(t *testing.T) {
	grid, err := fluence.NewGrid("B1", 3, 2, 10, 10, -10, 5, nil)
	require.NoError(t, err)

	m, err := MinReductionFactorMap(grid, []ReductionFactor{
		{X: 0, Y: 5, Value: 0.9},
		{X: 1, Y: 4, Value: 0.7},
		{X: -2, Y: 6, Value: 0.8},
		{X: 10, Y: -5, Value: 1.2},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0.7, 1}, m.RawRowView(0))
	assert.Equal(t, []float64{1, 1, 1}, m.RawRowView(1))
}

func TestMinReductionFactorMapOutOfBounds(t *testing.T) {
	grid, err := fluence.NewGrid("B1", 3, 2, 10, 10, -10, 5, nil)
	require.NoError(t, err)

	_, err = MinReductionFactorMap(grid, []ReductionFactor{{X: 30, Y: 0, Value: 0.5}})
	assert.ErrorIs(t, err, fluence.ErrOutOfBounds)
}

func TestPointNearSourcePlaneIsOutOfBounds(t *testing.T) {
	g := geometry.NewBeamGeometry(0, 0, 0, geometry.NewRoomPoint(0, 0, 0))
	p := NewPointDose(geometry.NewRoomPoint(100000, -999.9999999999999, 0), []float64{1.2, 1})

	// the projection scale is around 1e16, the point lands far off any grid
	factors, err := BeamReductionFactors(g, []PointDose{p}, 0, 2)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Greater(t, factors[0].X, 1e18)

	grid, err := fluence.NewGrid("B1", 10, 10, 1, 1, -4.5, 4.5, nil)
	require.NoError(t, err)
	_, err = MinReductionFactorMap(grid, factors)
	assert.ErrorIs(t, err, fluence.ErrOutOfBounds)
}

func TestThresholdSchedule(t *testing.T) {
	s, err := ThresholdSchedule(115, 107, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{113, 111, 109, 107}, s)

	s, err = ThresholdSchedule(112, 107, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{107}, s)

	_, err = ThresholdSchedule(105, 107, 2)
	assert.Error(t, err)

	_, err = ThresholdSchedule(115, 107, 0)
	assert.Error(t, err)
}

func twoBeamPlan() *models.Plan {
	grid := models.DoseGrid{
		SizeX: 2, SizeY: 1, SizeZ: 2,
		Resolution: [3]float64{2.5, 3, 5},
		Origin:     [3]float64{-10, 0, 20},
	}
	planDose := grid
	planDose.Values = []float64{100, 110, 95, 108}
	dose1 := grid
	dose1.Values = []float64{50, 55, 45, 54}
	dose2 := grid
	dose2.Values = []float64{25, 27.5, 25, 27}

	return &models.Plan{
		ID:                        "P1",
		PrescribedDosePerFraction: 2,
		NormalizationValue:        100,
		Dose:                      planDose,
		Beams: []models.Beam{
			{ID: "B1", Meterset: 100, MetersetPerGy: 100, Dose: dose1},
			{ID: "B2", Meterset: 200, MetersetPerGy: 100, Dose: dose2},
		},
	}
}

func TestCollectPoints(t *testing.T) {
	plan := twoBeamPlan()

	for _, cores := range []int{1, 2, 3} {
		points := CollectPoints(plan, 107, cores)
		require.Len(t, points, 2, "cores %d", cores)

		assert.Equal(t, geometry.NewRoomPoint(-7.5, 0, 20), points[0].Position)
		assert.Equal(t, geometry.NewRoomPoint(-7.5, 0, 25), points[1].Position)

		assert.InDelta(t, 1.1, points[0].BeamDoses[0], 1e-12)
		assert.InDelta(t, 1.1, points[0].BeamDoses[1], 1e-12)
		assert.InDelta(t, 2.2, points[0].TotalDose, 1e-12)
		assert.InDelta(t, 1.08, points[1].BeamDoses[0], 1e-12)
		assert.InDelta(t, 2.16, points[1].TotalDose, 1e-12)
	}

	assert.Empty(t, CollectPoints(plan, 110, 1))
}

func TestHotSpots(t *testing.T) {
	plan := twoBeamPlan()
	o := New(plan, Options{ThresholdPercent: 107}, logging.Discard())

	// (-7.5, 0, 20) and (-7.5, 0, 25) are neighbors along z
	regions := o.HotSpots()
	require.Len(t, regions, 1)
	assert.Equal(t, []int{0, 1}, regions[0].Indices)
	assert.InDelta(t, 22.5, regions[0].Centroid.Z, 1e-12)
}

func isocenterPlan(gantries []float64, leaves bool) *models.Plan {
	grid := models.DoseGrid{SizeX: 1, SizeY: 1, SizeZ: 1, Resolution: [3]float64{1, 1, 1}}
	plan := &models.Plan{
		ID:                        "ISO",
		PrescribedDosePerFraction: 2,
		NormalizationValue:        100,
		Dose:                      grid,
	}
	plan.Dose.Values = []float64{110}

	var leafPositions [][]float64
	if leaves {
		b := make([]float64, aperture.NumberOfLeaves)
		a := make([]float64, aperture.NumberOfLeaves)
		for i := range b {
			b[i], a[i] = -5, 5
		}
		leafPositions = [][]float64{b, a}
	}

	for i, gantry := range gantries {
		beamDose := grid
		beamDose.Values = []float64{55}
		plan.Beams = append(plan.Beams, models.Beam{
			ID:            []string{"MED", "LAT", "BOOST"}[i],
			Meterset:      100,
			MetersetPerGy: 100,
			ControlPoints: []models.ControlPoint{{
				GantryAngle:   gantry,
				Jaws:          aperture.Jaws{X1: -5, X2: 5, Y1: -5, Y2: 5},
				LeafPositions: leafPositions,
			}},
			Dose: beamDose,
		})
	}
	return plan
}

func onesFluence(t *testing.T, id string) *fluence.Grid {
	t.Helper()
	values := make([]float64, 9)
	for i := range values {
		values[i] = 1
	}
	g, err := fluence.NewGrid(id, 3, 3, 10, 10, -10, 10, values)
	require.NoError(t, err)
	return g
}

func TestRunReducesAtIsocenter(t *testing.T) {
	plan := isocenterPlan([]float64{0, 90}, false)
	opts := DefaultOptions()
	opts.ThresholdPercent = 100
	opts.Shape = false
	opts.NumCores = 2

	o := New(plan, opts, logging.Discard())
	require.Len(t, o.Points(), 1)
	assert.InDelta(t, 2.0, o.AbsoluteThreshold(), 1e-12)

	fluences := map[string]*fluence.Grid{
		"MED": onesFluence(t, "MED"),
		"LAT": onesFluence(t, "LAT"),
	}
	results, err := o.Run(fluences)
	require.NoError(t, err)
	require.Len(t, results, 2)

	want := 1 - 1.1*0.2/2.42
	for i, res := range results {
		assert.Equal(t, plan.Beams[i].ID, res.Beam.ID)
		require.Len(t, res.Factors, 1)
		assert.InDelta(t, 0, res.Factors[0].X, 1e-9)
		assert.InDelta(t, 0, res.Factors[0].Y, 1e-9)
		assert.InDelta(t, want, res.Factors[0].Value, 1e-12)

		assert.InDelta(t, want, res.FactorMap.At(1, 1), 1e-12)
		assert.Equal(t, 1.0, res.FactorMap.At(0, 0))
		assert.InDelta(t, want, res.Fluence.At(1, 1), 1e-12)
		assert.Equal(t, 1.0, res.Fluence.At(2, 2))
	}

	// inputs are left alone
	assert.Equal(t, 1.0, fluences["MED"].At(1, 1))
}

func TestRunShapesWithLeaves(t *testing.T) {
	plan := isocenterPlan([]float64{0}, true)
	opts := DefaultOptions()
	opts.ThresholdPercent = 50
	opts.ShapeOptions = fluence.ShapeOptions{Margin: 0, FlushValue: 0.5, MinimumFluence: 0.95}

	o := New(plan, opts, logging.Discard())
	results, err := o.Run(map[string]*fluence.Grid{"MED": onesFluence(t, "MED")})
	require.NoError(t, err)

	// 1.1 Gy from a single beam brought down to 1 Gy
	assert.InDelta(t, 1-1.1*0.1/1.21, results[0].FactorMap.At(1, 1), 1e-12)

	f := results[0].Fluence
	// only the center pixel is inside the 10 mm field, the reduction is floored
	assert.Equal(t, 0.95, f.At(1, 1))
	assert.Equal(t, 0.0, f.At(0, 0))
	assert.Equal(t, 0.0, f.At(1, 0))
}

func TestRunErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.ThresholdPercent = 100

	// jaw-only aperture cannot be shaped
	plan := isocenterPlan([]float64{0}, false)
	_, err := New(plan, opts, logging.Discard()).Run(map[string]*fluence.Grid{"MED": onesFluence(t, "MED")})
	assert.ErrorIs(t, err, aperture.ErrNoMLC)

	// missing fluence
	_, err = New(plan, opts, logging.Discard()).Run(map[string]*fluence.Grid{})
	assert.Error(t, err)

	// point behind the source
	plan = isocenterPlan([]float64{0}, true)
	plan.Dose.Origin = [3]float64{0, -2000, 0}
	plan.Beams[0].Dose.Origin = plan.Dose.Origin
	_, err = New(plan, opts, logging.Discard()).Run(map[string]*fluence.Grid{"MED": onesFluence(t, "MED")})
	assert.ErrorIs(t, err, geometry.ErrBehindSource)

	// projected point outside the fluence grid
	plan = isocenterPlan([]float64{0}, true)
	plan.Dose.Origin = [3]float64{100, 0, 0}
	_, err = New(plan, opts, logging.Discard()).Run(map[string]*fluence.Grid{"MED": onesFluence(t, "MED")})
	assert.ErrorIs(t, err, fluence.ErrOutOfBounds)
}
