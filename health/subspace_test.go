package health

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/internal/testutil"
)

func TestFit_Components_OrthonormalAndOrdered(t *testing.T) {
	// GIVEN a correlated baseline of 6 sensors
	model, _ := fitCorrelated(t, 1, 800, 6, DefaultFitConfig())

	// THEN components are unit norm, mutually orthogonal and ordered by eigenvalue
	for i, a := range model.Components {
		for j, b := range model.Components {
			dot := 0.0
			for k := range a {
				dot += a[k] * b[k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, dot, 1e-9, "components %d·%d", i, j)
		}
	}
	for i := 1; i < len(model.Eigenvalues); i++ {
		assert.GreaterOrEqual(t, model.Eigenvalues[i-1], model.Eigenvalues[i])
	}
	// AND the retained count honours the visual minimum and leaves a residual direction
	assert.Equal(t, 2, model.VisualDims)
	assert.GreaterOrEqual(t, model.ReconDims, 2)
	assert.LessOrEqual(t, model.ReconDims, 5)
	assert.Len(t, model.Components, model.ReconDims)
}

func TestFit_TwiceOnSameData_Identical(t *testing.T) {
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(3)), 400, 5)

	m1, err := Fit(toSamples(rows), BaselineRange{}, DefaultFitConfig())
	require.NoError(t, err)
	m2, err := Fit(toSamples(rows), BaselineRange{}, DefaultFitConfig())
	require.NoError(t, err)

	assert.Equal(t, m1.Components, m2.Components)
	assert.Equal(t, m1.Thresholds, m2.Thresholds)
	assert.Equal(t, m1, m2)
}

func TestFit_SVDAndEigen_Agree(t *testing.T) {
	// GIVEN the same baseline fitted with both decomposition methods
	cfg := DefaultFitConfig()
	svd, rows := fitCorrelated(t, 5, 600, 4, cfg)
	cfg.Method = "eigen"
	eig, err := Fit(toSamples(rows), BaselineRange{}, cfg)
	require.NoError(t, err)

	// THEN eigenvalues and the leading direction agree (signs are canonical)
	require.Equal(t, svd.ReconDims, eig.ReconDims)
	for i := range svd.Eigenvalues {
		testutil.AssertFloat64Equal(t, "eigenvalue", svd.Eigenvalues[i], eig.Eigenvalues[i], 1e-8)
	}
	testutil.AssertSliceAlmostEqual(t, "component 0", svd.Components[0], eig.Components[0], 1e-8)
}

func TestFit_FewerSamplesThanDims_DegenerateBaseline(t *testing.T) {
	// GIVEN 4 samples of 6 sensors
	rows := testutil.IndependentBaseline(rand.New(rand.NewSource(1)), 4, 6, 1)

	// WHEN fitting
	model, err := Fit(toSamples(rows), BaselineRange{}, DefaultFitConfig())

	// THEN DegenerateBaseline reports the minimum sample count and no model is returned
	assert.Nil(t, model)
	require.ErrorIs(t, err, ErrDegenerateBaseline)
	var dbe *DegenerateBaselineError
	require.True(t, errors.As(err, &dbe))
	assert.Equal(t, 7, dbe.MinSamples)
	assert.Equal(t, 4, dbe.Samples)
}

func TestFit_EqualSamplesAndDims_DegenerateBaseline(t *testing.T) {
	rows := testutil.IndependentBaseline(rand.New(rand.NewSource(1)), 3, 3, 1)
	_, err := Fit(toSamples(rows), BaselineRange{}, DefaultFitConfig())
	assert.ErrorIs(t, err, ErrDegenerateBaseline)
}

func TestFit_RankDeficient_DegenerateBaseline(t *testing.T) {
	// GIVEN three sensors that are exact multiples of one signal plus a constant
	rng := rand.New(rand.NewSource(2))
	rows := make([][]float64, 50)
	for i := range rows {
		v := rng.NormFloat64()
		rows[i] = []float64{v, 2 * v, -v, 4}
	}

	// WHEN fitting two visual directions
	_, err := Fit(toSamples(rows), BaselineRange{}, DefaultFitConfig())

	// THEN only rank 1 is available
	var dbe *DegenerateBaselineError
	require.True(t, errors.As(err, &dbe))
	assert.Equal(t, 1, dbe.Rank)
	assert.Equal(t, 2, dbe.Required)
}

func TestFit_ConstantSensor_ExcludedFromResiduals(t *testing.T) {
	// GIVEN a baseline with one stuck sensor
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(4)), 300, 4)
	withStuck := make([][]float64, len(rows))
	for i, row := range rows {
		withStuck[i] = append(copyOf(row), 42)
	}
	model, err := Fit(toSamples(withStuck), BaselineRange{}, DefaultFitConfig())
	require.NoError(t, err)
	require.False(t, model.Active[4])

	// WHEN the stuck sensor later reads wildly differently
	x := copyOf(model.Mean)
	base, err := Evaluate(x, model)
	require.NoError(t, err)
	x[4] = 1e6
	moved, err := Evaluate(x, model)
	require.NoError(t, err)

	// THEN residual statistics are unaffected
	assert.Equal(t, base.Residuals.Q, moved.Residuals.Q)
	assert.Equal(t, base.HealthScore, moved.HealthScore)
}

func TestFit_ExplicitReconDims(t *testing.T) {
	cfg := DefaultFitConfig()
	cfg.ReconDims = 3
	model, _ := fitCorrelated(t, 6, 300, 6, cfg)

	assert.Equal(t, 3, model.ReconDims)
	require.Len(t, model.ExplainedRatio, 3)
	total := 0.0
	for i, r := range model.ExplainedRatio {
		total += r
		if i > 0 {
			assert.GreaterOrEqual(t, model.ExplainedRatio[i-1], r)
		}
	}
	assert.Less(t, total, 1.0)
}

func TestFitConfig_Validate(t *testing.T) {
	bad := []func(*FitConfig){
		func(c *FitConfig) { c.VisualDims = 0 },
		func(c *FitConfig) { c.ReconDims = -1 },
		func(c *FitConfig) { c.VarianceFraction = 0 },
		func(c *FitConfig) { c.Percentile = 100 },
		func(c *FitConfig) { c.Fusion = "max" },
		func(c *FitConfig) { c.BlendWeight = 2 },
	}
	for i, mutate := range bad {
		cfg := DefaultFitConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
	assert.NoError(t, DefaultFitConfig().Validate())
}

func TestFit_UnknownMethod_ReturnsError(t *testing.T) {
	cfg := DefaultFitConfig()
	cfg.Method = "qr"
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(1)), 100, 3)
	_, err := Fit(toSamples(rows), BaselineRange{}, cfg)
	assert.Error(t, err)
}
