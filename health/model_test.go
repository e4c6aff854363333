package health

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/internal/testutil"
)

func TestFit_BaselineFalsePositiveRate_MatchesPercentile(t *testing.T) {
	for _, fusion := range []string{FusionReconstruction, FusionSubspace, FusionBlend} {
		t.Run(fusion, func(t *testing.T) {
			// GIVEN a model calibrated at the 99th percentile
			cfg := DefaultFitConfig()
			cfg.Fusion = fusion
			model, rows := fitCorrelated(t, 11, 1000, 6, cfg)

			// WHEN the baseline is re-scored through its own model
			flagged := 0
			for _, row := range rows {
				ev, err := Evaluate(row, model)
				require.NoError(t, err)
				if ev.HealthScore > 1.0 {
					flagged++
				}
			}

			// THEN about 1% of the baseline is over threshold
			rate := float64(flagged) / float64(len(rows))
			assert.InDelta(t, 0.01, rate, 0.005, "flagged %d of %d", flagged, len(rows))
		})
	}
}

func TestReconstructionError_MonotoneInPerturbation(t *testing.T) {
	// GIVEN the baseline centre of a fitted model
	model, _ := fitCorrelated(t, 12, 500, 5, DefaultFitConfig())

	// WHEN one sensor is pushed further and further from its mean
	prev := -1.0
	for step := 0; step <= 40; step++ {
		x := copyOf(model.Mean)
		x[0] += float64(step) * 0.25 * model.Scale[0]
		ev, err := Evaluate(x, model)
		require.NoError(t, err)

		// THEN reconstruction error never decreases
		assert.GreaterOrEqual(t, ev.Residuals.Q, prev-1e-12, "step %d", step)
		prev = ev.Residuals.Q
	}
	assert.Greater(t, prev, 0.0)
}

func TestScore_EndToEnd_DefaultConfig_OffsetReachesWarning(t *testing.T) {
	const (
		n      = 4
		normal = 20
	)
	baselines := map[string]func(*rand.Rand) [][]float64{
		"independent": func(rng *rand.Rand) [][]float64 { return testutil.IndependentBaseline(rng, 500, n, 0.1) },
		"correlated":  func(rng *rand.Rand) [][]float64 { return testutil.CorrelatedBaseline(rng, 500, n) },
	}
	cls := DefaultClassifierConfig()
	for name, build := range baselines {
		for seed := int64(1); seed <= 5; seed++ {
			// GIVEN a 500×4 baseline fitted with the default configuration
			model, err := Fit(toSamples(build(rand.New(rand.NewSource(seed)))), BaselineRange{}, DefaultFitConfig())
			require.NoError(t, err)

			for dim := 0; dim < n; dim++ {
				// AND centred samples followed by a persistent 10σ offset in one sensor
				ts := testutil.Timestamps(normal + cls.WarningRun)
				stream := make([]SensorSample, len(ts))
				for i := range ts {
					x := copyOf(model.Mean)
					if i >= normal {
						x[dim] += 10 * model.Scale[dim]
					}
					stream[i] = SensorSample{Timestamp: ts[i], Values: x}
				}

				// WHEN scored
				scored, err := Score(stream, model, cls)
				require.NoError(t, err)

				// THEN the offset scores over 1 and warning is reached within w samples
				msg := []any{"%s seed=%d dim=%d reconDims=%d", name, seed, dim, model.ReconDims}
				assert.Equal(t, StateNormal, scored[normal-1].State, msg...)
				assert.Greater(t, scored[normal].HealthScore, 1.0, msg...)
				assert.Equal(t, StateWarning, scored[normal+cls.WarningRun-1].State, msg...)
				assert.Equal(t, stream[normal].Timestamp, scored[normal].Timestamp)
			}
		}
	}
}

func TestScore_ReconstructionOnly_MissesOffsetInsideSubspace(t *testing.T) {
	// GIVEN independent sensors, where the retained subspace spans N-1 axes
	reconCfg := DefaultFitConfig()
	reconCfg.Fusion = FusionReconstruction
	worstRecon, worstBlend := math.Inf(1), math.Inf(1)
	for seed := int64(1); seed <= 5; seed++ {
		samples := toSamples(testutil.IndependentBaseline(rand.New(rand.NewSource(seed)), 500, 4, 0.1))
		recon, err := Fit(samples, BaselineRange{}, reconCfg)
		require.NoError(t, err)
		blend, err := Fit(samples, BaselineRange{}, DefaultFitConfig())
		require.NoError(t, err)
		require.Equal(t, 3, blend.ReconDims)

		// WHEN each sensor in turn is offset by 10σ
		for dim := 0; dim < 4; dim++ {
			x := copyOf(blend.Mean)
			x[dim] += 10 * blend.Scale[dim]
			r, err := Evaluate(x, recon)
			require.NoError(t, err)
			b, err := Evaluate(x, blend)
			require.NoError(t, err)
			worstRecon = math.Min(worstRecon, r.HealthScore)
			worstBlend = math.Min(worstBlend, b.HealthScore)
		}
	}

	// THEN some offset stays under the reconstruction threshold while the default catches every one
	assert.Less(t, worstRecon, 1.0)
	assert.Greater(t, worstBlend, 1.0)
}

func TestScore_Errors(t *testing.T) {
	model, rows := fitCorrelated(t, 13, 200, 4, DefaultFitConfig())
	samples := toSamples(rows[:5])

	t.Run("model not fitted", func(t *testing.T) {
		_, err := Score(samples, nil, DefaultClassifierConfig())
		assert.ErrorIs(t, err, ErrModelNotFitted)
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		bad := append([]SensorSample{}, samples...)
		bad[2] = SensorSample{Timestamp: bad[2].Timestamp, Values: []float64{1, 2}}
		_, err := Score(bad, model, DefaultClassifierConfig())
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
	t.Run("NaN rejected", func(t *testing.T) {
		bad := append([]SensorSample{}, samples...)
		bad[1] = SensorSample{Timestamp: bad[1].Timestamp, Values: []float64{1, math.NaN(), 3, 4}}
		_, err := Score(bad, model, DefaultClassifierConfig())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("out of order", func(t *testing.T) {
		bad := []SensorSample{samples[1], samples[0]}
		_, err := Score(bad, model, DefaultClassifierConfig())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestScorer_RejectedSample_LeavesStateUntouched(t *testing.T) {
	// GIVEN a scorer with w=3 and a strongly anomalous reading
	model, _ := fitCorrelated(t, 14, 400, 4, DefaultFitConfig())
	s, err := NewScorer(model, NewClassifierConfig(3, 10, 2.0, 0))
	require.NoError(t, err)
	anomalous := copyOf(model.Mean)
	anomalous[0] += 20 * model.Scale[0]
	ts := testutil.Timestamps(4)

	// WHEN two anomalies are followed by a NaN sample and a third anomaly
	for i := 0; i < 2; i++ {
		got, err := s.Step(SensorSample{Timestamp: ts[i], Values: anomalous})
		require.NoError(t, err)
		require.Equal(t, StateNormal, got.State)
	}
	_, err = s.Step(SensorSample{Timestamp: ts[2], Values: []float64{math.NaN(), 0, 0, 0}})
	require.ErrorIs(t, err, ErrInvalidInput)
	got, err := s.Step(SensorSample{Timestamp: ts[3], Values: anomalous})
	require.NoError(t, err)

	// THEN the run was not broken by the rejected sample
	assert.Equal(t, StateWarning, got.State)
}

func TestEvaluate_HugeFiniteReading_Rejected(t *testing.T) {
	// GIVEN a fitted model and a scorer
	model, _ := fitCorrelated(t, 23, 300, 4, DefaultFitConfig())
	s, err := NewScorer(model, NewClassifierConfig(1, 1, 2.0, 0))
	require.NoError(t, err)

	// WHEN a finite reading far outside float range of the statistics arrives
	x := copyOf(model.Mean)
	x[0] = 1e300

	// THEN it is invalid input rather than an infinite health score
	_, err = Evaluate(x, model)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Step(SensorSample{Timestamp: testutil.Epoch, Values: x})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StateNormal, s.Classifier().State())
}

func TestBaselineRange_Select(t *testing.T) {
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(15)), 300, 3)
	samples := toSamples(rows)

	t.Run("rows", func(t *testing.T) {
		model, err := Fit(samples, RowRange(100, 250), DefaultFitConfig())
		require.NoError(t, err)
		assert.Equal(t, 150, model.BaselineSamples)
		assert.Equal(t, samples[100].Timestamp, model.FitStart)
		assert.Equal(t, samples[249].Timestamp, model.FitEnd)
	})
	t.Run("time", func(t *testing.T) {
		model, err := Fit(samples, TimeRange(samples[10].Timestamp, samples[59].Timestamp), DefaultFitConfig())
		require.NoError(t, err)
		assert.Equal(t, 50, model.BaselineSamples)
	})
	t.Run("out of bounds", func(t *testing.T) {
		_, err := Fit(samples, RowRange(200, 400), DefaultFitConfig())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("both forms", func(t *testing.T) {
		r := RowRange(0, 10)
		r.Start = time.Now()
		_, err := r.Select(samples)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("tiny window", func(t *testing.T) {
		_, err := Fit(samples, RowRange(0, 3), DefaultFitConfig())
		assert.ErrorIs(t, err, ErrDegenerateBaseline)
	})
}

func TestContributions_PerturbedSensorsRankFirst(t *testing.T) {
	// GIVEN sensors 0 and 1 that move together on the baseline
	model, _ := fitCorrelated(t, 16, 600, 5, DefaultFitConfig())
	model.SensorNames = []string{"sensor_00", "sensor_01", "sensor_02", "sensor_03", "sensor_04"}

	// WHEN sensor 0 alone jumps
	x := copyOf(model.Mean)
	x[0] += 10 * model.Scale[0]
	ranked, err := Contributions(x, model)
	require.NoError(t, err)

	// THEN the broken correlation pair dominates the residual
	require.Len(t, ranked, 5)
	top := map[string]bool{ranked[0].Name: true, ranked[1].Name: true}
	assert.True(t, top["sensor_00"] && top["sensor_01"], "top contributors: %v, %v", ranked[0].Name, ranked[1].Name)
	assert.Greater(t, ranked[0].Share+ranked[1].Share, 0.9)
}

func TestModelHolder_PublishSwapsWholesale(t *testing.T) {
	var h ModelHolder
	assert.Nil(t, h.Load())

	m1, _ := fitCorrelated(t, 17, 200, 3, DefaultFitConfig())
	m2, _ := fitCorrelated(t, 18, 200, 3, DefaultFitConfig())
	h.Publish(m1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := h.Load()
			assert.True(t, got == m1 || got == m2)
		}()
	}
	h.Publish(m2)
	wg.Wait()
	assert.Same(t, m2, h.Load())
}

func TestScoreMachines_IndependentRuns(t *testing.T) {
	// GIVEN two machines with their own models
	mA, rowsA := fitCorrelated(t, 19, 300, 4, DefaultFitConfig())
	mB, rowsB := fitCorrelated(t, 20, 300, 3, DefaultFitConfig())
	runs := []MachineRun{
		{ID: "pump-a", Samples: toSamples(rowsA[:50]), Model: mA, Classifier: DefaultClassifierConfig()},
		{ID: "pump-b", Samples: toSamples(rowsB[:80]), Model: mB, Classifier: DefaultClassifierConfig()},
	}

	// WHEN scored in parallel
	got, err := ScoreMachines(context.Background(), runs, 2)
	require.NoError(t, err)

	// THEN each result equals its sequential run
	for _, r := range runs {
		want, err := Score(r.Samples, r.Model, r.Classifier)
		require.NoError(t, err)
		assert.Equal(t, want, got[r.ID])
	}
}

func TestScoreMachines_Failures(t *testing.T) {
	m, rows := fitCorrelated(t, 22, 200, 3, DefaultFitConfig())
	ok := MachineRun{ID: "a", Samples: toSamples(rows[:5]), Model: m, Classifier: DefaultClassifierConfig()}

	_, err := ScoreMachines(context.Background(), []MachineRun{ok, ok}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	broken := MachineRun{ID: "b", Samples: toSamples(rows[:5])}
	_, err = ScoreMachines(context.Background(), []MachineRun{ok, broken}, 0)
	assert.ErrorIs(t, err, ErrModelNotFitted)
}
