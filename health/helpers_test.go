package health

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/internal/testutil"
)

func toSamples(rows [][]float64) []SensorSample {
	ts := testutil.Timestamps(len(rows))
	out := make([]SensorSample, len(rows))
	for i, row := range rows {
		out[i] = SensorSample{Timestamp: ts[i], Values: row}
	}
	return out
}

func fitCorrelated(t *testing.T, seed int64, m, n int, cfg FitConfig) (*TrainedModel, [][]float64) {
	t.Helper()
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(seed)), m, n)
	model, err := Fit(toSamples(rows), BaselineRange{}, cfg)
	require.NoError(t, err)
	return model, rows
}

func copyOf(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
