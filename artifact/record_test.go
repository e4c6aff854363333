package artifact

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/health"
	_ "github.com/sensorflow/sensorflow/health/linalg"
	"github.com/sensorflow/sensorflow/internal/testutil"
)

func fittedModel(t *testing.T) *health.TrainedModel {
	t.Helper()
	rows := testutil.CorrelatedBaseline(rand.New(rand.NewSource(41)), 300, 4)
	ts := testutil.Timestamps(len(rows))
	samples := make([]health.SensorSample, len(rows))
	for i := range rows {
		samples[i] = health.SensorSample{Timestamp: ts[i], Values: rows[i]}
	}
	m, err := health.Fit(samples, health.BaselineRange{}, health.DefaultFitConfig())
	require.NoError(t, err)
	m.SensorNames = []string{"sensor_00", "sensor_01", "sensor_02", "sensor_03"}
	return m
}

func TestRecord_RoundTrip_PreservesModel(t *testing.T) {
	// GIVEN a fitted model wrapped in a record
	m := fittedModel(t)
	rec, err := NewRecord("m-1", "pump-7", m)
	require.NoError(t, err)

	// WHEN encoded and decoded
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rec))
	got, err := Decode(buf.Bytes())
	require.NoError(t, err)

	// THEN the schema tag and every model field survive exactly
	assert.Equal(t, Schema, got.Schema)
	assert.Equal(t, "pump-7", got.Machine)
	restored, err := got.TrainedModel()
	require.NoError(t, err)
	assert.Equal(t, m, restored)
}

func TestRecord_RestoredModelScoresIdentically(t *testing.T) {
	m := fittedModel(t)
	rec, err := NewRecord("m-1", "", m)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rec))
	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	restored, err := got.TrainedModel()
	require.NoError(t, err)

	x := append([]float64(nil), m.Mean...)
	x[2] += 3 * m.Scale[2]
	want, err := health.Evaluate(x, m)
	require.NoError(t, err)
	have, err := health.Evaluate(x, restored)
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func TestDecode_SchemaCompatibility(t *testing.T) {
	m := fittedModel(t)
	rec, err := NewRecord("m-1", "", m)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rec))
	doc := buf.String()

	t.Run("newer minor with extra field is accepted", func(t *testing.T) {
		newer := strings.Replace(doc, Schema, "sensorflow.model/v1.4", 1) + "retrained_by: nightly\n"
		got, err := Decode([]byte(newer))
		require.NoError(t, err)
		assert.Equal(t, "m-1", got.ID)
	})
	t.Run("same version rejects unknown field", func(t *testing.T) {
		_, err := Decode([]byte(doc + "retrained_by: nightly\n"))
		assert.Error(t, err)
	})
	t.Run("other major version", func(t *testing.T) {
		_, err := Decode([]byte(strings.Replace(doc, Schema, "sensorflow.model/v2.0", 1)))
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})
	t.Run("untagged document", func(t *testing.T) {
		_, err := Decode([]byte("id: m-1\n"))
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})
}

func TestRecord_TrainedModel_RejectsInconsistentDocs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelDoc)
		want   error
	}{
		{"short scale", func(d *ModelDoc) { d.Scale = d.Scale[:2] }, health.ErrDimensionMismatch},
		{"ragged component", func(d *ModelDoc) { d.Components[0] = d.Components[0][:1] }, health.ErrDimensionMismatch},
		{"missing eigenvalue", func(d *ModelDoc) { d.Eigenvalues = d.Eigenvalues[:1] }, health.ErrInvalidInput},
		{"zero scale", func(d *ModelDoc) { d.Scale[1] = 0 }, health.ErrInvalidInput},
		{"unknown fusion", func(d *ModelDoc) { d.Fusion = "max" }, health.ErrInvalidInput},
		{"zero health scale", func(d *ModelDoc) { d.Thresholds.Health = 0 }, health.ErrInvalidInput},
		{"empty", func(d *ModelDoc) { *d = ModelDoc{} }, health.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := NewRecord("m-1", "", fittedModel(t))
			require.NoError(t, err)
			tc.mutate(&rec.Model)
			_, err = rec.TrainedModel()
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewRecord_UnfittedModel(t *testing.T) {
	_, err := NewRecord("m-1", "", &health.TrainedModel{})
	assert.ErrorIs(t, err, health.ErrModelNotFitted)
}
