package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/sensorflow/artifact"
	"github.com/sensorflow/sensorflow/dataset"
	"github.com/sensorflow/sensorflow/health"
)

// faultyPump writes a 600-row log whose sensor 3 drifts from row 500 to the end.
func faultyPump(t *testing.T, dir string) string {
	t.Helper()
	c := dataset.DefaultSynthConfig()
	c.Sensors, c.Samples = 6, 600
	c.Faults = []dataset.Fault{{Sensor: 3, StartRow: 500, EndRow: 600, Offset: 40}}
	path := filepath.Join(dir, "pump.csv")
	require.NoError(t, runGenerate(c, path))
	return path
}

func readScores(t *testing.T, path string) []health.ScoredSample {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	scored, err := dataset.ReadScores(f)
	require.NoError(t, err)
	return scored
}

func TestPipeline_GenerateFitScoreReport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	data := faultyPump(t, dir)
	c := DefaultConfig()
	c.Store.Location = filepath.Join(dir, "store")

	// WHEN fitted on the leading NORMAL rows
	modelPath := filepath.Join(dir, "model.yaml")
	id, err := runFit(ctx, c, fitOptions{Data: data, Out: modelPath})
	require.NoError(t, err)

	// THEN the record lands in the file and in the store under the machine name
	rec, err := artifact.LoadFile(modelPath)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "pump", rec.Machine)
	assert.Equal(t, 500, rec.Model.BaselineSamples)
	store, err := openStore(c)
	require.NoError(t, err)
	stored, err := store.Get(ctx, "pump")
	require.NoError(t, err)
	assert.Equal(t, id, stored.ID)

	// WHEN scored from the file and from the store
	fromFile := filepath.Join(dir, "file.scores.csv")
	require.NoError(t, runScore(ctx, c, scoreOptions{Data: []string{data}, Models: []string{modelPath}, Out: fromFile}))
	outDir := t.TempDir()
	require.NoError(t, runScore(ctx, c, scoreOptions{Data: []string{data}, Models: []string{"store:pump"}, OutDir: outDir}))

	// THEN both agree and the drift leaves normal
	a := readScores(t, fromFile)
	b := readScores(t, filepath.Join(outDir, "pump.scores.csv"))
	require.Len(t, a, 600)
	assert.Equal(t, a, b)
	assert.Equal(t, health.StateBroken, a[599].State)

	// WHEN reported
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, runReport(ctx, c, reportOptions{Data: data, Model: modelPath, Out: reportPath}))
	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep machineReport
	require.NoError(t, json.Unmarshal(raw, &rep))

	// THEN the drift is one failure blamed on sensor 3
	assert.Equal(t, "pump", rep.Machine)
	assert.Equal(t, health.StateBroken, rep.State)
	assert.Equal(t, 1, rep.Failures)
	require.NotNil(t, rep.MTBFHours)
	assert.Greater(t, rep.DowntimeCost, 0.0)
	require.NotEmpty(t, rep.Events)
	assert.Equal(t, health.StateBroken, rep.Events[0].State)
	require.NotEmpty(t, rep.RootCause)
	assert.Equal(t, "sensor_03", rep.RootCause[0].Sensor)
	assert.Less(t, rep.UptimePercent, 100.0)
	assert.GreaterOrEqual(t, rep.Transitions.Escalations, 2)
}

func TestScoreAndReport_ReorderedSensorColumns_DimensionMismatch(t *testing.T) {
	// GIVEN a model fitted on a log and the same log with two sensor columns swapped
	ctx := context.Background()
	dir := t.TempDir()
	data := faultyPump(t, dir)
	c := DefaultConfig()
	modelPath := filepath.Join(dir, "model.yaml")
	_, err := runFit(ctx, c, fitOptions{Data: data, Out: modelPath})
	require.NoError(t, err)

	table, err := dataset.LoadCSV(data)
	require.NoError(t, err)
	table.Sensors[0], table.Sensors[1] = table.Sensors[1], table.Sensors[0]
	for _, row := range table.Rows {
		row[0], row[1] = row[1], row[0]
	}
	swappedDir := t.TempDir()
	swapped := filepath.Join(swappedDir, "pump.csv")
	f, err := os.Create(swapped)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteCSV(f, table))
	require.NoError(t, f.Close())

	// WHEN scored and reported against that model
	scoreErr := runScore(ctx, c, scoreOptions{Data: []string{swapped}, Models: []string{modelPath}, Out: filepath.Join(dir, "s.csv")})
	reportErr := runReport(ctx, c, reportOptions{Data: swapped, Model: modelPath, Out: filepath.Join(dir, "r.json")})

	// THEN both refuse and name the first misplaced column
	for _, err := range []error{scoreErr, reportErr} {
		require.ErrorIs(t, err, health.ErrDimensionMismatch)
		assert.Contains(t, err.Error(), `column 0 is "sensor_01"`)
	}
}

func TestRunReport_PriceWarning_CostsAllEventMinutes(t *testing.T) {
	// GIVEN a faulty log reported once per cost basis
	ctx := context.Background()
	dir := t.TempDir()
	data := faultyPump(t, dir)
	c := DefaultConfig()
	modelPath := filepath.Join(dir, "model.yaml")
	_, err := runFit(ctx, c, fitOptions{Data: data, Out: modelPath})
	require.NoError(t, err)

	report := func(priceWarning bool) machineReport {
		c.Report.PriceWarning = priceWarning
		out := filepath.Join(dir, "report.json")
		require.NoError(t, runReport(ctx, c, reportOptions{Data: data, Model: modelPath, Out: out}))
		raw, err := os.ReadFile(out)
		require.NoError(t, err)
		var rep machineReport
		require.NoError(t, json.Unmarshal(raw, &rep))
		return rep
	}

	// WHEN priced on broken minutes only and then on every event
	broken := report(false)
	all := report(true)

	// THEN the basis is reported and warning minutes add to the cost
	assert.Equal(t, "broken", broken.CostBasis)
	assert.Equal(t, "all_events", all.CostBasis)
	assert.InDelta(t, broken.DowntimeMin*c.Report.CostPerMinute, broken.DowntimeCost, 1e-6)
	minutes := 0.0
	for _, e := range all.Events {
		minutes += e.DurationMinutes
	}
	assert.InDelta(t, minutes*c.Report.CostPerMinute, all.DowntimeCost, 1e-6)
	assert.Greater(t, all.DowntimeCost, broken.DowntimeCost)
	assert.Equal(t, broken.Failures, all.Failures)
}

func TestCheckSensors(t *testing.T) {
	model := &health.TrainedModel{SensorNames: []string{"a", "b", "c"}}
	tests := []struct {
		name    string
		sensors []string
		names   []string
		wantErr string
	}{
		{name: "match", sensors: []string{"a", "b", "c"}},
		{name: "unnamed model", sensors: []string{"x"}, names: []string{}},
		{name: "dropped", sensors: []string{"a", "b"}, wantErr: `"c" is missing`},
		{name: "extra", sensors: []string{"a", "b", "c", "d"}, wantErr: `"d" is unknown`},
		{name: "renamed", sensors: []string{"a", "x", "c"}, wantErr: `column 1 is "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model
			if tt.names != nil {
				m = &health.TrainedModel{SensorNames: tt.names}
			}
			err := checkSensors(&dataset.Table{Sensors: tt.sensors}, m)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, health.ErrDimensionMismatch)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunScore_ArgumentErrors(t *testing.T) {
	ctx := context.Background()
	c := DefaultConfig()

	err := runScore(ctx, c, scoreOptions{Data: []string{"a.csv", "b.csv"}, Models: []string{"m.yaml"}})
	assert.Error(t, err)

	err = runScore(ctx, c, scoreOptions{Data: []string{"a.csv", "b.csv"}, Models: []string{"m.yaml", "n.yaml"}, Out: "x.csv"})
	assert.Error(t, err)
}

func TestRunFit_NeedsDestination(t *testing.T) {
	dir := t.TempDir()
	data := faultyPump(t, dir)
	_, err := runFit(context.Background(), DefaultConfig(), fitOptions{Data: data})
	assert.Error(t, err)
}

func TestLoadModel_StoreReferenceWithoutStore(t *testing.T) {
	_, err := loadModel(context.Background(), DefaultConfig(), "store:pump")
	assert.Error(t, err)
}

func TestRunQuality_CorrelationOmitsConstantSensors(t *testing.T) {
	// GIVEN a log with a flatlined sensor
	dir := t.TempDir()
	c := dataset.DefaultSynthConfig()
	c.Sensors, c.Samples = 3, 50
	c.Faults = []dataset.Fault{{Sensor: 2, StartRow: 1, EndRow: 50, Flatline: true}}
	path := filepath.Join(dir, "stuck.csv")
	require.NoError(t, runGenerate(c, path))

	// WHEN checked with correlations
	out, err := runQuality(DefaultConfig(), qualityOptions{Data: path, Correlation: true})
	require.NoError(t, err)

	// THEN the stuck sensor is critical and its correlations are null
	require.Len(t, out.Sensors, 3)
	assert.Equal(t, dataset.StatusCritical, out.Sensors[2].Status)
	require.Len(t, out.Correlation, 3)
	assert.Nil(t, out.Correlation[0][2])
	require.NotNil(t, out.Correlation[0][1])
	assert.InDelta(t, 1.0, *out.Correlation[0][0], 1e-9)
	_, err = json.Marshal(out)
	assert.NoError(t, err)
}
