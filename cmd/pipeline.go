package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sensorflow/sensorflow/artifact"
	"github.com/sensorflow/sensorflow/dataset"
	"github.com/sensorflow/sensorflow/health"
	_ "github.com/sensorflow/sensorflow/health/linalg"
)

// loadTable reads a sensor log and resolves missing readings.
func loadTable(path string) (*dataset.Table, []health.SensorSample, error) {
	table, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, nil, err
	}
	if dropped := dataset.Impute(table); len(dropped) > 0 {
		logrus.Warnf("%s: dropped sensors with no readings: %s", path, strings.Join(dropped, ", "))
	}
	samples, err := table.Samples()
	if err != nil {
		return nil, nil, err
	}
	return table, samples, nil
}

// checkSensors fails when the table's sensor columns differ from the ones the
// model was fitted on. Models without recorded names are not checked.
func checkSensors(t *dataset.Table, m *health.TrainedModel) error {
	if len(m.SensorNames) == 0 {
		return nil
	}
	for i := 0; i < min(len(t.Sensors), len(m.SensorNames)); i++ {
		if t.Sensors[i] != m.SensorNames[i] {
			return fmt.Errorf("%w: column %d is %q, model expects %q", health.ErrDimensionMismatch, i, t.Sensors[i], m.SensorNames[i])
		}
	}
	switch {
	case len(t.Sensors) < len(m.SensorNames):
		return fmt.Errorf("%w: model sensor %q is missing from the data", health.ErrDimensionMismatch, m.SensorNames[len(t.Sensors)])
	case len(t.Sensors) > len(m.SensorNames):
		return fmt.Errorf("%w: data sensor %q is unknown to the model", health.ErrDimensionMismatch, t.Sensors[len(m.SensorNames)])
	}
	return nil
}

// machineName derives a machine id from a data file name.
func machineName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// openStore returns the configured store, or nil when none is configured.
func openStore(c Config) (artifact.Store, error) {
	if c.Store.Location == "" {
		return nil, nil
	}
	return artifact.OpenStore(c.Store.Location, c.Store.Region)
}

// loadModel reads a model from a file path, or from the store when ref has
// the form "store:<machine>".
func loadModel(ctx context.Context, c Config, ref string) (*health.TrainedModel, error) {
	var (
		rec *artifact.Record
		err error
	)
	if key, ok := strings.CutPrefix(ref, "store:"); ok {
		store, serr := openStore(c)
		if serr != nil {
			return nil, serr
		}
		if store == nil {
			return nil, fmt.Errorf("model %q needs a store location in the config", ref)
		}
		rec, err = store.Get(ctx, key)
	} else {
		rec, err = artifact.LoadFile(ref)
	}
	if err != nil {
		return nil, err
	}
	return rec.TrainedModel()
}

// createOutput opens path for writing; "" or "-" is stdout.
func createOutput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
