// Package dataset is the tabular boundary of sensorflow: it loads machine
// sensor logs from CSV into fixed-width health.SensorSample records, resolves
// missing readings, reports sensor data quality, and writes scored results back out.
package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/sensorflow/sensorflow/health"
)

// Machine status labels found in labelled logs.
const (
	LabelNormal     = "NORMAL"
	LabelBroken     = "BROKEN"
	LabelRecovering = "RECOVERING"
)

// Table is a time-ordered sensor log. Missing readings are NaN until Impute runs.
type Table struct {
	Sensors    []string
	Timestamps []time.Time
	Rows       [][]float64 // len(Timestamps) × len(Sensors)
	Labels     []string    // machine_status column; nil when the log is unlabelled
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column copies sensor j out of the table.
func (t *Table) Column(j int) []float64 {
	col := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		col[i] = row[j]
	}
	return col
}

// Samples converts the table into scoring input. Any remaining NaN is an
// error: missing data must be resolved with Impute first.
func (t *Table) Samples() ([]health.SensorSample, error) {
	out := make([]health.SensorSample, len(t.Rows))
	for i, row := range t.Rows {
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: row %d sensor %q is missing; impute before scoring",
					health.ErrInvalidInput, i, t.Sensors[j])
			}
		}
		out[i] = health.SensorSample{Timestamp: t.Timestamps[i], Values: row}
	}
	return out, nil
}

// LabelledRange returns the row range [start, end) of the first contiguous
// run labelled label, e.g. the leading NORMAL stretch used as a baseline.
func (t *Table) LabelledRange(label string) (start, end int, ok bool) {
	for i, l := range t.Labels {
		if l != label {
			if ok {
				return start, i, true
			}
			continue
		}
		if !ok {
			start, ok = i, true
		}
	}
	if ok {
		return start, len(t.Labels), true
	}
	return 0, 0, false
}
