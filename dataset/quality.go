package dataset

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SensorStatus is the data-quality verdict for one sensor.
type SensorStatus string

const (
	StatusHealthy  SensorStatus = "HEALTHY"
	StatusWarning  SensorStatus = "WARNING"
	StatusCritical SensorStatus = "CRITICAL"
)

const (
	// DefaultLookback is the number of trailing rows QualityReport inspects.
	DefaultLookback = 500
	// MissingRateLimit is the missing fraction above which a sensor is flagged.
	MissingRateLimit = 0.1
)

// SensorQuality is one row of a data-quality report.
type SensorQuality struct {
	Sensor       string       `json:"sensor"`
	Status       SensorStatus `json:"status"`
	Details      string       `json:"details"`
	MissingRate  float64      `json:"missing_rate"`
	CurrentValue *float64     `json:"current_value"` // last reading in the window; nil when missing
}

// Quality summarizes sensor health over a table.
type Quality struct {
	Sensors []SensorQuality `json:"sensors"`
	Score   float64         `json:"score"` // percent of non-missing cells over the whole table
	Rows    int             `json:"rows"`
}

// QualityReport inspects the trailing lookback rows of each sensor. A sensor
// whose readings do not vary is critical (stuck); one missing more than
// MissingRateLimit of its readings is a warning. lookback <= 0 uses DefaultLookback.
// Run it on the raw table: after Impute nothing is missing.
func QualityReport(t *Table, lookback int) Quality {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	q := Quality{Rows: t.Len()}
	if t.Len() == 0 {
		return q
	}
	from := max(0, t.Len()-lookback)
	window := t.Rows[from:]

	present := make([]float64, 0, len(window))
	for j, name := range t.Sensors {
		present = present[:0]
		for _, row := range window {
			if !math.IsNaN(row[j]) {
				present = append(present, row[j])
			}
		}
		sq := SensorQuality{
			Sensor:      name,
			Status:      StatusHealthy,
			Details:     "Normal operation",
			MissingRate: 1 - float64(len(present))/float64(len(window)),
		}
		if last := window[len(window)-1][j]; !math.IsNaN(last) {
			sq.CurrentValue = &last
		}
		switch {
		case len(present) >= 2 && stat.StdDev(present, nil) == 0:
			sq.Status, sq.Details = StatusCritical, "Flatline (Zero Variance)"
		case sq.MissingRate > MissingRateLimit:
			sq.Status, sq.Details = StatusWarning, "High Missing Data Rate"
		}
		q.Sensors = append(q.Sensors, sq)
	}

	if cells := t.Len() * len(t.Sensors); cells > 0 {
		q.Score = 100 * (1 - float64(MissingCount(t))/float64(cells))
	}
	return q
}
