package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/sensorflow/sensorflow/health"
)

// Fault injects abnormal behaviour into one sensor over rows [StartRow, EndRow).
type Fault struct {
	Sensor   int     `yaml:"sensor"`
	StartRow int     `yaml:"start_row"`
	EndRow   int     `yaml:"end_row"`
	Offset   float64 `yaml:"offset"`   // shift in units of the sensor's noise level
	Flatline bool    `yaml:"flatline"` // hold the sensor at its value from StartRow-1
}

// SynthConfig describes a synthetic machine log.
type SynthConfig struct {
	Sensors     int           `yaml:"sensors"`
	Samples     int           `yaml:"samples"`
	Factors     int           `yaml:"factors"` // latent operating factors shared by the sensors
	Noise       float64       `yaml:"noise"`   // per-sensor independent noise level
	Interval    time.Duration `yaml:"interval"`
	Start       time.Time     `yaml:"start"`
	MissingRate float64       `yaml:"missing_rate"`
	Seed        int64         `yaml:"seed"`
	Faults      []Fault       `yaml:"faults"`
}

// DefaultSynthConfig returns a 10-sensor, one-day, minute-resolution log.
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		Sensors:  10,
		Samples:  1440,
		Factors:  2,
		Noise:    0.1,
		Interval: time.Minute,
		Start:    time.Date(2018, 4, 1, 0, 0, 0, 0, time.UTC),
		Seed:     42,
	}
}

// Validate checks the configuration, including that every fault fits the log.
func (c SynthConfig) Validate() error {
	switch {
	case c.Sensors < 1:
		return fmt.Errorf("%w: sensors must be >= 1, got %d", health.ErrInvalidInput, c.Sensors)
	case c.Samples < 1:
		return fmt.Errorf("%w: samples must be >= 1, got %d", health.ErrInvalidInput, c.Samples)
	case c.Factors < 1:
		return fmt.Errorf("%w: factors must be >= 1, got %d", health.ErrInvalidInput, c.Factors)
	case c.Noise <= 0 || math.IsNaN(c.Noise):
		return fmt.Errorf("%w: noise must be positive, got %v", health.ErrInvalidInput, c.Noise)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %v", health.ErrInvalidInput, c.Interval)
	case c.MissingRate < 0 || c.MissingRate >= 1:
		return fmt.Errorf("%w: missing_rate must be in [0, 1), got %v", health.ErrInvalidInput, c.MissingRate)
	}
	for i, f := range c.Faults {
		if f.Sensor < 0 || f.Sensor >= c.Sensors {
			return fmt.Errorf("%w: fault %d sensor %d out of range", health.ErrInvalidInput, i, f.Sensor)
		}
		if f.StartRow < 0 || f.EndRow <= f.StartRow || f.EndRow > c.Samples {
			return fmt.Errorf("%w: fault %d rows [%d, %d) outside [0, %d)", health.ErrInvalidInput, i, f.StartRow, f.EndRow, c.Samples)
		}
	}
	return nil
}

// Synthesize generates a labelled machine log. Sensors are linear mixtures of
// a few latent factors plus independent noise, so they are correlated the way
// real process sensors are. Rows covered by a fault are labelled BROKEN.
// The same config always yields the same table.
func Synthesize(cfg SynthConfig) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := NewPartitionedRNG(cfg.Seed)

	loadRNG := rng.ForStream(StreamLoadings)
	loadings := make([][]float64, cfg.Sensors)
	levels := make([]float64, cfg.Sensors)
	for j := range loadings {
		loadings[j] = make([]float64, cfg.Factors)
		for f := range loadings[j] {
			loadings[j][f] = loadRNG.NormFloat64()
		}
		levels[j] = 10 + 90*loadRNG.Float64()
	}

	t := &Table{
		Sensors:    make([]string, cfg.Sensors),
		Timestamps: make([]time.Time, cfg.Samples),
		Rows:       make([][]float64, cfg.Samples),
		Labels:     make([]string, cfg.Samples),
	}
	for j := range t.Sensors {
		t.Sensors[j] = fmt.Sprintf("sensor_%02d", j)
	}

	noise := rng.ForStream(StreamNoise)
	factors := make([]float64, cfg.Factors)
	for i := range t.Rows {
		for f := range factors {
			factors[f] = noise.NormFloat64()
		}
		row := make([]float64, cfg.Sensors)
		for j := range row {
			v := levels[j] + cfg.Noise*noise.NormFloat64()
			for f, l := range loadings[j] {
				v += l * factors[f]
			}
			row[j] = v
		}
		t.Rows[i] = row
		t.Timestamps[i] = cfg.Start.Add(time.Duration(i) * cfg.Interval)
		t.Labels[i] = LabelNormal
	}

	for _, f := range cfg.Faults {
		held := t.Rows[max(f.StartRow-1, 0)][f.Sensor]
		for i := f.StartRow; i < f.EndRow; i++ {
			if f.Flatline {
				t.Rows[i][f.Sensor] = held
			} else {
				t.Rows[i][f.Sensor] += f.Offset * cfg.Noise
			}
			t.Labels[i] = LabelBroken
		}
	}

	if cfg.MissingRate > 0 {
		miss := rng.ForStream(StreamMissing)
		for _, row := range t.Rows {
			for j := range row {
				if miss.Float64() < cfg.MissingRate {
					row[j] = math.NaN()
				}
			}
		}
	}
	return t, nil
}
