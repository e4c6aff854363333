package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensorflow/sensorflow/dataset"
	"github.com/sensorflow/sensorflow/health"
)

// Config represents the full detector configuration file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version    string                  `yaml:"version"`
	Fit        health.FitConfig        `yaml:"fit"`
	Classifier health.ClassifierConfig `yaml:"classifier"`
	Baseline   BaselineConfig          `yaml:"baseline"`
	Report     ReportConfig            `yaml:"report"`
	Store      StoreConfig             `yaml:"store"`
	Serve      ServeConfig             `yaml:"serve"`
	Generate   dataset.SynthConfig     `yaml:"generate"`
}

// BaselineConfig picks the known-normal window. Rows win over times, times
// over the label; with none of them set the whole log is the baseline.
type BaselineConfig struct {
	Label    string `yaml:"label"` // leading run of this machine_status label
	StartRow int    `yaml:"start_row"`
	EndRow   int    `yaml:"end_row"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

// ReportConfig controls the reliability report.
type ReportConfig struct {
	CostPerMinute float64 `yaml:"cost_per_minute"`
	TopSensors    int     `yaml:"top_sensors"`
	Lookback      int     `yaml:"lookback"`      // rows inspected by the data-quality check
	PriceWarning  bool    `yaml:"price_warning"` // price warning minutes as downtime too
}

// StoreConfig locates the model store: a directory or s3://bucket/prefix.
type StoreConfig struct {
	Location string `yaml:"location"`
	Region   string `yaml:"region"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Version:    "1",
		Fit:        health.DefaultFitConfig(),
		Classifier: health.DefaultClassifierConfig(),
		Baseline:   BaselineConfig{Label: dataset.LabelNormal},
		Report: ReportConfig{
			CostPerMinute: 500,
			TopSensors:    3,
			Lookback:      dataset.DefaultLookback,
		},
		Serve:    ServeConfig{Addr: ":8080"},
		Generate: dataset.DefaultSynthConfig(),
	}
}

// LoadConfig reads a config file over the defaults.
// Uses strict field checking: typos must cause errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Fit.Validate(); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Baseline.validate(); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	if c.Report.CostPerMinute < 0 {
		return fmt.Errorf("report: cost_per_minute must be non-negative, got %v", c.Report.CostPerMinute)
	}
	if c.Report.TopSensors < 1 {
		return fmt.Errorf("report: top_sensors must be at least 1, got %d", c.Report.TopSensors)
	}
	if err := c.Generate.Validate(); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return nil
}

func (b BaselineConfig) validate() error {
	if b.StartRow < 0 || b.EndRow < 0 || (b.EndRow != 0 && b.EndRow <= b.StartRow) {
		return fmt.Errorf("invalid row range [%d, %d)", b.StartRow, b.EndRow)
	}
	for _, s := range []string{b.Start, b.End} {
		if s == "" {
			continue
		}
		if _, ok := dataset.ParseTimestamp(s); !ok {
			return fmt.Errorf("unparseable timestamp %q", s)
		}
	}
	return nil
}

// Resolve turns the configuration into a range over the loaded table.
func (b BaselineConfig) Resolve(t *dataset.Table) health.BaselineRange {
	if b.StartRow != 0 || b.EndRow != 0 {
		end := b.EndRow
		if end == 0 {
			end = t.Len()
		}
		return health.RowRange(b.StartRow, end)
	}
	if b.Start != "" || b.End != "" {
		start, _ := dataset.ParseTimestamp(b.Start)
		end, _ := dataset.ParseTimestamp(b.End)
		return health.TimeRange(start, end)
	}
	if b.Label != "" && t.Labels != nil {
		if start, end, ok := t.LabelledRange(b.Label); ok {
			return health.RowRange(start, end)
		}
	}
	return health.BaselineRange{}
}
