// Package artifact persists trained models as versioned, schema-tagged YAML
// documents and provides filesystem and S3 stores for them.
//
// Records of the same major schema version are forward compatible: a reader
// accepts documents written by a newer minor version and ignores fields it
// does not know. Documents of the reader's own version are decoded strictly.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sensorflow/sensorflow/health"
)

const (
	schemaPrefix = "sensorflow.model/v"
	// SchemaMajor and SchemaMinor identify the record layout written by Encode.
	SchemaMajor = 1
	SchemaMinor = 0
)

// Schema is the tag written by this version of Encode.
var Schema = fmt.Sprintf("%s%d.%d", schemaPrefix, SchemaMajor, SchemaMinor)

// ErrUnsupportedSchema is returned for records of another major version or no schema tag.
var ErrUnsupportedSchema = errors.New("unsupported model schema")

// Record is a stored model plus its provenance.
type Record struct {
	Schema    string    `yaml:"schema"`
	ID        string    `yaml:"id"`
	Machine   string    `yaml:"machine,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	Model     ModelDoc  `yaml:"model"`
}

// ModelDoc is the serialized form of health.TrainedModel.
type ModelDoc struct {
	Sensors         []string          `yaml:"sensors,omitempty"`
	Mean            []float64         `yaml:"mean"`
	Scale           []float64         `yaml:"scale"`
	Active          []bool            `yaml:"active"`
	Components      [][]float64       `yaml:"components"`
	Eigenvalues     []float64         `yaml:"eigenvalues"`
	ExplainedRatio  []float64         `yaml:"explained_ratio"`
	VisualDims      int               `yaml:"visual_dims"`
	ReconDims       int               `yaml:"recon_dims"`
	Thresholds      health.Thresholds `yaml:"thresholds"`
	Percentile      float64           `yaml:"percentile"`
	Fusion          string            `yaml:"fusion"`
	BlendWeight     float64           `yaml:"blend_weight"`
	FitStart        time.Time         `yaml:"fit_start"`
	FitEnd          time.Time         `yaml:"fit_end"`
	BaselineSamples int               `yaml:"baseline_samples"`
}

// NewRecord wraps a fitted model in a record tagged with the current schema.
func NewRecord(id, machine string, m *health.TrainedModel) (*Record, error) {
	if !m.Fitted() {
		return nil, health.ErrModelNotFitted
	}
	return &Record{
		Schema:    Schema,
		ID:        id,
		Machine:   machine,
		CreatedAt: time.Now().UTC(),
		Model: ModelDoc{
			Sensors:         m.SensorNames,
			Mean:            m.Mean,
			Scale:           m.Scale,
			Active:          m.Active,
			Components:      m.Components,
			Eigenvalues:     m.Eigenvalues,
			ExplainedRatio:  m.ExplainedRatio,
			VisualDims:      m.VisualDims,
			ReconDims:       m.ReconDims,
			Thresholds:      m.Thresholds,
			Percentile:      m.Percentile,
			Fusion:          m.Fusion,
			BlendWeight:     m.BlendWeight,
			FitStart:        m.FitStart,
			FitEnd:          m.FitEnd,
			BaselineSamples: m.BaselineSamples,
		},
	}, nil
}

// TrainedModel rebuilds the model from the record after checking it is
// internally consistent.
func (r *Record) TrainedModel() (*health.TrainedModel, error) {
	d := r.Model
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("model record %q: %w", r.ID, err)
	}
	return &health.TrainedModel{
		Mean:            d.Mean,
		Scale:           d.Scale,
		Active:          d.Active,
		Components:      d.Components,
		Eigenvalues:     d.Eigenvalues,
		ExplainedRatio:  d.ExplainedRatio,
		VisualDims:      d.VisualDims,
		ReconDims:       d.ReconDims,
		Thresholds:      d.Thresholds,
		Percentile:      d.Percentile,
		Fusion:          d.Fusion,
		BlendWeight:     d.BlendWeight,
		FitStart:        d.FitStart,
		FitEnd:          d.FitEnd,
		BaselineSamples: d.BaselineSamples,
		SensorNames:     d.Sensors,
	}, nil
}

func (d ModelDoc) validate() error {
	n := len(d.Mean)
	switch {
	case n == 0:
		return fmt.Errorf("%w: empty mean vector", health.ErrInvalidInput)
	case len(d.Scale) != n || len(d.Active) != n:
		return fmt.Errorf("%w: scale/active length %d/%d, want %d", health.ErrDimensionMismatch, len(d.Scale), len(d.Active), n)
	case d.Sensors != nil && len(d.Sensors) != n:
		return fmt.Errorf("%w: %d sensor names, want %d", health.ErrDimensionMismatch, len(d.Sensors), n)
	case d.ReconDims < 1 || len(d.Components) != d.ReconDims || len(d.Eigenvalues) != d.ReconDims:
		return fmt.Errorf("%w: recon dims %d with %d components and %d eigenvalues",
			health.ErrInvalidInput, d.ReconDims, len(d.Components), len(d.Eigenvalues))
	case d.VisualDims < 1 || d.VisualDims > d.ReconDims:
		return fmt.Errorf("%w: visual dims %d outside [1, %d]", health.ErrInvalidInput, d.VisualDims, d.ReconDims)
	case d.Thresholds.Q < 0 || d.Thresholds.T2 < 0 || d.Thresholds.Health <= 0:
		return fmt.Errorf("%w: invalid thresholds %+v", health.ErrInvalidInput, d.Thresholds)
	}
	for i, s := range d.Scale {
		if s <= 0 {
			return fmt.Errorf("%w: scale[%d] = %v", health.ErrInvalidInput, i, s)
		}
	}
	for i, c := range d.Components {
		if len(c) != n {
			return fmt.Errorf("%w: component %d has %d entries, want %d", health.ErrDimensionMismatch, i, len(c), n)
		}
	}
	if !health.ValidFusionPolicies[d.Fusion] {
		return fmt.Errorf("%w: unknown fusion policy %q", health.ErrInvalidInput, d.Fusion)
	}
	return nil
}

// Encode writes the record as YAML. An empty Schema is filled in.
func Encode(w io.Writer, r *Record) error {
	if r.Schema == "" {
		r.Schema = Schema
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding model record: %w", err)
	}
	return enc.Close()
}

// Decode reads a record. Same-version documents are parsed with
// KnownFields(true) so typos are errors; newer minor versions are parsed
// leniently.
func Decode(data []byte) (*Record, error) {
	var head struct {
		Schema string `yaml:"schema"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing model record: %w", err)
	}
	major, minor, err := parseSchema(head.Schema)
	if err != nil {
		return nil, err
	}
	if major != SchemaMajor {
		return nil, fmt.Errorf("%w: %q (this build reads v%d.x)", ErrUnsupportedSchema, head.Schema, SchemaMajor)
	}

	var r Record
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(minor <= SchemaMinor)
	if err := decoder.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing model record: %w", err)
	}
	return &r, nil
}

func parseSchema(tag string) (major, minor int, err error) {
	version, ok := strings.CutPrefix(tag, schemaPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedSchema, tag)
	}
	majorStr, minorStr, _ := strings.Cut(version, ".")
	if major, err = strconv.Atoi(majorStr); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedSchema, tag)
	}
	if minorStr != "" {
		if minor, err = strconv.Atoi(minorStr); err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedSchema, tag)
		}
	}
	return major, minor, nil
}
