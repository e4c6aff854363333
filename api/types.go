package api

import (
	"time"

	"github.com/sensorflow/sensorflow/health"
	"github.com/sensorflow/sensorflow/health/events"
)

type sampleJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"`
}

func toSamples(in []sampleJSON) []health.SensorSample {
	out := make([]health.SensorSample, len(in))
	for i, s := range in {
		out[i] = health.SensorSample{Timestamp: s.Timestamp, Values: s.Values}
	}
	return out
}

// baselineJSON selects the baseline by rows or by time; empty means all samples.
type baselineJSON struct {
	StartRow int       `json:"start_row"`
	EndRow   int       `json:"end_row"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

func (b baselineJSON) toRange() health.BaselineRange {
	return health.BaselineRange{StartRow: b.StartRow, EndRow: b.EndRow, Start: b.Start, End: b.End}
}

type fitRequest struct {
	Samples  []sampleJSON     `json:"samples"`
	Baseline baselineJSON     `json:"baseline"`
	Sensors  []string         `json:"sensors"`
	Config   health.FitConfig `json:"config"`
}

type modelSummary struct {
	Machine         string            `json:"machine"`
	ModelID         string            `json:"model_id"`
	Sensors         int               `json:"sensors"`
	VisualDims      int               `json:"visual_dims"`
	ReconDims       int               `json:"recon_dims"`
	ExplainedRatio  []float64         `json:"explained_ratio"`
	Thresholds      health.Thresholds `json:"thresholds"`
	Fusion          string            `json:"fusion"`
	BaselineSamples int               `json:"baseline_samples"`
	FitStart        time.Time         `json:"fit_start"`
	FitEnd          time.Time         `json:"fit_end"`
}

func summarize(machine, id string, m *health.TrainedModel) modelSummary {
	return modelSummary{
		Machine:         machine,
		ModelID:         id,
		Sensors:         m.Dims(),
		VisualDims:      m.VisualDims,
		ReconDims:       m.ReconDims,
		ExplainedRatio:  m.ExplainedRatio,
		Thresholds:      m.Thresholds,
		Fusion:          m.Fusion,
		BaselineSamples: m.BaselineSamples,
		FitStart:        m.FitStart,
		FitEnd:          m.FitEnd,
	}
}

type scoreRequest struct {
	Samples    []sampleJSON            `json:"samples"`
	Classifier health.ClassifierConfig `json:"classifier"`
}

type scoredJSON struct {
	Timestamp        time.Time           `json:"timestamp"`
	HealthScore      float64             `json:"health_score"`
	Coordinate       [2]float64          `json:"coordinate"`
	Residual         float64             `json:"residual"`
	SubspaceDistance float64             `json:"subspace_distance"`
	State            health.AnomalyState `json:"state"`
}

func toScoredJSON(s health.ScoredSample) scoredJSON {
	return scoredJSON{
		Timestamp:        s.Timestamp,
		HealthScore:      s.HealthScore,
		Coordinate:       s.Coordinate,
		Residual:         s.ResidualMagnitude,
		SubspaceDistance: s.SubspaceDistance,
		State:            s.State,
	}
}

type eventJSON struct {
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	DurationMinutes float64             `json:"duration_minutes"`
	State           health.AnomalyState `json:"state"`
	MaxHealthScore  float64             `json:"max_health_score"`
}

func toEventsJSON(in []events.Event) []eventJSON {
	out := make([]eventJSON, len(in))
	for i, e := range in {
		out[i] = eventJSON{
			Start:           e.Start,
			End:             e.End,
			DurationMinutes: e.DurationMinutes,
			State:           e.State,
			MaxHealthScore:  e.MaxHealthScore,
		}
	}
	return out
}

type scoreResponse struct {
	Machine string               `json:"machine"`
	ModelID string               `json:"model_id"`
	Samples []scoredJSON         `json:"samples"`
	Events  []eventJSON          `json:"events"`
	Summary *events.TraceSummary `json:"summary"`
}
