package health

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ScoredSample is the derived, read-only result for one SensorSample.
type ScoredSample struct {
	Timestamp         time.Time
	HealthScore       float64    // fused score; 1.0 marks the calibration boundary
	Coordinate        [2]float64 // position on the leading two components
	ResidualMagnitude float64    // reconstruction error (Q)
	SubspaceDistance  float64    // T2-like statistic
	State             AnomalyState
}

// Evaluation is the stateless part of scoring a single sample.
type Evaluation struct {
	Residuals   Residuals
	HealthScore float64
	Coordinate  [2]float64
}

// Evaluate scores one sample against a model without touching any classifier state.
func Evaluate(values []float64, m *TrainedModel) (Evaluation, error) {
	if !m.Fitted() {
		return Evaluation{}, ErrModelNotFitted
	}
	composer, err := m.Composer()
	if err != nil {
		return Evaluation{}, err
	}
	return evaluateWith(values, m, composer)
}

func evaluateWith(values []float64, m *TrainedModel, composer Composer) (Evaluation, error) {
	_, r, _, err := evaluate(values, m)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{
		Residuals:   r,
		HealthScore: composer.Compose(r, m.Thresholds),
		Coordinate:  Coordinate(r, m.VisualDims),
	}
	if firstNonFinite([]float64{r.Q, r.T2, ev.HealthScore, ev.Coordinate[0], ev.Coordinate[1]}) >= 0 {
		return Evaluation{}, fmt.Errorf("%w: sample too far from the baseline to score (Q=%v, T2=%v)", ErrInvalidInput, r.Q, r.T2)
	}
	return ev, nil
}

// Scorer is the per-machine stateful scan: it owns one classifier and
// requires samples in non-decreasing timestamp order.
//
// Thread-safety: NOT thread-safe.
type Scorer struct {
	model      *TrainedModel
	composer   Composer
	classifier *AnomalyClassifier
	last       time.Time
	started    bool
}

// NewScorer binds a trained model and a fresh classifier.
func NewScorer(m *TrainedModel, cfg ClassifierConfig) (*Scorer, error) {
	if !m.Fitted() {
		return nil, ErrModelNotFitted
	}
	composer, err := m.Composer()
	if err != nil {
		return nil, err
	}
	classifier, err := NewAnomalyClassifier(cfg)
	if err != nil {
		return nil, err
	}
	return &Scorer{model: m, composer: composer, classifier: classifier}, nil
}

// Classifier exposes the scorer's classifier, e.g. to attach a recorder.
func (s *Scorer) Classifier() *AnomalyClassifier {
	return s.classifier
}

// Model returns the model the scorer was built with.
func (s *Scorer) Model() *TrainedModel {
	return s.model
}

// Step scores the next sample. A rejected sample returns an error and leaves
// the classifier and ordering state untouched.
func (s *Scorer) Step(sample SensorSample) (ScoredSample, error) {
	if s.started && sample.Timestamp.Before(s.last) {
		return ScoredSample{}, fmt.Errorf("%w: sample at %s precedes previous sample at %s",
			ErrInvalidInput, sample.Timestamp.Format(time.RFC3339), s.last.Format(time.RFC3339))
	}
	ev, err := evaluateWith(sample.Values, s.model, s.composer)
	if err != nil {
		return ScoredSample{}, err
	}
	s.last = sample.Timestamp
	s.started = true
	state := s.classifier.Observe(sample.Timestamp, ev.HealthScore)
	return ScoredSample{
		Timestamp:         sample.Timestamp,
		HealthScore:       ev.HealthScore,
		Coordinate:        ev.Coordinate,
		ResidualMagnitude: ev.Residuals.Q,
		SubspaceDistance:  ev.Residuals.T2,
		State:             state,
	}, nil
}

// Score runs a full ordered scan of samples through the model with a fresh
// classifier. Any invalid sample aborts the run.
func Score(samples []SensorSample, m *TrainedModel, cfg ClassifierConfig) ([]ScoredSample, error) {
	return ScoreRecorded(samples, m, cfg, nil)
}

// ScoreRecorded is Score with a TransitionRecorder attached to the classifier.
func ScoreRecorded(samples []SensorSample, m *TrainedModel, cfg ClassifierConfig, rec TransitionRecorder) ([]ScoredSample, error) {
	s, err := NewScorer(m, cfg)
	if err != nil {
		return nil, err
	}
	s.classifier.SetRecorder(rec)
	out := make([]ScoredSample, 0, len(samples))
	for i, sample := range samples {
		scored, err := s.Step(sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out = append(out, scored)
	}
	return out, nil
}

// ModelHolder publishes a TrainedModel for concurrent readers.
// Publishing swaps the pointer; models themselves are never modified.
type ModelHolder struct {
	current atomic.Pointer[TrainedModel]
}

// Publish replaces the current model wholesale.
func (h *ModelHolder) Publish(m *TrainedModel) {
	h.current.Store(m)
}

// Load returns the current model, or nil before the first Publish.
func (h *ModelHolder) Load() *TrainedModel {
	return h.current.Load()
}
