// Package events turns scored sample streams into operator-facing records:
// state-transition traces, contiguous anomaly events, reliability metrics
// and per-event sensor deviation rankings.
// This package only reads health types; it never feeds back into scoring.
package events

import (
	"time"

	"github.com/sensorflow/sensorflow/health"
)

// Trace collects classifier transitions during a scoring run.
// It implements health.TransitionRecorder.
type Trace struct {
	MachineID   string
	Transitions []health.Transition
}

// NewTrace creates a Trace ready for recording.
func NewTrace(machineID string) *Trace {
	return &Trace{
		MachineID:   machineID,
		Transitions: make([]health.Transition, 0),
	}
}

// RecordTransition appends a transition record.
func (t *Trace) RecordTransition(tr health.Transition) {
	t.Transitions = append(t.Transitions, tr)
}

// TraceSummary aggregates statistics from a Trace.
type TraceSummary struct {
	TotalTransitions int                         `json:"total_transitions"`
	Escalations      int                         `json:"escalations"` // transitions to a more severe state
	Recoveries       int                         `json:"recoveries"`  // transitions to a less severe state
	Entered          map[health.AnomalyState]int `json:"entered"`
	Reasons          map[string]int              `json:"reasons"`
	FirstAnomaly     time.Time                   `json:"first_anomaly"`    // zero when the machine never left normal
	MaxHealthScore   float64                     `json:"max_health_score"` // highest score that triggered a transition
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *TraceSummary {
	summary := &TraceSummary{
		Entered: make(map[health.AnomalyState]int),
		Reasons: make(map[string]int),
	}
	if t == nil {
		return summary
	}

	summary.TotalTransitions = len(t.Transitions)
	for _, tr := range t.Transitions {
		summary.Entered[tr.To]++
		summary.Reasons[tr.Reason]++
		if tr.To.Severity() > tr.From.Severity() {
			summary.Escalations++
			if summary.FirstAnomaly.IsZero() && tr.From == health.StateNormal {
				summary.FirstAnomaly = tr.Timestamp
			}
		} else {
			summary.Recoveries++
		}
		if tr.HealthScore > summary.MaxHealthScore {
			summary.MaxHealthScore = tr.HealthScore
		}
	}
	return summary
}
