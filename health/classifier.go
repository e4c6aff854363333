package health

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AnomalyState is the discrete machine-health classification.
type AnomalyState string

const (
	StateNormal  AnomalyState = "normal"
	StateWarning AnomalyState = "warning"
	StateBroken  AnomalyState = "broken"
)

// Severity orders states for comparisons: normal < warning < broken.
func (s AnomalyState) Severity() int {
	switch s {
	case StateWarning:
		return 1
	case StateBroken:
		return 2
	default:
		return 0
	}
}

// Transition captures a single state change of an AnomalyClassifier.
type Transition struct {
	Index       int // position of the triggering sample in the scoring run
	Timestamp   time.Time
	From        AnomalyState
	To          AnomalyState
	HealthScore float64
	Reason      string
}

// TransitionRecorder receives every state change. events.Trace implements it.
type TransitionRecorder interface {
	RecordTransition(t Transition)
}

// AnomalyClassifier turns an ordered stream of health scores into states
// using run-length debounce in both directions.
//
// Thread-safety: NOT thread-safe. One classifier per machine, fed in timestamp order.
type AnomalyClassifier struct {
	cfg      ClassifierConfig
	state    AnomalyState
	over     int // consecutive scores > 1
	severe   int // consecutive scores > BrokenMultiple
	under    int // consecutive scores <= 1
	dwell    int // consecutive over-threshold samples observed while in warning
	index    int
	recorder TransitionRecorder
}

// NewAnomalyClassifier creates a classifier in the normal state.
func NewAnomalyClassifier(cfg ClassifierConfig) (*AnomalyClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AnomalyClassifier{cfg: cfg, state: StateNormal}, nil
}

// SetRecorder attaches a recorder for state transitions; nil detaches.
func (c *AnomalyClassifier) SetRecorder(r TransitionRecorder) {
	c.recorder = r
}

// State returns the current classification.
func (c *AnomalyClassifier) State() AnomalyState {
	return c.state
}

// Reset returns the classifier to normal with empty run counters.
func (c *AnomalyClassifier) Reset() {
	c.state = StateNormal
	c.index = 0
	c.clearRuns()
}

// Observe feeds the next health score and returns the resulting state.
func (c *AnomalyClassifier) Observe(ts time.Time, score float64) AnomalyState {
	over := score > 1.0
	if over {
		c.over++
		c.under = 0
	} else {
		c.under++
		c.over = 0
	}
	if score > c.cfg.BrokenMultiple {
		c.severe++
	} else {
		c.severe = 0
	}

	switch c.state {
	case StateNormal:
		if c.severe >= c.cfg.BrokenRun {
			c.transition(ts, score, StateBroken, "severe run")
		} else if c.over >= c.cfg.WarningRun {
			c.transition(ts, score, StateWarning, "over-threshold run")
		}
	case StateWarning:
		if over {
			c.dwell++
		} else {
			c.dwell = 0
		}
		if c.severe >= c.cfg.BrokenRun {
			c.transition(ts, score, StateBroken, "severe run")
		} else if c.cfg.WarningDwell > 0 && c.dwell >= c.cfg.WarningDwell {
			c.transition(ts, score, StateBroken, "sustained warning")
		} else if c.under >= c.cfg.WarningRun {
			c.transition(ts, score, StateNormal, "recovered")
		}
	case StateBroken:
		if c.under >= c.cfg.BrokenRun {
			c.transition(ts, score, StateWarning, "improving")
		}
	}
	c.index++
	return c.state
}

// transition moves to a new state and restarts the run counters, so each
// further change needs its own full run. The severe run survives the
// normal -> warning edge: it already counts toward broken.
func (c *AnomalyClassifier) transition(ts time.Time, score float64, to AnomalyState, reason string) {
	t := Transition{Index: c.index, Timestamp: ts, From: c.state, To: to, HealthScore: score, Reason: reason}
	logrus.Debugf("classifier: %s -> %s at sample %d (score=%.3f, %s)", t.From, t.To, t.Index, score, reason)
	severe := c.severe
	c.state = to
	c.clearRuns()
	if t.From == StateNormal && to == StateWarning {
		c.severe = severe
	}
	if c.recorder != nil {
		c.recorder.RecordTransition(t)
	}
}

func (c *AnomalyClassifier) clearRuns() {
	c.over, c.severe, c.under, c.dwell = 0, 0, 0, 0
}
