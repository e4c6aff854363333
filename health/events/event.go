package events

import (
	"sort"
	"time"

	"github.com/sensorflow/sensorflow/health"
)

// Event is one contiguous run of scored samples sharing a non-normal state.
type Event struct {
	Start           time.Time
	End             time.Time
	DurationMinutes float64 // End - Start; a single-sample event lasts 0 minutes
	State           health.AnomalyState
	MaxHealthScore  float64
	FirstIndex      int // index of the first sample of the run
	Samples         int
}

// Segment groups consecutive samples with the same non-normal state into
// events. A warning run followed directly by a broken run yields two events.
// Events are returned newest first.
func Segment(scored []health.ScoredSample) []Event {
	var events []Event
	for i := 0; i < len(scored); {
		state := scored[i].State
		j := i
		maxScore := scored[i].HealthScore
		for j+1 < len(scored) && scored[j+1].State == state {
			j++
			maxScore = max(maxScore, scored[j].HealthScore)
		}
		if state != health.StateNormal {
			start, end := scored[i].Timestamp, scored[j].Timestamp
			events = append(events, Event{
				Start:           start,
				End:             end,
				DurationMinutes: end.Sub(start).Minutes(),
				State:           state,
				MaxHealthScore:  maxScore,
				FirstIndex:      i,
				Samples:         j - i + 1,
			})
		}
		i = j + 1
	}
	sort.SliceStable(events, func(a, b int) bool { return events[a].Start.After(events[b].Start) })
	return events
}

// Window returns the readings whose timestamps fall inside [e.Start, e.End].
func Window(samples []health.SensorSample, e Event) [][]float64 {
	var rows [][]float64
	for _, s := range samples {
		if s.Timestamp.Before(e.Start) || s.Timestamp.After(e.End) {
			continue
		}
		rows = append(rows, s.Values)
	}
	return rows
}
