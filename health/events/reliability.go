package events

import (
	"math"

	"github.com/sensorflow/sensorflow/health"
)

// Metrics summarizes machine reliability over an observation period.
// Only broken events count as failures and downtime.
type Metrics struct {
	Failures        int
	DowntimeMinutes float64
	MTBFHours       float64 // +Inf when there were no failures
	MTTRMinutes     float64 // 0 when there were no failures
}

// Reliability computes MTBF and MTTR from events observed over totalHours.
// MTBF is the non-failed time divided by the failure count.
func Reliability(events []Event, totalHours float64) Metrics {
	m := Metrics{MTBFHours: math.Inf(1)}
	for _, e := range events {
		if e.State != health.StateBroken {
			continue
		}
		m.Failures++
		m.DowntimeMinutes += e.DurationMinutes
	}
	if m.Failures == 0 {
		return m
	}
	downHours := m.DowntimeMinutes / 60
	m.MTBFHours = (totalHours - downHours) / float64(m.Failures)
	m.MTTRMinutes = m.DowntimeMinutes / float64(m.Failures)
	return m
}

// DowntimeCost prices the broken time in events at costPerMinute.
func DowntimeCost(events []Event, costPerMinute float64) float64 {
	return Reliability(events, 0).DowntimeMinutes * costPerMinute
}

// EventMinutes is the total duration of all events, warnings included.
func EventMinutes(events []Event) float64 {
	total := 0.0
	for _, e := range events {
		total += e.DurationMinutes
	}
	return total
}

// UptimePercent is the share of scored samples classified normal, in percent.
// An empty run reports 100.
func UptimePercent(scored []health.ScoredSample) float64 {
	if len(scored) == 0 {
		return 100
	}
	normal := 0
	for _, s := range scored {
		if s.State == health.StateNormal {
			normal++
		}
	}
	return 100 * float64(normal) / float64(len(scored))
}

// ObservedHours is the span between the first and last scored sample.
func ObservedHours(scored []health.ScoredSample) float64 {
	if len(scored) < 2 {
		return 0
	}
	return scored[len(scored)-1].Timestamp.Sub(scored[0].Timestamp).Hours()
}
