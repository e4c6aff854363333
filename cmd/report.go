package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/dataset"
	"github.com/sensorflow/sensorflow/health"
	"github.com/sensorflow/sensorflow/health/events"
)

type reportOptions struct {
	Data  string
	Model string
	Out   string
}

var reportOpts reportOptions

// machineReport is the JSON document written by the report command.
type machineReport struct {
	Machine        string               `json:"machine"`
	Samples        int                  `json:"samples"`
	ObservedHours  float64              `json:"observed_hours"`
	State          health.AnomalyState  `json:"state"`
	HealthScore    float64              `json:"health_score"`
	UptimePercent  float64              `json:"uptime_percent"`
	Failures       int                  `json:"failures"`
	DowntimeMin    float64              `json:"downtime_minutes"`
	DowntimeCost   float64              `json:"downtime_cost"`
	CostBasis      string               `json:"cost_basis"` // "broken" or "all_events"
	MTBFHours      *float64             `json:"mtbf_hours"` // null when nothing failed
	MTTRMinutes    float64              `json:"mttr_minutes"`
	Events         []reportEvent        `json:"events"`
	RootCause      []reportDeviation    `json:"root_cause,omitempty"`
	Transitions    *events.TraceSummary `json:"transitions"`
	DataQuality    dataset.Quality      `json:"data_quality"`
	DroppedSensors []string             `json:"dropped_sensors,omitempty"`
}

const (
	costBroken    = "broken"
	costAllEvents = "all_events"
)

type reportEvent struct {
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	DurationMinutes float64             `json:"duration_minutes"`
	State           health.AnomalyState `json:"state"`
	MaxHealthScore  float64             `json:"max_health_score"`
}

type reportDeviation struct {
	Sensor       string  `json:"sensor"`
	Score        float64 `json:"score"`
	EventMean    float64 `json:"event_mean"`
	BaselineMean float64 `json:"baseline_mean"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Score a sensor log and summarize events, reliability and likely causes",
	Run: func(cmd *cobra.Command, args []string) {
		c := cfg
		if cmd.Flags().Changed("cost-per-minute") {
			c.Report.CostPerMinute, _ = cmd.Flags().GetFloat64("cost-per-minute")
		}
		if cmd.Flags().Changed("price-warning") {
			c.Report.PriceWarning, _ = cmd.Flags().GetBool("price-warning")
		}
		if err := runReport(cmd.Context(), c, reportOpts); err != nil {
			logrus.Fatalf("report failed: %v", err)
		}
	},
}

func runReport(ctx context.Context, c Config, opts reportOptions) error {
	raw, err := dataset.LoadCSV(opts.Data)
	if err != nil {
		return err
	}
	quality := dataset.QualityReport(raw, c.Report.Lookback)
	dropped := dataset.Impute(raw)
	samples, err := raw.Samples()
	if err != nil {
		return err
	}
	model, err := loadModel(ctx, c, opts.Model)
	if err != nil {
		return err
	}
	if err := checkSensors(raw, model); err != nil {
		return fmt.Errorf("%s: %w", opts.Data, err)
	}

	machine := machineName(opts.Data)
	trace := events.NewTrace(machine)
	scored, err := health.ScoreRecorded(samples, model, c.Classifier, trace)
	if err != nil {
		return err
	}
	evs := events.Segment(scored)
	hours := events.ObservedHours(scored)
	metrics := events.Reliability(evs, hours)

	rep := machineReport{
		Machine:        machine,
		Samples:        len(scored),
		ObservedHours:  hours,
		State:          health.StateNormal,
		UptimePercent:  events.UptimePercent(scored),
		Failures:       metrics.Failures,
		DowntimeMin:    metrics.DowntimeMinutes,
		DowntimeCost:   events.DowntimeCost(evs, c.Report.CostPerMinute),
		CostBasis:      costBroken,
		MTBFHours:      finite(metrics.MTBFHours),
		MTTRMinutes:    metrics.MTTRMinutes,
		Events:         make([]reportEvent, 0, len(evs)),
		Transitions:    events.Summarize(trace),
		DataQuality:    quality,
		DroppedSensors: dropped,
	}
	if c.Report.PriceWarning {
		rep.DowntimeCost = events.EventMinutes(evs) * c.Report.CostPerMinute
		rep.CostBasis = costAllEvents
	}
	if len(scored) > 0 {
		last := scored[len(scored)-1]
		rep.State, rep.HealthScore = last.State, last.HealthScore
	}
	for _, e := range evs {
		rep.Events = append(rep.Events, reportEvent{
			Start:           e.Start,
			End:             e.End,
			DurationMinutes: e.DurationMinutes,
			State:           e.State,
			MaxHealthScore:  e.MaxHealthScore,
		})
	}
	if len(evs) > 0 {
		rep.RootCause, err = latestRootCause(samples, model, evs[0], raw.Sensors, c.Report.TopSensors)
		if err != nil {
			return err
		}
	}

	f, done, err := createOutput(opts.Out)
	if err != nil {
		return err
	}
	defer done()
	return writeJSON(f, rep)
}

// latestRootCause compares the newest event against the model's baseline window.
func latestRootCause(samples []health.SensorSample, m *health.TrainedModel, e events.Event, names []string, topN int) ([]reportDeviation, error) {
	base, err := health.TimeRange(m.FitStart, m.FitEnd).Select(samples)
	if err != nil {
		return nil, err
	}
	baseline := make([][]float64, len(base))
	for i, s := range base {
		baseline[i] = s.Values
	}
	if len(names) != m.Dims() {
		names = nil
	}
	devs, err := events.RootCause(baseline, events.Window(samples, e), names, topN)
	if errors.Is(err, health.ErrInvalidInput) {
		logrus.Warnf("skipping root cause: %v", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]reportDeviation, len(devs))
	for i, d := range devs {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("sensor_%02d", d.Sensor)
		}
		out[i] = reportDeviation{Sensor: name, Score: d.Score, EventMean: d.EventMean, BaselineMean: d.BaselineMean}
	}
	return out, nil
}

// finite returns nil for values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	reportCmd.Flags().StringVar(&reportOpts.Data, "data", "", "Sensor log CSV")
	reportCmd.Flags().StringVar(&reportOpts.Model, "model", "", "Model record file or store:<machine>")
	reportCmd.Flags().StringVar(&reportOpts.Out, "out", "", "Report file (default stdout)")
	reportCmd.Flags().Float64("cost-per-minute", DefaultConfig().Report.CostPerMinute, "Downtime cost per broken minute")
	reportCmd.Flags().Bool("price-warning", DefaultConfig().Report.PriceWarning, "Also price warning minutes as downtime")
	_ = reportCmd.MarkFlagRequired("data")
	_ = reportCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(reportCmd)
}
