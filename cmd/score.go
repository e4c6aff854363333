package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/dataset"
	"github.com/sensorflow/sensorflow/health"
	"github.com/sensorflow/sensorflow/health/events"
)

type scoreOptions struct {
	Data     []string
	Models   []string
	Out      string
	OutDir   string
	Parallel int
}

var scoreOpts scoreOptions

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score sensor logs against trained models",
	Long: "Each --data log is scored against the --model at the same position. Models are\n" +
		"record files or store:<machine> references. Machines are scored in parallel.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScore(cmd.Context(), cfg, scoreOpts); err != nil {
			logrus.Fatalf("score failed: %v", err)
		}
	},
}

func runScore(ctx context.Context, c Config, opts scoreOptions) error {
	if len(opts.Data) == 0 || len(opts.Data) != len(opts.Models) {
		return fmt.Errorf("need one --model per --data, got %d and %d", len(opts.Models), len(opts.Data))
	}
	if len(opts.Data) > 1 && opts.Out != "" {
		return fmt.Errorf("--out takes a single machine; use --out-dir")
	}

	runs := make([]health.MachineRun, len(opts.Data))
	for i, path := range opts.Data {
		table, samples, err := loadTable(path)
		if err != nil {
			return err
		}
		model, err := loadModel(ctx, c, opts.Models[i])
		if err != nil {
			return err
		}
		if err := checkSensors(table, model); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		runs[i] = health.MachineRun{ID: machineName(path), Samples: samples, Model: model, Classifier: c.Classifier}
	}
	results, err := health.ScoreMachines(ctx, runs, opts.Parallel)
	if err != nil {
		return err
	}

	for _, run := range runs {
		scored := results[run.ID]
		out := opts.Out
		if out == "" && opts.OutDir != "" {
			out = filepath.Join(opts.OutDir, run.ID+".scores.csv")
		}
		if err := writeScores(out, scored); err != nil {
			return fmt.Errorf("%s: %w", run.ID, err)
		}
		evs := events.Segment(scored)
		logrus.Infof("%s: %d samples, %d events, uptime %.1f%%", run.ID, len(scored), len(evs), events.UptimePercent(scored))
	}
	return nil
}

func writeScores(path string, scored []health.ScoredSample) error {
	f, done, err := createOutput(path)
	if err != nil {
		return err
	}
	defer done()
	return dataset.WriteScores(f, scored)
}

func init() {
	scoreCmd.Flags().StringSliceVar(&scoreOpts.Data, "data", nil, "Sensor log CSV (repeatable)")
	scoreCmd.Flags().StringSliceVar(&scoreOpts.Models, "model", nil, "Model record file or store:<machine> (repeatable)")
	scoreCmd.Flags().StringVar(&scoreOpts.Out, "out", "", "Scores CSV for a single machine (default stdout)")
	scoreCmd.Flags().StringVar(&scoreOpts.OutDir, "out-dir", "", "Directory for <machine>.scores.csv files")
	scoreCmd.Flags().IntVar(&scoreOpts.Parallel, "parallel", 0, "Machines scored concurrently (0 = all)")
	rootCmd.AddCommand(scoreCmd)
}
