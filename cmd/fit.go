package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/artifact"
	"github.com/sensorflow/sensorflow/health"
)

type fitOptions struct {
	Data    string
	Out     string
	Machine string
}

var fitOpts fitOptions

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Learn a machine's normal subspace from a baseline window",
	Run: func(cmd *cobra.Command, args []string) {
		c := cfg
		flags := cmd.Flags()
		if flags.Changed("percentile") {
			c.Fit.Percentile, _ = flags.GetFloat64("percentile")
		}
		if flags.Changed("fusion") {
			c.Fit.Fusion, _ = flags.GetString("fusion")
		}
		if flags.Changed("method") {
			c.Fit.Method, _ = flags.GetString("method")
		}
		if flags.Changed("baseline-rows") {
			rows, _ := flags.GetIntSlice("baseline-rows")
			if len(rows) != 2 {
				logrus.Fatalf("--baseline-rows takes start,end")
			}
			c.Baseline = BaselineConfig{StartRow: rows[0], EndRow: rows[1]}
		}
		id, err := runFit(cmd.Context(), c, fitOpts)
		if err != nil {
			logrus.Fatalf("fit failed: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
	},
}

// runFit fits a model and writes it to the output file and/or the store.
// It returns the new model id.
func runFit(ctx context.Context, c Config, opts fitOptions) (string, error) {
	if opts.Out == "" && c.Store.Location == "" {
		return "", fmt.Errorf("nowhere to save the model: set --out or a store location")
	}
	table, samples, err := loadTable(opts.Data)
	if err != nil {
		return "", err
	}
	model, err := health.Fit(samples, c.Baseline.Resolve(table), c.Fit)
	if err != nil {
		return "", err
	}
	model.SensorNames = table.Sensors

	machine := opts.Machine
	if machine == "" {
		machine = machineName(opts.Data)
	}
	rec, err := artifact.NewRecord(uuid.New().String(), machine, model)
	if err != nil {
		return "", err
	}
	if opts.Out != "" {
		if err := artifact.SaveFile(opts.Out, rec); err != nil {
			return "", err
		}
	}
	store, err := openStore(c)
	if err != nil {
		return "", err
	}
	if store != nil {
		if err := store.Put(ctx, machine, rec); err != nil {
			return "", err
		}
	}
	logrus.Infof("model %s for %s: %d sensors, recon dims %d, baseline %s to %s",
		rec.ID, machine, model.Dims(), model.ReconDims, model.FitStart, model.FitEnd)
	return rec.ID, nil
}

func init() {
	fitCmd.Flags().StringVar(&fitOpts.Data, "data", "", "Sensor log CSV")
	fitCmd.Flags().StringVar(&fitOpts.Out, "out", "", "Write the model record to this file")
	fitCmd.Flags().StringVar(&fitOpts.Machine, "machine", "", "Machine id (default: data file name)")
	fitCmd.Flags().Float64("percentile", health.DefaultFitConfig().Percentile, "Baseline percentile used to calibrate thresholds")
	fitCmd.Flags().String("fusion", health.DefaultFitConfig().Fusion, "Health fusion policy (blend, reconstruction, subspace)")
	fitCmd.Flags().String("method", "svd", "Decomposition method (svd, eigen)")
	fitCmd.Flags().IntSlice("baseline-rows", nil, "Baseline row range start,end (end exclusive)")
	_ = fitCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(fitCmd)
}
