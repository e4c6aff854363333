package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/dataset"
)

type qualityOptions struct {
	Data        string
	Lookback    int
	Correlation bool
}

var qualityOpts qualityOptions

type qualityOutput struct {
	dataset.Quality
	Correlation [][]*float64 `json:"correlation,omitempty"` // null entries involve a constant sensor
}

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Check a sensor log for stuck and sparse sensors",
	Run: func(cmd *cobra.Command, args []string) {
		c := cfg
		if cmd.Flags().Changed("lookback") {
			c.Report.Lookback = qualityOpts.Lookback
		}
		out, err := runQuality(c, qualityOpts)
		if err != nil {
			logrus.Fatalf("quality check failed: %v", err)
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			logrus.Fatalf("writing report: %v", err)
		}
	},
}

func runQuality(c Config, opts qualityOptions) (qualityOutput, error) {
	t, err := dataset.LoadCSV(opts.Data)
	if err != nil {
		return qualityOutput{}, err
	}
	out := qualityOutput{Quality: dataset.QualityReport(t, c.Report.Lookback)}
	if !opts.Correlation {
		return out, nil
	}
	dataset.Impute(t)
	corr, err := dataset.Correlation(t)
	if err != nil {
		return qualityOutput{}, err
	}
	out.Correlation = make([][]*float64, len(corr))
	for i, row := range corr {
		out.Correlation[i] = make([]*float64, len(row))
		for j, v := range row {
			out.Correlation[i][j] = finite(v)
		}
	}
	return out, nil
}

func init() {
	qualityCmd.Flags().StringVar(&qualityOpts.Data, "data", "", "Sensor log CSV")
	qualityCmd.Flags().IntVar(&qualityOpts.Lookback, "lookback", dataset.DefaultLookback, "Trailing rows inspected per sensor")
	qualityCmd.Flags().BoolVar(&qualityOpts.Correlation, "correlation", false, "Include the sensor correlation matrix")
	_ = qualityCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(qualityCmd)
}
