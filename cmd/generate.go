package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sensorflow/sensorflow/dataset"
)

var (
	generateOut    string
	generateFaults []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic sensor log with optional injected faults",
	Run: func(cmd *cobra.Command, args []string) {
		c := cfg.Generate
		flags := cmd.Flags()
		if flags.Changed("sensors") {
			c.Sensors, _ = flags.GetInt("sensors")
		}
		if flags.Changed("samples") {
			c.Samples, _ = flags.GetInt("samples")
		}
		if flags.Changed("seed") {
			c.Seed, _ = flags.GetInt64("seed")
		}
		if flags.Changed("missing-rate") {
			c.MissingRate, _ = flags.GetFloat64("missing-rate")
		}
		for _, arg := range generateFaults {
			f, err := parseFault(arg)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			c.Faults = append(c.Faults, f)
		}
		if err := runGenerate(c, generateOut); err != nil {
			logrus.Fatalf("generate failed: %v", err)
		}
	},
}

func runGenerate(c dataset.SynthConfig, out string) error {
	t, err := dataset.Synthesize(c)
	if err != nil {
		return err
	}
	f, done, err := createOutput(out)
	if err != nil {
		return err
	}
	defer done()
	if err := dataset.WriteCSV(f, t); err != nil {
		return err
	}
	logrus.Infof("wrote %d samples of %d sensors (seed %d, %d faults)", t.Len(), len(t.Sensors), c.Seed, len(c.Faults))
	return nil
}

// parseFault reads "sensor:start:end:offset" or "sensor:start:end:flat".
func parseFault(s string) (dataset.Fault, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return dataset.Fault{}, fmt.Errorf("invalid fault %q: want sensor:start:end:offset", s)
	}
	var (
		f   dataset.Fault
		err error
	)
	if f.Sensor, err = strconv.Atoi(parts[0]); err != nil {
		return dataset.Fault{}, fmt.Errorf("invalid fault %q: sensor: %w", s, err)
	}
	if f.StartRow, err = strconv.Atoi(parts[1]); err != nil {
		return dataset.Fault{}, fmt.Errorf("invalid fault %q: start: %w", s, err)
	}
	if f.EndRow, err = strconv.Atoi(parts[2]); err != nil {
		return dataset.Fault{}, fmt.Errorf("invalid fault %q: end: %w", s, err)
	}
	if parts[3] == "flat" {
		f.Flatline = true
		return f, nil
	}
	if f.Offset, err = strconv.ParseFloat(parts[3], 64); err != nil {
		return dataset.Fault{}, fmt.Errorf("invalid fault %q: offset: %w", s, err)
	}
	return f, nil
}

func init() {
	defaults := dataset.DefaultSynthConfig()
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Output CSV (default stdout)")
	generateCmd.Flags().StringArrayVar(&generateFaults, "fault", nil, "Inject a fault: sensor:start:end:offset or sensor:start:end:flat (repeatable)")
	generateCmd.Flags().Int("sensors", defaults.Sensors, "Number of sensors")
	generateCmd.Flags().Int("samples", defaults.Samples, "Number of samples")
	generateCmd.Flags().Int64("seed", defaults.Seed, "Random seed")
	generateCmd.Flags().Float64("missing-rate", defaults.MissingRate, "Fraction of readings left blank")
	rootCmd.AddCommand(generateCmd)
}
