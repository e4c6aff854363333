package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string // Log verbosity level
	configPath string // Detector config file (YAML)

	// cfg is the effective configuration after the config file is applied.
	cfg = DefaultConfig()
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "sensorflow",
	Short: "Multi-sensor machine health monitoring",
	Long: "sensorflow learns the normal operating subspace of a machine from a baseline\n" +
		"window of sensor readings and scores later readings into a health score,\n" +
		"a 2D health coordinate and a normal/warning/broken state.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if configPath != "" {
			loaded, err := LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			cfg = loaded
			logrus.Debugf("loaded config %s", configPath)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent flags; each subcommand registers itself in its own file.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Detector config file (YAML)")
}
