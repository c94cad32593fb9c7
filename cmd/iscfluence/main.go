package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"iscfluence/pkg/config"
	"iscfluence/pkg/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "iscfluence",
	Short: "Reduce optimal fluences of a radiotherapy plan to remove hot spots",
	Long: `iscfluence lowers the optimal fluence of every beam of a plan where the
plan dose exceeds a threshold. Each point above the threshold is projected onto
the isocenter plane of every beam and the fluence there is scaled so that the
summed dose falls to the threshold. The reduced fluence can be fitted to the
MLC aperture of the beam.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "iscfluence.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig loads the configuration and creates a logger configured by it
func loadConfig(name string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NamedLogger(name)
	if err := logging.Configure(logger, cfg.Output.LogLevel, verbose || cfg.Output.Verbose); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
