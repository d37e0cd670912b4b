// Command scigolab serves the experiment API and runs experiments locally.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigolab/config"
	"github.com/YuminosukeSato/scigolab/pkg/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "scigolab",
	Short:         "Train and evaluate tabular models from uploaded datasets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, runCmd, algorithmsCmd, tokenCmd)
}

// loadConfig reads the config and installs the loggers at its level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func setupLogging(level string) {
	log.SetupLogger(level)
	p := log.NewZerologProvider(log.ToLevel(level))
	p.RouteWarnings()
	log.SetProvider(p)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scigolab:", err)
		os.Exit(1)
	}
}
