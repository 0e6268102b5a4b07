// Package cmd is the easydk CLI's Cobra command tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cambricon/easydk-go/internal/config"
	"github.com/cambricon/easydk-go/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "easydk",
	Short: "Drive inference pipelines on Cambricon MLU devices",
}

// Execute runs the CLI, exiting the process with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a TOML config file (defaults to $EASYDK_HOME/config.toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(modelsCmd)
}

// loadConfig reads the CLI's --config flag, falling back to the
// default easydk home when unset, and wires the process-wide logger
// from its [logging] section before returning.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(config.EasydkHome(), "config.toml")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	logging.SetDefault(logging.NewLogger(cfg.Logging.ToLoggingConfig()))
	return cfg, nil
}
