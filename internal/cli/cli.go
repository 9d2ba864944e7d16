//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-promocast.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-promocast/internal/config"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/regress"
	"github.com/pgEdge/pgedge-promocast/pkg/version"
)

var (
	// Global flags
	cfgFile  string
	logLevel string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-promocast",
		Short: "Promotion demand forecaster for store-item sales",
		Long: `pgedge-promocast forecasts unit sales of store-item pairs during a
promotion window that was never observed in training.

Items and stores are grouped into slow, medium and fast movers from their
non-promotion sales. The forecast for a held-out window is the cluster's
baseline plus the lift it showed during earlier promotions. Temporal
features (rolling averages, days since last sale, days into a promotion)
are engineered and cached for optional regression backends.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-promocast.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(backendsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List available regression backends",
	Long: `List the regression backends that can be selected with --model.
A backend is fitted on the engineered training features and predicts
PredictedQuantity for the test table.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available regression backends:")
		cmd.Println()
		for _, name := range regress.List() {
			m, err := regress.Get(name)
			if err != nil {
				continue
			}
			cmd.Printf("  %-13s - %s\n", name, m.Description())
		}
	},
}
