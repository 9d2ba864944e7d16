//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/pgEdge/pgedge-promocast/internal/export"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/pipeline"
)

var (
	fcTrain        string
	fcTest         string
	fcCalendar     string
	fcCharset      string
	fcHeldOut      string
	fcTrainWindows []string
	fcDensify      bool
	fcNoFeatures   bool
	fcWorkers      int
	fcCache        string
	fcCacheDir     string
	fcCacheDSN     string
	fcModel        string
	fcValFraction  float64
	fcSeed         uint64
	fcOutput       string
	fcXLSX         bool
	fcPromFile     string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast and evaluate a held-out promotion window",
	Long: `Tag the training and test sales with the promotion calendar, cluster
items and stores by non-promotion velocity, engineer temporal features,
forecast the held-out window with the cluster lift baseline and report
MAE, RMSE, MAPE and NRMSE.

Cache backends:
  file     - one CSV per engineered table in --cache-dir (default)
  sqlite   - a SQLite database (--cache-dsn, default <cache-dir>/features.db)
  postgres - a PostgreSQL database (--cache-dsn connection string)
  none     - always recompute

Example:
  pgedge-promocast forecast --train train.csv --test test.csv \
      --calendar promotions.csv --held-out Promo6
  pgedge-promocast forecast --model ols --xlsx --prom-file metrics.prom`,
	RunE: runForecast,
}

func init() {
	f := forecastCmd.Flags()
	f.StringVar(&fcTrain, "train", "", "training sales CSV")
	f.StringVar(&fcTest, "test", "", "test sales CSV")
	f.StringVar(&fcCalendar, "calendar", "", "promotion calendar CSV")
	f.StringVar(&fcCharset, "charset", "",
		"input encoding: utf-8, shift_jis, windows-1252, iso-8859-1")
	f.StringVar(&fcHeldOut, "held-out", "", "name of the held-out promotion window")
	f.StringSliceVar(&fcTrainWindows, "train-windows", nil,
		"promotion windows used for training (default: all before the held-out window)")
	f.BoolVar(&fcDensify, "densify", false,
		"zero-fill missing store-item-days of the training table")
	f.BoolVar(&fcNoFeatures, "no-features", false,
		"skip temporal feature engineering")
	f.IntVar(&fcWorkers, "workers", -1,
		"parallel workers for feature engineering (0 or 1 = sequential)")
	f.StringVar(&fcCache, "cache", "", "cache backend: file, sqlite, postgres, none")
	f.StringVar(&fcCacheDir, "cache-dir", "", "cache directory")
	f.StringVar(&fcCacheDSN, "cache-dsn", "", "SQLite path or PostgreSQL connection string")
	f.StringVar(&fcModel, "model", "", "regression backend (see 'backends')")
	f.Float64Var(&fcValFraction, "val-fraction", -1, "validation share of training rows")
	f.Uint64Var(&fcSeed, "seed", 0, "validation split seed")
	f.StringVar(&fcOutput, "output", "", "output directory")
	f.BoolVar(&fcXLSX, "xlsx", false, "also write XLSX workbooks")
	f.StringVar(&fcPromFile, "prom-file", "", "write metrics in Prometheus textfile format")
}

func applyForecastFlags(cmd *cobra.Command) {
	if fcTrain != "" {
		cfg.Input.Train = fcTrain
	}
	if fcTest != "" {
		cfg.Input.Test = fcTest
	}
	if fcCalendar != "" {
		cfg.Input.Calendar = fcCalendar
	}
	if fcCharset != "" {
		cfg.Input.Charset = fcCharset
	}
	if fcHeldOut != "" {
		cfg.Promotions.HeldOut = fcHeldOut
	}
	if len(fcTrainWindows) > 0 {
		cfg.Promotions.Train = fcTrainWindows
	}
	if fcDensify {
		cfg.Pipeline.Densify = true
	}
	if fcNoFeatures {
		cfg.Pipeline.Features = false
	}
	if fcWorkers >= 0 {
		cfg.Pipeline.Workers = fcWorkers
	}
	if fcCache != "" {
		cfg.Cache.Backend = fcCache
	}
	if fcCacheDir != "" {
		cfg.Cache.Dir = fcCacheDir
	}
	if fcCacheDSN != "" {
		cfg.Cache.DSN = fcCacheDSN
	}
	if fcModel != "" {
		cfg.Model.Backend = fcModel
	}
	if fcValFraction >= 0 {
		cfg.Model.ValFraction = fcValFraction
	}
	if cmd.Flags().Changed("seed") {
		cfg.Model.Seed = fcSeed
	}
	if fcOutput != "" {
		cfg.Output.Dir = fcOutput
	}
	if fcXLSX {
		cfg.Output.XLSX = true
	}
	if fcPromFile != "" {
		cfg.Output.PrometheusFile = fcPromFile
	}
}

func runForecast(cmd *cobra.Command, args []string) error {
	applyForecastFlags(cmd)
	if err := cfg.ValidateForecast(); err != nil {
		return err
	}

	runID := uuid.NewString()
	logging.WithRun(runID)

	logging.Info().
		Str("train", cfg.Input.Train).
		Str("test", cfg.Input.Test).
		Str("held_out", cfg.Promotions.HeldOut).
		Str("cache", cfg.Cache.Backend).
		Str("model", cfg.Model.Backend).
		Msg("Starting forecast")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := pipeline.Run(ctx, cfg, runID)
	if res != nil {
		res.Diagnostics.Log()
	}
	if err != nil {
		return err
	}

	lang, err := language.Parse(cfg.Output.Language)
	if err != nil {
		lang = language.English
	}
	out := cmd.OutOrStdout()
	if err := export.WriteReport(out, lang, res.Reports()...); err != nil {
		return err
	}
	if res.Model != nil {
		fmt.Fprintln(out)
		if err := export.WriteValidation(out, lang, res.Model.Backend, res.Model.Validation); err != nil {
			return err
		}
	}
	if len(res.Files) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Files written:")
		for _, f := range res.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	return nil
}
