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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-promocast/internal/datagen"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
)

var (
	genDir     string
	genSeed    uint64
	genStores  int
	genItems   int
	genStart   string
	genTrain   int
	genTest    int
	genWindows int
	genLift    float64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic sales dataset",
	Long: `Generate a reproducible synthetic dataset: training and test sales for
a grid of stores and items with slow, medium and fast velocity, a promotion
calendar whose last window falls in the test period, and an item catalog.

Example:
  pgedge-promocast generate --dir data --stores 20 --items 100 --seed 7`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genDir, "dir", "", "output directory")
	f.Uint64Var(&genSeed, "seed", 0, "random seed")
	f.IntVar(&genStores, "stores", 0, "number of stores")
	f.IntVar(&genItems, "items", 0, "number of items")
	f.StringVar(&genStart, "start", "", "first training date (YYYY-MM-DD)")
	f.IntVar(&genTrain, "train-days", 0, "days in the training period")
	f.IntVar(&genTest, "test-days", 0, "days in the test period")
	f.IntVar(&genWindows, "windows", 0, "number of promotion windows")
	f.Float64Var(&genLift, "lift", 0, "promotion demand multiplier")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	g := &cfg.Generate
	if genDir != "" {
		g.Dir = genDir
	}
	if cmd.Flags().Changed("seed") {
		g.Seed = genSeed
	}
	if genStores > 0 {
		g.Stores = genStores
	}
	if genItems > 0 {
		g.Items = genItems
	}
	if genStart != "" {
		g.Start = genStart
	}
	if genTrain > 0 {
		g.TrainDays = genTrain
	}
	if genTest > 0 {
		g.TestDays = genTest
	}
	if genWindows > 0 {
		g.Windows = genWindows
	}
	if genLift > 0 {
		g.Lift = genLift
	}

	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", g.Start)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	logging.Info().
		Uint64("seed", g.Seed).
		Int("stores", g.Stores).
		Int("items", g.Items).
		Int("windows", g.Windows).
		Msg("Generating synthetic dataset")

	ds, err := datagen.Generate(datagen.Config{
		Seed:       g.Seed,
		Stores:     g.Stores,
		Items:      g.Items,
		Start:      start,
		TrainDays:  g.TrainDays,
		TestDays:   g.TestDays,
		Windows:    g.Windows,
		WindowDays: g.WindowDays,
		Lift:       g.Lift,
		SparseProb: g.SparseProb,
	})
	if err != nil {
		return err
	}
	paths, err := datagen.WriteFiles(g.Dir, ds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Training sales: %s (%d rows)\n", paths.Train, ds.Train.Len())
	fmt.Fprintf(out, "Test sales:     %s (%d rows)\n", paths.Test, ds.Test.Len())
	fmt.Fprintf(out, "Calendar:       %s (%d windows)\n", paths.Calendar, ds.Calendar.Len())
	fmt.Fprintf(out, "Catalog:        %s\n", paths.Catalog)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Forecast with:\n  pgedge-promocast forecast --train %s --test %s --calendar %s --held-out %s\n",
		paths.Train, paths.Test, paths.Calendar, ds.HeldOut())
	return nil
}
