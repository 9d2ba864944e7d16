//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the promotion forecast end to end: load, tag,
// cluster, engineer features, forecast, evaluate and export.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-promocast/internal/cache"
	"github.com/pgEdge/pgedge-promocast/internal/cluster"
	"github.com/pgEdge/pgedge-promocast/internal/config"
	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/evaluate"
	"github.com/pgEdge/pgedge-promocast/internal/export"
	"github.com/pgEdge/pgedge-promocast/internal/features"
	"github.com/pgEdge/pgedge-promocast/internal/forecast"
	"github.com/pgEdge/pgedge-promocast/internal/ingest"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/promo"
	"github.com/pgEdge/pgedge-promocast/internal/regress"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// DatasetSummary is a cluster summary of one dataset along one dimension.
type DatasetSummary struct {
	Dataset   string
	Dimension cluster.Dimension
	Summaries []cluster.Summary
}

// ModelResult is the outcome of the optional regression stage.
type ModelResult struct {
	Backend    string
	Validation *evaluate.Metrics
	Report     evaluate.Report
}

// Result carries everything a run produced.
type Result struct {
	RunID string

	Train   sales.Table
	Test    sales.Table
	HeldOut sales.Table

	Items  *cluster.Assignment
	Stores *cluster.Assignment
	Lift   forecast.LiftTable

	Baseline  evaluate.Report
	Model     *ModelResult
	Summaries []DatasetSummary

	CacheHits   int
	Files       []string
	Diagnostics diag.List
}

// Metrics returns the flat metric map of the run. Baseline metrics use
// bare names; model metrics are prefixed with "model_".
func (r *Result) Metrics() map[string]float64 {
	out := r.Baseline.Flatten()
	if r.Model != nil {
		for k, v := range r.Model.Report.Flatten() {
			out["model_"+k] = v
		}
	}
	return out
}

// Reports returns the baseline report followed by the model report, if any.
func (r *Result) Reports() []evaluate.Report {
	reps := []evaluate.Report{r.Baseline}
	if r.Model != nil {
		reps = append(reps, r.Model.Report)
	}
	return reps
}

// Run executes the forecast described by cfg. An empty runID is replaced
// by a fresh UUID.
func Run(ctx context.Context, cfg *config.Config, runID string) (*Result, error) {
	opts := ingest.Options{
		Charset:     cfg.Input.Charset,
		DateLayouts: cfg.Input.DateLayouts,
	}
	train, err := ingest.LoadSales(cfg.Input.Train, "train", opts)
	if err != nil {
		return nil, err
	}
	test, err := ingest.LoadSales(cfg.Input.Test, "test", opts)
	if err != nil {
		return nil, err
	}
	cal, err := ingest.LoadCalendar(cfg.Input.Calendar, opts)
	if err != nil {
		return nil, err
	}

	return RunTables(ctx, cfg, runID, train, test, cal)
}

// RunTables executes the pipeline on already loaded tables. On error the
// partial result is returned so its diagnostics can still be reported.
func RunTables(ctx context.Context, cfg *config.Config, runID string, train, test sales.Table, cal promo.Calendar) (*Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{RunID: runID}
	return res, runTables(ctx, cfg, res, train, test, cal)
}

func runTables(ctx context.Context, cfg *config.Config, res *Result, train, test sales.Table, cal promo.Calendar) error {
	// Only the training history is densified; test rows are scored as observed.
	if cfg.Pipeline.Densify {
		train = sales.Densify(train)
	}

	tagged, err := promo.TagDatasets(train, test, cal, cfg.Promotions.Train, cfg.Promotions.HeldOut)
	if err != nil {
		return err
	}

	if res.Items, err = cluster.Compute(tagged.Train, cluster.ByItem); err != nil {
		return err
	}
	if res.Stores, err = cluster.Compute(tagged.Train, cluster.ByStore); err != nil {
		return err
	}
	train, d := cluster.Apply(tagged.Train, res.Items, res.Stores)
	res.Diagnostics.Merge(d)
	test, d = cluster.Apply(tagged.Test, res.Items, res.Stores)
	res.Diagnostics.Merge(d)

	if cfg.Pipeline.Features {
		if train, test, err = engineer(ctx, cfg, res, train, test); err != nil {
			return err
		}
	}

	if res.Lift, err = forecast.ComputeLiftTable(train); err != nil {
		return err
	}
	test, d = forecast.Forecast(test, res.Lift)
	res.Diagnostics.Merge(d)
	heldOut := promo.HeldOutSubset(test)

	res.Summaries = summarize(train, heldOut)

	res.Baseline, d, err = evaluate.Evaluate(test, heldOut, evaluate.Expected)
	res.Diagnostics.Merge(d)
	if err != nil {
		return err
	}

	if err := exportForecast(cfg, res, export.BaselineFile, heldOut); err != nil {
		return err
	}

	if cfg.Model.Backend != "" {
		if test, heldOut, err = model(ctx, cfg, res, train, test); err != nil {
			return err
		}
	}

	res.Train, res.Test, res.HeldOut = train, test, heldOut

	if cfg.Output.PrometheusFile != "" {
		if err := export.SavePrometheus(cfg.Output.PrometheusFile, res.RunID, res.Reports()...); err != nil {
			return err
		}
		res.Files = append(res.Files, cfg.Output.PrometheusFile)
	}

	logging.Info().
		Int("diagnostics", len(res.Diagnostics)).
		Int("warnings", len(res.Diagnostics.Warnings())).
		Msg("Forecast complete")
	return nil
}

func engineer(ctx context.Context, cfg *config.Config, res *Result, train, test sales.Table) (sales.Table, sales.Table, error) {
	cacheCfg := cache.Config{
		Backend: cfg.Cache.Backend,
		Dir:     cfg.Cache.Dir,
		DSN:     cfg.Cache.DSN,
		RunID:   res.RunID,
	}
	if cfg.Cache.Backend == cache.SQLite {
		cacheCfg.DSN = cfg.SQLitePath()
	}
	backend, err := cache.Open(ctx, cacheCfg)
	if err != nil {
		return sales.Table{}, sales.Table{}, err
	}
	var store features.Store
	if backend != nil {
		defer backend.Close()
		store = backend
	}

	opts := features.Options{Workers: cfg.Pipeline.Workers}
	out := make([]sales.Table, 2)
	for i, t := range []sales.Table{train, test} {
		engineered, hit, err := features.EngineerCached(ctx, t, store, opts)
		if err != nil {
			return sales.Table{}, sales.Table{}, fmt.Errorf("failed to engineer features for %s: %w", t.Name, err)
		}
		if hit {
			res.CacheHits++
			res.Diagnostics.Infof("features", diag.CodeCacheHit,
				"%s: engineered features loaded from %s cache", t.Name, cfg.Cache.Backend)
		}
		out[i] = engineered
	}
	return out[0], out[1], nil
}

func model(ctx context.Context, cfg *config.Config, res *Result, train, test sales.Table) (sales.Table, sales.Table, error) {
	trained, d, err := regress.TrainAndPredict(ctx, regress.TrainConfig{
		Backend:     cfg.Model.Backend,
		ValFraction: cfg.Model.ValFraction,
		Seed:        cfg.Model.Seed,
	}, train, test)
	res.Diagnostics.Merge(d)
	if err != nil {
		return sales.Table{}, sales.Table{}, err
	}

	test = trained.Test
	heldOut := promo.HeldOutSubset(test)
	rep, d, err := evaluate.Evaluate(test, heldOut, evaluate.Predicted)
	res.Diagnostics.Merge(d)
	if err != nil {
		return sales.Table{}, sales.Table{}, err
	}
	res.Model = &ModelResult{
		Backend:    trained.Backend,
		Validation: trained.Validation,
		Report:     rep,
	}

	if err := exportForecast(cfg, res, export.ModelFile(trained.Backend), heldOut); err != nil {
		return sales.Table{}, sales.Table{}, err
	}
	return test, heldOut, nil
}

func summarize(train, heldOut sales.Table) []DatasetSummary {
	var out []DatasetSummary
	for _, ds := range []struct {
		label string
		t     sales.Table
	}{{"train", train}, {"held_out", heldOut}} {
		cluster.LogSummaries(ds.label, ds.t)
		for _, dim := range []cluster.Dimension{cluster.ByItem, cluster.ByStore} {
			out = append(out, DatasetSummary{
				Dataset:   ds.label,
				Dimension: dim,
				Summaries: cluster.Summarize(ds.t, dim),
			})
		}
	}
	return out
}

func exportForecast(cfg *config.Config, res *Result, name string, t sales.Table) error {
	if cfg.Output.Dir == "" {
		return nil
	}
	path, err := export.SaveForecastCSV(cfg.Output.Dir, name, t)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)

	if cfg.Output.XLSX {
		path, err := export.SaveForecastXLSX(cfg.Output.Dir, xlsxName(name), t, res.Metrics())
		if err != nil {
			return err
		}
		res.Files = append(res.Files, path)
	}
	return nil
}

func xlsxName(csvName string) string {
	return strings.TrimSuffix(csvName, ".csv") + ".xlsx"
}
