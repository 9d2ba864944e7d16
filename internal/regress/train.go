//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package regress

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/evaluate"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// TrainConfig selects and parameterizes a backend run.
type TrainConfig struct {
	Backend     string
	ValFraction float64
	Seed        uint64
}

// Result is the outcome of fitting a backend and predicting the test table.
type Result struct {
	Backend    string
	Validation *evaluate.Metrics
	Test       sales.Table
}

// TrainAndPredict fits the configured backend on the engineered training
// table and attaches PredictedQuantity to a copy of the test table.
func TrainAndPredict(ctx context.Context, cfg TrainConfig, train, test sales.Table) (Result, diag.List, error) {
	var diags diag.List

	model, err := Get(cfg.Backend)
	if err != nil {
		return Result{}, diags, err
	}

	full, err := BuildMatrix(train, true)
	if err != nil {
		return Result{}, diags, err
	}
	if dropped := train.Len() - full.Len(); dropped > 0 {
		diags.Warnf("model", diag.CodeUnknownClusterFit,
			"%d training rows with Unknown cluster excluded from fitting", dropped)
	}
	fitSet, valSet := Split(full, cfg.ValFraction, cfg.Seed)

	logging.Info().
		Str("backend", model.Name()).
		Int("train_rows", fitSet.Len()).
		Int("validation_rows", valSet.Len()).
		Msg("Fitting model")

	if err := model.Fit(ctx, fitSet, valSet); err != nil {
		return Result{}, diags, fmt.Errorf("failed to fit %s: %w", model.Name(), err)
	}

	res := Result{Backend: model.Name()}
	if valSet.Len() > 0 {
		pred, err := model.Predict(valSet.X)
		if err != nil {
			return Result{}, diags, fmt.Errorf("failed to predict validation set: %w", err)
		}
		m, err := evaluate.Compute(valSet.Y, pred)
		if err != nil {
			return Result{}, diags, err
		}
		res.Validation = &m
		logging.Info().
			Str("backend", model.Name()).
			Float64("mae", m.MAE).
			Float64("rmse", m.RMSE).
			Msg("Validation results")
	}

	testSet, err := BuildMatrix(test, false)
	if err != nil {
		return Result{}, diags, err
	}
	out := test.Clone()
	if testSet.Len() > 0 {
		pred, err := model.Predict(testSet.X)
		if err != nil {
			return Result{}, diags, fmt.Errorf("failed to predict test set: %w", err)
		}
		for k, row := range testSet.Rows {
			out.Records[row].PredictedQuantity = pred[k]
		}
	}
	res.Test = out.With(sales.ColPredicted)
	return res, diags, nil
}
