//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package evaluate

import (
	"errors"
	"fmt"
	"math"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Column selects which prediction column is scored.
type Column int

const (
	Expected Column = iota
	Predicted
)

func (c Column) String() string {
	if c == Predicted {
		return "predicted_quantity"
	}
	return "expected_quantity"
}

func (c Column) value(r *sales.Record) float64 {
	if c == Predicted {
		return r.PredictedQuantity
	}
	return r.ExpectedQuantity
}

func (c Column) required() sales.Columns {
	if c == Predicted {
		return sales.ColPredicted
	}
	return sales.ColExpected
}

// Report holds the metrics of one column over both populations. A nil
// population means evaluation was skipped because it had no rows.
type Report struct {
	Column  Column
	All     *Metrics
	HeldOut *Metrics
}

// Evaluate scores col over the full table and over the held-out subset.
// Rows whose prediction is NaN are excluded and reported.
func Evaluate(full, heldOut sales.Table, col Column) (Report, diag.List, error) {
	rep := Report{Column: col}
	var diags diag.List

	var err error
	rep.All, err = score(full, col, "all", &diags)
	if err != nil {
		return Report{}, diags, err
	}
	rep.HeldOut, err = score(heldOut, col, "held_out", &diags)
	if err != nil {
		return Report{}, diags, err
	}
	return rep, diags, nil
}

func score(t sales.Table, col Column, population string, diags *diag.List) (*Metrics, error) {
	if t.Len() > 0 && !t.Has(col.required()) {
		return nil, fmt.Errorf("table %s has no %s column", t.Name, col)
	}

	truth := make([]float64, 0, t.Len())
	pred := make([]float64, 0, t.Len())
	for i := range t.Records {
		r := &t.Records[i]
		v := col.value(r)
		if math.IsNaN(v) {
			continue
		}
		truth = append(truth, float64(r.Quantity))
		pred = append(pred, v)
	}
	if skipped := t.Len() - len(truth); skipped > 0 {
		diags.Warnf("evaluate", diag.CodeMissingPrediction,
			"%s/%s: %d rows have no %s and were excluded", t.Name, population, skipped, col)
	}

	m, err := Compute(truth, pred)
	if errors.Is(err, ErrEmpty) {
		diags.Warnf("evaluate", diag.CodeEmptyPopulation,
			"%s/%s: no rows to score; evaluation skipped", t.Name, population)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := m.NRMSE(); err != nil {
		diags.Warnf("evaluate", diag.CodeNRMSEUndefined,
			"%s/%s: all true values equal %g; nrmse undefined", t.Name, population, m.Scale.Max)
	}

	logging.Info().
		Str("table", t.Name).
		Str("population", population).
		Str("column", col.String()).
		Int("rows", m.Count).
		Float64("mae", m.MAE).
		Float64("rmse", m.RMSE).
		Float64("mape", m.MAPE).
		Msg("Evaluated forecast")

	return &m, nil
}

// Flatten renders the report as a flat metric map. The held-out population
// uses bare names and the full table uses an "_all" suffix. Unavailable
// populations and undefined NRMSE values are omitted.
func (r Report) Flatten() map[string]float64 {
	out := make(map[string]float64)
	add := func(m *Metrics, suffix string) {
		if m == nil {
			return
		}
		out["mae"+suffix] = m.MAE
		out["rmse"+suffix] = m.RMSE
		out["mape"+suffix] = m.MAPE
		if v, err := m.NRMSE(); err == nil {
			out["nrmse"+suffix] = v
		}
	}
	add(r.HeldOut, "")
	add(r.All, "_all")
	return out
}
