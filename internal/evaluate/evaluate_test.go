//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package evaluate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/evaluate"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
)

func TestCompute(t *testing.T) {
	m, err := evaluate.Compute([]float64{1, 2, 3}, []float64{2, 2, 5})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Count)
	assert.InDelta(t, 1, m.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), m.RMSE, 1e-12)
	assert.InDelta(t, (1.0+0+2.0/3)/3*100, m.MAPE, 1e-6)
	assert.InDelta(t, 2, m.Scale.Mean, 1e-12)
	assert.InDelta(t, 1, m.Scale.Std, 1e-12)
	assert.Equal(t, 3.0, m.Scale.Max)
	assert.Equal(t, 1.0, m.Scale.Min)

	nrmse, err := m.NRMSE()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3)/2, nrmse, 1e-12)
}

func TestComputePerfect(t *testing.T) {
	m, err := evaluate.Compute([]float64{4, 8}, []float64{4, 8})
	require.NoError(t, err)
	assert.Zero(t, m.MAE)
	assert.Zero(t, m.RMSE)
	assert.Zero(t, m.MAPE)
}

func TestComputeZeroTruthStaysFinite(t *testing.T) {
	m, err := evaluate.Compute([]float64{0, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.False(t, math.IsInf(m.MAPE, 0))
	assert.Greater(t, m.MAPE, 1e9)
}

func TestComputeConstantTruth(t *testing.T) {
	m, err := evaluate.Compute([]float64{5, 5, 5}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, m.MAE, 1e-12)

	v, err := m.NRMSE()
	assert.ErrorIs(t, err, evaluate.ErrNonComputable)
	assert.True(t, math.IsNaN(v))
}

func TestComputeErrors(t *testing.T) {
	_, err := evaluate.Compute(nil, nil)
	assert.ErrorIs(t, err, evaluate.ErrEmpty)

	_, err = evaluate.Compute([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func withExpected(name string, qty []int, expected []float64) sales.Table {
	records := testutil.Daily("2024-06-10", 1, 1, qty...)
	for i := range records {
		records[i].ExpectedQuantity = expected[i]
	}
	return sales.NewTable(name, records).With(sales.ColPromotion | sales.ColExpected)
}

func TestEvaluate(t *testing.T) {
	full := withExpected("test", []int{1, 2, 3, 10}, []float64{2, 2, 5, 10})
	held := withExpected("test_heldout", []int{3, 10}, []float64{5, 10})

	rep, diags, err := evaluate.Evaluate(full, held, evaluate.Expected)
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.NotNil(t, rep.All)
	require.NotNil(t, rep.HeldOut)
	assert.Equal(t, 4, rep.All.Count)
	assert.InDelta(t, 0.75, rep.All.MAE, 1e-12)
	assert.InDelta(t, 1, rep.HeldOut.MAE, 1e-12)

	flat := rep.Flatten()
	assert.InDelta(t, 1, flat["mae"], 1e-12)
	assert.InDelta(t, 0.75, flat["mae_all"], 1e-12)
	for _, k := range []string{"mae", "rmse", "mape", "nrmse", "mae_all", "rmse_all", "mape_all", "nrmse_all"} {
		assert.Contains(t, flat, k)
	}
}

func TestEvaluateEmptyHeldOut(t *testing.T) {
	full := withExpected("test", []int{1, 2}, []float64{1, 2})
	held := sales.NewTable("test_heldout", nil)

	rep, diags, err := evaluate.Evaluate(full, held, evaluate.Expected)
	require.NoError(t, err)
	assert.Nil(t, rep.HeldOut)
	assert.NotNil(t, rep.All)
	assert.True(t, diags.HasCode(diag.CodeEmptyPopulation))

	flat := rep.Flatten()
	assert.NotContains(t, flat, "mae")
	assert.Contains(t, flat, "mae_all")
}

func TestEvaluateConstantHeldOut(t *testing.T) {
	full := withExpected("test", []int{1, 5, 5}, []float64{1, 4, 6})
	held := withExpected("test_heldout", []int{5, 5}, []float64{4, 6})

	rep, diags, err := evaluate.Evaluate(full, held, evaluate.Expected)
	require.NoError(t, err)
	assert.True(t, diags.HasCode(diag.CodeNRMSEUndefined))
	assert.NotContains(t, rep.Flatten(), "nrmse")
	assert.Contains(t, rep.Flatten(), "nrmse_all")
}

func TestEvaluateSkipsMissingPredictions(t *testing.T) {
	full := withExpected("test", []int{1, 2, 3}, []float64{1, math.NaN(), 3})
	held := sales.NewTable("test_heldout", nil)

	rep, diags, err := evaluate.Evaluate(full, held, evaluate.Expected)
	require.NoError(t, err)
	require.NotNil(t, rep.All)
	assert.Equal(t, 2, rep.All.Count)
	assert.Zero(t, rep.All.MAE)
	assert.True(t, diags.HasCode(diag.CodeMissingPrediction))
}

func TestEvaluateRequiresColumn(t *testing.T) {
	full := withExpected("test", []int{1}, []float64{1})
	_, _, err := evaluate.Evaluate(full, sales.NewTable("test_heldout", nil), evaluate.Predicted)
	assert.Error(t, err)
}

func TestColumnString(t *testing.T) {
	assert.Equal(t, "expected_quantity", evaluate.Expected.String())
	assert.Equal(t, "predicted_quantity", evaluate.Predicted.String())
}
