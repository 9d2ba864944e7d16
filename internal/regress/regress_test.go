//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package regress_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/regress"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
)

const engineered = sales.ColPromotion | sales.ColClusters | sales.ColFeatures

func TestRegistry(t *testing.T) {
	names := regress.List()
	assert.Contains(t, names, "ols")
	assert.Contains(t, names, "cluster-mean")

	m, err := regress.Get("ols")
	require.NoError(t, err)
	assert.Equal(t, "ols", m.Name())
	assert.NotEmpty(t, m.Description())

	_, err = regress.Get("xgboost")
	assert.ErrorIs(t, err, regress.ErrUnknownBackend)
}

func TestRegistryReturnsFreshInstances(t *testing.T) {
	a, err := regress.Get("cluster-mean")
	require.NoError(t, err)
	b, err := regress.Get("cluster-mean")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func record(date string, store, item, qty int, ic, sc sales.Cluster, promo bool) sales.Record {
	r := testutil.Rec(date, store, item, qty)
	r.ItemCluster = ic
	r.StoreCluster = sc
	r.Promotion = promo
	r.DayOfWeek = sales.Weekday(r.Date)
	return r
}

func TestBuildMatrix(t *testing.T) {
	tbl := sales.NewTable("train", []sales.Record{
		record("2024-01-01", 1, 1, 3, sales.Slow, sales.Fast, true),
		record("2024-01-02", 1, 2, 4, sales.Unknown, sales.Fast, false),
		record("2024-01-03", 2, 1, 5, sales.Slow, sales.Unknown, false),
	}).With(engineered)

	ds, err := regress.BuildMatrix(tbl, true)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Len(t, ds.X[0], len(regress.FeatureNames))
	assert.Equal(t, []float64{1, 1, 1, float64(sales.Slow), float64(sales.Fast)}, ds.X[0][:5])
	assert.Equal(t, []float64{3}, ds.Y)
	assert.Equal(t, []int{0}, ds.Rows)

	all, err := regress.BuildMatrix(tbl, false)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())
	assert.Equal(t, 0.0, all.X[1][3])

	_, err = regress.BuildMatrix(sales.NewTable("raw", nil).With(sales.ColPromotion), false)
	assert.Error(t, err)
}

func linearDataset(n int) regress.Dataset {
	var ds regress.Dataset
	for i := 0; i < n; i++ {
		x0 := float64(i % 7)
		x1 := float64((i * 3) % 11)
		ds.X = append(ds.X, []float64{x0, x1})
		ds.Y = append(ds.Y, 2*x0+3*x1+1)
		ds.Rows = append(ds.Rows, i)
	}
	return ds
}

func TestSplitDeterministic(t *testing.T) {
	ds := linearDataset(100)

	trainA, valA := regress.Split(ds, 0.1, 42)
	trainB, valB := regress.Split(ds, 0.1, 42)
	assert.Equal(t, 90, trainA.Len())
	assert.Equal(t, 10, valA.Len())
	assert.Equal(t, trainA.Rows, trainB.Rows)
	assert.Equal(t, valA.Rows, valB.Rows)

	_, valC := regress.Split(ds, 0.1, 7)
	assert.NotEqual(t, valA.Rows, valC.Rows)

	seen := make(map[int]bool)
	for _, r := range append(trainA.Rows, valA.Rows...) {
		seen[r] = true
	}
	assert.Len(t, seen, 100)
}

func TestSplitSmall(t *testing.T) {
	train, val := regress.Split(linearDataset(5), 0.1, 1)
	assert.Equal(t, 4, train.Len())
	assert.Equal(t, 1, val.Len())

	train, val = regress.Split(linearDataset(5), 0, 1)
	assert.Equal(t, 5, train.Len())
	assert.Zero(t, val.Len())
}

func TestOLSRecoversLinearFit(t *testing.T) {
	ds := linearDataset(200)
	m := regress.NewOLS(0)
	require.NoError(t, m.Fit(context.Background(), ds, regress.Dataset{}))

	pred, err := m.Predict([][]float64{{0, 0}, {3, 4}, {10, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 1, pred[0], 1e-6)
	assert.InDelta(t, 19, pred[1], 1e-6)
	assert.InDelta(t, 24, pred[2], 1e-6)
}

func TestOLSErrors(t *testing.T) {
	m := regress.NewOLS(regress.DefaultRidge)
	_, err := m.Predict([][]float64{{1, 2}})
	assert.Error(t, err)

	assert.Error(t, m.Fit(context.Background(), regress.Dataset{}, regress.Dataset{}))

	require.NoError(t, m.Fit(context.Background(), linearDataset(20), regress.Dataset{}))
	_, err = m.Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestClusterMean(t *testing.T) {
	ds := regress.Dataset{
		X: [][]float64{
			{1, 1, 0, 1, 1},
			{1, 1, 0, 1, 1},
			{1, 1, 1, 1, 1},
			{1, 2, 0, 3, 1},
		},
		Y: []float64{2, 4, 10, 20},
	}
	m := regress.NewClusterMean()
	_, err := m.Predict(ds.X)
	assert.Error(t, err)

	require.NoError(t, m.Fit(context.Background(), ds, regress.Dataset{}))
	pred, err := m.Predict([][]float64{
		{9, 9, 0, 1, 2},
		{9, 9, 1, 1, 2},
		{9, 9, 1, 3, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 10, 9}, pred)
}

func TestTrainAndPredict(t *testing.T) {
	var records []sales.Record
	for day := 1; day <= 9; day++ {
		date := testutil.Date("2024-01-01").AddDate(0, 0, day-1).Format("2006-01-02")
		records = append(records,
			record(date, 1, 1, 2, sales.Slow, sales.Slow, false),
			record(date, 1, 2, 20, sales.Fast, sales.Slow, false),
		)
	}
	records = append(records,
		record("2024-01-10", 1, 1, 8, sales.Slow, sales.Slow, true),
		record("2024-01-10", 1, 3, 99, sales.Unknown, sales.Slow, false),
	)
	train := sales.NewTable("train", records).With(engineered)

	test := sales.NewTable("test", []sales.Record{
		record("2024-02-01", 1, 1, 3, sales.Slow, sales.Slow, true),
		record("2024-02-01", 1, 2, 18, sales.Fast, sales.Slow, false),
		record("2024-02-01", 1, 4, 5, sales.Unknown, sales.Slow, false),
	}).With(engineered)

	res, diags, err := regress.TrainAndPredict(context.Background(),
		regress.TrainConfig{Backend: "cluster-mean", ValFraction: 0, Seed: 42}, train, test)
	require.NoError(t, err)

	assert.Equal(t, "cluster-mean", res.Backend)
	assert.Nil(t, res.Validation)
	assert.True(t, diags.HasCode(diag.CodeUnknownClusterFit))
	require.True(t, res.Test.Has(sales.ColPredicted))
	assert.Equal(t, 8.0, res.Test.Records[0].PredictedQuantity)
	assert.Equal(t, 20.0, res.Test.Records[1].PredictedQuantity)
	// Unknown never appeared in fitting, so the global mean is used.
	assert.InDelta(t, 206.0/19, res.Test.Records[2].PredictedQuantity, 1e-9)

	// Input untouched.
	assert.True(t, math.IsNaN(test.Records[0].PredictedQuantity))
}

func TestTrainAndPredictValidation(t *testing.T) {
	var records []sales.Record
	for day := 0; day < 40; day++ {
		date := testutil.Date("2024-01-01").AddDate(0, 0, day).Format("2006-01-02")
		records = append(records, record(date, 1, 1, 2+day%3, sales.Slow, sales.Slow, day%10 == 0))
	}
	train := sales.NewTable("train", records).With(engineered)

	res, _, err := regress.TrainAndPredict(context.Background(),
		regress.TrainConfig{Backend: "ols", ValFraction: 0.25, Seed: 1}, train, train)
	require.NoError(t, err)
	require.NotNil(t, res.Validation)
	assert.Equal(t, 10, res.Validation.Count)
	for _, r := range res.Test.Records {
		assert.False(t, math.IsNaN(r.PredictedQuantity))
	}
}

func TestTrainAndPredictUnknownBackend(t *testing.T) {
	tbl := sales.NewTable("train", nil).With(engineered)
	_, _, err := regress.TrainAndPredict(context.Background(), regress.TrainConfig{Backend: "nope"}, tbl, tbl)
	assert.ErrorIs(t, err, regress.ErrUnknownBackend)
}
