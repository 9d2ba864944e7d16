//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cluster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/cluster"
	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
)

// itemsWithMeans builds a tagged table where item i+1 sells means[i] every
// day for three non-promotion days.
func itemsWithMeans(means ...int) sales.Table {
	var records []sales.Record
	for i, m := range means {
		records = append(records, testutil.Daily("2024-01-01", 1, i+1, m, m, m)...)
	}
	return sales.NewTable("train", records).With(sales.ColPromotion)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		p    float64
		want float64
	}{
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"min", []float64{1, 2, 3, 4}, 0, 1},
		{"max", []float64{1, 2, 3, 4}, 1, 4},
		{"single", []float64{7}, 0.33, 7},
		{"tertile", []float64{2, 20}, 0.33, 7.94},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cluster.Quantile(tt.data, tt.p), 1e-9)
		})
	}
	assert.True(t, math.IsNaN(cluster.Quantile(nil, 0.5)))
}

func TestComputeTwoItems(t *testing.T) {
	a, err := cluster.Compute(itemsWithMeans(2, 20), cluster.ByItem)
	require.NoError(t, err)

	assert.Equal(t, sales.Slow, a.Lookup(1))
	assert.Equal(t, sales.Fast, a.Lookup(2))
	assert.LessOrEqual(t, a.Q33, a.Q66)
}

func TestComputeTertiles(t *testing.T) {
	a, err := cluster.Compute(itemsWithMeans(1, 2, 3, 4, 5, 6, 7, 8, 9), cluster.ByItem)
	require.NoError(t, err)

	assert.InDelta(t, 3.64, a.Q33, 1e-9)
	assert.InDelta(t, 6.28, a.Q66, 1e-9)
	assert.Equal(t, 9, a.Len())

	want := []sales.Cluster{
		sales.Slow, sales.Slow, sales.Slow,
		sales.Medium, sales.Medium, sales.Medium,
		sales.Fast, sales.Fast, sales.Fast,
	}
	for i, c := range want {
		assert.Equal(t, c, a.Lookup(i+1), "item %d", i+1)
	}
	assert.Equal(t, map[sales.Cluster]int{sales.Slow: 3, sales.Medium: 3, sales.Fast: 3}, a.Counts())
}

func TestComputeAllEqualGoesSlow(t *testing.T) {
	a, err := cluster.Compute(itemsWithMeans(5, 5, 5, 5), cluster.ByItem)
	require.NoError(t, err)
	for id := 1; id <= 4; id++ {
		assert.Equal(t, sales.Slow, a.Lookup(id))
	}
}

func TestBucketTiesResolveSlower(t *testing.T) {
	a := &cluster.Assignment{Q33: 3, Q66: 6}
	assert.Equal(t, sales.Slow, a.Bucket(3))
	assert.Equal(t, sales.Medium, a.Bucket(3.0001))
	assert.Equal(t, sales.Medium, a.Bucket(6))
	assert.Equal(t, sales.Fast, a.Bucket(6.0001))
}

func TestComputeIgnoresPromotionRows(t *testing.T) {
	tbl := itemsWithMeans(2, 20)
	spike := testutil.Rec("2024-01-04", 1, 1, 1000)
	spike.Promotion = true
	tbl.Records = append(tbl.Records, spike)

	a, err := cluster.Compute(tbl, cluster.ByItem)
	require.NoError(t, err)
	assert.Equal(t, 2.0, a.Means[1])
	assert.Equal(t, sales.Slow, a.Lookup(1))
}

func TestComputeByStore(t *testing.T) {
	records := append(
		testutil.Daily("2024-01-01", 1, 1, 1, 1),
		testutil.Daily("2024-01-01", 2, 1, 30, 30)...,
	)
	a, err := cluster.Compute(sales.NewTable("train", records).With(sales.ColPromotion), cluster.ByStore)
	require.NoError(t, err)
	assert.Equal(t, sales.Slow, a.Lookup(1))
	assert.Equal(t, sales.Fast, a.Lookup(2))
}

func TestComputeErrors(t *testing.T) {
	_, err := cluster.Compute(sales.NewTable("train", testutil.Daily("2024-01-01", 1, 1, 1)), cluster.ByItem)
	assert.ErrorIs(t, err, sales.ErrNotTagged)

	allPromo := itemsWithMeans(1, 2)
	for i := range allPromo.Records {
		allPromo.Records[i].Promotion = true
	}
	_, err = cluster.Compute(allPromo, cluster.ByItem)
	assert.ErrorIs(t, err, cluster.ErrNoEntities)
}

func TestApply(t *testing.T) {
	train := itemsWithMeans(2, 20)
	items, err := cluster.Compute(train, cluster.ByItem)
	require.NoError(t, err)
	stores, err := cluster.Compute(train, cluster.ByStore)
	require.NoError(t, err)

	test := sales.NewTable("test", []sales.Record{
		testutil.Rec("2024-02-01", 1, 1, 4),
		testutil.Rec("2024-02-01", 1, 2, 4),
		testutil.Rec("2024-02-01", 9, 77, 4),
	}).With(sales.ColPromotion)

	out, diags := cluster.Apply(test, items, stores)
	require.True(t, out.Has(sales.ColClusters))
	assert.Equal(t, sales.Slow, out.Records[0].ItemCluster)
	assert.Equal(t, sales.Fast, out.Records[1].ItemCluster)
	assert.Equal(t, sales.Unknown, out.Records[2].ItemCluster)
	assert.Equal(t, sales.Unknown, out.Records[2].StoreCluster)
	assert.True(t, diags.HasCode(diag.CodeUnseenEntity))
	assert.Len(t, diags.Warnings(), 2)

	// Input untouched.
	assert.False(t, test.Has(sales.ColClusters))
	assert.Equal(t, sales.Unknown, test.Records[0].ItemCluster)
}

func TestApplyAllSeen(t *testing.T) {
	train := itemsWithMeans(2, 20)
	items, _ := cluster.Compute(train, cluster.ByItem)
	stores, _ := cluster.Compute(train, cluster.ByStore)

	_, diags := cluster.Apply(train, items, stores)
	assert.Empty(t, diags)
}

func TestLookupNilAssignment(t *testing.T) {
	var a *cluster.Assignment
	assert.Equal(t, sales.Unknown, a.Lookup(1))
}

func TestSummarize(t *testing.T) {
	train := itemsWithMeans(2, 20)
	items, _ := cluster.Compute(train, cluster.ByItem)
	stores, _ := cluster.Compute(train, cluster.ByStore)
	clustered, _ := cluster.Apply(train, items, stores)

	sums := cluster.Summarize(clustered, cluster.ByItem)
	require.Len(t, sums, 2)
	assert.Equal(t, sales.Slow, sums[0].Cluster)
	assert.Equal(t, 3, sums[0].Count)
	assert.InDelta(t, 2, sums[0].Mean, 1e-9)
	assert.InDelta(t, 0, sums[0].Std, 1e-9)
	assert.Equal(t, sales.Fast, sums[1].Cluster)
	assert.InDelta(t, 20, sums[1].Mean, 1e-9)

	// A single store lands in Slow.
	byStore := cluster.Summarize(clustered, cluster.ByStore)
	require.Len(t, byStore, 1)
	assert.Equal(t, 6, byStore[0].Count)
	assert.InDelta(t, 11, byStore[0].Mean, 1e-9)
}
