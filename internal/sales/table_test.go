//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sales_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/sales"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
)

func TestNewRecordForecastColumnsAbsent(t *testing.T) {
	r := testutil.Rec("2024-03-01", 1, 2, 3)
	assert.True(t, math.IsNaN(r.ExpectedQuantity))
	assert.True(t, math.IsNaN(r.PredictedQuantity))
	assert.Equal(t, sales.Unknown, r.ItemCluster)
}

func TestWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-01-01", 0}, // Monday
		{"2024-01-05", 4},
		{"2024-01-06", 5},
		{"2024-01-07", 6},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, sales.Weekday(testutil.Date(tt.date)))
		})
	}
}

func TestParseCluster(t *testing.T) {
	for _, c := range append([]sales.Cluster{sales.Unknown}, sales.Clusters...) {
		got, err := sales.ParseCluster(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := sales.ParseCluster("Glacial")
	assert.Error(t, err)
}

func TestSortByKeyAndSeries(t *testing.T) {
	tbl := sales.NewTable("t", []sales.Record{
		testutil.Rec("2024-01-03", 2, 1, 1),
		testutil.Rec("2024-01-02", 1, 2, 1),
		testutil.Rec("2024-01-01", 2, 1, 1),
		testutil.Rec("2024-01-01", 1, 2, 1),
		testutil.Rec("2024-01-05", 1, 1, 1),
	})
	assert.False(t, tbl.IsSortedByKey())

	tbl.SortByKey()
	require.True(t, tbl.IsSortedByKey())

	spans := tbl.Series()
	assert.Equal(t, [][2]int{{0, 1}, {1, 3}, {3, 5}}, spans)
	assert.Equal(t, 1, tbl.Records[0].Item)
	assert.Equal(t, testutil.Date("2024-01-01"), tbl.Records[3].Date)
}

func TestSeriesEmpty(t *testing.T) {
	assert.Nil(t, sales.NewTable("empty", nil).Series())
}

func TestCloneIsIndependent(t *testing.T) {
	orig := sales.NewTable("t", testutil.Daily("2024-01-01", 1, 1, 4, 5)).With(sales.ColPromotion)
	cp := orig.Clone()
	cp.Records[0].Quantity = 99

	assert.Equal(t, 4, orig.Records[0].Quantity)
	assert.True(t, cp.Has(sales.ColPromotion))
}

func TestRequirePromotion(t *testing.T) {
	tbl := sales.NewTable("t", nil)
	assert.ErrorIs(t, tbl.RequirePromotion(), sales.ErrNotTagged)
	assert.NoError(t, tbl.With(sales.ColPromotion).RequirePromotion())
}

func TestFilterKeepsColumns(t *testing.T) {
	tbl := sales.NewTable("t", testutil.Daily("2024-01-01", 1, 1, 1, 2, 3, 4)).
		With(sales.ColPromotion | sales.ColClusters)
	even := tbl.Filter(func(r *sales.Record) bool { return r.Quantity%2 == 0 })

	assert.Equal(t, 2, even.Len())
	assert.True(t, even.Has(sales.ColPromotion|sales.ColClusters))
	assert.Equal(t, "t", even.Name)
}

func TestDateRange(t *testing.T) {
	_, _, ok := sales.NewTable("t", nil).DateRange()
	assert.False(t, ok)

	tbl := sales.NewTable("t", []sales.Record{
		testutil.Rec("2024-02-10", 1, 1, 1),
		testutil.Rec("2024-01-10", 1, 1, 1),
		testutil.Rec("2024-03-10", 1, 1, 1),
	})
	lo, hi, ok := tbl.DateRange()
	require.True(t, ok)
	assert.Equal(t, testutil.Date("2024-01-10"), lo)
	assert.Equal(t, testutil.Date("2024-03-10"), hi)
}
