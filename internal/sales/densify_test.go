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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/sales"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
)

func TestDensify(t *testing.T) {
	tbl := sales.NewTable("train", []sales.Record{
		testutil.Rec("2024-01-01", 1, 1, 3),
		testutil.Rec("2024-01-01", 1, 1, 2),
		testutil.Rec("2024-01-04", 1, 1, 1),
		testutil.Rec("2024-01-02", 2, 5, 7),
	}).With(sales.ColPromotion)

	out := sales.Densify(tbl)

	// Two observed pairs times four days.
	require.Equal(t, 8, out.Len())
	assert.True(t, out.IsSortedByKey())
	assert.False(t, out.Has(sales.ColPromotion))
	assert.Equal(t, "train", out.Name)

	var got []int
	for _, r := range out.Records[:4] {
		got = append(got, r.Quantity)
	}
	assert.Equal(t, []int{5, 0, 0, 1}, got)

	got = got[:0]
	for _, r := range out.Records[4:] {
		got = append(got, r.Quantity)
	}
	assert.Equal(t, []int{0, 7, 0, 0}, got)
}

func TestDensifyEmpty(t *testing.T) {
	out := sales.Densify(sales.NewTable("empty", nil))
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, "empty", out.Name)
}
