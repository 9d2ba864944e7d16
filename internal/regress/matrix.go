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
	"fmt"
	"math/rand/v2"

	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// FeatureNames lists the feature matrix columns in order.
var FeatureNames = []string{
	"Store", "Item", "Promotion", "ItemCluster", "StoreCluster",
	"DayOfWeek", "Last7Avg", "Last30Avg", "LastSaleDayDiff",
	"PromoStartLag", "IsWeekend",
}

// Column indexes into a feature row.
const (
	colPromotion   = 2
	colItemCluster = 3
)

// Dataset is a feature matrix with its target vector. Rows maps each matrix
// row back to its index in the source table.
type Dataset struct {
	X    [][]float64
	Y    []float64
	Rows []int
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.X)
}

// BuildMatrix extracts the engineered feature columns of t. When
// dropUnknown is set, rows whose item or store cluster is Unknown are left
// out; otherwise Unknown is encoded as 0 like any other category code.
func BuildMatrix(t sales.Table, dropUnknown bool) (Dataset, error) {
	need := sales.ColPromotion | sales.ColClusters | sales.ColFeatures
	if !t.Has(need) {
		return Dataset{}, fmt.Errorf("table %s lacks engineered columns required for the feature matrix", t.Name)
	}

	ds := Dataset{
		X:    make([][]float64, 0, t.Len()),
		Y:    make([]float64, 0, t.Len()),
		Rows: make([]int, 0, t.Len()),
	}
	for i := range t.Records {
		r := &t.Records[i]
		if dropUnknown && (r.ItemCluster == sales.Unknown || r.StoreCluster == sales.Unknown) {
			continue
		}
		promo := 0.0
		if r.Promotion {
			promo = 1
		}
		ds.X = append(ds.X, []float64{
			float64(r.Store),
			float64(r.Item),
			promo,
			float64(r.ItemCluster),
			float64(r.StoreCluster),
			float64(r.DayOfWeek),
			r.Last7Avg,
			r.Last30Avg,
			float64(r.LastSaleDayDiff),
			float64(r.PromoStartLag),
			float64(r.IsWeekend),
		})
		ds.Y = append(ds.Y, float64(r.Quantity))
		ds.Rows = append(ds.Rows, i)
	}
	return ds, nil
}

// Split shuffles ds with a fixed seed and holds out valFraction of the rows
// for validation.
func Split(ds Dataset, valFraction float64, seed uint64) (train, val Dataset) {
	idx := make([]int, ds.Len())
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nVal := int(float64(len(idx)) * valFraction)
	if valFraction > 0 && nVal == 0 && len(idx) > 1 {
		nVal = 1
	}
	return subset(ds, idx[nVal:]), subset(ds, idx[:nVal])
}

func subset(ds Dataset, idx []int) Dataset {
	out := Dataset{
		X:    make([][]float64, len(idx)),
		Y:    make([]float64, len(idx)),
		Rows: make([]int, len(idx)),
	}
	for k, i := range idx {
		out.X[k] = ds.X[i]
		out.Y[k] = ds.Y[i]
		out.Rows[k] = ds.Rows[i]
	}
	return out
}
