//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package forecast implements the cluster-baseline-plus-lift estimator.
package forecast

import (
	"fmt"
	"slices"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// ClusterStats holds the training statistics of one item cluster. A field is
// only meaningful when its Has flag is set.
type ClusterStats struct {
	BaselineMean float64
	HasBaseline  bool
	PromoMean    float64
	HasPromo     bool
}

// Lift returns PromoMean - BaselineMean, which needs both means.
func (s ClusterStats) Lift() (float64, bool) {
	if !s.HasBaseline || !s.HasPromo {
		return 0, false
	}
	return s.PromoMean - s.BaselineMean, true
}

// LiftTable maps an item cluster to its training statistics. Records with
// an Unknown cluster never contribute.
type LiftTable map[sales.Cluster]ClusterStats

// ComputeLiftTable aggregates non-promotional and promotional mean quantity
// per item cluster over the training table.
func ComputeLiftTable(train sales.Table) (LiftTable, error) {
	if err := train.RequirePromotion(); err != nil {
		return nil, err
	}
	if !train.Has(sales.ColClusters) {
		return nil, fmt.Errorf("table %s has no cluster columns", train.Name)
	}

	type acc struct {
		sum   float64
		count int
	}
	var base, promo [sales.Fast + 1]acc
	for i := range train.Records {
		r := &train.Records[i]
		if r.ItemCluster == sales.Unknown {
			continue
		}
		a := &base[r.ItemCluster]
		if r.Promotion {
			a = &promo[r.ItemCluster]
		}
		a.sum += float64(r.Quantity)
		a.count++
	}

	lt := make(LiftTable)
	for _, c := range sales.Clusters {
		var s ClusterStats
		if n := base[c].count; n > 0 {
			s.BaselineMean, s.HasBaseline = base[c].sum/float64(n), true
		}
		if n := promo[c].count; n > 0 {
			s.PromoMean, s.HasPromo = promo[c].sum/float64(n), true
		}
		if s.HasBaseline || s.HasPromo {
			lt[c] = s
		}
	}

	for _, c := range sales.Clusters {
		s, ok := lt[c]
		if !ok {
			continue
		}
		lift, _ := s.Lift()
		logging.Info().
			Str("cluster", c.String()).
			Float64("baseline", s.BaselineMean).
			Float64("promo_mean", s.PromoMean).
			Float64("lift", lift).
			Msg("Cluster lift")
	}
	return lt, nil
}

// Expected returns BaselineMean + Lift for cluster c. Missing statistics
// contribute 0; the returned flags report which parts were missing.
func (lt LiftTable) Expected(c sales.Cluster) (value float64, missingBaseline, missingLift bool) {
	s := lt[c]
	if s.HasBaseline {
		value = s.BaselineMean
	} else {
		missingBaseline = true
	}
	if lift, ok := s.Lift(); ok {
		value += lift
	} else {
		missingLift = true
	}
	return value, missingBaseline, missingLift
}

// Forecast returns a copy of target with ExpectedQuantity attached. Clusters
// absent from the lift table fall back to a zero lift and, when the baseline
// is also absent, a zero baseline; each fallback is reported once per
// cluster.
func Forecast(target sales.Table, lt LiftTable) (sales.Table, diag.List) {
	out := target.Clone()
	missingLift := make(map[sales.Cluster]int)
	missingBase := make(map[sales.Cluster]int)

	for i := range out.Records {
		r := &out.Records[i]
		v, noBase, noLift := lt.Expected(r.ItemCluster)
		r.ExpectedQuantity = v
		if noLift {
			missingLift[r.ItemCluster]++
		}
		if noBase {
			missingBase[r.ItemCluster]++
		}
	}

	var diags diag.List
	for _, c := range sortedClusters(missingLift) {
		diags.Warnf("forecast", diag.CodeMissingLift,
			"%s: no lift for item cluster %s (%d rows); defaulting lift to 0",
			target.Name, c, missingLift[c])
	}
	for _, c := range sortedClusters(missingBase) {
		diags.Warnf("forecast", diag.CodeMissingBaseline,
			"%s: no baseline for item cluster %s (%d rows); defaulting baseline to 0",
			target.Name, c, missingBase[c])
	}

	logging.Info().
		Str("table", target.Name).
		Int("rows", out.Len()).
		Msg("Computed expected quantities")

	return out.With(sales.ColExpected), diags
}

func sortedClusters(m map[sales.Cluster]int) []sales.Cluster {
	keys := make([]sales.Cluster, 0, len(m))
	for c := range m {
		keys = append(keys, c)
	}
	slices.Sort(keys)
	return keys
}
