//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cluster buckets stores and items into Slow/Medium/Fast velocity
// tertiles computed once from non-promotional training history.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/pgEdge/pgedge-promocast/internal/diag"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

const (
	lowerQuantile = 0.33
	upperQuantile = 0.66
)

// ErrNoEntities is returned when a dimension has no non-promotional records
// to compute cutoffs from.
var ErrNoEntities = errors.New("no entities with non-promotional sales")

// Dimension selects which entity id a clustering runs over.
type Dimension int

const (
	ByItem Dimension = iota
	ByStore
)

func (d Dimension) String() string {
	if d == ByStore {
		return "store"
	}
	return "item"
}

func (d Dimension) id(r *sales.Record) int {
	if d == ByStore {
		return r.Store
	}
	return r.Item
}

// Assignment is a frozen entity to cluster mapping. It is computed once from
// the training table and applied to every other table by pure lookup.
type Assignment struct {
	Dimension Dimension
	Q33       float64
	Q66       float64
	Means     map[int]float64
	clusters  map[int]sales.Cluster
}

// Compute derives the cutoffs and the mapping for dim from the
// non-promotional records of t.
func Compute(t sales.Table, dim Dimension) (*Assignment, error) {
	if err := t.RequirePromotion(); err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i := range t.Records {
		r := &t.Records[i]
		if r.Promotion {
			continue
		}
		id := dim.id(r)
		sums[id] += float64(r.Quantity)
		counts[id]++
	}
	if len(sums) == 0 {
		return nil, fmt.Errorf("%s clustering: %w", dim, ErrNoEntities)
	}

	means := make(map[int]float64, len(sums))
	dist := make([]float64, 0, len(sums))
	for id, s := range sums {
		m := s / float64(counts[id])
		means[id] = m
		dist = append(dist, m)
	}
	slices.Sort(dist)

	a := &Assignment{
		Dimension: dim,
		Q33:       Quantile(dist, lowerQuantile),
		Q66:       Quantile(dist, upperQuantile),
		Means:     means,
		clusters:  make(map[int]sales.Cluster, len(means)),
	}
	for id, m := range means {
		a.clusters[id] = a.Bucket(m)
	}

	logging.Info().
		Str("dimension", dim.String()).
		Int("entities", len(means)).
		Float64("slow_max", a.Q33).
		Float64("medium_max", a.Q66).
		Msg("Computed cluster thresholds")

	return a, nil
}

// Bucket classifies a mean against the frozen cutoffs. Ties resolve to the
// slower bucket.
func (a *Assignment) Bucket(mean float64) sales.Cluster {
	switch {
	case mean <= a.Q33:
		return sales.Slow
	case mean <= a.Q66:
		return sales.Medium
	default:
		return sales.Fast
	}
}

// Lookup returns the cluster of id, or Unknown if id was not seen during
// training.
func (a *Assignment) Lookup(id int) sales.Cluster {
	if a == nil {
		return sales.Unknown
	}
	return a.clusters[id]
}

// Len returns the number of assigned entities.
func (a *Assignment) Len() int {
	return len(a.clusters)
}

// Counts returns the number of entities per cluster.
func (a *Assignment) Counts() map[sales.Cluster]int {
	out := make(map[sales.Cluster]int, 3)
	for _, c := range a.clusters {
		out[c]++
	}
	return out
}

// Apply returns a copy of t with ItemCluster and StoreCluster attached from
// the two frozen assignments. Entities missing from an assignment resolve to
// Unknown and are reported as warnings.
func Apply(t sales.Table, items, stores *Assignment) (sales.Table, diag.List) {
	out := t.Clone()
	unseenItems := make(map[int]struct{})
	unseenStores := make(map[int]struct{})
	for i := range out.Records {
		r := &out.Records[i]
		r.ItemCluster = items.Lookup(r.Item)
		r.StoreCluster = stores.Lookup(r.Store)
		if r.ItemCluster == sales.Unknown {
			unseenItems[r.Item] = struct{}{}
		}
		if r.StoreCluster == sales.Unknown {
			unseenStores[r.Store] = struct{}{}
		}
	}

	var diags diag.List
	if n := len(unseenItems); n > 0 {
		diags.Warnf("cluster", diag.CodeUnseenEntity,
			"%s: %d items have no training cluster; assigned Unknown", t.Name, n)
	}
	if n := len(unseenStores); n > 0 {
		diags.Warnf("cluster", diag.CodeUnseenEntity,
			"%s: %d stores have no training cluster; assigned Unknown", t.Name, n)
	}
	return out.With(sales.ColClusters), diags
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between the two nearest ranks at position (n-1)*p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
