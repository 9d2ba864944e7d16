//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cluster

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Summary describes the quantity distribution of one cluster in a table.
type Summary struct {
	Cluster sales.Cluster
	Count   int
	Mean    float64
	Std     float64
}

// Summarize groups t by the cluster of dim and returns count, mean and
// sample standard deviation of Quantity, in Slow, Medium, Fast, Unknown
// order. Clusters without records are omitted.
func Summarize(t sales.Table, dim Dimension) []Summary {
	groups := make(map[sales.Cluster][]float64)
	for i := range t.Records {
		r := &t.Records[i]
		c := r.ItemCluster
		if dim == ByStore {
			c = r.StoreCluster
		}
		groups[c] = append(groups[c], float64(r.Quantity))
	}

	var out []Summary
	for _, c := range []sales.Cluster{sales.Slow, sales.Medium, sales.Fast, sales.Unknown} {
		q, ok := groups[c]
		if !ok {
			continue
		}
		mean, std := stat.MeanStdDev(q, nil)
		out = append(out, Summary{Cluster: c, Count: len(q), Mean: mean, Std: std})
	}
	return out
}

// LogSummaries writes the item and store summaries of t to the log.
func LogSummaries(label string, t sales.Table) {
	for _, dim := range []Dimension{ByItem, ByStore} {
		for _, s := range Summarize(t, dim) {
			logging.Info().
				Str("dataset", label).
				Str("dimension", dim.String()).
				Str("cluster", s.Cluster.String()).
				Int("count", s.Count).
				Float64("mean", s.Mean).
				Float64("std", s.Std).
				Msg("Cluster summary")
		}
	}
}
