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
	"context"
	"errors"
)

type groupKey struct {
	cluster   int
	promotion bool
}

// ClusterMean predicts the mean training quantity of the row's
// (ItemCluster, Promotion) group, falling back to the global mean for
// groups never seen in training.
type ClusterMean struct {
	means  map[groupKey]float64
	global float64
}

// NewClusterMean creates an unfitted group-mean model.
func NewClusterMean() *ClusterMean {
	return &ClusterMean{}
}

// Name returns the backend identifier.
func (m *ClusterMean) Name() string {
	return "cluster-mean"
}

// Description returns a human-readable description.
func (m *ClusterMean) Description() string {
	return "Mean quantity per item cluster and promotion state"
}

// Fit computes the group means of train.
func (m *ClusterMean) Fit(ctx context.Context, train, val Dataset) error {
	if train.Len() == 0 {
		return errors.New("cluster-mean: empty training set")
	}
	sums := make(map[groupKey]float64)
	counts := make(map[groupKey]int)
	var total float64
	for i, row := range train.X {
		k := keyOf(row)
		sums[k] += train.Y[i]
		counts[k]++
		total += train.Y[i]
	}
	m.means = make(map[groupKey]float64, len(sums))
	for k, s := range sums {
		m.means[k] = s / float64(counts[k])
	}
	m.global = total / float64(train.Len())
	return ctx.Err()
}

// Predict looks up each row's group mean.
func (m *ClusterMean) Predict(X [][]float64) ([]float64, error) {
	if m.means == nil {
		return nil, errNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v, ok := m.means[keyOf(row)]
		if !ok {
			v = m.global
		}
		out[i] = v
	}
	return out, nil
}

func keyOf(row []float64) groupKey {
	return groupKey{cluster: int(row[colItemCluster]), promotion: row[colPromotion] != 0}
}
