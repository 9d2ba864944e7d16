//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package evaluate computes forecast accuracy metrics over the full test
// table and the held-out promotion window.
package evaluate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epsilon keeps MAPE finite when the true quantity is zero.
const Epsilon = 1e-9

var (
	// ErrNonComputable is returned for NRMSE when every true value in the
	// population is equal.
	ErrNonComputable = errors.New("nrmse is not computable: true values have zero range")

	// ErrEmpty is returned when a population has no scorable rows.
	ErrEmpty = errors.New("population is empty")
)

// Scale describes the spread of the true values.
type Scale struct {
	Mean float64
	Std  float64
	Max  float64
	Min  float64
}

// Metrics holds the accuracy of one prediction column over one population.
type Metrics struct {
	Count int
	MAE   float64
	RMSE  float64
	MAPE  float64
	Scale Scale

	nrmse        float64
	nrmseDefined bool
}

// NRMSE returns RMSE divided by the range of the true values, or
// ErrNonComputable when that range is zero.
func (m Metrics) NRMSE() (float64, error) {
	if !m.nrmseDefined {
		return math.NaN(), ErrNonComputable
	}
	return m.nrmse, nil
}

// Compute scores pred against truth. Both slices must have equal length.
func Compute(truth, pred []float64) (Metrics, error) {
	if len(truth) != len(pred) {
		return Metrics{}, errors.New("truth and prediction lengths differ")
	}
	if len(truth) == 0 {
		return Metrics{}, ErrEmpty
	}

	n := float64(len(truth))
	var absSum, sqSum, pctSum float64
	for i, t := range truth {
		d := math.Abs(t - pred[i])
		absSum += d
		sqSum += d * d
		pctSum += d / (t + Epsilon)
	}

	m := Metrics{
		Count: len(truth),
		MAE:   absSum / n,
		RMSE:  math.Sqrt(sqSum / n),
		MAPE:  pctSum / n * 100,
	}
	m.Scale.Mean, m.Scale.Std = stat.MeanStdDev(truth, nil)
	m.Scale.Max = floats.Max(truth)
	m.Scale.Min = floats.Min(truth)

	if span := m.Scale.Max - m.Scale.Min; span != 0 {
		m.nrmse = m.RMSE / span
		m.nrmseDefined = true
	}
	return m, nil
}
