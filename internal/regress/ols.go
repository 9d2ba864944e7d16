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
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultRidge is the L2 penalty applied to standardized coefficients.
const DefaultRidge = 1e-3

var errNotFitted = errors.New("model has not been fitted")

// OLS is a ridge-stabilised linear least squares model over standardized
// features.
type OLS struct {
	ridge     float64
	mean      []float64
	scale     []float64
	intercept float64
	coef      []float64
}

// NewOLS creates an unfitted linear model with the given ridge penalty.
func NewOLS(ridge float64) *OLS {
	return &OLS{ridge: ridge}
}

// Name returns the backend identifier.
func (m *OLS) Name() string {
	return "ols"
}

// Description returns a human-readable description.
func (m *OLS) Description() string {
	return "Ridge-stabilised linear least squares on standardized features"
}

// Fit solves the normal equations (Z'Z + ridge*I) b = Z'(y - mean(y)) where
// Z is the standardized feature matrix. val is not used for fitting.
func (m *OLS) Fit(ctx context.Context, train, val Dataset) error {
	if train.Len() == 0 {
		return errors.New("ols: empty training set")
	}
	p := len(train.X[0])
	n := train.Len()

	m.mean = make([]float64, p)
	m.scale = make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range train.X {
			col[i] = train.X[i][j]
		}
		mu, sd := stat.PopMeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j], m.scale[j] = mu, sd
	}
	m.intercept = stat.Mean(train.Y, nil)

	gram := mat.NewSymDense(p, nil)
	rhs := mat.NewVecDense(p, nil)
	z := make([]float64, p)
	for i, row := range train.X {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.standardize(row, z)
		y := train.Y[i] - m.intercept
		for a := 0; a < p; a++ {
			rhs.SetVec(a, rhs.AtVec(a)+z[a]*y)
			for b := a; b < p; b++ {
				gram.SetSym(a, b, gram.At(a, b)+z[a]*z[b])
			}
		}
	}
	for a := 0; a < p; a++ {
		gram.SetSym(a, a, gram.At(a, a)+m.ridge*float64(n))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.New("ols: normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, rhs); err != nil {
		return fmt.Errorf("ols: failed to solve normal equations: %w", err)
	}
	m.coef = make([]float64, p)
	for a := range m.coef {
		m.coef[a] = beta.AtVec(a)
	}
	return nil
}

// Predict returns the fitted linear combination for each row.
func (m *OLS) Predict(X [][]float64) ([]float64, error) {
	if m.coef == nil {
		return nil, errNotFitted
	}
	out := make([]float64, len(X))
	z := make([]float64, len(m.coef))
	for i, row := range X {
		if len(row) != len(m.coef) {
			return nil, fmt.Errorf("ols: row %d has %d features, want %d", i, len(row), len(m.coef))
		}
		m.standardize(row, z)
		out[i] = m.intercept + mat.Dot(mat.NewVecDense(len(z), z), mat.NewVecDense(len(m.coef), m.coef))
	}
	return out, nil
}

func (m *OLS) standardize(row, dst []float64) {
	for j, v := range row {
		dst[j] = (v - m.mean[j]) / m.scale[j]
	}
}
