//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package regress defines the pluggable regression backend contract and
// the built-in backends.
package regress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownBackend is returned when no backend is registered under a name.
var ErrUnknownBackend = errors.New("unknown model backend")

// Regressor is a model that can be fitted on a feature matrix and asked for
// quantity predictions.
type Regressor interface {
	// Name returns the backend identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Fit trains on train. val may be empty.
	Fit(ctx context.Context, train, val Dataset) error

	// Predict returns one quantity per feature row.
	Predict(X [][]float64) ([]float64, error)
}

var (
	registry = make(map[string]func() Regressor)
	mu       sync.RWMutex
)

// Register adds a backend constructor to the registry.
func Register(name string, constructor func() Regressor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = constructor
}

// Get returns a fresh, unfitted backend by name.
func Get(name string) (Regressor, error) {
	mu.RLock()
	defer mu.RUnlock()

	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return constructor(), nil
}

// List returns all registered backend names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	Register("ols", func() Regressor { return NewOLS(DefaultRidge) })
	Register("cluster-mean", func() Regressor { return NewClusterMean() })
}
