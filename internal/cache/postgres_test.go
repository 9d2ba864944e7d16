//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Run with: go test -tags=integration ./internal/cache/...
// Set PGEDGE_TEST_CONN to override the connection string.

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-promocast/internal/db"
	"github.com/pgEdge/pgedge-promocast/internal/testutil"
	"github.com/pgEdge/pgedge-promocast/pkg/version"
)

func TestPostgresStore(t *testing.T) {
	connStr := testutil.NewTestDB(t, "cache")

	s, err := OpenPostgres(context.Background(), connStr, "run-1")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestPostgresStoreMetadata(t *testing.T) {
	ctx := context.Background()
	connStr := testutil.NewTestDB(t, "cache_meta")

	s, err := OpenPostgres(ctx, connStr, "run-42")
	require.NoError(t, err)
	defer s.Close()

	exists, err := db.MetadataExists(ctx, s.pool)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Save(ctx, "train-abc", sampleRecords()))
	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "train-abc", entries[0].Key)
	assert.Equal(t, 3, entries[0].Rows)
	assert.Equal(t, "run-42", entries[0].RunID)
	assert.Equal(t, version.Short(), entries[0].Version)
}

func TestPostgresStoreIgnoresIncompleteEntry(t *testing.T) {
	ctx := context.Background()
	connStr := testutil.NewTestDB(t, "cache_partial")

	s, err := OpenPostgres(ctx, connStr, "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, "train-abc", sampleRecords()))
	_, err = s.pool.Exec(ctx, `DELETE FROM promocast_feature_cache WHERE seq = 0`)
	require.NoError(t, err)

	_, ok, err := s.Load(ctx, "train-abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "", "")
	assert.Error(t, err)
}
