//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

const fileSuffix = ".features.csv"

// FileStore keeps one CSV file per cache key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file cache requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileSuffix)
}

// Load reads the cached table for key.
func (s *FileStore) Load(ctx context.Context, key string) ([]sales.Record, bool, error) {
	f, err := os.Open(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache header: %w", err)
	}
	if !slices.Equal(header, columns) {
		return nil, false, fmt.Errorf("cache file %s has an unexpected layout", s.path(key))
	}

	var records []sales.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("line %d: %w", line, err)
		}
		r, err := decodeRecord(row)
		if err != nil {
			return nil, false, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, r)
	}
	return records, true, ctx.Err()
}

// Save writes records under key, replacing any previous file atomically.
func (s *FileStore) Save(ctx context.Context, key string, records []sales.Record) error {
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(columns); err != nil {
		tmp.Close()
		return err
	}
	for i := range records {
		if err := cw.Write(encodeRecord(records[i])); err != nil {
			tmp.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// Purge removes every cache file in the directory.
func (s *FileStore) Purge(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileSuffix))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
