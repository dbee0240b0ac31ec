package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the cached value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM result_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO result_cache VALUES (?, ?, current_timestamp)`, key, value)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// ClearCache removes all cached results.
func (s *Store) ClearCache() error {
	_, err := s.db.Exec("DELETE FROM result_cache")
	return err
}
