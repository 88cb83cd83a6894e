package store

import (
	"context"
	"database/sql"
	"fmt"
)

// KVStore is a string key-value store backed by the kv_entries table.
type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value stored under key. The boolean is false when the key
// has never been set or was removed.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE key = ?
	`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}

	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}

	return nil
}
