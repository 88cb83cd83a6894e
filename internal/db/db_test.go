package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemory(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	assert.NoError(t, db.Ping())
}

func TestMigrationsApply(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv_entries'").Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "kv_entries", tableName)
}

func TestOpenFileIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phototasks.db")

	first, err := Open(path)
	require.NoError(t, err)
	_, err = first.Exec("INSERT INTO kv_entries (key, value) VALUES ('tasks', '[]')")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening must not re-run migrations or lose data.
	second, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, second.Close()) })

	var value string
	require.NoError(t, second.QueryRow("SELECT value FROM kv_entries WHERE key = 'tasks'").Scan(&value))
	assert.Equal(t, "[]", value)
}
