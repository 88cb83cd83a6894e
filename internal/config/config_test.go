package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("PHOTOTASKS_CONFIG", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.PhotoPath)
	assert.Equal(t, "none", cfg.GeocoderBackend)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("PHOTOTASKS_CONFIG", "")
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("PHOTO_LOCAL_PATH", "/custom/photos")
	t.Setenv("GEOCODER_BACKEND", "nominatim")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "/custom/photos", cfg.PhotoPath)
	assert.Equal(t, "nominatim", cfg.GeocoderBackend)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phototasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7000"
photo_path: /srv/photos
log_level: debug
`), 0600))
	t.Setenv("PHOTOTASKS_CONFIG", path)
	t.Setenv("LISTEN_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	// Environment wins over the file, the file wins over defaults.
	assert.Equal(t, ":7001", cfg.ListenAddr)
	assert.Equal(t, "/srv/photos", cfg.PhotoPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Default().DBPath, cfg.DBPath)
}

func TestLoadConfigFileMissing(t *testing.T) {
	t.Setenv("PHOTOTASKS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unterminated"), 0600))
	t.Setenv("PHOTOTASKS_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
