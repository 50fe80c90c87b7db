package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "7560", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9222, cfg.Engine.CDPPort)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Browse.DataDir)
	assert.Contains(t, cfg.Browse.SearchEngine, "%s")
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("LUMEN_PORT", "8999")
	t.Setenv("LUMEN_LOG_LEVEL", "debug")
	t.Setenv("LUMEN_SEARCH_ENGINE", "https://example.com/search?q=%s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8999", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "https://example.com/search?q=%s", cfg.Browse.SearchEngine)
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Equal(t, "7560", cfg.Server.Port)
}

func TestApplyFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.yaml")
	body := []byte("server:\n  port: \"9000\"\nbrowse:\n  search_engine: \"https://s.test/?q=%s\"\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg := Default()
	require.NoError(t, cfg.ApplyFile(path))

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://s.test/?q=%s", cfg.Browse.SearchEngine)
	// Untouched values survive the overlay.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestApplyFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml ["), 0o644))

	cfg := Default()
	assert.Error(t, cfg.ApplyFile(path))
}

func TestRemoteDebugURL(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.RemoteDebugURL(), "default config launches an embedded engine")

	cfg.Engine.CDPAddress = "127.0.0.1"
	assert.Equal(t, "http://127.0.0.1:9222", cfg.RemoteDebugURL())

	cfg.Engine.CDPPort = 9333
	assert.Equal(t, "http://127.0.0.1:9333", cfg.RemoteDebugURL())
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Browse.DataDir = "/tmp/lumen-test"
	assert.Equal(t, filepath.Join("/tmp/lumen-test", "lumen.db"), cfg.DatabasePath())
}
