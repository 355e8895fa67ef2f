package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("WHITEBOARD_CONFIG", "")
	t.Setenv("WHITEBOARD_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	return dir
}

func TestDefault(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "whiteboard", "whiteboard.db"), cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Kie.PollInterval.Duration)
	assert.Equal(t, 1000, cfg.Log.MaxEntries)
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":8080"

[kie]
poll_interval = "500ms"

[r2]
endpoint = "http://localhost:9000"

[log]
level = "debug"
json = true
`), 0o644))
	t.Setenv("WHITEBOARD_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Kie.PollInterval.Duration)
	assert.Equal(t, "http://localhost:9000", cfg.R2.Endpoint)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "https://api.kie.ai/api/v1/jobs", cfg.Kie.BaseURL, "untouched keys keep defaults")

	t.Setenv("WHITEBOARD_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/whiteboard")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/whiteboard", cfg.Store.DatabaseURL)
}

func TestLoad_BadDuration(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[kie]\npoll_interval = \"soon\"\n"), 0o644))
	t.Setenv("WHITEBOARD_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Server.Addr = ":4000"
	cfg.Canvas.Width = 1920
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("WHITEBOARD_TEST_VALUE=from-file\n"), 0o644))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("WHITEBOARD_TEST_VALUE"))
	os.Unsetenv("WHITEBOARD_TEST_VALUE")
}
