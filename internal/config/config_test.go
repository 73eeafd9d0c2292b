package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 20, c.Search.DefaultLimit)
	assert.Equal(t, 100, c.Search.MaxLimit)
	assert.Equal(t, 5, c.Search.MaxFetchesPerPage)
	assert.Equal(t, 5*time.Second, c.Search.FetchTimeout.Duration)
	assert.Equal(t, 200, c.Search.PreviewLength)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_DATA_HOME"), "gravyprompts", "templates.db"), c.Storage.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug = true

[server]
port = 9000
read_timeout = "2s"

[storage]
path = ":memory:"

[search]
max_limit = 50
default_limit = 80
fetch_timeout = "250ms"

[ratelimit]
requests_per_minute = 30
burst = 5
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Debug)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, 2*time.Second, c.Server.ReadTimeout.Duration)
	assert.Equal(t, 15*time.Second, c.Server.WriteTimeout.Duration)
	assert.Equal(t, ":memory:", c.Storage.Path)
	assert.Equal(t, 50, c.Search.MaxLimit)
	assert.Equal(t, 20, c.Search.DefaultLimit, "default above max falls back")
	assert.Equal(t, 250*time.Millisecond, c.Search.FetchTimeout.Duration)
	assert.Equal(t, 30, c.RateLimit.RequestsPerMinute)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[search]
fetch_timeout = "soon"
`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := &Config{Storage: StorageConfig{Path: filepath.Join(dir, "t.db")}}
	path := filepath.Join(dir, "sub", "config.toml")

	require.NoError(t, c.SaveTemplate(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Storage.Path, loaded.Storage.Path)
	assert.Equal(t, 120, loaded.RateLimit.RequestsPerMinute)
	assert.Equal(t, "X-User-ID", loaded.Server.UserHeader)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	c := &Config{Storage: StorageConfig{Path: "/tmp/x.db"}}
	c.applyDefaults()
	c.Search.FetchTimeout = Duration{time.Second}

	require.NoError(t, c.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestDefaultConfigPathEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/gravy.toml")
	p, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/gravy.toml", p)
}
