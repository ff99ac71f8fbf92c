package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.filmscatalog", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout.Std())
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Cache.NetworkWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDB, "")

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().API.BaseURL, cfg.API.BaseURL)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
db_path: /tmp/films.db
api:
  token: abc
  timeout: 5s
cache:
  ttl: 1h
  network_workers: 2
server:
  addr: ":9000"
log:
  level: debug
  format: json
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/films.db", cfg.Database())
		assert.Equal(t, "abc", cfg.API.Token)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout.Std())
		assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
		assert.Equal(t, 2, cfg.Cache.NetworkWorkers)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, 64, cfg.Server.MaxConns)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, "config.toml", `
data_dir = "/var/lib/films"

[api]
base_url = "http://localhost:1234/3"

[cache]
ttl = "15m"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join("/var/lib/films", "catalog.db"), cfg.Database())
		assert.Equal(t, "http://localhost:1234/3", cfg.API.BaseURL)
		assert.Equal(t, 15*time.Minute, cfg.Cache.TTL.Std())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv(EnvAPIToken, "from-env")
		t.Setenv(EnvDB, "/tmp/env.db")

		path := writeFile(t, "config.yaml", "api:\n  token: from-file\n")
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.API.Token)
		assert.Equal(t, "/tmp/env.db", cfg.Database())
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.ini", "x=1"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.yaml", "cache:\n  ttl: soon\n"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.yaml", "log:\n  format: xml\n"))
		assert.Error(t, err)
	})
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
