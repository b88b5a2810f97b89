package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "userstate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsUnderFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
store:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":9464", cfg.Server.ListenAddress)
	assert.True(t, cfg.Collector.Enabled)
	assert.Equal(t, time.Minute, cfg.Collector.Interval())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
collector:
  interval_seconds: 5
`)
	t.Setenv("USERSTATE_STORE_BACKEND", "redis")
	t.Setenv("USERSTATE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("USERSTATE_COLLECTOR_INTERVAL_SECONDS", "30")
	t.Setenv("USERSTATE_COLLECTOR_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.Redis.URL)
	assert.Equal(t, 30, cfg.Collector.IntervalSeconds)
	assert.False(t, cfg.Collector.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "store: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("USERSTATE_NATS_BUCKET=from-dotenv\n"), 0o600))
	t.Chdir(dir)

	// Register restoration, then unset so the .env value is not shadowed.
	t.Setenv("USERSTATE_NATS_BUCKET", "")
	require.NoError(t, os.Unsetenv("USERSTATE_NATS_BUCKET"))

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Store.NATS.Bucket)
}

func TestMalformedDotEnvIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=1\n"), 0o600))
	t.Chdir(dir)

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading .env file")

	_, err = Load(writeConfig(t, "store:\n  backend: memory\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading .env file")
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FromEnv()
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "Backend"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis }, "store.redis.url"},
		{"nats without url", func(c *Config) { c.Store.Backend = BackendNATS }, "store.nats.url"},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres }, "store.postgres.url"},
		{"postgres bad table", func(c *Config) {
			c.Store.Backend = BackendPostgres
			c.Store.Postgres.URL = "postgres://localhost/db"
			c.Store.Postgres.Table = "prefs; drop table x"
		}, "not a valid identifier"},
		{"sqlite without path", func(c *Config) { c.Store.SQLite.Path = "" }, "store.sqlite.path"},
		{"zero interval allowed", func(c *Config) { c.Collector.IntervalSeconds = 0 }, ""},
		{"negative interval", func(c *Config) { c.Collector.IntervalSeconds = -1 }, "IntervalSeconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedactedJSONMasksURLs(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Store.Redis.URL = "redis://:secret@localhost:6379"
	cfg.Store.Postgres.URL = "postgres://user:pw@db/state"

	data, err := cfg.RedactedJSON()
	require.NoError(t, err)

	var out Config
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "****", out.Store.Redis.URL)
	assert.Equal(t, "****", out.Store.Postgres.URL)
	assert.Empty(t, out.Store.NATS.URL)
	assert.Equal(t, "redis://:secret@localhost:6379", cfg.Store.Redis.URL, "original must be untouched")
}
