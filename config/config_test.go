package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "nats", cfg.Driver.Name)
	assert.Equal(t, 4, cfg.Driver.WorkerCount)
	assert.Equal(t, 1000, cfg.Driver.QueueCapacity)
	assert.Equal(t, 32, cfg.Driver.BatchSize)
	assert.Equal(t, time.Second, cfg.Driver.StopTimeout.Std())
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.Storage.NATS.URLs)
	assert.Equal(t, "preempt", cfg.Storage.Bucket)
	assert.Equal(t, MixConfig{Create: 1}, cfg.Load.Mix)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
driver:
  name: bench
  worker_count: 8
  queue_capacity: 500
  batch_size: 16
  poll_interval: 25ms
storage:
  nats:
    urls: ["nats://nats-1:4222", "nats://nats-2:4222"]
  bucket: bench-data
load:
  op_count: 100000
  rate_per_second: 2500
  mix:
    create: 3
    read: 7
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bench", cfg.Driver.Name)
	assert.Equal(t, 8, cfg.Driver.WorkerCount)
	assert.Equal(t, 500, cfg.Driver.QueueCapacity)
	assert.Equal(t, 16, cfg.Driver.BatchSize)
	assert.Equal(t, 25*time.Millisecond, cfg.Driver.PollInterval.Std())
	assert.Equal(t, []string{"nats://nats-1:4222", "nats://nats-2:4222"}, cfg.Storage.NATS.URLs)
	assert.Equal(t, "bench-data", cfg.Storage.Bucket)
	assert.EqualValues(t, 100000, cfg.Load.OpCount)
	assert.Equal(t, MixConfig{Create: 3, Read: 7}, cfg.Load.Mix)

	// Unset fields take defaults
	assert.Equal(t, 1_000_000, cfg.Driver.DownstreamCapacity)
	assert.Equal(t, 32, cfg.Load.RangeSize)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_NATS_HOST", "nats.internal")
	path := writeConfig(t, `
storage:
  nats:
    urls: ["nats://${TEST_NATS_HOST}:4222"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"nats://nats.internal:4222"}, cfg.Storage.NATS.URLs)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "driver: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `
driver:
  worker_count: -1
`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Driver.WorkerCount = -1 }},
		{"zero queue", func(c *Config) { c.Driver.QueueCapacity = -5 }},
		{"zero batch", func(c *Config) { c.Driver.BatchSize = -1 }},
		{"bad url", func(c *Config) { c.Storage.NATS.URLs = []string{"localhost"} }},
		{"bad replicas", func(c *Config) { c.Storage.Replicas = 7 }},
		{"negative rate", func(c *Config) { c.Load.RatePerSecond = -1 }},
		{"empty mix", func(c *Config) { c.Load.Mix = MixConfig{} }},
		{"negative mix weight", func(c *Config) { c.Load.Mix.Read = -1 }},
		{"bad port", func(c *Config) { c.Metrics.Port = 70000 }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	path := writeConfig(t, `
driver:
  poll_interval: 1500
  stop_timeout: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(1500), cfg.Driver.PollInterval.Std())
	assert.Equal(t, 2*time.Second, cfg.Driver.StopTimeout.Std())
}
