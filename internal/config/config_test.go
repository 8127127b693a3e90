package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Broker.URL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Broker.ResultBackendURL)
	assert.Equal(t, 5*time.Second, cfg.Broker.PollTimeout)
	assert.Equal(t, 32, cfg.Executor.Parallelism)
	assert.Equal(t, 8, cfg.Executor.SyncFanout)
	assert.Equal(t, 5, cfg.Executor.DispatchFailureLimit)
	assert.Equal(t, "default", cfg.Executor.DefaultQueue)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.ShutdownTimeout)
	assert.Empty(t, cfg.Executor.QueueParallelism)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HELMSMAN_PARALLELISM", "4")
	t.Setenv("HELMSMAN_QUEUE_PARALLELISM", "default:2,bulk:1")
	t.Setenv("HELMSMAN_POLL_TIMEOUT", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Executor.Parallelism)
	assert.Equal(t, map[string]int{"default": 2, "bulk": 1}, cfg.Executor.QueueParallelism)
	assert.Equal(t, 250*time.Millisecond, cfg.Broker.PollTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero parallelism", func(c *Config) { c.Executor.Parallelism = 0 }},
		{"zero queue budget", func(c *Config) { c.Executor.QueueParallelism = map[string]int{"bulk": 0} }},
		{"zero fanout", func(c *Config) { c.Executor.SyncFanout = 0 }},
		{"zero failure limit", func(c *Config) { c.Executor.DispatchFailureLimit = 0 }},
		{"empty broker url", func(c *Config) { c.Broker.URL = "" }},
		{"empty result backend url", func(c *Config) { c.Broker.ResultBackendURL = "" }},
		{"zero poll timeout", func(c *Config) { c.Broker.PollTimeout = 0 }},
		{"empty default queue", func(c *Config) { c.Executor.DefaultQueue = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetHTTPAddr(t *testing.T) {
	cfg := &Config{HTTPPort: 9000}
	assert.Equal(t, ":9000", cfg.GetHTTPAddr())
}
