package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the dispatch core.
type Config struct {
	// Server configuration
	HTTPPort int    `env:"HELMSMAN_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Broker configuration
	Broker BrokerConfig

	// Executor configuration
	Executor ExecutorConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// BrokerConfig holds message broker and result backend configuration.
type BrokerConfig struct {
	URL              string `env:"HELMSMAN_BROKER_URL" envDefault:"redis://localhost:6379/0"`
	ResultBackendURL string `env:"HELMSMAN_RESULT_BACKEND_URL" envDefault:"redis://localhost:6379/1"`

	// PollTimeout bounds a single remote state lookup.
	PollTimeout time.Duration `env:"HELMSMAN_POLL_TIMEOUT" envDefault:"5s"`
}

// ExecutorConfig holds dispatch and reconciliation configuration.
type ExecutorConfig struct {
	// Parallelism caps concurrently in-flight tasks system-wide.
	Parallelism int `env:"HELMSMAN_PARALLELISM" envDefault:"32"`

	// QueueParallelism optionally caps in-flight tasks per named queue,
	// e.g. "default:16,bulk:4".
	QueueParallelism map[string]int `env:"HELMSMAN_QUEUE_PARALLELISM" envSeparator:"," envKeyValSeparator:":"`

	// SyncFanout is the number of concurrent state polls during one sync pass.
	SyncFanout int `env:"HELMSMAN_SYNC_FANOUT" envDefault:"8"`

	// DispatchFailureLimit is the number of consecutive failed broker
	// submissions tolerated before the executor surfaces a fatal error.
	DispatchFailureLimit int `env:"HELMSMAN_DISPATCH_FAILURE_LIMIT" envDefault:"5"`

	// DefaultQueue is used when the scheduler does not name one.
	DefaultQueue string `env:"HELMSMAN_DEFAULT_QUEUE" envDefault:"default"`

	// HeartbeatInterval paces the control loop in cmd/helmsman.
	HeartbeatInterval time.Duration `env:"HELMSMAN_HEARTBEAT_INTERVAL" envDefault:"5s"`
}

// TimeoutConfig holds shutdown timing configuration.
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"HELMSMAN_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Broker.URL == "" {
		return fmt.Errorf("broker URL is required")
	}
	if c.Broker.ResultBackendURL == "" {
		return fmt.Errorf("result backend URL is required")
	}
	if c.Broker.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive")
	}

	if c.Executor.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	for queue, limit := range c.Executor.QueueParallelism {
		if limit < 1 {
			return fmt.Errorf("queue parallelism for %q must be at least 1", queue)
		}
	}
	if c.Executor.SyncFanout < 1 {
		return fmt.Errorf("sync fanout must be at least 1")
	}
	if c.Executor.DispatchFailureLimit < 1 {
		return fmt.Errorf("dispatch failure limit must be at least 1")
	}
	if c.Executor.DefaultQueue == "" {
		return fmt.Errorf("default queue is required")
	}
	if c.Executor.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
