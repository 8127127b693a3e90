package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helmsman-wf/helmsman/internal/application/executor"
	"github.com/helmsman-wf/helmsman/internal/config"
	redisbroker "github.com/helmsman-wf/helmsman/pkg/adapters/broker/redis"
	"github.com/helmsman-wf/helmsman/pkg/adapters/metrics/prometheus"
	"github.com/helmsman-wf/helmsman/pkg/api/http"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting Helmsman dispatcher",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis clients for the broker queue and the result backend
	queueClient, err := newRedisClient(cfg.Broker.URL)
	if err != nil {
		logger.Fatal("failed to configure broker client", zap.Error(err))
	}

	resultClient, err := newRedisClient(cfg.Broker.ResultBackendURL)
	if err != nil {
		logger.Fatal("failed to configure result backend client", zap.Error(err))
	}

	ctx := context.Background()
	if err := queueClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	if err := resultClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to result backend", zap.Error(err))
	}
	logger.Info("connected to Redis",
		zap.String("broker", cfg.Broker.URL),
		zap.String("result_backend", cfg.Broker.ResultBackendURL))

	// Initialize adapters
	broker := redisbroker.NewBroker(queueClient, resultClient, cfg.Broker.PollTimeout, logger)

	metricsCollector := prometheus.NewCollector()

	// Initialize the executor
	exec := executor.New(broker, metricsCollector, logger, executor.Options{
		Parallelism:          cfg.Executor.Parallelism,
		QueueParallelism:     cfg.Executor.QueueParallelism,
		SyncFanout:           cfg.Executor.SyncFanout,
		DispatchFailureLimit: cfg.Executor.DispatchFailureLimit,
	})

	// Initialize the operational HTTP server
	httpServer := http.NewServer(&http.Config{
		Port:     cfg.HTTPPort,
		Executor: exec,
		Logger:   logger,
	})

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Run the heartbeat loop until shutdown
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		runHeartbeatLoop(heartbeatCtx, exec, cfg, logger)
	}()

	logger.Info("Helmsman dispatcher started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("parallelism", cfg.Executor.Parallelism),
		zap.Duration("heartbeat_interval", cfg.Executor.HeartbeatInterval))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	stopHeartbeat()
	<-heartbeatDone

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := exec.Shutdown(shutdownCtx, true); err != nil {
		logger.Error("executor shutdown error", zap.Error(err))
	}

	if err := queueClient.Close(); err != nil {
		logger.Error("broker client close error", zap.Error(err))
	}
	if err := resultClient.Close(); err != nil {
		logger.Error("result backend client close error", zap.Error(err))
	}

	logger.Info("Helmsman dispatcher shut down complete")
}

// runHeartbeatLoop drives dispatch and reconciliation on a fixed cadence,
// logging terminal outcomes as they drain.
func runHeartbeatLoop(ctx context.Context, exec *executor.Executor, cfg *config.Config, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.Executor.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := exec.Heartbeat(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Error("heartbeat failed", zap.Error(err))
			}

			for key, outcome := range exec.DrainEvents() {
				logger.Info("task finished",
					zap.String("task", key.String()),
					zap.String("state", string(outcome.State)),
					zap.String("detail", outcome.Detail))
			}
		}
	}
}

// newRedisClient builds a Redis client from a redis:// URL.
func newRedisClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
