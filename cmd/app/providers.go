package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	"github.com/yanqian/exoplanet-classifier/internal/infra/backend"
	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
	"github.com/yanqian/exoplanet-classifier/internal/infra/historystore"
	"github.com/yanqian/exoplanet-classifier/internal/infra/jobstore"
	"github.com/yanqian/exoplanet-classifier/internal/infra/queue"
	"github.com/yanqian/exoplanet-classifier/internal/infra/storage"
	httpiface "github.com/yanqian/exoplanet-classifier/internal/interface/http"
	"github.com/yanqian/exoplanet-classifier/pkg/logger"
	"github.com/yanqian/exoplanet-classifier/pkg/metrics"
)

func provideLoggerOptions(cfg *config.Config) logger.Options {
	return logger.Options{Level: cfg.Log.Level, File: cfg.Log.File}
}

func provideBackendConfig(cfg *config.Config) backend.Config {
	return backend.Config{
		Mode:              backend.Mode(cfg.Backend.Mode),
		BaseURL:           cfg.Backend.BaseURL,
		DevProxyURL:       cfg.Backend.DevProxyURL,
		RelayURL:          cfg.Backend.RelayURL,
		Timeout:           cfg.Backend.Timeout,
		WarmUpTimeout:     cfg.Backend.WarmUpTimeout,
		KeepAliveInterval: cfg.Backend.KeepAliveInterval,
		Breaker: backend.BreakerConfig{
			MaxRequests:         cfg.Backend.Breaker.MaxRequests,
			Interval:            cfg.Backend.Breaker.Interval,
			OpenTimeout:         cfg.Backend.Breaker.OpenTimeout,
			ConsecutiveFailures: cfg.Backend.Breaker.ConsecutiveFailures,
		},
	}
}

func provideKeepAlive(cfg backend.Config, client *backend.Client, logger *slog.Logger) *backend.KeepAlive {
	return backend.NewKeepAlive(client, cfg.KeepAliveInterval, logger)
}

func provideClassifierConfig(cfg *config.Config) classifier.Config {
	return classifier.Config{
		HistoryLimit:   cfg.History.Limit,
		ArchiveExports: cfg.Storage.ArchiveExports,
	}
}

func provideBatchConfig(cfg *config.Config) batch.Config {
	return batch.Config{
		Strategy:       batch.Strategy(cfg.Batch.Strategy),
		MaxFileBytes:   cfg.Batch.MaxFileBytes,
		ArchiveUploads: cfg.Storage.ArchiveUploads,
		ArchiveExports: cfg.Storage.ArchiveExports,
		Runner: batch.RunnerConfig{
			ChunkSize:  cfg.Batch.ChunkSize,
			ChunkDelay: cfg.Batch.ChunkDelay,
		},
	}
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.History.Redis.Enabled {
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg.History.Redis.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, using memory stores", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using memory stores", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using memory stores", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey enabled", "addr", cfg.History.Redis.Addr)
	return client, client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// provideHistoryStore prefers Postgres, then Valkey, then memory.
func provideHistoryStore(cfg *config.Config, pool *pgxpool.Pool, client valkey.Client, logger *slog.Logger) classifier.HistoryStore {
	limit := cfg.History.Limit
	if pool != nil {
		store := historystore.NewPostgresStore(pool, limit)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("history schema setup failed, trying next store", "error", err)
		} else {
			logger.Info("history postgres store enabled")
			return store
		}
	}
	if client != nil {
		logger.Info("history valkey store enabled")
		return historystore.NewValkeyStore(client, redisPrefix(cfg), limit)
	}
	logger.Info("history store using memory")
	return historystore.NewMemoryStore(limit)
}

// providePostgresPool returns nil when no DSN is set or the database is
// unreachable. The cleanup closes the pool.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		return nil, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, skipping postgres history", "error", err)
		return nil, noop
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, skipping postgres history", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, skipping postgres history", "error", err)
		pool.Close()
		return nil, noop
	}
	return pool, pool.Close
}

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) classifier.ObjectStorage {
	if !cfg.Storage.Enabled {
		return storage.NewMemoryStorage()
	}
	s3, err := storage.NewS3Storage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.Region, logger)
	if err != nil {
		logger.Error("failed to configure s3 storage, using memory storage", "error", err)
		return storage.NewMemoryStorage()
	}
	logger.Info("s3 storage enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	return s3
}

func provideJobStore(cfg *config.Config, client valkey.Client) batch.JobStore {
	if client == nil {
		return jobstore.NewMemoryStore()
	}
	return jobstore.NewValkeyStore(client, redisPrefix(cfg), cfg.Batch.JobTTL)
}

func provideJobQueue(cfg *config.Config, client valkey.Client, logger *slog.Logger) queue.HandlerQueue {
	if client == nil {
		return queue.NewImmediateQueue(nil)
	}
	return queue.NewValkeyQueue(client, cfg.Batch.QueueKey, logger)
}

func provideBatchQueue(q queue.HandlerQueue) batch.JobQueue {
	return q
}

func provideRelayHandler(cfg *config.Config, logger *slog.Logger) *httpiface.RelayHandler {
	if !cfg.Relay.Enabled {
		return nil
	}
	return httpiface.NewRelayHandler(cfg.Relay.Upstream, cfg.Relay.Timeout, logger)
}

func provideMetricsRegistry() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func redisPrefix(cfg *config.Config) string {
	if p := strings.TrimSpace(cfg.History.Redis.Prefix); p != "" {
		return p
	}
	return "exoplanet"
}
