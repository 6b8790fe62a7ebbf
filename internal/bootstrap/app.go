package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
	"github.com/yanqian/exoplanet-classifier/internal/infra/backend"
	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
	"github.com/yanqian/exoplanet-classifier/internal/infra/queue"
)

const shutdownTimeout = 10 * time.Second

// BatchProcessor runs a queued batch job.
type BatchProcessor interface {
	Process(ctx context.Context, id uuid.UUID) error
}

// App encapsulates the HTTP server lifecycle and the background workers.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	keepAlive *backend.KeepAlive
	queue     queue.HandlerQueue
}

// NewApp is used by Wire to build the runnable app. It attaches the batch
// processor to the job queue.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, keepAlive *backend.KeepAlive, jobs queue.HandlerQueue, processor BatchProcessor) *App {
	app := &App{
		cfg:       cfg,
		logger:    logger.With("component", "bootstrap"),
		server:    server,
		keepAlive: keepAlive,
		queue:     jobs,
	}
	jobs.SetHandler(JobHandler(processor, app.logger))
	return app
}

// JobHandler dispatches queue deliveries to the batch processor.
func JobHandler(processor BatchProcessor, logger *slog.Logger) queue.Handler {
	return func(ctx context.Context, name string, payload map[string]any) {
		if name != batch.JobName {
			logger.Warn("ignoring unknown job", "name", name)
			return
		}
		id, err := batch.ParseJobID(payload)
		if err != nil {
			logger.Error("invalid batch job payload", "error", err)
			return
		}
		if err := processor.Process(ctx, id); err != nil {
			logger.Error("batch job failed", "job_id", id, "error", err)
		}
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Backend.KeepAliveEnabled {
		a.keepAlive.Start(ctx)
	}
	defer a.stopWorkers()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "backend_mode", a.cfg.Backend.Mode)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// stopWorkers gives queued batch jobs shutdownTimeout to finish before they
// are interrupted.
func (a *App) stopWorkers() {
	a.keepAlive.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.queue.Close(ctx); err != nil {
		a.logger.Warn("batch jobs interrupted at shutdown", "error", err)
	}
	a.logger.Info("background workers stopped")
}
