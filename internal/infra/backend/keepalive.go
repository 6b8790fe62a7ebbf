package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

// WarmUpper is the part of the client the keep-alive loop needs.
type WarmUpper interface {
	WarmUp(ctx context.Context) bool
	Readiness() classifier.Readiness
}

// KeepAlive periodically probes the backend so it does not go to sleep.
type KeepAlive struct {
	client   WarmUpper
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKeepAlive builds a stopped keep-alive loop.
func NewKeepAlive(client WarmUpper, interval time.Duration, logger *slog.Logger) *KeepAlive {
	if interval <= 0 {
		interval = defaultKeepAliveInterval
	}
	return &KeepAlive{
		client:   client,
		interval: interval,
		logger:   logger.With("component", "backend.keepalive"),
	}
}

// Start runs an initial warm-up and then re-probes on every tick. Calling
// Start while running is a no-op.
func (k *KeepAlive) Start(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	k.cancel = cancel
	k.done = make(chan struct{})
	k.logger.Info("keep-alive started", "interval", k.interval.String())
	go k.loop(loopCtx, k.done)
}

// Stop halts the loop and waits for it to exit. Safe to call repeatedly.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	cancel, done := k.cancel, k.done
	k.cancel, k.done = nil, nil
	k.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	k.logger.Info("keep-alive stopped")
}

// Running reports whether the loop is active.
func (k *KeepAlive) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancel != nil
}

// IsReady reports the client's last observed readiness.
func (k *KeepAlive) IsReady() bool {
	return k.client.Readiness() == classifier.ReadinessReady
}

func (k *KeepAlive) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	k.client.WarmUp(ctx)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !k.client.WarmUp(ctx) {
				k.logger.Warn("keep-alive ping failed")
			}
		}
	}
}
