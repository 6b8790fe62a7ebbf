package queue

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	batch.JobQueue
	SetHandler(handler Handler)
	// Close lets in-flight jobs finish until ctx is done, then cancels them.
	Close(ctx context.Context) error
}

// Handler executes a delivered job.
type Handler func(ctx context.Context, name string, payload map[string]any)

// interruptGrace is how long Close waits for cancelled jobs to record their
// state after the shutdown deadline.
const interruptGrace = 2 * time.Second

// ImmediateQueue runs the handler in a goroutine on enqueue.
type ImmediateQueue struct {
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup

	jobs   context.Context
	cancel context.CancelFunc
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	jobs, cancel := context.WithCancel(context.Background())
	return &ImmediateQueue{handler: handler, jobs: jobs, cancel: cancel}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue invokes the handler asynchronously. The job outlives the request
// that enqueued it, so the handler gets a context without its cancellation;
// it is cancelled by Close instead.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return nil
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(q.jobs, cancel)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer cancel()
		defer stop()
		handler(jobCtx, name, typed)
	}()
	return nil
}

// Close waits for in-flight jobs until ctx is done, then cancels them and
// waits at most interruptGrace more.
func (q *ImmediateQueue) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	defer q.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}
	q.cancel()
	timer := time.NewTimer(interruptGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
	return ctx.Err()
}

var _ HandlerQueue = (*ImmediateQueue)(nil)
