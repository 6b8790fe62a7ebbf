package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

type jobEnvelope struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// ValkeyQueue persists jobs in a Valkey list and delivers them to a handler.
type ValkeyQueue struct {
	client      valkey.Client
	queueKey    string
	logger      *slog.Logger
	pollTimeout time.Duration
	jobTimeout  time.Duration

	mu         sync.Mutex
	handler    Handler
	stopPoll   context.CancelFunc
	cancelJobs context.CancelFunc
	done       chan struct{}
}

const (
	// defaultJobTimeout bounds one batch job.
	defaultJobTimeout = 15 * time.Minute
	requeueTimeout    = 2 * time.Second
)

// NewValkeyQueue constructs a Valkey-backed queue.
func NewValkeyQueue(client valkey.Client, queueKey string, logger *slog.Logger) *ValkeyQueue {
	if queueKey == "" {
		queueKey = "exoplanet:jobs"
	}
	return &ValkeyQueue{
		client:      client,
		queueKey:    queueKey,
		logger:      logger.With("component", "queue.valkey"),
		pollTimeout: 5 * time.Second,
		jobTimeout:  defaultJobTimeout,
	}
}

// SetHandler starts the worker loop that pops jobs and invokes the handler.
func (q *ValkeyQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	if handler == nil || q.stopPoll != nil {
		return
	}
	poll, stopPoll := context.WithCancel(context.Background())
	jobs, cancelJobs := context.WithCancel(context.Background())
	q.stopPoll, q.cancelJobs = stopPoll, cancelJobs
	q.done = make(chan struct{})
	go q.consume(poll, jobs, q.done)
}

// Enqueue pushes a job onto the queue.
func (q *ValkeyQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	encoded, err := json.Marshal(jobEnvelope{Name: name, Payload: typed})
	if err != nil {
		return err
	}
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(string(encoded)).Build()
	return q.client.Do(ctx, cmd).Error()
}

// Close stops popping jobs and lets the one in flight finish until ctx is
// done. A job still running then is cancelled and pushed back for the next
// worker.
func (q *ValkeyQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	stopPoll, cancelJobs, done := q.stopPoll, q.cancelJobs, q.done
	q.stopPoll, q.cancelJobs, q.done = nil, nil, nil
	q.mu.Unlock()
	if stopPoll == nil {
		return nil
	}
	stopPoll()
	defer cancelJobs()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}
	cancelJobs()
	timer := time.NewTimer(interruptGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		q.logger.Warn("valkey worker did not stop within grace period")
	}
	return ctx.Err()
}

func (q *ValkeyQueue) currentHandler() Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handler
}

func (q *ValkeyQueue) consume(poll, jobs context.Context, done chan<- struct{}) {
	defer close(done)
	for poll.Err() == nil {
		resp := q.client.Do(poll, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.ToArray()
		if err != nil {
			if !valkey.IsValkeyNil(err) && poll.Err() == nil {
				q.logger.Warn("valkey queue pop failed", "error", err)
				select {
				case <-poll.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		handler := q.currentHandler()
		if len(values) < 2 || handler == nil {
			continue
		}
		raw, err := values[1].ToString()
		if err != nil {
			q.logger.Warn("valkey queue payload decode failed", "error", err)
			continue
		}
		var job jobEnvelope
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.logger.Warn("valkey queue unmarshal failed", "error", err)
			continue
		}
		q.logger.Info("batch job dequeued", "name", job.Name)
		jobCtx, cancel := context.WithTimeout(jobs, q.jobTimeout)
		handler(jobCtx, job.Name, job.Payload)
		cancel()
		if jobs.Err() != nil {
			q.requeue(raw)
		}
	}
}

// requeue pushes an interrupted job to the consuming end of the list so it is
// the next one popped.
func (q *ValkeyQueue) requeue(raw string) {
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()
	cmd := q.client.B().Rpush().Key(q.queueKey).Element(raw).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		q.logger.Error("valkey queue requeue failed", "error", err)
		return
	}
	q.logger.Info("interrupted batch job requeued")
}

var _ HandlerQueue = (*ValkeyQueue)(nil)
