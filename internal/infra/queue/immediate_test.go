package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestImmediateQueue_DeliversDetachedFromCaller(t *testing.T) {
	type delivery struct {
		name    string
		payload map[string]any
		ctxErr  error
	}
	got := make(chan delivery, 1)
	q := NewImmediateQueue(nil)
	q.SetHandler(func(ctx context.Context, name string, payload map[string]any) {
		got <- delivery{name: name, payload: payload, ctxErr: ctx.Err()}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Enqueue(ctx, "process_batch", map[string]any{"job_id": "abc"}))
	require.NoError(t, q.Close(context.Background()))

	d := <-got
	require.Equal(t, "process_batch", d.name)
	require.Equal(t, "abc", d.payload["job_id"])
	require.NoError(t, d.ctxErr)
}

func TestImmediateQueue_NoHandlerIsNoop(t *testing.T) {
	q := NewImmediateQueue(nil)
	require.NoError(t, q.Enqueue(context.Background(), "process_batch", "not a map"))
	require.NoError(t, q.Close(context.Background()))
}

func TestImmediateQueue_CloseCancelsJobsPastDeadline(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan error, 1)
	q := NewImmediateQueue(func(ctx context.Context, _ string, _ map[string]any) {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
	})
	require.NoError(t, q.Enqueue(context.Background(), "process_batch", map[string]any{"job_id": "abc"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	begin := time.Now()
	err := q.Close(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(begin), interruptGrace)
	require.ErrorIs(t, <-stopped, context.Canceled)
}

func TestImmediateQueue_CloseWaitsForFinishingJobs(t *testing.T) {
	finished := make(chan struct{})
	q := NewImmediateQueue(func(context.Context, string, map[string]any) {
		time.Sleep(10 * time.Millisecond)
		close(finished)
	})
	require.NoError(t, q.Enqueue(context.Background(), "process_batch", nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	select {
	case <-finished:
	default:
		t.Fatal("Close returned before the job finished")
	}
}
