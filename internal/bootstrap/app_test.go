package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
)

type recordingProcessor struct {
	ids []uuid.UUID
	err error
}

func (p *recordingProcessor) Process(_ context.Context, id uuid.UUID) error {
	p.ids = append(p.ids, id)
	return p.err
}

func TestJobHandler_Dispatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := &recordingProcessor{err: errors.New("backend down")}
	handle := JobHandler(processor, logger)

	id := uuid.New()
	handle(context.Background(), batch.JobName, map[string]any{"job_id": id.String()})
	handle(context.Background(), "other_job", map[string]any{"job_id": uuid.NewString()})
	handle(context.Background(), batch.JobName, map[string]any{"job_id": "nope"})
	handle(context.Background(), batch.JobName, map[string]any{})

	require.Equal(t, []uuid.UUID{id}, processor.ids)
}
