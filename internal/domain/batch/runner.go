package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

const (
	// DefaultChunkSize is the number of rows submitted concurrently.
	DefaultChunkSize = 10
	// DefaultChunkDelay separates consecutive chunks.
	DefaultChunkDelay = 500 * time.Millisecond
	// ProcessingMethod labels per-row batch responses.
	ProcessingMethod = "batch_single_predictions"
)

// RunnerConfig tunes chunking.
type RunnerConfig struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// Runner submits CSV rows as individual predictions: concurrently within a
// chunk, sequentially across chunks. A failing row never aborts the batch.
type Runner struct {
	predictor classifier.Predictor
	chunkSize int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	logger    *slog.Logger
}

// NewRunner builds a Runner. Zero values fall back to the defaults.
func NewRunner(predictor classifier.Predictor, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = DefaultChunkDelay
	}
	return &Runner{
		predictor: predictor,
		chunkSize: cfg.ChunkSize,
		delay:     cfg.ChunkDelay,
		sleep:     sleepContext,
		now:       time.Now,
		logger:    logger.With("component", "batch.runner"),
	}
}

// ChunkSize returns the configured chunk size.
func (r *Runner) ChunkSize() int {
	return r.chunkSize
}

// Predict returns one item per row in input order. Failed rows carry the
// FAILED sentinel, zero confidence and the error message.
func (r *Runner) Predict(ctx context.Context, rows []classifier.BatchRow) []classifier.PredictionItem {
	items := make([]classifier.PredictionItem, len(rows))
	chunks := (len(rows) + r.chunkSize - 1) / r.chunkSize

	for start := 0; start < len(rows); start += r.chunkSize {
		end := min(start+r.chunkSize, len(rows))
		if start > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				for i := start; i < len(rows); i++ {
					items[i] = failedItem(i, err)
				}
				r.logger.Warn("batch interrupted", "completed_rows", start, "error", err)
				break
			}
		}
		r.logger.Debug("batch chunk start", "chunk", start/r.chunkSize+1, "chunks", chunks)

		var g errgroup.Group
		g.SetLimit(r.chunkSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				items[i] = r.predictRow(ctx, i, rows[i])
				// Row failures are recorded in the item, never returned.
				return nil
			})
		}
		_ = g.Wait()
	}
	return items
}

// Run predicts every row and maps the outcome to display results.
func (r *Runner) Run(ctx context.Context, rows []classifier.BatchRow) []classifier.BatchResult {
	return classifier.MapBatch(r.Predict(ctx, rows), rows, r.now().UTC())
}

func (r *Runner) predictRow(ctx context.Context, index int, row classifier.BatchRow) classifier.PredictionItem {
	resp, err := r.predictor.PredictSingle(ctx, RowPayload(row))
	if err != nil {
		r.logger.Warn("batch row failed", "row", row.ID, "error", err)
		return failedItem(index, err)
	}
	if len(resp.Predictions) == 0 {
		return classifier.PredictionItem{
			RowIndex:   index,
			Prediction: classifier.FailedLabel,
			Error:      "backend returned no predictions",
		}
	}
	first := resp.Predictions[0]
	return classifier.PredictionItem{
		RowIndex:      index,
		Prediction:    first.Prediction,
		Confidence:    first.Confidence,
		Probabilities: first.Probabilities,
	}
}

// RowPayload maps a row to backend keys. Only present fields are sent.
func RowPayload(row classifier.BatchRow) map[string]float64 {
	out := make(map[string]float64, len(row.Fields))
	for f, v := range row.Fields {
		out[f.Abbreviation()] = v
	}
	return out
}

func failedItem(index int, err error) classifier.PredictionItem {
	return classifier.PredictionItem{
		RowIndex:   index,
		Prediction: classifier.FailedLabel,
		Confidence: 0,
		Error:      err.Error(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
