package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

type stubPredictor struct {
	mu        sync.Mutex
	payloads  []map[string]float64
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	predictFn func(payload map[string]float64) (classifier.PredictionResponse, error)
}

func (s *stubPredictor) PredictSingle(_ context.Context, payload map[string]float64) (classifier.PredictionResponse, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxFlight.Load()
		if cur <= prev || s.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	s.mu.Unlock()
	if s.predictFn != nil {
		return s.predictFn(payload)
	}
	return classifier.PredictionResponse{
		Predictions: []classifier.PredictionItem{{Prediction: "CONFIRMED", Confidence: 0.9}},
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeRows(n int) []classifier.BatchRow {
	rows := make([]classifier.BatchRow, n)
	for i := range rows {
		rows[i] = classifier.BatchRow{
			ID:     i + 1,
			Fields: map[classifier.Field]float64{classifier.OrbitalPeriod: float64(i + 1)},
		}
	}
	return rows
}

func TestRunner_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	predictor := &stubPredictor{
		predictFn: func(payload map[string]float64) (classifier.PredictionResponse, error) {
			period := payload["pl_orbper"]
			if period == 13 {
				return classifier.PredictionResponse{}, &classifier.RequestError{Status: 500, Body: "boom"}
			}
			return classifier.PredictionResponse{
				Predictions: []classifier.PredictionItem{{Prediction: "CANDIDATE", Confidence: period / 100}},
			}, nil
		},
	}
	runner := NewRunner(predictor, RunnerConfig{}, discardLogger())
	var sleeps []time.Duration
	runner.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	items := runner.Predict(context.Background(), makeRows(25))
	require.Len(t, items, 25)
	require.Equal(t, []time.Duration{DefaultChunkDelay, DefaultChunkDelay}, sleeps)
	require.LessOrEqual(t, predictor.maxFlight.Load(), int32(DefaultChunkSize))

	failed := 0
	for i, item := range items {
		require.Equal(t, i, item.RowIndex)
		if i == 12 {
			require.True(t, item.Failed())
			require.Zero(t, item.Confidence)
			require.Contains(t, item.Error, "500")
			failed++
			continue
		}
		require.Equal(t, "CANDIDATE", item.Prediction)
		require.InDelta(t, float64(i+1)/100, item.Confidence, 1e-9)
	}
	require.Equal(t, 1, failed)

	summary := classifier.Summarize(items)
	require.Equal(t, classifier.Summary{TotalRows: 25, SuccessfulPredictions: 24, FailedPredictions: 1}, summary)
}

func TestRunner_NoDelayForSingleChunk(t *testing.T) {
	runner := NewRunner(&stubPredictor{}, RunnerConfig{ChunkSize: 10}, discardLogger())
	runner.sleep = func(context.Context, time.Duration) error {
		t.Fatal("unexpected delay")
		return nil
	}
	items := runner.Predict(context.Background(), makeRows(10))
	require.Len(t, items, 10)
}

func TestRunner_CancelledDuringDelayFailsRemainingRows(t *testing.T) {
	predictor := &stubPredictor{}
	runner := NewRunner(predictor, RunnerConfig{ChunkSize: 2}, discardLogger())
	runner.sleep = func(context.Context, time.Duration) error {
		return context.Canceled
	}

	items := runner.Predict(context.Background(), makeRows(5))
	require.Len(t, items, 5)
	require.False(t, items[0].Failed())
	require.False(t, items[1].Failed())
	for _, item := range items[2:] {
		require.True(t, item.Failed())
		require.Equal(t, context.Canceled.Error(), item.Error)
	}
	require.Len(t, predictor.payloads, 2)
}

func TestRunner_RunMapsResults(t *testing.T) {
	runner := NewRunner(&stubPredictor{
		predictFn: func(map[string]float64) (classifier.PredictionResponse, error) {
			return classifier.PredictionResponse{}, errors.New("offline")
		},
	}, RunnerConfig{}, discardLogger())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	runner.now = func() time.Time { return fixed }

	results := runner.Run(context.Background(), makeRows(1))
	require.Len(t, results, 1)
	require.Equal(t, classifier.FailedLabel, results[0].PlanetType)
	require.Equal(t, "offline", results[0].Error)
	require.Equal(t, fixed, results[0].Timestamp)
	require.Equal(t, 1, results[0].ID)
}

func TestRowPayload_OnlyPresentFields(t *testing.T) {
	row := classifier.BatchRow{ID: 1, Fields: map[classifier.Field]float64{
		classifier.OrbitalPeriod: 3,
		classifier.SignalToNoise: 12,
	}}
	require.Equal(t, map[string]float64{"pl_orbper": 3, "koi_model_snr": 12}, RowPayload(row))
}
