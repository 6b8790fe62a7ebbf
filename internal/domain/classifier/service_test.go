package classifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

type stubBackend struct {
	readiness Readiness
	warmUps   int
	payloads  []map[string]float64
	resp      PredictionResponse
	err       error
}

func (b *stubBackend) PredictSingle(_ context.Context, payload map[string]float64) (PredictionResponse, error) {
	b.payloads = append(b.payloads, payload)
	return b.resp, b.err
}

func (b *stubBackend) WarmUp(context.Context) bool {
	b.warmUps++
	b.readiness = ReadinessReady
	return true
}

func (b *stubBackend) Readiness() Readiness {
	return b.readiness
}

func (b *stubBackend) ModelInfo(context.Context) (map[string]any, error) {
	if b.err != nil {
		return nil, b.err
	}
	return map[string]any{"model": "xgboost"}, nil
}

type logHistory struct {
	log *HistoryLog
}

func (h *logHistory) Append(_ context.Context, entry HistoryEntry) error {
	h.log.Record(entry)
	return nil
}

func (h *logHistory) Recent(_ context.Context, limit int) ([]HistoryEntry, error) {
	entries := h.log.Entries()
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (h *logHistory) Similar(context.Context, ParameterSet, int) ([]SimilarEntry, error) {
	return nil, errors.New("not supported")
}

type blobStorage struct {
	objects map[string][]byte
}

func (s *blobStorage) Put(_ context.Context, key string, data []byte, mimeType string) (StoredObject, error) {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (s *blobStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.objects[key])), nil
}

func (s *blobStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func newTestService(backend Backend, storage ObjectStorage, archive bool) (*service, *logHistory) {
	history := &logHistory{log: NewHistoryLog(DefaultHistoryLimit)}
	svc := NewService(Config{ArchiveExports: archive}, backend, history, storage, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, history
}

func TestService_ClassifyEarth(t *testing.T) {
	backend := &stubBackend{resp: PredictionResponse{Predictions: []PredictionItem{
		{Prediction: "CONFIRMED", Confidence: 0.87, Probabilities: map[string]float64{"CONFIRMED": 0.87}},
	}}}
	svc, history := newTestService(backend, nil, false)

	params := DefaultParameters()
	params.Optional = map[Field]Optional{SignalToNoise: Some(30)}
	resp, err := svc.Classify(context.Background(), params)
	require.NoError(t, err)

	require.Equal(t, 1, backend.warmUps)
	require.Len(t, backend.payloads, 1)
	require.InDelta(t, 365.25, backend.payloads[0]["pl_orbper"], 1e-9)
	require.InDelta(t, 30, backend.payloads[0]["koi_model_snr"], 1e-9)

	require.Equal(t, "CONFIRMED", resp.Result.PlanetType)
	require.InDelta(t, 87, resp.Result.Confidence, 1e-9)
	require.True(t, resp.HabitableZone.InZone)

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, resp.HistoryID, entries[0].ID)
	require.Equal(t, ModeSingle, entries[0].Mode)
	require.Equal(t, 1, history.log.Len())
}

func TestService_ClassifySkipsWarmUpWhenReady(t *testing.T) {
	backend := &stubBackend{readiness: ReadinessReady, resp: PredictionResponse{Predictions: []PredictionItem{{Prediction: "CANDIDATE", Confidence: 0.5}}}}
	svc, _ := newTestService(backend, nil, false)

	_, err := svc.Classify(context.Background(), DefaultParameters())
	require.NoError(t, err)
	require.Zero(t, backend.warmUps)
}

func TestService_ClassifyRejectsInvalidParameters(t *testing.T) {
	backend := &stubBackend{}
	svc, history := newTestService(backend, nil, false)

	params := DefaultParameters()
	params.PlanetRadius = 50
	_, err := svc.Classify(context.Background(), params)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	var validation ValidationErrors
	require.True(t, errors.As(err, &validation))
	require.Equal(t, PlanetRadius, validation[0].Parameter)

	params = DefaultParameters()
	params.Flags = map[Field]TriState{SignalToNoise: True}
	_, err = svc.Classify(context.Background(), params)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	require.Empty(t, backend.payloads)
	require.Zero(t, history.log.Len())
}

func TestService_ClassifyBackendFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		resp PredictionResponse
		code string
	}{
		{name: "network", err: &NetworkError{Hint: "Network error: Unable to connect to the API.", Err: errors.New("dial tcp")}, code: apperrors.CodeNetwork},
		{name: "request", err: &RequestError{Status: 500, Body: "model crashed"}, code: apperrors.CodeRequest},
		{name: "empty", code: apperrors.CodeRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &stubBackend{readiness: ReadinessReady, err: tc.err, resp: tc.resp}
			svc, history := newTestService(backend, nil, false)

			_, err := svc.Classify(context.Background(), DefaultParameters())
			require.Equal(t, tc.code, apperrors.CodeOf(err))
			require.Zero(t, history.log.Len())
		})
	}
}

func TestService_RequestErrorKeepsBody(t *testing.T) {
	backend := &stubBackend{readiness: ReadinessReady, err: &RequestError{Status: 422, Body: "missing pl_rade"}}
	svc, _ := newTestService(backend, nil, false)

	_, err := svc.Classify(context.Background(), DefaultParameters())
	require.Contains(t, err.Error(), "422 missing pl_rade")
}

func TestService_ExportArchives(t *testing.T) {
	storage := &blobStorage{}
	svc, _ := newTestService(&stubBackend{}, storage, true)

	export, err := svc.Export(context.Background(), ExportRequest{
		Inputs: DefaultParameters(),
		Result: PredictionResult{PlanetType: "CONFIRMED", Confidence: 87},
	})
	require.NoError(t, err)
	require.Equal(t, "exoplanet_prediction_1700000000000.csv", export.Filename)
	require.Equal(t, "exports/exoplanet_prediction_1700000000000.csv", export.StorageKey)
	require.Equal(t, export.Content, string(storage.objects[export.StorageKey]))
}

func TestService_StatusAndWarmUp(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(backend, nil, false)

	require.Equal(t, BackendStatus{Readiness: ReadinessOffline}, svc.Status())
	require.Equal(t, BackendStatus{Readiness: ReadinessReady, Ready: true}, svc.WarmUp(context.Background()))

	info, err := svc.ModelInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "xgboost", info["model"])
}

func TestService_SimilarWrapsStoreErrors(t *testing.T) {
	svc, _ := newTestService(&stubBackend{}, nil, false)
	_, err := svc.Similar(context.Background(), DefaultParameters(), 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
}
