package classifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
	"github.com/yanqian/exoplanet-classifier/pkg/metrics"
	"github.com/yanqian/exoplanet-classifier/pkg/util"
)

// Config tunes the classifier service.
type Config struct {
	HistoryLimit   int
	ArchiveExports bool
}

// Service exposes the single-planet classification workflow.
type Service interface {
	Classify(ctx context.Context, params ParameterSet) (ClassifyResponse, error)
	History(ctx context.Context) ([]HistoryEntry, error)
	Similar(ctx context.Context, params ParameterSet, k int) ([]SimilarEntry, error)
	Export(ctx context.Context, req ExportRequest) (Export, error)
	Status() BackendStatus
	WarmUp(ctx context.Context) BackendStatus
	ModelInfo(ctx context.Context) (map[string]any, error)
}

// ClassifyResponse is returned for a successful classification.
type ClassifyResponse struct {
	HistoryID     uuid.UUID        `json:"history_id"`
	Result        PredictionResult `json:"result"`
	HabitableZone HabitableZone    `json:"habitable_zone"`
	Raw           PredictionItem   `json:"raw"`
}

// ExportRequest carries a single result to serialize.
type ExportRequest struct {
	Inputs ParameterSet     `json:"inputs"`
	Result PredictionResult `json:"result"`
}

// Export is a generated CSV download.
type Export struct {
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	StorageKey string `json:"storage_key,omitempty"`
}

// BackendStatus reports the advisory backend readiness.
type BackendStatus struct {
	Readiness Readiness `json:"readiness"`
	Ready     bool      `json:"ready"`
}

type service struct {
	cfg     Config
	backend Backend
	history HistoryStore
	storage ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the classifier domain.
func NewService(cfg Config, backend Backend, history HistoryStore, storage ObjectStorage, logger *slog.Logger) Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &service{
		cfg:     cfg,
		backend: backend,
		history: history,
		storage: storage,
		logger:  logger.With("component", "classifier.service"),
		now:     util.NowUTC,
	}
}

func (s *service) Classify(ctx context.Context, params ParameterSet) (ClassifyResponse, error) {
	if err := params.CheckFields(); err != nil {
		return ClassifyResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid parameters", err)
	}
	if errs := Validate(params); len(errs) > 0 {
		return ClassifyResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "parameters out of range", ValidationErrors(errs))
	}

	if state := s.backend.Readiness(); state != ReadinessReady {
		ready := s.backend.WarmUp(ctx)
		s.logger.Info("backend warm-up before prediction", "previous", state.String(), "ready", ready)
	}

	resp, err := s.backend.PredictSingle(ctx, params.Payload())
	metrics.ObservePrediction(string(ModeSingle), err)
	if err != nil {
		return ClassifyResponse{}, WrapBackendError(err)
	}
	if len(resp.Predictions) == 0 {
		return ClassifyResponse{}, apperrors.Wrap(apperrors.CodeRequest, "backend returned no predictions", nil)
	}

	item := resp.Predictions[0]
	result := MapSingle(item, params)
	entry := HistoryEntry{
		ID:        uuid.New(),
		Timestamp: s.now().UTC(),
		Inputs:    params.Clone(),
		Result:    result,
		Mode:      ModeSingle,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("history append failed", "error", err)
	}
	s.logger.Info("classification complete", "planet_type", result.PlanetType, "confidence", result.Confidence)

	return ClassifyResponse{
		HistoryID:     entry.ID,
		Result:        result,
		HabitableZone: HabitableZoneFor(params),
		Raw:           item,
	}, nil
}

func (s *service) History(ctx context.Context) ([]HistoryEntry, error) {
	entries, err := s.history.Recent(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load history", err)
	}
	return entries, nil
}

func (s *service) Similar(ctx context.Context, params ParameterSet, k int) ([]SimilarEntry, error) {
	if k <= 0 {
		k = s.cfg.HistoryLimit
	}
	matches, err := s.history.Similar(ctx, params, k)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to search history", err)
	}
	return matches, nil
}

func (s *service) Export(ctx context.Context, req ExportRequest) (Export, error) {
	at := s.now()
	content, err := ExportSingle(req.Inputs, req.Result, at)
	if err != nil {
		return Export{}, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to render export", err)
	}
	out := Export{Filename: ExportFilename("exoplanet_prediction", at), Content: content}
	out.StorageKey = ArchiveExport(ctx, s.storage, s.cfg.ArchiveExports, out, s.logger)
	return out, nil
}

func (s *service) Status() BackendStatus {
	state := s.backend.Readiness()
	return BackendStatus{Readiness: state, Ready: state == ReadinessReady}
}

func (s *service) WarmUp(ctx context.Context) BackendStatus {
	s.backend.WarmUp(ctx)
	return s.Status()
}

func (s *service) ModelInfo(ctx context.Context) (map[string]any, error) {
	info, err := s.backend.ModelInfo(ctx)
	if err != nil {
		return nil, WrapBackendError(err)
	}
	return info, nil
}

// ArchiveExport stores an export under exports/ and returns its key. Failures
// are logged; the download itself does not depend on the archive.
func ArchiveExport(ctx context.Context, storage ObjectStorage, enabled bool, export Export, logger *slog.Logger) string {
	if !enabled || storage == nil {
		return ""
	}
	obj, err := storage.Put(ctx, "exports/"+export.Filename, []byte(export.Content), "text/csv")
	if err != nil {
		logger.Warn("export archive failed", "filename", export.Filename, "error", err)
		return ""
	}
	return obj.Key
}

// WrapBackendError classifies backend failures so callers can tell transport
// problems from server rejections.
func WrapBackendError(err error) error {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return apperrors.Wrap(apperrors.CodeNetwork, netErr.Hint, netErr.Err)
	}
	if _, ok := AsRequestError(err); ok {
		return apperrors.Wrap(apperrors.CodeRequest, "backend rejected the request", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeNetwork, "prediction request did not complete", err)
	}
	return apperrors.Wrap(apperrors.CodeRequest, "prediction request failed", err)
}
