package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
	"github.com/yanqian/exoplanet-classifier/pkg/metrics"
	"github.com/yanqian/exoplanet-classifier/pkg/util"
)

// Strategy selects how a batch reaches the backend.
type Strategy string

const (
	// StrategyPerRow submits every row as its own prediction.
	StrategyPerRow Strategy = "per_row"
	// StrategyUpload sends the whole file to the backend CSV endpoint.
	StrategyUpload Strategy = "upload"
)

// JobName is the queue name used for asynchronous batches.
const JobName = "process_batch"

// Config drives batch limits and behavior.
type Config struct {
	Strategy       Strategy
	MaxFileBytes   int64
	ArchiveUploads bool
	ArchiveExports bool
	Runner         RunnerConfig
}

// CSVUploader submits a whole CSV file in one request.
type CSVUploader interface {
	PredictCSV(ctx context.Context, filename string, data []byte) (classifier.PredictionResponse, error)
	SupportsUpload() bool
}

// JobStore persists batch jobs.
type JobStore interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id uuid.UUID) (Job, bool, error)
}

// JobQueue enqueues processing tasks.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// Upload is a received CSV file.
type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

// Insights is the derived chart data for a batch.
type Insights struct {
	Buckets []classifier.ConfidenceBucket `json:"confidence_buckets"`
	Scatter []classifier.ScatterPoint     `json:"scatter"`
}

// Report is the full outcome of a batch.
type Report struct {
	Response   classifier.PredictionResponse `json:"response"`
	Results    []classifier.BatchResult      `json:"results"`
	Summary    classifier.Summary            `json:"summary"`
	Insights   Insights                      `json:"insights"`
	StorageKey string                        `json:"storage_key,omitempty"`
}

// JobStatus tracks asynchronous batch progress.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	// JobStatusInterrupted marks a job stopped by worker shutdown. It carries
	// no report and is processed again on redelivery.
	JobStatusInterrupted JobStatus = "interrupted"
)

// Job is an asynchronous batch submission.
type Job struct {
	ID            uuid.UUID `json:"id"`
	Status        JobStatus `json:"status"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type,omitempty"`
	StorageKey    string    `json:"storage_key"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Report        *Report   `json:"report,omitempty"`
	FailureReason *string   `json:"failure_reason,omitempty"`
}

var errNoJobStore = apperrors.Wrap(apperrors.CodeStorage, "batch job store is not configured", nil)

// Service orchestrates synchronous and queued batch predictions.
type Service struct {
	cfg      Config
	runner   *Runner
	uploader CSVUploader
	jobs     JobStore
	queue    JobQueue
	storage  classifier.ObjectStorage
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg Config, predictor classifier.Predictor, uploader CSVUploader, jobs JobStore, queue JobQueue, storage classifier.ObjectStorage, logger *slog.Logger) *Service {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPerRow
	}
	return &Service{
		cfg:      cfg,
		runner:   NewRunner(predictor, cfg.Runner, logger),
		uploader: uploader,
		jobs:     jobs,
		queue:    queue,
		storage:  storage,
		logger:   logger.With("component", "batch.service"),
		now:      util.NowUTC,
	}
}

// NewSyncService constructs a Service for synchronous batches only. Enqueue
// reports a storage error.
func NewSyncService(cfg Config, predictor classifier.Predictor, uploader CSVUploader, logger *slog.Logger) *Service {
	cfg.ArchiveUploads, cfg.ArchiveExports = false, false
	return NewService(cfg, predictor, uploader, nil, nil, nil, logger)
}

// Submit runs a batch synchronously.
func (s *Service) Submit(ctx context.Context, upload Upload) (Report, error) {
	if err := s.checkUpload(upload); err != nil {
		return Report{}, err
	}
	var storageKey string
	if s.cfg.ArchiveUploads {
		storageKey = s.archiveUpload(ctx, uuid.New(), upload)
	}
	report, err := s.run(ctx, upload)
	if err != nil {
		return Report{}, err
	}
	report.StorageKey = storageKey
	return report, nil
}

// Enqueue stores the file and schedules it for background processing.
func (s *Service) Enqueue(ctx context.Context, upload Upload) (Job, error) {
	if err := s.checkUpload(upload); err != nil {
		return Job{}, err
	}
	if s.jobs == nil {
		return Job{}, errNoJobStore
	}
	if s.storage == nil {
		return Job{}, apperrors.Wrap(apperrors.CodeStorage, "object storage is not configured", nil)
	}
	now := s.now().UTC()
	job := Job{
		ID:        uuid.New(),
		Status:    JobStatusPending,
		FileName:  cleanFilename(upload.Filename),
		FileSize:  int64(len(upload.Content)),
		MimeType:  upload.MimeType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	obj, err := s.storage.Put(ctx, uploadKey(job.ID, job.FileName), upload.Content, "text/csv")
	if err != nil {
		return Job{}, apperrors.Wrap(apperrors.CodeStorage, "failed to store file", err)
	}
	job.StorageKey = obj.Key
	if err := s.jobs.Save(ctx, job); err != nil {
		return Job{}, apperrors.Wrap(apperrors.CodeStorage, "failed to persist job", err)
	}

	if s.queue != nil {
		payload := map[string]any{"job_id": job.ID.String()}
		if err := s.queue.Enqueue(ctx, JobName, payload); err != nil {
			s.logger.Warn("enqueue process_batch failed", "job_id", job.ID, "error", err)
		}
	}
	return job, nil
}

// Process runs a queued job and persists its outcome. State is written with a
// context detached from ctx so a cancelled worker still records where the job
// stopped.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	if s.jobs == nil {
		return errNoJobStore
	}
	s.logger.Info("process_batch start", "job_id", id)
	job, found, err := s.jobs.Get(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to load job", err)
	}
	if !found {
		return apperrors.Wrap(apperrors.CodeNotFound, "batch job not found", nil)
	}
	if job.Status == JobStatusCompleted {
		return nil
	}
	persist := context.WithoutCancel(ctx)
	job.Status = JobStatusProcessing
	job.FailureReason = nil
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Save(persist, job); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to update job", err)
	}

	content, err := s.readStored(ctx, job.StorageKey)
	if err != nil {
		if ctx.Err() != nil {
			return s.interrupt(persist, job, ctx.Err())
		}
		s.fail(persist, job, JobStatusFailed, "failed to read stored file")
		return apperrors.Wrap(apperrors.CodeStorage, "failed to read stored file", err)
	}
	report, err := s.run(ctx, Upload{Filename: job.FileName, MimeType: job.MimeType, Content: content})
	if ctx.Err() != nil {
		// Rows cut short by cancellation are not backend failures.
		return s.interrupt(persist, job, ctx.Err())
	}
	if err != nil {
		s.fail(persist, job, JobStatusFailed, err.Error())
		return err
	}
	report.StorageKey = job.StorageKey
	job.Report = &report
	job.Status = JobStatusCompleted
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Save(persist, job); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to finalize job", err)
	}
	s.logger.Info("process_batch complete", "job_id", id, "rows", report.Summary.TotalRows, "failed", report.Summary.FailedPredictions)
	return nil
}

func (s *Service) interrupt(ctx context.Context, job Job, cause error) error {
	s.logger.Warn("process_batch interrupted", "job_id", job.ID, "error", cause)
	s.fail(ctx, job, JobStatusInterrupted, "interrupted: "+cause.Error())
	return fmt.Errorf("batch job %s interrupted: %w", job.ID, cause)
}

// Job returns a stored job.
func (s *Service) Job(ctx context.Context, id uuid.UUID) (Job, error) {
	if s.jobs == nil {
		return Job{}, errNoJobStore
	}
	job, found, err := s.jobs.Get(ctx, id)
	if err != nil {
		return Job{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load job", err)
	}
	if !found {
		return Job{}, apperrors.Wrap(apperrors.CodeNotFound, "batch job not found", nil)
	}
	return job, nil
}

// Export renders the results of a completed job.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (classifier.Export, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		return classifier.Export{}, err
	}
	if job.Status != JobStatusCompleted || job.Report == nil {
		return classifier.Export{}, apperrors.Wrap(apperrors.CodeInvalidInput, "batch job has not completed", nil)
	}
	return s.ExportResults(ctx, job.Report.Results)
}

// ExportResults renders batch results as a CSV download.
func (s *Service) ExportResults(ctx context.Context, results []classifier.BatchResult) (classifier.Export, error) {
	at := s.now()
	content, err := classifier.ExportBatch(results)
	if err != nil {
		return classifier.Export{}, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to render export", err)
	}
	out := classifier.Export{Filename: classifier.ExportFilename("batch_predictions", at), Content: content}
	out.StorageKey = classifier.ArchiveExport(ctx, s.storage, s.cfg.ArchiveExports, out, s.logger)
	return out, nil
}

func (s *Service) run(ctx context.Context, upload Upload) (Report, error) {
	rows, err := Parse(string(upload.Content))
	if err != nil {
		return Report{}, apperrors.Wrap(apperrors.CodeFormat, "invalid CSV format", err)
	}

	var items []classifier.PredictionItem
	var resp classifier.PredictionResponse
	if s.useUpload() {
		resp, err = s.uploader.PredictCSV(ctx, upload.Filename, upload.Content)
		metrics.ObservePrediction(string(classifier.ModeBatch), err)
		if err != nil {
			return Report{}, classifier.WrapBackendError(err)
		}
		items = orderItems(resp.Predictions)
	} else {
		items = s.runner.Predict(ctx, rows)
		resp = classifier.PredictionResponse{
			Predictions: items,
			ProcessingInfo: map[string]any{
				"method":     ProcessingMethod,
				"file_name":  upload.Filename,
				"file_size":  len(upload.Content),
				"batch_size": s.runner.ChunkSize(),
			},
		}
	}

	summary := classifier.Summarize(items)
	resp.Summary = summary.AsMap()
	metrics.ObserveBatchRows(summary.SuccessfulPredictions, summary.FailedPredictions)

	results := classifier.MapBatch(items, rows, s.now().UTC())
	s.logger.Info("batch complete",
		"file_name", upload.Filename,
		"rows", summary.TotalRows,
		"failed", summary.FailedPredictions,
	)
	return Report{
		Response: resp,
		Results:  results,
		Summary:  summary,
		Insights: Insights{
			Buckets: classifier.ConfidenceBuckets(results),
			Scatter: classifier.ScatterPoints(rows, results),
		},
	}, nil
}

func (s *Service) useUpload() bool {
	if s.cfg.Strategy != StrategyUpload || s.uploader == nil {
		return false
	}
	if !s.uploader.SupportsUpload() {
		s.logger.Debug("transport cannot carry multipart; falling back to per-row")
		return false
	}
	return true
}

func (s *Service) checkUpload(upload Upload) error {
	if err := AcceptFile(upload.Filename, upload.MimeType); err != nil {
		return err
	}
	if len(upload.Content) == 0 {
		return apperrors.Wrap(apperrors.CodeFormat, "file content cannot be empty", nil)
	}
	if s.cfg.MaxFileBytes > 0 && int64(len(upload.Content)) > s.cfg.MaxFileBytes {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "file exceeds maximum allowed size", nil)
	}
	return nil
}

func (s *Service) archiveUpload(ctx context.Context, id uuid.UUID, upload Upload) string {
	if s.storage == nil {
		return ""
	}
	obj, err := s.storage.Put(ctx, uploadKey(id, cleanFilename(upload.Filename)), upload.Content, "text/csv")
	if err != nil {
		s.logger.Warn("upload archive failed", "filename", upload.Filename, "error", err)
		return ""
	}
	return obj.Key
}

func (s *Service) readStored(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *Service) fail(ctx context.Context, job Job, status JobStatus, reason string) {
	job.Status = status
	job.Report = nil
	job.FailureReason = &reason
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Warn("failed to record job failure", "job_id", job.ID, "error", err)
	}
}

// orderItems places backend items by row_index when every index is in range
// and unique; otherwise the response order is kept.
func orderItems(items []classifier.PredictionItem) []classifier.PredictionItem {
	out := make([]classifier.PredictionItem, len(items))
	seen := make([]bool, len(items))
	for _, item := range items {
		if item.RowIndex < 0 || item.RowIndex >= len(items) || seen[item.RowIndex] {
			return items
		}
		seen[item.RowIndex] = true
		out[item.RowIndex] = item
	}
	return out
}

func uploadKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", id.String(), filename)
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "batch.csv"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name
}

// ParseJobID extracts the job id from a queue payload.
func ParseJobID(payload map[string]any) (uuid.UUID, error) {
	raw, ok := payload["job_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("job_id missing from payload")
	}
	return uuid.Parse(raw)
}
