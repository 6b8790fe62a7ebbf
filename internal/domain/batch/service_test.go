package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]Job
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[uuid.UUID]Job)}
}

func (m *memoryJobs) Save(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memoryJobs) Get(_ context.Context, id uuid.UUID) (Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok, nil
}

type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[string][]byte)}
}

func (m *memoryBlobs) Put(_ context.Context, key string, data []byte, mimeType string) (classifier.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return classifier.StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (m *memoryBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

type recordingQueue struct {
	names    []string
	payloads []any
}

func (q *recordingQueue) Enqueue(_ context.Context, name string, payload any) error {
	q.names = append(q.names, name)
	q.payloads = append(q.payloads, payload)
	return nil
}

type stubUploader struct {
	supports bool
	calls    int
	resp     classifier.PredictionResponse
	err      error
}

func (u *stubUploader) PredictCSV(context.Context, string, []byte) (classifier.PredictionResponse, error) {
	u.calls++
	return u.resp, u.err
}

func (u *stubUploader) SupportsUpload() bool {
	return u.supports
}

const sampleCSV = "orbital_period,planet_radius\n365.25,1\n3.5,11\n"

func newServiceUnderTest(cfg Config, predictor classifier.Predictor, uploader CSVUploader) (*Service, *memoryJobs, *memoryBlobs, *recordingQueue) {
	jobs := newMemoryJobs()
	blobs := newMemoryBlobs()
	queue := &recordingQueue{}
	svc := NewService(cfg, predictor, uploader, jobs, queue, blobs, discardLogger())
	svc.runner.sleep = func(context.Context, time.Duration) error { return nil }
	return svc, jobs, blobs, queue
}

func TestService_SubmitPerRow(t *testing.T) {
	svc, _, blobs, _ := newServiceUnderTest(Config{ArchiveUploads: true}, &stubPredictor{}, nil)

	report, err := svc.Submit(context.Background(), Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	require.Equal(t, classifier.Summary{TotalRows: 2, SuccessfulPredictions: 2}, report.Summary)
	require.Equal(t, ProcessingMethod, report.Response.ProcessingInfo["method"])
	require.Equal(t, "planets.csv", report.Response.ProcessingInfo["file_name"])
	require.Equal(t, 2, report.Response.Summary["total_rows"])
	require.Len(t, report.Insights.Scatter, 2)
	require.NotEmpty(t, report.StorageKey)
	require.Contains(t, blobs.blobs, report.StorageKey)
}

func TestService_SubmitRejectsNonCSV(t *testing.T) {
	svc, _, _, _ := newServiceUnderTest(Config{}, &stubPredictor{}, nil)
	_, err := svc.Submit(context.Background(), Upload{Filename: "planets.txt", MimeType: "text/plain", Content: []byte(sampleCSV)})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnsupportedFile))
}

func TestService_SubmitFormatError(t *testing.T) {
	svc, _, _, _ := newServiceUnderTest(Config{}, &stubPredictor{}, nil)
	_, err := svc.Submit(context.Background(), Upload{Filename: "planets.csv", Content: []byte("a,b\n1,2\n")})
	require.True(t, apperrors.IsCode(err, apperrors.CodeFormat))
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
}

func TestService_UploadStrategy(t *testing.T) {
	uploader := &stubUploader{
		supports: true,
		resp: classifier.PredictionResponse{
			Predictions: []classifier.PredictionItem{
				{RowIndex: 1, Prediction: "FALSE POSITIVE", Confidence: 0.6},
				{RowIndex: 0, Prediction: "CONFIRMED", Confidence: 0.95},
			},
			ProcessingInfo: map[string]any{"method": "csv_upload"},
		},
	}
	predictor := &stubPredictor{}
	svc, _, _, _ := newServiceUnderTest(Config{Strategy: StrategyUpload}, predictor, uploader)

	report, err := svc.Submit(context.Background(), Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)
	require.Equal(t, 1, uploader.calls)
	require.Empty(t, predictor.payloads)
	require.Equal(t, "CONFIRMED", report.Results[0].PlanetType)
	require.Equal(t, "FALSE POSITIVE", report.Results[1].PlanetType)
	require.Equal(t, "csv_upload", report.Response.ProcessingInfo["method"])
}

func TestService_UploadStrategyFallsBackWithoutMultipart(t *testing.T) {
	uploader := &stubUploader{supports: false}
	predictor := &stubPredictor{}
	svc, _, _, _ := newServiceUnderTest(Config{Strategy: StrategyUpload}, predictor, uploader)

	report, err := svc.Submit(context.Background(), Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)
	require.Zero(t, uploader.calls)
	require.Len(t, predictor.payloads, 2)
	require.Equal(t, ProcessingMethod, report.Response.ProcessingInfo["method"])
}

func TestService_UploadStrategyNetworkError(t *testing.T) {
	uploader := &stubUploader{supports: true, err: &classifier.NetworkError{Hint: "backend unreachable", Err: errors.New("dial tcp")}}
	svc, _, _, _ := newServiceUnderTest(Config{Strategy: StrategyUpload}, &stubPredictor{}, uploader)

	_, err := svc.Submit(context.Background(), Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.True(t, apperrors.IsCode(err, apperrors.CodeNetwork))
}

func TestService_EnqueueProcessExport(t *testing.T) {
	svc, _, _, queue := newServiceUnderTest(Config{ArchiveExports: true}, &stubPredictor{}, nil)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, job.Status)
	require.Equal(t, []string{JobName}, queue.names)

	id, err := ParseJobID(queue.payloads[0].(map[string]any))
	require.NoError(t, err)
	require.Equal(t, job.ID, id)

	_, err = svc.Export(ctx, job.ID)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	require.NoError(t, svc.Process(ctx, job.ID))
	done, err := svc.Job(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, done.Status)
	require.NotNil(t, done.Report)
	require.Equal(t, 2, done.Report.Summary.TotalRows)

	export, err := svc.Export(ctx, job.ID)
	require.NoError(t, err)
	require.Regexp(t, `^batch_predictions_\d+\.csv$`, export.Filename)
	require.Contains(t, export.Content, "planet_type")
	require.Equal(t, "exports/"+export.Filename, export.StorageKey)
}

func TestService_ProcessMarksFailure(t *testing.T) {
	svc, jobs, _, _ := newServiceUnderTest(Config{}, &stubPredictor{}, nil)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, Upload{Filename: "planets.csv", Content: []byte("x,y\n1,2\n")})
	require.NoError(t, err)

	err = svc.Process(ctx, job.ID)
	require.True(t, apperrors.IsCode(err, apperrors.CodeFormat))

	stored, ok, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, JobStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
}

func TestService_JobNotFound(t *testing.T) {
	svc, _, _, _ := newServiceUnderTest(Config{}, &stubPredictor{}, nil)
	_, err := svc.Job(context.Background(), uuid.New())
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

// ctxJobs refuses writes on a done context, as the Postgres and Valkey stores
// do.
type ctxJobs struct {
	*memoryJobs
}

func (c ctxJobs) Save(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memoryJobs.Save(ctx, job)
}

func TestService_ProcessRecordsInterruption(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	predictor := &stubPredictor{
		predictFn: func(map[string]float64) (classifier.PredictionResponse, error) {
			cancel()
			return classifier.PredictionResponse{
				Predictions: []classifier.PredictionItem{{Prediction: "CONFIRMED", Confidence: 0.9}},
			}, nil
		},
	}
	jobs := ctxJobs{newMemoryJobs()}
	svc := NewService(Config{Runner: RunnerConfig{ChunkSize: 1, ChunkDelay: time.Millisecond}}, predictor, nil, jobs, &recordingQueue{}, newMemoryBlobs(), discardLogger())

	job, err := svc.Enqueue(context.Background(), Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)

	err = svc.Process(ctx, job.ID)
	require.ErrorIs(t, err, context.Canceled)

	stored, ok, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, JobStatusInterrupted, stored.Status)
	require.Nil(t, stored.Report)
	require.NotNil(t, stored.FailureReason)
	require.Contains(t, *stored.FailureReason, "interrupted")
	require.Len(t, predictor.payloads, 1)

	predictor.predictFn = nil
	require.NoError(t, svc.Process(context.Background(), job.ID))
	done, _, err := jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, done.Status)
	require.Nil(t, done.FailureReason)
	require.Equal(t, 2, done.Report.Summary.SuccessfulPredictions)
}

func TestSyncService_SubmitsWithoutJobInfrastructure(t *testing.T) {
	svc := NewSyncService(Config{ArchiveUploads: true, ArchiveExports: true}, &stubPredictor{}, nil, discardLogger())
	svc.runner.sleep = func(context.Context, time.Duration) error { return nil }
	ctx := context.Background()

	report, err := svc.Submit(ctx, Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.NoError(t, err)
	require.Equal(t, 2, report.Summary.SuccessfulPredictions)
	require.Empty(t, report.StorageKey)

	export, err := svc.ExportResults(ctx, report.Results)
	require.NoError(t, err)
	require.Empty(t, export.StorageKey)

	_, err = svc.Enqueue(ctx, Upload{Filename: "planets.csv", Content: []byte(sampleCSV)})
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
	_, err = svc.Job(ctx, uuid.New())
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
	require.True(t, apperrors.IsCode(svc.Process(ctx, uuid.New()), apperrors.CodeStorage))
}
