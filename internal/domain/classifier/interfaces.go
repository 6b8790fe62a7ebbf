package classifier

import (
	"context"
	"io"
)

// Predictor issues single predictions against the remote classifier.
type Predictor interface {
	PredictSingle(ctx context.Context, payload map[string]float64) (PredictionResponse, error)
}

// Backend is the full remote classifier surface used by the service.
type Backend interface {
	Predictor
	WarmUp(ctx context.Context) bool
	Readiness() Readiness
	ModelInfo(ctx context.Context) (map[string]any, error)
}

// ObjectStorage abstracts blob storage for uploads and exports.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject captures persisted blob metadata.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}
