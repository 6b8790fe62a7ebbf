package classifier

import (
	"time"

	"github.com/google/uuid"
)

// FailedLabel marks a batch row whose prediction request failed.
const FailedLabel = "FAILED"

// Size categories derived from planet radius.
const (
	SizeEarth   = "Earth-sized"
	SizeSuper   = "Super-Earth"
	SizeNeptune = "Neptune-sized"
	SizeJupiter = "Jupiter-sized"
)

// BatchRow is one parsed CSV record. IDs are 1-based.
type BatchRow struct {
	ID     int               `json:"id"`
	Fields map[Field]float64 `json:"fields"`
}

// PredictionItem is a single prediction as returned by the backend.
type PredictionItem struct {
	RowIndex      int                `json:"row_index"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// Failed reports whether the item carries the failure sentinel.
func (i PredictionItem) Failed() bool {
	return i.Prediction == FailedLabel
}

// PredictionResponse is the backend response envelope shared by single and
// batch predictions.
type PredictionResponse struct {
	Predictions    []PredictionItem `json:"predictions"`
	Summary        map[string]any   `json:"summary"`
	ProcessingInfo map[string]any   `json:"processing_info"`
}

// Summary counts batch outcomes. It is always derived from the result list.
type Summary struct {
	TotalRows             int `json:"total_rows"`
	SuccessfulPredictions int `json:"successful_predictions"`
	FailedPredictions     int `json:"failed_predictions"`
}

// AsMap renders the summary in the response envelope shape.
func (s Summary) AsMap() map[string]any {
	return map[string]any{
		"total_rows":             s.TotalRows,
		"successful_predictions": s.SuccessfulPredictions,
		"failed_predictions":     s.FailedPredictions,
	}
}

// PredictionResult is the display shape of a prediction.
type PredictionResult struct {
	PlanetType        string  `json:"planet_type"`
	Confidence        float64 `json:"confidence"`
	HabitabilityScore float64 `json:"habitability_score"`
	SizeCategory      string  `json:"size_category"`
	Temperature       float64 `json:"temperature"`
}

// BatchResult is a PredictionResult for one CSV row.
type BatchResult struct {
	PredictionResult
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Failed reports whether the row carries the failure sentinel.
func (r BatchResult) Failed() bool {
	return r.PlanetType == FailedLabel
}

// Mode identifies how a prediction was produced.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeBatch  Mode = "batch"
)

// HistoryEntry records one successful classification.
type HistoryEntry struct {
	ID        uuid.UUID        `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Inputs    ParameterSet     `json:"inputs"`
	Result    PredictionResult `json:"result"`
	Mode      Mode             `json:"mode"`
}

// Readiness is the advisory state of the remote backend.
type Readiness int32

const (
	ReadinessOffline Readiness = iota
	ReadinessWarming
	ReadinessReady
)

func (r Readiness) String() string {
	switch r {
	case ReadinessWarming:
		return "warming"
	case ReadinessReady:
		return "ready"
	default:
		return "offline"
	}
}

// MarshalText renders the readiness name.
func (r Readiness) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
