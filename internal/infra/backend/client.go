package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	"github.com/yanqian/exoplanet-classifier/pkg/metrics"
)

const (
	defaultTimeout           = 60 * time.Second
	defaultWarmUpTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 10 * time.Minute

	pathHealth        = "/"
	pathPredictSingle = "/predict/single"
	pathPredictCSV    = "/predict"
	pathModelInfo     = "/model/info"
)

// breakerHint is reported while the circuit breaker rejects calls without
// contacting the backend.
const breakerHint = "Backend unavailable: too many failed connection attempts, requests are paused briefly."

// abandonedError marks a transport failure caused by the caller's own context.
// It does not count against the backend.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

// Config drives the backend client.
type Config struct {
	Mode              Mode
	BaseURL           string
	DevProxyURL       string
	RelayURL          string
	Timeout           time.Duration
	WarmUpTimeout     time.Duration
	KeepAliveInterval time.Duration
	Breaker           BreakerConfig
}

// BreakerConfig tunes the circuit breaker around backend calls.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// Client talks to the remote classifier through a Transport and tracks the
// advisory readiness of the backend.
type Client struct {
	transport     Transport
	breaker       *gobreaker.CircuitBreaker[*Response]
	readiness     atomic.Int32
	warmUpTimeout time.Duration
	hint          string
	logger        *slog.Logger
}

// NewClient constructs the client. Readiness starts offline.
func NewClient(cfg Config, transport Transport, logger *slog.Logger) *Client {
	if cfg.WarmUpTimeout <= 0 {
		cfg.WarmUpTimeout = defaultWarmUpTimeout
	}
	logger = logger.With("component", "backend.client")
	c := &Client{
		transport:     transport,
		warmUpTimeout: cfg.WarmUpTimeout,
		hint:          networkHint(transport.Mode()),
		logger:        logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Response](breakerSettings(cfg.Breaker, logger))
	c.readiness.Store(int32(classifier.ReadinessOffline))
	return c
}

func breakerSettings(cfg BreakerConfig, logger *slog.Logger) gobreaker.Settings {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	return gobreaker.Settings{
		Name:        "classifier-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Only transport failures trip the breaker. HTTP statuses, 5xx included,
		// reach Execute as successful responses.
		IsSuccessful: func(err error) bool {
			var abandoned *abandonedError
			return err == nil || errors.As(err, &abandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

// Readiness returns the last observed backend state.
func (c *Client) Readiness() classifier.Readiness {
	return classifier.Readiness(c.readiness.Load())
}

func (c *Client) setReadiness(state classifier.Readiness) {
	c.readiness.Store(int32(state))
}

// SupportsUpload reports whether the transport can carry CSV files.
func (c *Client) SupportsUpload() bool {
	return c.transport.SupportsMultipart()
}

// WarmUp probes the health endpoint to wake a sleeping backend. It never
// fails; the return value is whether the probe succeeded.
func (c *Client) WarmUp(ctx context.Context) bool {
	c.setReadiness(classifier.ReadinessWarming)
	ctx, cancel := context.WithTimeout(ctx, c.warmUpTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.send(ctx, Request{Method: http.MethodGet, Path: pathHealth})
	ready := err == nil && resp.OK()
	if ready {
		c.setReadiness(classifier.ReadinessReady)
		c.logger.Info("backend warmed up", "duration_ms", time.Since(start).Milliseconds())
	} else {
		c.setReadiness(classifier.ReadinessOffline)
		c.logger.Warn("backend warm-up failed", "error", warmUpFailure(resp, err))
	}
	metrics.ObserveWarmUp(ready)
	return ready
}

// Health returns the body of the backend root endpoint.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.send(ctx, Request{Method: http.MethodGet, Path: pathHealth})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// PredictSingle submits one parameter record.
func (c *Client) PredictSingle(ctx context.Context, payload map[string]float64) (classifier.PredictionResponse, error) {
	body := make(map[string]any, len(payload))
	for k, v := range payload {
		body[k] = v
	}
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: pathPredictSingle, JSON: body})
	if err != nil {
		return classifier.PredictionResponse{}, err
	}
	return decodePrediction(resp)
}

// PredictCSV uploads a CSV file to the backend batch endpoint.
func (c *Client) PredictCSV(ctx context.Context, filename string, data []byte) (classifier.PredictionResponse, error) {
	if !c.transport.SupportsMultipart() {
		return classifier.PredictionResponse{}, ErrMultipartUnsupported
	}
	resp, err := c.send(ctx, Request{
		Method:    http.MethodPost,
		Path:      pathPredictCSV,
		Multipart: &MultipartFile{Field: "file", Filename: filename, Data: data},
	})
	if err != nil {
		return classifier.PredictionResponse{}, err
	}
	return decodePrediction(resp)
}

// ModelInfo returns the backend model metadata.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	resp, err := c.send(ctx, Request{Method: http.MethodGet, Path: pathModelInfo})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}

// send runs the request through the circuit breaker. Transport failures and
// an open breaker become NetworkErrors with distinct hints; any HTTP status is
// returned as is.
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*Response, error) {
		r, sendErr := c.transport.Send(ctx, req)
		if sendErr != nil && ctx.Err() != nil {
			return nil, &abandonedError{err: sendErr}
		}
		return r, sendErr
	})

	observed := err
	if err == nil && !resp.OK() {
		observed = fmt.Errorf("status %d", resp.Status)
	}
	metrics.ObserveBackendRequest(req.Path, time.Since(start), observed)

	if err != nil {
		c.logger.Debug("backend request failed", "path", req.Path, "error", err)
		hint := c.hint
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			hint = breakerHint
		}
		return nil, &classifier.NetworkError{Hint: hint, Err: err}
	}
	return resp, nil
}

func decodePrediction(resp *Response) (classifier.PredictionResponse, error) {
	if !resp.OK() {
		return classifier.PredictionResponse{}, &classifier.RequestError{Status: resp.Status, Body: string(resp.Body)}
	}
	var out classifier.PredictionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return classifier.PredictionResponse{}, fmt.Errorf("decode prediction response: %w", err)
	}
	return out, nil
}

func decodeObject(resp *Response) (map[string]any, error) {
	if !resp.OK() {
		return nil, &classifier.RequestError{Status: resp.Status, Body: string(resp.Body)}
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return out, nil
}

func warmUpFailure(resp *Response, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("status %d", resp.Status)
}

func networkHint(mode Mode) string {
	switch mode {
	case ModeDev:
		return "Network error: Unable to connect to the API. Check if the backend is running."
	case ModeRelay:
		return "Network error: Unable to connect to the API through proxy."
	default:
		return "Network error: Unable to connect to the API. The backend may be rejecting cross-origin requests (CORS)."
	}
}
