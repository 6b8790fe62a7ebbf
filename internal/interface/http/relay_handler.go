package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultRelayPostPath = "/predict/single"
	relayResponseLimit   = 8 << 20
)

// RelayHandler forwards envelope requests to the classifier backend so
// browsers on other origins can reach it.
type RelayHandler struct {
	upstream   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRelayHandler builds a relay to the given upstream base URL.
func NewRelayHandler(upstream string, timeout time.Duration, logger *slog.Logger) *RelayHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RelayHandler{
		upstream:   strings.TrimRight(strings.TrimSpace(upstream), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "http.relay"),
	}
}

// Handle serves every method on the relay path.
func (r *RelayHandler) Handle(c *gin.Context) {
	headers := c.Writer.Header()
	headers.Set("Access-Control-Allow-Origin", "*")
	headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	var (
		req *http.Request
		err error
	)
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodGet:
		req, err = r.buildGet(c)
	case http.MethodPost:
		req, err = r.buildPost(c)
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}
	if err != nil {
		r.fail(c, err)
		return
	}

	r.logger.Info("relaying request", "method", req.Method, "target", req.URL.Path)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.fail(c, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, relayResponseLimit))
	if err != nil {
		r.fail(c, err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("upstream rejected relayed request", "status", resp.StatusCode, "target", req.URL.Path)
		c.JSON(resp.StatusCode, gin.H{
			"error":   "API request failed",
			"status":  resp.StatusCode,
			"message": string(body),
		})
		return
	}
	if !json.Valid(body) {
		r.fail(c, fmt.Errorf("upstream returned invalid JSON"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (r *RelayHandler) buildGet(c *gin.Context) (*http.Request, error) {
	path := c.Query("path")
	if path == "" {
		path = "/"
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, r.target(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (r *RelayHandler) buildPost(c *gin.Context) (*http.Request, error) {
	envelope := map[string]any{}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode relay envelope: %w", err)
		}
	}

	path := defaultRelayPostPath
	if p, ok := envelope["path"].(string); ok && p != "" {
		path = p
	}
	delete(envelope, "path")

	var body io.Reader
	if len(envelope) > 0 {
		encoded, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, r.target(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (r *RelayHandler) target(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.upstream + path
}

func (r *RelayHandler) fail(c *gin.Context, err error) {
	r.logger.Error("relay request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Proxy request failed",
		"message": errMessage(err),
	})
}
