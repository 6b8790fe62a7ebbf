package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mode selects how requests reach the classifier backend.
type Mode string

const (
	// ModeDev sends requests to a same-origin development proxy prefix.
	ModeDev Mode = "dev"
	// ModeRelay wraps every request for the relay endpoint.
	ModeRelay Mode = "relay"
	// ModeDirect calls the backend base URL as is.
	ModeDirect Mode = "direct"
)

// ErrMultipartUnsupported is returned when a transport cannot carry file uploads.
var ErrMultipartUnsupported = errors.New("transport does not support multipart uploads")

const maxResponseBytes = 8 << 20

// MultipartFile is a single file form field.
type MultipartFile struct {
	Field    string
	Filename string
	Data     []byte
}

// Request describes a backend call independent of the transport.
type Request struct {
	Method    string
	Path      string
	JSON      map[string]any
	Multipart *MultipartFile
}

// Response is the raw backend answer. Non-2xx statuses are not errors at this level.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport sends a request and returns the raw response. Errors mean the
// backend could not be reached.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
	Mode() Mode
	SupportsMultipart() bool
}

// DirectTransport prefixes every path with a base URL.
type DirectTransport struct {
	mode       Mode
	baseURL    string
	httpClient *http.Client
}

// NewDirectTransport builds a transport for dev or direct mode.
func NewDirectTransport(mode Mode, baseURL string, timeout time.Duration) *DirectTransport {
	return &DirectTransport{
		mode:       mode,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *DirectTransport) Mode() Mode {
	return t.mode
}

func (t *DirectTransport) SupportsMultipart() bool {
	return true
}

func (t *DirectTransport) Send(ctx context.Context, req Request) (*Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := encodeMultipart(req.Multipart)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.JSON != nil:
		encoded, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(encoded), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+joinPath(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return do(t.httpClient, httpReq)
}

// RelayTransport sends every request to a relay endpoint that forwards it.
// GET requests carry the target path as a query parameter; POST requests
// carry it in the JSON envelope next to the payload fields.
type RelayTransport struct {
	relayURL   string
	httpClient *http.Client
}

// NewRelayTransport builds a relay transport.
func NewRelayTransport(relayURL string, timeout time.Duration) *RelayTransport {
	return &RelayTransport{
		relayURL:   strings.TrimSpace(relayURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *RelayTransport) Mode() Mode {
	return ModeRelay
}

func (t *RelayTransport) SupportsMultipart() bool {
	return false
}

func (t *RelayTransport) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Multipart != nil {
		return nil, ErrMultipartUnsupported
	}

	var httpReq *http.Request
	var err error
	switch req.Method {
	case http.MethodGet:
		target, parseErr := url.Parse(t.relayURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse relay url: %w", parseErr)
		}
		q := target.Query()
		q.Set("path", joinPath(req.Path))
		target.RawQuery = q.Encode()
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	default:
		envelope := make(map[string]any, len(req.JSON)+1)
		for k, v := range req.JSON {
			envelope[k] = v
		}
		envelope["path"] = joinPath(req.Path)
		encoded, encErr := json.Marshal(envelope)
		if encErr != nil {
			return nil, fmt.Errorf("encode relay envelope: %w", encErr)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, t.relayURL, bytes.NewReader(encoded))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	return do(t.httpClient, httpReq)
}

// NewTransport selects the transport for the configured mode.
func NewTransport(cfg Config) (Transport, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch cfg.Mode {
	case ModeDev:
		return NewDirectTransport(ModeDev, cfg.DevProxyURL, timeout), nil
	case ModeDirect, "":
		return NewDirectTransport(ModeDirect, cfg.BaseURL, timeout), nil
	case ModeRelay:
		return NewRelayTransport(cfg.RelayURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Mode)
	}
}

func do(client *http.Client, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

func encodeMultipart(file *MultipartFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	field := file.Field
	if field == "" {
		field = "file"
	}
	part, err := writer.CreateFormFile(field, file.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func joinPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
