package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

const maxUploadBytes = 32 << 20

// BatchService is the batch workflow used by the HTTP layer.
type BatchService interface {
	Submit(ctx context.Context, upload batch.Upload) (batch.Report, error)
	Enqueue(ctx context.Context, upload batch.Upload) (batch.Job, error)
	Job(ctx context.Context, id uuid.UUID) (batch.Job, error)
	Export(ctx context.Context, id uuid.UUID) (classifier.Export, error)
}

// Handler wires the HTTP transport to the classifier and batch services.
type Handler struct {
	classifierSvc classifier.Service
	batchSvc      BatchService
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(classifierSvc classifier.Service, batchSvc BatchService, logger *slog.Logger) *Handler {
	return &Handler{
		classifierSvc: classifierSvc,
		batchSvc:      batchSvc,
		logger:        logger.With("component", "http.handler"),
	}
}

type validateResponse struct {
	Valid  bool                         `json:"valid"`
	Errors []classifier.ValidationError `json:"errors"`
}

type parameterDescriptor struct {
	Field    classifier.Field `json:"field"`
	Label    string           `json:"label"`
	Abbrev   string           `json:"abbreviation"`
	Required bool             `json:"required"`
	classifier.ParameterRange
}

type parametersResponse struct {
	Required []parameterDescriptor              `json:"required"`
	Optional []parameterDescriptor              `json:"optional"`
	Flags    []parameterDescriptor              `json:"flags"`
	Presets  map[string]classifier.ParameterSet `json:"presets"`
	Default  classifier.ParameterSet            `json:"default"`
}

type similarRequest struct {
	Parameters classifier.ParameterSet `json:"parameters"`
	K          int                     `json:"k"`
}

// Classify handles a single-planet prediction.
func (h *Handler) Classify(c *gin.Context) {
	var params classifier.ParameterSet
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, errMessage(err), err))
		return
	}

	resp, err := h.classifierSvc.Classify(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Validate reports range violations without calling the backend.
func (h *Handler) Validate(c *gin.Context) {
	var params classifier.ParameterSet
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, errMessage(err), err))
		return
	}
	if err := params.CheckFields(); err != nil {
		abortWithError(c, NewHTTPError(http.StatusUnprocessableEntity, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}

	errs := classifier.Validate(params)
	if errs == nil {
		errs = []classifier.ValidationError{}
	}
	c.JSON(http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

// Parameters describes every input field, its range and the presets.
func (h *Handler) Parameters(c *gin.Context) {
	resp := parametersResponse{
		Required: describe(classifier.RequiredFields),
		Optional: describe(classifier.OptionalFields),
		Flags:    describe(classifier.FlagFields),
		Presets:  make(map[string]classifier.ParameterSet),
		Default:  classifier.DefaultParameters(),
	}
	for _, name := range classifier.Presets() {
		if preset, ok := classifier.Preset(name); ok {
			resp.Presets[name] = preset
		}
	}
	c.JSON(http.StatusOK, resp)
}

// History lists recent predictions, newest first.
func (h *Handler) History(c *gin.Context) {
	entries, err := h.classifierSvc.History(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if entries == nil {
		entries = []classifier.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Similar returns past predictions closest to the supplied parameters.
func (h *Handler) Similar(c *gin.Context) {
	var req similarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, errMessage(err), err))
		return
	}

	matches, err := h.classifierSvc.Similar(c.Request.Context(), req.Parameters, req.K)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if matches == nil {
		matches = []classifier.SimilarEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

// ExportSingle renders one result as a CSV download.
func (h *Handler) ExportSingle(c *gin.Context) {
	var req classifier.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, errMessage(err), err))
		return
	}

	export, err := h.classifierSvc.Export(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	writeCSV(c, export)
}

// SubmitBatch runs a CSV batch synchronously and returns the full report.
func (h *Handler) SubmitBatch(c *gin.Context) {
	upload, httpErr := readUpload(c)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}

	report, err := h.batchSvc.Submit(c.Request.Context(), upload)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// EnqueueBatch stores the upload and queues it for background processing.
func (h *Handler) EnqueueBatch(c *gin.Context) {
	upload, httpErr := readUpload(c)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}

	job, err := h.batchSvc.Enqueue(c.Request.Context(), upload)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// BatchJob returns the job status and, once complete, its report.
func (h *Handler) BatchJob(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, err := h.batchSvc.Job(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, job)
}

// ExportBatch downloads the results of a completed job as CSV.
func (h *Handler) ExportBatch(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	export, err := h.batchSvc.Export(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	writeCSV(c, export)
}

// BackendStatus reports the last observed backend readiness.
func (h *Handler) BackendStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.classifierSvc.Status())
}

// WarmUp probes the backend and reports the resulting readiness.
func (h *Handler) WarmUp(c *gin.Context) {
	c.JSON(http.StatusOK, h.classifierSvc.WarmUp(c.Request.Context()))
}

// ModelInfo forwards the backend model description.
func (h *Handler) ModelInfo(c *gin.Context) {
	info, err := h.classifierSvc.ModelInfo(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, info)
}

func readUpload(c *gin.Context) (batch.Upload, *HTTPError) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return batch.Upload{}, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "file is required", err)
	}
	if fileHeader.Size > maxUploadBytes {
		return batch.Upload{}, NewHTTPError(http.StatusRequestEntityTooLarge, apperrors.CodeInvalidInput, "file too large", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return batch.Upload{}, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "cannot read file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return batch.Upload{}, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "cannot read file", err)
	}
	return batch.Upload{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  data,
	}, nil
}

func jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "invalid job id", err))
		return uuid.Nil, false
	}
	return id, true
}

func writeCSV(c *gin.Context, export classifier.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	if export.StorageKey != "" {
		c.Header("X-Storage-Key", export.StorageKey)
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(export.Content))
}

func describe(fields []classifier.Field) []parameterDescriptor {
	out := make([]parameterDescriptor, 0, len(fields))
	for _, f := range fields {
		d := parameterDescriptor{
			Field:    f,
			Label:    f.Label(),
			Abbrev:   f.Abbreviation(),
			Required: f.IsRequired(),
		}
		if r, ok := classifier.RangeFor(f); ok {
			d.ParameterRange = r
		}
		out = append(out, d)
	}
	return out
}
