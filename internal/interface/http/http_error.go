package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

// errorCodeHeader repeats the envelope code on error responses so wrappers
// outside gin can act on it without parsing the body.
const errorCodeHeader = "X-Error-Code"

const (
	codeInvalidRequest = "invalid_request"
	codeInternal       = "internal_error"
	codeRateLimited    = "rate_limit_exceeded"
)

// statusByCode maps domain error codes to HTTP statuses. Both backend failure
// codes answer 502; only network_error is worth replaying.
var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:    http.StatusUnprocessableEntity,
	apperrors.CodeFormat:          http.StatusBadRequest,
	apperrors.CodeUnsupportedFile: http.StatusUnsupportedMediaType,
	apperrors.CodeNetwork:         http.StatusBadGateway,
	apperrors.CodeRequest:         http.StatusBadGateway,
	apperrors.CodeNotFound:        http.StatusNotFound,
	apperrors.CodeStorage:         http.StatusInternalServerError,
}

// HTTPError is one rendered error envelope. Details carries per-parameter
// validation messages when present.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// domainError renders a service error. The message is the full error chain so
// backend body text reaches the caller verbatim.
func domainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code, status = codeInternal, http.StatusInternalServerError
	}

	httpErr := NewHTTPError(status, code, errMessage(err), err)
	var validation classifier.ValidationErrors
	if errors.As(err, &validation) {
		httpErr.Details = []classifier.ValidationError(validation)
	}
	return httpErr
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError(http.StatusInternalServerError, codeInternal, "something went wrong", err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
