package classifier

import (
	"errors"
	"fmt"
)

// RequestError is returned when the backend answers with a non-2xx status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("prediction request failed: %d %s", e.Status, e.Body)
}

// NetworkError is returned when the backend could not be reached at all.
// Hint is a transport specific message for the user.
type NetworkError struct {
	Hint string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return e.Hint
	}
	return e.Hint + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// AsRequestError extracts a RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
