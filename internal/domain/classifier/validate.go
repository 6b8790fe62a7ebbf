package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError names an out-of-range parameter.
type ValidationError struct {
	Parameter Field  `json:"parameter"`
	Message   string `json:"message"`
}

// ValidationErrors is returned by services when a ParameterSet cannot be submitted.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every required parameter against its range. The result is
// empty if and only if the set may be submitted.
func Validate(params ParameterSet) []ValidationError {
	var errs []ValidationError
	for _, f := range RequiredFields {
		r, ok := ranges[f]
		if !ok {
			continue
		}
		v, _ := params.Value(f)
		if math.IsNaN(v) || v < r.Min || v > r.Max {
			errs = append(errs, ValidationError{
				Parameter: f,
				Message:   fmt.Sprintf("%s must be between %s and %s %s", f.Label(), formatBound(r.Min), formatBound(r.Max), r.Unit),
			})
		}
	}
	return errs
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
