package batch

import (
	"mime"
	"path/filepath"
	"strings"

	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

var csvMimeTypes = map[string]struct{}{
	"text/csv":                    {},
	"application/csv":             {},
	"text/comma-separated-values": {},
	"application/vnd.ms-excel":    {},
}

// AcceptFile admits a file when its extension or declared type is CSV.
func AcceptFile(filename, mimeType string) error {
	if strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ".csv") {
		return nil
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if _, ok := csvMimeTypes[strings.ToLower(mediaType)]; ok {
			return nil
		}
	}
	return apperrors.Wrap(apperrors.CodeUnsupportedFile, "please upload a CSV file (.csv)", nil)
}
