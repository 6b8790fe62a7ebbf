package batch

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

// FormatError reports a CSV file that cannot be turned into rows.
type FormatError struct {
	Reason   string
	Required []string
}

func (e *FormatError) Error() string {
	if len(e.Required) == 0 {
		return e.Reason
	}
	return e.Reason + "; expected at least one of: " + strings.Join(e.Required, ", ")
}

// Kepler cumulative-table names seen in exported candidate lists.
var extraSynonyms = map[string]classifier.Field{
	"koi_period":   classifier.OrbitalPeriod,
	"period":       classifier.OrbitalPeriod,
	"koi_prad":     classifier.PlanetRadius,
	"radius":       classifier.PlanetRadius,
	"koi_depth":    classifier.TransitDepth,
	"depth":        classifier.TransitDepth,
	"koi_duration": classifier.TransitDuration,
	"duration":     classifier.TransitDuration,
	"koi_steff":    classifier.StellarTemperature,
	"koi_srad":     classifier.StellarRadius,
	"koi_slogg":    classifier.StellarSurfaceGravity,
	"koi_insol":    classifier.InsolationFlux,
	"koi_teq":      classifier.EquilibriumTemperature,
}

// Parse turns CSV text into rows keyed by canonical field. Cells are split on
// commas without quote handling. Empty or non-numeric cells are omitted. When
// several columns resolve to one field only the rightmost is read, even where
// its cell is empty.
func Parse(content string) ([]classifier.BatchRow, error) {
	lines := splitLines(strings.TrimSpace(content))
	if len(lines) < 2 {
		return nil, &FormatError{Reason: "CSV file must have at least a header row and one data row"}
	}

	header := strings.Split(lines[0], ",")
	columns := make([]classifier.Field, len(header))
	seen := make(map[classifier.Field]int, len(header))
	resolvedBase := false
	for i, raw := range header {
		f, ok := resolveHeader(raw)
		if !ok {
			continue
		}
		if prev, dup := seen[f]; dup {
			columns[prev] = ""
		}
		seen[f] = i
		columns[i] = f
		if f.IsRequired() {
			resolvedBase = true
		}
	}
	if !resolvedBase {
		return nil, &FormatError{
			Reason:   "CSV header has no recognizable parameter columns",
			Required: requiredColumnNames(),
		}
	}

	rows := make([]classifier.BatchRow, 0, len(lines)-1)
	for i, line := range lines[1:] {
		row := classifier.BatchRow{ID: i + 1, Fields: make(map[classifier.Field]float64)}
		if strings.TrimSpace(line) != "" {
			cells := strings.Split(line, ",")
			for col, f := range columns {
				if f == "" || col >= len(cells) {
					continue
				}
				if v, ok := parseCell(cells[col]); ok {
					row.Fields[f] = v
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeHeader lowercases, trims and collapses every run of
// non-alphanumeric characters to a single underscore.
func NormalizeHeader(raw string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func resolveHeader(raw string) (classifier.Field, bool) {
	key := NormalizeHeader(raw)
	if key == "" {
		return "", false
	}
	if f, ok := classifier.LookupField(key); ok {
		return f, true
	}
	f, ok := extraSynonyms[key]
	return f, ok
}

func parseCell(cell string) (float64, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

func requiredColumnNames() []string {
	out := make([]string, 0, len(classifier.RequiredFields))
	for _, f := range classifier.RequiredFields {
		out = append(out, fmt.Sprintf("%s (%s)", f, f.Abbreviation()))
	}
	return out
}
