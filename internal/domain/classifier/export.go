package classifier

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/yanqian/exoplanet-classifier/pkg/util"
)

// ExportHeader is shared by single and batch exports.
func ExportHeader() []string {
	header := []string{"id", "timestamp"}
	for _, f := range RequiredFields {
		header = append(header, string(f))
	}
	return append(header, "planet_type", "confidence", "habitability_score", "size_category", "temperature", "error")
}

// ExportSingle renders the inputs and the result side by side.
func ExportSingle(params ParameterSet, result PredictionResult, at time.Time) (string, error) {
	row := []string{"1", at.UTC().Format(time.RFC3339)}
	for _, f := range RequiredFields {
		v, _ := params.Value(f)
		row = append(row, formatNumber(v))
	}
	row = append(row, resultCells(result)...)
	row = append(row, "")
	return writeCSV([][]string{ExportHeader(), row})
}

// ExportBatch renders one row per result. Per-row inputs are not tracked in
// the batch view, so their cells are left empty.
func ExportBatch(results []BatchResult) (string, error) {
	records := make([][]string, 0, len(results)+1)
	records = append(records, ExportHeader())
	for _, r := range results {
		row := []string{strconv.Itoa(r.ID), r.Timestamp.UTC().Format(time.RFC3339)}
		for range RequiredFields {
			row = append(row, "")
		}
		row = append(row, resultCells(r.PredictionResult)...)
		row = append(row, r.Error)
		records = append(records, row)
	}
	return writeCSV(records)
}

// ExportFilename returns <purpose>_<epoch-millis>.csv.
func ExportFilename(purpose string, at time.Time) string {
	return fmt.Sprintf("%s_%d.csv", purpose, util.EpochMillis(at))
}

func resultCells(r PredictionResult) []string {
	return []string{
		r.PlanetType,
		formatNumber(r.Confidence),
		formatNumber(r.HabitabilityScore),
		r.SizeCategory,
		formatNumber(r.Temperature),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(records [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}
