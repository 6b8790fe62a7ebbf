package classifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExportSingle(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	result := PredictionResult{PlanetType: "CONFIRMED", Confidence: 87, HabitabilityScore: 60, SizeCategory: SizeEarth, Temperature: 5778}

	content, err := ExportSingle(DefaultParameters(), result, at)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "id,timestamp,orbital_period,planet_radius,transit_depth,transit_duration,planet_mass,stellar_temperature,stellar_radius,system_distance,planet_type,confidence,habitability_score,size_category,temperature,error", lines[0])
	require.Equal(t, "1,2024-01-02T03:04:05Z,365.25,1,840,3.5,1,5778,1,150,CONFIRMED,87,60,Earth-sized,5778,", lines[1])
}

func TestExportBatch_QuotesErrors(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	results := []BatchResult{
		{PredictionResult: PredictionResult{PlanetType: FailedLabel, SizeCategory: SizeEarth}, ID: 7, Timestamp: at, Error: "bad gateway, retry later"},
	}

	content, err := ExportBatch(results)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, `7,2024-01-02T03:04:05Z,,,,,,,,,FAILED,0,0,Earth-sized,0,"bad gateway, retry later"`, lines[1])
}

func TestExportFilename(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	require.Equal(t, "batch_predictions_1700000000123.csv", ExportFilename("batch_predictions", at))
}
