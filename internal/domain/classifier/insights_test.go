package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHabitableZoneFor_Earth(t *testing.T) {
	zone := HabitableZoneFor(DefaultParameters())
	require.InDelta(t, 1, zone.Luminosity, 1e-9)
	require.InDelta(t, math.Sqrt(1/1.1), zone.InnerAU, 1e-9)
	require.InDelta(t, math.Sqrt(1/0.53), zone.OuterAU, 1e-9)
	require.InDelta(t, 1, zone.PlanetAU, 1e-9)
	require.True(t, zone.InZone)

	hot, _ := Preset(PresetHotJupiter)
	require.False(t, HabitableZoneFor(hot).InZone)
}

func TestConfidenceBuckets(t *testing.T) {
	results := []BatchResult{
		{PredictionResult: PredictionResult{PlanetType: "CONFIRMED", Confidence: 95}},
		{PredictionResult: PredictionResult{PlanetType: "CONFIRMED", Confidence: 90}},
		{PredictionResult: PredictionResult{PlanetType: "CONFIRMED", Confidence: 70}},
		{PredictionResult: PredictionResult{PlanetType: "CANDIDATE", Confidence: 69.9}},
		{PredictionResult: PredictionResult{PlanetType: FailedLabel}},
	}

	got := ConfidenceBuckets(results)
	require.Equal(t, []ConfidenceBucket{
		{Label: "CANDIDATE", Low: 1, Total: 1},
		{Label: "CONFIRMED", High: 2, Medium: 1, Total: 3},
	}, got)
}

func TestScatterPoints_DropsUnplottableRows(t *testing.T) {
	rows := []BatchRow{
		{ID: 1, Fields: map[Field]float64{OrbitalPeriod: 10, PlanetRadius: 2}},
		{ID: 2, Fields: map[Field]float64{OrbitalPeriod: 10}},
		{ID: 3, Fields: map[Field]float64{OrbitalPeriod: math.Inf(1), PlanetRadius: 2}},
		{ID: 4, Fields: map[Field]float64{OrbitalPeriod: 5, PlanetRadius: 0}},
	}
	results := []BatchResult{
		{PredictionResult: PredictionResult{PlanetType: "CANDIDATE", Confidence: 80}},
		{}, {}, {},
	}

	got := ScatterPoints(rows, results)
	require.Equal(t, []ScatterPoint{{ID: 1, OrbitalPeriod: 10, PlanetRadius: 2, PlanetType: "CANDIDATE", Confidence: 80}}, got)
}
