package classifier

import (
	"math"
	"strings"
	"time"
)

// ConfirmedLabel is the class whose probability drives the habitability score.
const ConfirmedLabel = "CONFIRMED"

// MapSingle converts a backend prediction into the display result. Temperature
// and size are recomputed from the inputs rather than taken from the backend.
func MapSingle(item PredictionItem, inputs ParameterSet) PredictionResult {
	confidence := NormalizePercent(item.Confidence)
	habitability := confidence
	if p, ok := confirmedProbability(item.Probabilities); ok {
		habitability = NormalizePercent(p)
	}
	return PredictionResult{
		PlanetType:        item.Prediction,
		Confidence:        confidence,
		HabitabilityScore: habitability,
		SizeCategory:      SizeCategoryFor(inputs.PlanetRadius),
		Temperature:       EstimateTemperature(inputs.StellarTemperature, inputs.StellarRadius, inputs.OrbitalPeriod),
	}
}

// NormalizePercent accepts either a 0..1 probability or a percentage.
func NormalizePercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v <= 1 {
		return v * 100
	}
	return v
}

// SizeCategoryFor buckets a planet radius in Earth radii. Lower bounds are exclusive.
func SizeCategoryFor(radius float64) string {
	switch {
	case radius > 4:
		return SizeJupiter
	case radius > 2:
		return SizeNeptune
	case radius > 1.25:
		return SizeSuper
	default:
		return SizeEarth
	}
}

// EstimateTemperature is the display proxy
// teff * sqrt(rstar / sqrt(period / 365.25)), rounded to whole kelvin.
// Inputs that would make the formula undefined yield 0.
func EstimateTemperature(teff, rstar, period float64) float64 {
	if period <= 0 || rstar < 0 {
		return 0
	}
	t := teff * math.Sqrt(rstar/math.Sqrt(period/365.25))
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return math.Round(t)
}

func confirmedProbability(probs map[string]float64) (float64, bool) {
	if v, ok := probs[ConfirmedLabel]; ok {
		return v, true
	}
	for label, v := range probs {
		if strings.EqualFold(label, ConfirmedLabel) {
			return v, true
		}
	}
	return 0, false
}

// MapBatch converts ordered batch items into BatchResults. rows and items are
// joined by position; failed items keep the sentinel label and the error.
func MapBatch(items []PredictionItem, rows []BatchRow, now time.Time) []BatchResult {
	out := make([]BatchResult, 0, len(items))
	for i, item := range items {
		var inputs ParameterSet
		id := i + 1
		if i < len(rows) {
			inputs = ParametersFromRow(rows[i])
			id = rows[i].ID
		}
		result := MapSingle(item, inputs)
		if item.Failed() {
			result.PlanetType = FailedLabel
			result.Confidence = 0
			result.HabitabilityScore = 0
		}
		out = append(out, BatchResult{
			PredictionResult: result,
			ID:               id,
			Timestamp:        now,
			Error:            item.Error,
		})
	}
	return out
}

// Summarize counts outcomes from the item list.
func Summarize(items []PredictionItem) Summary {
	s := Summary{TotalRows: len(items)}
	for _, item := range items {
		if item.Failed() {
			s.FailedPredictions++
		} else {
			s.SuccessfulPredictions++
		}
	}
	return s
}
