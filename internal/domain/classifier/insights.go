package classifier

import (
	"math"
	"sort"
)

const solarTemperature = 5778.0

// HabitableZone holds the conservative habitable-zone edges of the host star
// and the planet's orbital distance, all in AU.
type HabitableZone struct {
	Luminosity float64 `json:"luminosity"`
	InnerAU    float64 `json:"inner_au"`
	OuterAU    float64 `json:"outer_au"`
	PlanetAU   float64 `json:"planet_au"`
	InZone     bool    `json:"in_zone"`
}

// HabitableZoneFor derives the zone from stellar radius and temperature and
// places the planet using Kepler's third law for a solar-mass star.
func HabitableZoneFor(params ParameterSet) HabitableZone {
	lum := params.StellarRadius * params.StellarRadius * math.Pow(params.StellarTemperature/solarTemperature, 4)
	zone := HabitableZone{
		Luminosity: finiteOrZero(lum),
		InnerAU:    finiteOrZero(math.Sqrt(lum / 1.1)),
		OuterAU:    finiteOrZero(math.Sqrt(lum / 0.53)),
	}
	if params.OrbitalPeriod > 0 {
		zone.PlanetAU = finiteOrZero(math.Pow(params.OrbitalPeriod/365.25, 2.0/3.0))
	}
	zone.InZone = zone.PlanetAU > 0 && zone.PlanetAU >= zone.InnerAU && zone.PlanetAU <= zone.OuterAU
	return zone
}

// ConfidenceBucket counts results per label by confidence band.
type ConfidenceBucket struct {
	Label  string `json:"label"`
	High   int    `json:"high"`
	Medium int    `json:"medium"`
	Low    int    `json:"low"`
	Total  int    `json:"total"`
}

// ConfidenceBuckets groups results by label: high >= 90, medium >= 70, else low.
// Failed rows are skipped.
func ConfidenceBuckets(results []BatchResult) []ConfidenceBucket {
	byLabel := make(map[string]*ConfidenceBucket)
	for _, r := range results {
		if r.Failed() {
			continue
		}
		b, ok := byLabel[r.PlanetType]
		if !ok {
			b = &ConfidenceBucket{Label: r.PlanetType}
			byLabel[r.PlanetType] = b
		}
		switch {
		case r.Confidence >= 90:
			b.High++
		case r.Confidence >= 70:
			b.Medium++
		default:
			b.Low++
		}
		b.Total++
	}
	out := make([]ConfidenceBucket, 0, len(byLabel))
	for _, b := range byLabel {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ScatterPoint places one prediction on a period/radius plot.
type ScatterPoint struct {
	ID            int     `json:"id"`
	OrbitalPeriod float64 `json:"orbital_period"`
	PlanetRadius  float64 `json:"planet_radius"`
	PlanetType    string  `json:"planet_type"`
	Confidence    float64 `json:"confidence"`
}

// ScatterPoints joins rows and results by index, dropping rows whose period or
// radius is missing, non-finite or non-positive.
func ScatterPoints(rows []BatchRow, results []BatchResult) []ScatterPoint {
	n := len(rows)
	if len(results) < n {
		n = len(results)
	}
	out := make([]ScatterPoint, 0, n)
	for i := 0; i < n; i++ {
		period, okP := rows[i].Fields[OrbitalPeriod]
		radius, okR := rows[i].Fields[PlanetRadius]
		if !okP || !okR || !positiveFinite(period) || !positiveFinite(radius) {
			continue
		}
		out = append(out, ScatterPoint{
			ID:            rows[i].ID,
			OrbitalPeriod: period,
			PlanetRadius:  radius,
			PlanetType:    results[i].PlanetType,
			Confidence:    results[i].Confidence,
		})
	}
	return out
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
