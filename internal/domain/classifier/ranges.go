package classifier

// ParameterRange describes the accepted and typical bounds of a parameter.
type ParameterRange struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	TypicalMin float64 `json:"typical_min"`
	TypicalMax float64 `json:"typical_max"`
	Step       float64 `json:"step"`
	Unit       string  `json:"unit"`
}

var ranges = map[Field]ParameterRange{
	OrbitalPeriod:      {Min: 0.1, Max: 2000, TypicalMin: 1, TypicalMax: 500, Step: 0.01, Unit: "days"},
	PlanetRadius:       {Min: 0.1, Max: 30, TypicalMin: 0.5, TypicalMax: 4, Step: 0.01, Unit: "Earth radii"},
	TransitDepth:       {Min: 1, Max: 100000, TypicalMin: 50, TypicalMax: 5000, Step: 1, Unit: "ppm"},
	TransitDuration:    {Min: 0.1, Max: 48, TypicalMin: 1, TypicalMax: 10, Step: 0.1, Unit: "hours"},
	PlanetMass:         {Min: 0.01, Max: 5000, TypicalMin: 0.5, TypicalMax: 20, Step: 0.01, Unit: "Earth masses"},
	StellarTemperature: {Min: 2500, Max: 10000, TypicalMin: 4000, TypicalMax: 7000, Step: 1, Unit: "K"},
	StellarRadius:      {Min: 0.1, Max: 20, TypicalMin: 0.5, TypicalMax: 2, Step: 0.01, Unit: "solar radii"},
	SystemDistance:     {Min: 1, Max: 10000, TypicalMin: 10, TypicalMax: 1000, Step: 1, Unit: "parsecs"},
}

// RangeFor returns the declared range of a required parameter.
func RangeFor(f Field) (ParameterRange, bool) {
	r, ok := ranges[f]
	return r, ok
}

// Ranges returns a copy of the range table.
func Ranges() map[Field]ParameterRange {
	out := make(map[Field]ParameterRange, len(ranges))
	for k, v := range ranges {
		out[k] = v
	}
	return out
}
