package classifier

import (
	"fmt"
	"sort"
	"strings"
)

// ParameterSet is a single-planet input. The eight required values are always
// present; advanced values are present-or-absent.
type ParameterSet struct {
	OrbitalPeriod      float64 `json:"orbital_period"`
	PlanetRadius       float64 `json:"planet_radius"`
	TransitDepth       float64 `json:"transit_depth"`
	TransitDuration    float64 `json:"transit_duration"`
	PlanetMass         float64 `json:"planet_mass"`
	StellarTemperature float64 `json:"stellar_temperature"`
	StellarRadius      float64 `json:"stellar_radius"`
	SystemDistance     float64 `json:"system_distance"`

	Optional map[Field]Optional `json:"optional,omitempty"`
	Flags    map[Field]TriState `json:"flags,omitempty"`
}

// Preset names accepted by ParameterStore.ApplyPreset.
const (
	PresetEarth      = "earth"
	PresetHotJupiter = "hot_jupiter"
	PresetSuperEarth = "super_earth"
)

var presets = map[string]ParameterSet{
	PresetEarth: {
		OrbitalPeriod:      365.25,
		PlanetRadius:       1.0,
		TransitDepth:       840,
		TransitDuration:    3.5,
		PlanetMass:         1.0,
		StellarTemperature: 5778,
		StellarRadius:      1.0,
		SystemDistance:     150,
	},
	PresetHotJupiter: {
		OrbitalPeriod:      3.52,
		PlanetRadius:       11.2,
		TransitDepth:       14500,
		TransitDuration:    2.8,
		PlanetMass:         318,
		StellarTemperature: 6070,
		StellarRadius:      1.15,
		SystemDistance:     48,
	},
	PresetSuperEarth: {
		OrbitalPeriod:      37.4,
		PlanetRadius:       1.6,
		TransitDepth:       310,
		TransitDuration:    4.1,
		PlanetMass:         4.5,
		StellarTemperature: 5120,
		StellarRadius:      0.82,
		SystemDistance:     210,
	},
}

// Presets returns the preset names in stable order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a copy of the named preset.
func Preset(name string) (ParameterSet, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ParameterSet{}, false
	}
	return p.Clone(), true
}

// DefaultParameters returns the Earth-like preset.
func DefaultParameters() ParameterSet {
	p, _ := Preset(PresetEarth)
	return p
}

// Value returns the required value for f.
func (p ParameterSet) Value(f Field) (float64, bool) {
	ref := (&p).ref(f)
	if ref == nil {
		return 0, false
	}
	return *ref, true
}

func (p *ParameterSet) ref(f Field) *float64 {
	switch f {
	case OrbitalPeriod:
		return &p.OrbitalPeriod
	case PlanetRadius:
		return &p.PlanetRadius
	case TransitDepth:
		return &p.TransitDepth
	case TransitDuration:
		return &p.TransitDuration
	case PlanetMass:
		return &p.PlanetMass
	case StellarTemperature:
		return &p.StellarTemperature
	case StellarRadius:
		return &p.StellarRadius
	case SystemDistance:
		return &p.SystemDistance
	default:
		return nil
	}
}

// Clone deep-copies the advanced maps.
func (p ParameterSet) Clone() ParameterSet {
	out := p
	if p.Optional != nil {
		out.Optional = make(map[Field]Optional, len(p.Optional))
		for k, v := range p.Optional {
			out.Optional[k] = v
		}
	}
	if p.Flags != nil {
		out.Flags = make(map[Field]TriState, len(p.Flags))
		for k, v := range p.Flags {
			out.Flags[k] = v
		}
	}
	return out
}

// CheckFields rejects advanced entries keyed by unknown or misplaced fields.
func (p ParameterSet) CheckFields() error {
	for f := range p.Optional {
		if !f.IsOptional() {
			return fmt.Errorf("unknown optional parameter %q", f)
		}
	}
	for f := range p.Flags {
		if !f.IsFlag() {
			return fmt.Errorf("unknown flag %q", f)
		}
	}
	return nil
}

// Payload builds the backend request record keyed by domain abbreviations.
// Absent optional values and unset flags are omitted.
func (p ParameterSet) Payload() map[string]float64 {
	out := make(map[string]float64, len(RequiredFields)+len(p.Optional)+len(p.Flags))
	for _, f := range RequiredFields {
		v, _ := p.Value(f)
		out[f.Abbreviation()] = v
	}
	for f, opt := range p.Optional {
		if !opt.Set || !f.IsOptional() {
			continue
		}
		out[f.Abbreviation()] = opt.Value
	}
	for f, flag := range p.Flags {
		v, ok := flag.Payload()
		if !ok || !f.IsFlag() {
			continue
		}
		out[f.Abbreviation()] = v
	}
	return out
}

// Features returns the required values in RequiredFields order.
func (p ParameterSet) Features() []float32 {
	out := make([]float32, 0, len(RequiredFields))
	for _, f := range RequiredFields {
		v, _ := p.Value(f)
		out = append(out, float32(v))
	}
	return out
}

// ParametersFromRow builds a ParameterSet from a parsed CSV row. Missing
// required values stay zero; they are only used for derived display metrics.
func ParametersFromRow(row BatchRow) ParameterSet {
	var p ParameterSet
	for f, v := range row.Fields {
		switch {
		case f.IsRequired():
			*p.ref(f) = v
		case f.IsOptional():
			if p.Optional == nil {
				p.Optional = make(map[Field]Optional)
			}
			p.Optional[f] = Some(v)
		case f.IsFlag():
			if p.Flags == nil {
				p.Flags = make(map[Field]TriState)
			}
			if v == 0 {
				p.Flags[f] = False
			} else {
				p.Flags[f] = True
			}
		}
	}
	return p
}
