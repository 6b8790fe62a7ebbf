package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is the canonical name of a classifier parameter.
type Field string

// Required parameters.
const (
	OrbitalPeriod      Field = "orbital_period"
	PlanetRadius       Field = "planet_radius"
	TransitDepth       Field = "transit_depth"
	TransitDuration    Field = "transit_duration"
	PlanetMass         Field = "planet_mass"
	StellarTemperature Field = "stellar_temperature"
	StellarRadius      Field = "stellar_radius"
	SystemDistance     Field = "system_distance"
)

// Optional numeric parameters.
const (
	SignalToNoise          Field = "signal_to_noise"
	DispositionScore       Field = "disposition_score"
	ImpactParameter        Field = "impact_parameter"
	StellarSurfaceGravity  Field = "stellar_surface_gravity"
	EquilibriumTemperature Field = "equilibrium_temperature"
	InsolationFlux         Field = "insolation_flux"
	TransitCount           Field = "transit_count"
	SemiMajorAxis          Field = "semi_major_axis"
	PlanetDensity          Field = "planet_density"
	StellarMass            Field = "stellar_mass"
	StellarMetallicity     Field = "stellar_metallicity"
	RadiusRatio            Field = "radius_ratio"
	DistanceRatio          Field = "distance_ratio"
	SNRPerTransit          Field = "snr_per_transit"
	DepthDurationRatio     Field = "depth_duration_ratio"
)

// False-positive flags. They are tri-state: unset, false or true.
const (
	FlagNotTransitLike Field = "fp_not_transit_like"
	FlagStellarEclipse Field = "fp_stellar_eclipse"
	FlagCentroidOffset Field = "fp_centroid_offset"
	FlagEphemerisMatch Field = "fp_ephemeris_match"
)

type fieldKind int

const (
	kindRequired fieldKind = iota
	kindOptional
	kindFlag
)

type fieldDef struct {
	abbrev string
	label  string
	kind   fieldKind
}

var fieldCatalog = map[Field]fieldDef{
	OrbitalPeriod:      {abbrev: "pl_orbper", label: "Orbital Period", kind: kindRequired},
	PlanetRadius:       {abbrev: "pl_rade", label: "Planet Radius", kind: kindRequired},
	TransitDepth:       {abbrev: "pl_trandep", label: "Transit Depth", kind: kindRequired},
	TransitDuration:    {abbrev: "pl_trandur", label: "Transit Duration", kind: kindRequired},
	PlanetMass:         {abbrev: "pl_bmasse", label: "Planet Mass", kind: kindRequired},
	StellarTemperature: {abbrev: "st_teff", label: "Stellar Temperature", kind: kindRequired},
	StellarRadius:      {abbrev: "st_rad", label: "Stellar Radius", kind: kindRequired},
	SystemDistance:     {abbrev: "sy_dist", label: "System Distance", kind: kindRequired},

	SignalToNoise:          {abbrev: "koi_model_snr", label: "Signal-to-Noise", kind: kindOptional},
	DispositionScore:       {abbrev: "koi_score", label: "Disposition Score", kind: kindOptional},
	ImpactParameter:        {abbrev: "koi_impact", label: "Impact Parameter", kind: kindOptional},
	StellarSurfaceGravity:  {abbrev: "st_logg", label: "Stellar Surface Gravity", kind: kindOptional},
	EquilibriumTemperature: {abbrev: "pl_eqt", label: "Equilibrium Temperature", kind: kindOptional},
	InsolationFlux:         {abbrev: "pl_insol", label: "Insolation Flux", kind: kindOptional},
	TransitCount:           {abbrev: "koi_num_transits", label: "Transit Count", kind: kindOptional},
	SemiMajorAxis:          {abbrev: "pl_orbsmax", label: "Semi-Major Axis", kind: kindOptional},
	PlanetDensity:          {abbrev: "pl_dens", label: "Planet Density", kind: kindOptional},
	StellarMass:            {abbrev: "st_mass", label: "Stellar Mass", kind: kindOptional},
	StellarMetallicity:     {abbrev: "st_met", label: "Stellar Metallicity", kind: kindOptional},
	RadiusRatio:            {abbrev: "pl_ratror", label: "Planet-Star Radius Ratio", kind: kindOptional},
	DistanceRatio:          {abbrev: "pl_ratdor", label: "Distance-Star Radius Ratio", kind: kindOptional},
	SNRPerTransit:          {abbrev: "snr_per_transit", label: "SNR per Transit", kind: kindOptional},
	DepthDurationRatio:     {abbrev: "depth_duration_ratio", label: "Depth/Duration Ratio", kind: kindOptional},

	FlagNotTransitLike: {abbrev: "koi_fpflag_nt", label: "Not Transit-Like Flag", kind: kindFlag},
	FlagStellarEclipse: {abbrev: "koi_fpflag_ss", label: "Stellar Eclipse Flag", kind: kindFlag},
	FlagCentroidOffset: {abbrev: "koi_fpflag_co", label: "Centroid Offset Flag", kind: kindFlag},
	FlagEphemerisMatch: {abbrev: "koi_fpflag_ec", label: "Ephemeris Match Flag", kind: kindFlag},
}

// RequiredFields lists the core parameters in display order.
var RequiredFields = []Field{
	OrbitalPeriod,
	PlanetRadius,
	TransitDepth,
	TransitDuration,
	PlanetMass,
	StellarTemperature,
	StellarRadius,
	SystemDistance,
}

// OptionalFields lists the optional numeric parameters.
var OptionalFields = []Field{
	SignalToNoise,
	DispositionScore,
	ImpactParameter,
	StellarSurfaceGravity,
	EquilibriumTemperature,
	InsolationFlux,
	TransitCount,
	SemiMajorAxis,
	PlanetDensity,
	StellarMass,
	StellarMetallicity,
	RadiusRatio,
	DistanceRatio,
	SNRPerTransit,
	DepthDurationRatio,
}

// FlagFields lists the tri-state false-positive flags.
var FlagFields = []Field{
	FlagNotTransitLike,
	FlagStellarEclipse,
	FlagCentroidOffset,
	FlagEphemerisMatch,
}

var abbrevIndex = func() map[string]Field {
	idx := make(map[string]Field, len(fieldCatalog))
	for f, def := range fieldCatalog {
		idx[def.abbrev] = f
	}
	return idx
}()

// Abbreviation returns the backend wire key for the field.
func (f Field) Abbreviation() string {
	return fieldCatalog[f].abbrev
}

// Label returns the human readable name.
func (f Field) Label() string {
	if def, ok := fieldCatalog[f]; ok {
		return def.label
	}
	return string(f)
}

// IsRequired reports whether f is one of the eight core parameters.
func (f Field) IsRequired() bool {
	def, ok := fieldCatalog[f]
	return ok && def.kind == kindRequired
}

// IsOptional reports whether f is an optional numeric parameter.
func (f Field) IsOptional() bool {
	def, ok := fieldCatalog[f]
	return ok && def.kind == kindOptional
}

// IsFlag reports whether f is a tri-state flag.
func (f Field) IsFlag() bool {
	def, ok := fieldCatalog[f]
	return ok && def.kind == kindFlag
}

// LookupField resolves a canonical name or a domain abbreviation.
func LookupField(name string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := fieldCatalog[Field(key)]; ok {
		return Field(key), true
	}
	if f, ok := abbrevIndex[key]; ok {
		return f, true
	}
	return "", false
}

// Optional is a numeric value that may be absent. Absent values are omitted
// from backend requests rather than sent as zero.
type Optional struct {
	Value float64
	Set   bool
}

// Some returns a present Optional.
func Some(v float64) Optional {
	return Optional{Value: v, Set: true}
}

// MarshalJSON encodes absent values as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON accepts a number or null.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("optional value: %w", err)
	}
	*o = Some(v)
	return nil
}

// TriState distinguishes "not provided" from an explicit false.
type TriState int8

const (
	Unset TriState = iota
	False
	True
)

func (t TriState) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	default:
		return "unset"
	}
}

// Payload returns the 0/1 wire value and whether the flag is set.
func (t TriState) Payload() (float64, bool) {
	switch t {
	case False:
		return 0, true
	case True:
		return 1, true
	default:
		return 0, false
	}
}

// ParseTriState accepts true/false/1/0/yes/no and an empty string for unset.
func ParseTriState(raw string) (TriState, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "unset", "null":
		return Unset, nil
	case "true", "1", "yes":
		return True, nil
	case "false", "0", "no":
		return False, nil
	default:
		return Unset, fmt.Errorf("invalid flag value %q", raw)
	}
}

// MarshalJSON encodes the flag as true, false or null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts booleans, 0/1 and null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		switch n {
		case 0:
			*t = False
			return nil
		case 1:
			*t = True
			return nil
		}
		return fmt.Errorf("invalid flag value %s", raw)
	}
	parsed, err := ParseTriState(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
