package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

func TestParameterFlags_PresetAndOverrides(t *testing.T) {
	flags := parameterFlags{
		preset: classifier.PresetHotJupiter,
		values: []string{"pl_rade=12.5", "signal_to_noise=40", "koi_fpflag_ss=no"},
	}

	store, err := flags.build()
	require.NoError(t, err)
	params := store.Snapshot()
	require.InDelta(t, 3.52, params.OrbitalPeriod, 1e-9)
	require.InDelta(t, 12.5, params.PlanetRadius, 1e-9)
	require.Equal(t, classifier.Some(40), params.Optional[classifier.SignalToNoise])
	require.Equal(t, classifier.False, params.Flags[classifier.FlagStellarEclipse])
	require.True(t, store.Submittable())
}

func TestParameterFlags_OutOfRange(t *testing.T) {
	flags := parameterFlags{preset: classifier.PresetEarth, values: []string{"planet_radius=45"}}

	store, err := flags.build()
	require.NoError(t, err)
	require.False(t, store.Submittable())
	errs := store.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, classifier.PlanetRadius, errs[0].Parameter)
}

func TestParameterFlags_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"orbital_period": 10, "planet_radius": 2, "transit_depth": 500, "transit_duration": 3,
		"planet_mass": 5, "stellar_temperature": 5000, "stellar_radius": 0.9, "system_distance": 100
	}`), 0o600))

	flags := parameterFlags{preset: classifier.PresetEarth, file: path, values: []string{"sy_dist=200"}}
	store, err := flags.build()
	require.NoError(t, err)
	params := store.Snapshot()
	require.InDelta(t, 10, params.OrbitalPeriod, 1e-9)
	require.InDelta(t, 200, params.SystemDistance, 1e-9)
}

func TestParameterFlags_Errors(t *testing.T) {
	cases := map[string]parameterFlags{
		"unknown preset":    {preset: "mars"},
		"missing value":     {values: []string{"pl_rade="}},
		"not a number":      {values: []string{"pl_rade=big"}},
		"unknown parameter": {values: []string{"colour=3"}},
		"bad flag":          {values: []string{"koi_fpflag_nt=maybe"}},
		"missing file":      {file: filepath.Join(os.TempDir(), "does-not-exist.json")},
	}
	for name, flags := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := flags.build()
			require.Error(t, err)
		})
	}
}
