package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

func TestParameterStore_RevalidatesOnEveryChange(t *testing.T) {
	store := NewParameterStore()
	require.True(t, store.Submittable())

	require.NoError(t, store.Set(StellarTemperature, 12000))
	require.False(t, store.Submittable())
	require.Equal(t, StellarTemperature, store.Errors()[0].Parameter)

	require.NoError(t, store.SetByName("st_teff", 6000))
	require.True(t, store.Submittable())
	require.Empty(t, store.Errors())
}

func TestParameterStore_PresetKeepsAdvancedValues(t *testing.T) {
	store := NewParameterStore()
	require.NoError(t, store.SetOptional(SignalToNoise, 25))
	require.NoError(t, store.SetFlag(FlagCentroidOffset, True))

	require.NoError(t, store.ApplyPreset("Hot_Jupiter"))
	snap := store.Snapshot()
	require.InDelta(t, 3.52, snap.OrbitalPeriod, 1e-9)
	require.Equal(t, Some(25), snap.Optional[SignalToNoise])
	require.Equal(t, True, snap.Flags[FlagCentroidOffset])

	store.Reset()
	snap = store.Snapshot()
	require.Empty(t, snap.Optional)
	require.Empty(t, snap.Flags)
}

func TestParameterStore_Rejections(t *testing.T) {
	store := NewParameterStore()

	err := store.ApplyPreset("pluto")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	require.Error(t, store.Set(SignalToNoise, 1))
	require.Error(t, store.SetOptional(PlanetRadius, 1))
	require.Error(t, store.SetFlag(SignalToNoise, True))
	require.Error(t, store.SetByName("unknown", 1))
	require.Error(t, store.Replace(ParameterSet{Optional: map[Field]Optional{PlanetRadius: Some(1)}}))
}

func TestParameterStore_OptionalAndFlagLifecycle(t *testing.T) {
	store := NewParameterStore()
	require.NoError(t, store.SetByName("koi_fpflag_nt", 0))
	require.NoError(t, store.SetByName("koi_impact", 0.3))

	payload := store.Snapshot().Payload()
	require.InDelta(t, 0, payload["koi_fpflag_nt"], 1e-9)
	require.InDelta(t, 0.3, payload["koi_impact"], 1e-9)

	store.ClearOptional(ImpactParameter)
	require.NoError(t, store.SetFlag(FlagNotTransitLike, Unset))
	payload = store.Snapshot().Payload()
	require.NotContains(t, payload, "koi_fpflag_nt")
	require.NotContains(t, payload, "koi_impact")
	require.Len(t, payload, len(RequiredFields))
}

func TestParameterStore_SnapshotIsIsolated(t *testing.T) {
	store := NewParameterStore()
	require.NoError(t, store.SetOptional(StellarMass, 1.1))

	snap := store.Snapshot()
	snap.Optional[StellarMass] = Some(9)
	require.Equal(t, Some(1.1), store.Snapshot().Optional[StellarMass])
}
