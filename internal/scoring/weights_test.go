package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
)

func TestWeightsWith(t *testing.T) {
	w := Base.With(ProfileFor(features.MVARearEnd))
	assert.Equal(t, 35, w.RearEnded)
	assert.Equal(t, 8, w.PoliceReport)
	assert.Equal(t, -4, w.MinorDamage)
	assert.Equal(t, 30, Base.RearEnded, "base is not mutated")

	assert.Equal(t, Base, Base.With(ProfileFor(features.Other)))
	assert.Equal(t, Base, Base.With(ProfileFor(features.CaseType("UNKNOWN"))))
}

func TestBuiltinProfiles(t *testing.T) {
	tests := []struct {
		ct    features.CaseType
		check func(t *testing.T, w Weights)
	}{
		{features.MVALeftTurn, func(t *testing.T, w Weights) {
			assert.Equal(t, 8, w.PoliceReport)
			assert.Equal(t, 30, w.RearEnded)
		}},
		{features.PremisesIceSnow, func(t *testing.T, w Weights) {
			assert.Equal(t, 30, w.SlipFallNoSign)
			assert.Equal(t, 6, w.DefendantLocation)
			assert.Equal(t, 0, w.MinorDamage)
		}},
		{features.DogBite, func(t *testing.T, w Weights) {
			assert.Equal(t, 4, w.WitnessPresent)
			assert.Equal(t, 0, w.MinorDamage)
		}},
		{features.PedestrianOrBicycle, func(t *testing.T, w Weights) {
			assert.Equal(t, 8, w.PoliceReport)
			assert.Equal(t, 6, w.PedestrianOrBicyclist)
		}},
		{features.RideshareMVA, func(t *testing.T, w Weights) {
			assert.Equal(t, 5, w.Rideshare)
			assert.Equal(t, -4, w.MinorDamage)
		}},
	}
	table := DefaultTable()
	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			tt.check(t, table.For(tt.ct))
		})
	}
}

func TestParseWeights(t *testing.T) {
	table, err := ParseWeights(`
version = "firm-2024-10"

[base]
accept_threshold = 72
rear_ended = 28

[profiles.DOG_BITE]
witness_present = 5

[profiles.OTHER]
imaging = 4
`)
	require.NoError(t, err)

	assert.Equal(t, "firm-2024-10", table.Version)
	assert.Equal(t, 72, table.Base.AcceptThreshold)
	assert.Equal(t, 28, table.Base.RearEnded)
	assert.Equal(t, 40, table.Base.DeclineThreshold, "unset keys keep built-in values")

	dog := table.For(features.DogBite)
	assert.Equal(t, 5, dog.WitnessPresent)
	assert.Equal(t, 0, dog.MinorDamage, "built-in profile fields survive the overlay")

	assert.Equal(t, 4, table.For(features.Other).Imaging)
	assert.Equal(t, 35, table.For(features.MVARearEnd).RearEnded)

	assert.Nil(t, Profiles[features.Other].Imaging, "built-in profiles are not mutated")
}

func TestParseWeights_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[base\nrear_ended = 1"},
		{"unknown key", "[base]\nrear_endd = 1"},
		{"unknown case type", "[profiles.BOAT]\nrear_ended = 1"},
		{"inverted thresholds", "[base]\naccept_threshold = 30\ndecline_threshold = 50"},
		{"inverted bounds", "[base]\nmin_score = 90\nmax_score = 10"},
		{"negative cap", "[base]\npain_cap = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWeights(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidWeights))
		})
	}
}

func TestLoadWeightsFile(t *testing.T) {
	table, err := LoadWeightsFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeightsVersion, table.Version)

	path := filepath.Join(t.TempDir(), "weights.toml")
	require.NoError(t, os.WriteFile(path, []byte("[base]\nwitness_present = 3\n"), 0o600))

	table, err = LoadWeightsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", table.Version)
	assert.Equal(t, 3, table.Base.WitnessPresent)

	_, err = LoadWeightsFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestTableScoreUsesOverrides(t *testing.T) {
	table, err := ParseWeights("[base]\nwitness_present = 9\n")
	require.NoError(t, err)

	f := features.Empty()
	f.Booleans.WitnessPresent = true
	r := table.Score(Input{Features: f, Now: fixedNow})

	delta, ok := deltaOf(r, "witness_present")
	require.True(t, ok)
	assert.Equal(t, 9, delta)
	assert.Equal(t, "custom", r.Trace.WeightsVersion)
}
