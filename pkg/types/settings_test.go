package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("v1: initial defaults", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 7, s.DefaultHorizonDays)
		assert.Equal(t, 400, s.MaxHistoryDays)
		assert.Equal(t, "openmeteo", s.WeatherProvider)
	})

	t.Run("v1 to v2: history cap", func(t *testing.T) {
		old := Settings{
			DefaultHorizonDays: 14,
			WeatherProvider:    "openmeteo",
		}
		s, changed, err := MigrateSettings(old, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		// existing values are kept, only the missing cap is defaulted
		assert.Equal(t, 14, s.DefaultHorizonDays)
		assert.Equal(t, 400, s.MaxHistoryDays)
	})

	t.Run("v2 to v3: weather provider", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{MaxHistoryDays: 365, DefaultHorizonDays: 7}, 2)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "openmeteo", s.WeatherProvider)
		assert.Equal(t, 365, s.MaxHistoryDays)
	})

	t.Run("no change: current version", func(t *testing.T) {
		current := Settings{
			DefaultHorizonDays: 7,
			MaxHistoryDays:     400,
			WeatherProvider:    "openmeteo",
		}
		s, changed, err := MigrateSettings(current, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, current, s)
	})
}

func TestMetricKindValid(t *testing.T) {
	for _, k := range MetricKinds() {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, MetricKind("").Valid())
	assert.False(t, MetricKind("humidity").Valid())
}

func TestSettingsHasLocation(t *testing.T) {
	assert.False(t, Settings{}.HasLocation())
	assert.True(t, Settings{Latitude: 41.9, Longitude: -87.7}.HasLocation())
	// a site sitting exactly on the equator still counts
	assert.True(t, Settings{Latitude: 0, Longitude: 102.5}.HasLocation())
}
