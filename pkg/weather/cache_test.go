package weather

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/forecast/pkg/types"
)

func TestObservationCacheRoundTrip(t *testing.T) {
	c, err := OpenObservationCache(filepath.Join(t.TempDir(), "cache", "weather.db"))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	obs := []types.WeatherObservation{
		{Timestamp: start, Temperature: 10, CloudCover: 50, ShortwaveRadiation: 0},
		{Timestamp: start.Add(time.Hour), Temperature: 11, CloudCover: 40, ShortwaveRadiation: 120, DirectRadiation: 90, DiffuseRadiation: 30},
		{Timestamp: start.Add(2 * time.Hour), Temperature: 12, CloudCover: 30, ShortwaveRadiation: 250},
	}
	require.NoError(t, c.Store(ctx, 41.9, -87.7, obs))

	got, err := c.GetRange(ctx, 41.9, -87.7, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2, "range end is exclusive")
	assert.Equal(t, start, got[0].Timestamp)
	assert.Equal(t, 11.0, got[1].Temperature)
	assert.Equal(t, 90.0, got[1].DirectRadiation)
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())

	// different coordinates miss
	got, err = c.GetRange(ctx, 40.0, -87.7, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObservationCacheReplace(t *testing.T) {
	c, err := OpenObservationCache(filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.Store(ctx, 41.9, -87.7, []types.WeatherObservation{{Timestamp: ts, Temperature: 10}}))
	require.NoError(t, c.Store(ctx, 41.9, -87.7, []types.WeatherObservation{{Timestamp: ts, Temperature: 12}}))

	got, err := c.GetRange(ctx, 41.9, -87.7, ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.0, got[0].Temperature)
}

func TestObservationCacheCleanup(t *testing.T) {
	c, err := OpenObservationCache(filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.Store(ctx, 41.9, -87.7, []types.WeatherObservation{{Timestamp: ts, Temperature: 10}}))

	removed, err := c.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := c.GetRange(ctx, 41.9, -87.7, ts, ts.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}
