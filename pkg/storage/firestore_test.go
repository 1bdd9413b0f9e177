package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/forecast/pkg/types"
)

func TestFirestoreProvider(t *testing.T) {
	// These tests need the Firestore emulator, e.g.
	// gcloud emulators firestore start --host-port=127.0.0.1:8087
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	projectID := "test-project-id"

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := &FirestoreProvider{
		projectID: projectID,
		database:  randDB,
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
	})

	t.Run("Settings", func(t *testing.T) {
		settings := types.Settings{
			Latitude:           41.9,
			Longitude:          -87.7,
			WeatherProvider:    "openmeteo",
			DefaultHorizonDays: 7,
			MaxHistoryDays:     400,
		}
		require.NoError(t, f.SetSettings(ctx, "test-site", settings, types.CurrentSettingsVersion))

		gotSettings, version, err := f.GetSettings(ctx, "test-site")
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		assert.Equal(t, settings.Latitude, gotSettings.Latitude)
		assert.Equal(t, settings.Longitude, gotSettings.Longitude)
		assert.Equal(t, settings.WeatherProvider, gotSettings.WeatherProvider)
		assert.Equal(t, settings.DefaultHorizonDays, gotSettings.DefaultHorizonDays)
	})

	t.Run("SettingsMissing", func(t *testing.T) {
		gotSettings, version, err := f.GetSettings(ctx, "never-seen-site")
		require.NoError(t, err)
		assert.Equal(t, 0, version)
		assert.Equal(t, types.Settings{}, gotSettings)
	})

	t.Run("EmptySiteID", func(t *testing.T) {
		_, _, err := f.GetSettings(ctx, "")
		assert.ErrorContains(t, err, "siteID cannot be empty")
	})

	t.Run("InvalidKind", func(t *testing.T) {
		_, err := f.GetSampleHistory(ctx, "test-site", "prices", time.Now().Add(-time.Hour), time.Now())
		assert.ErrorContains(t, err, "invalid metric kind")
	})

	t.Run("Samples", func(t *testing.T) {
		now := time.Now().Truncate(time.Second).UTC() // RFC3339 doc IDs are second precision
		samples := []types.MetricSample{
			{Timestamp: now.Add(-2 * time.Hour), Value: 1.1},
			{Timestamp: now.Add(-1 * time.Hour), Value: 1.2},
			{Timestamp: now, Value: 1.3},
		}
		require.NoError(t, f.UpsertSamples(ctx, "test-site", types.MetricConsumption, samples, types.CurrentSampleHistoryVersion))

		t.Run("RangeFiltering", func(t *testing.T) {
			got, err := f.GetSampleHistory(ctx, "test-site", types.MetricConsumption, now.Add(-90*time.Minute), now.Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.True(t, got[0].Timestamp.Equal(samples[1].Timestamp))
			assert.Equal(t, 1.2, got[0].Value)
			assert.Equal(t, 1.3, got[1].Value)
		})

		t.Run("KindsAreIsolated", func(t *testing.T) {
			got, err := f.GetSampleHistory(ctx, "test-site", types.MetricGeneration, now.Add(-3*time.Hour), now.Add(time.Minute))
			require.NoError(t, err)
			assert.Empty(t, got)
		})

		t.Run("UpsertOverwrite", func(t *testing.T) {
			updated := []types.MetricSample{{Timestamp: now, Value: 9.9}}
			require.NoError(t, f.UpsertSamples(ctx, "test-site", types.MetricConsumption, updated, types.CurrentSampleHistoryVersion))

			got, err := f.GetSampleHistory(ctx, "test-site", types.MetricConsumption, now, now.Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 9.9, got[0].Value)
		})

		t.Run("GetLatestSampleTime", func(t *testing.T) {
			latest, version, err := f.GetLatestSampleTime(ctx, "test-site", types.MetricConsumption)
			require.NoError(t, err)
			assert.True(t, latest.Equal(now), "latest should be the most recent sample")
			assert.Equal(t, types.CurrentSampleHistoryVersion, version)
		})

		t.Run("GetLatestSampleTimeEmpty", func(t *testing.T) {
			latest, version, err := f.GetLatestSampleTime(ctx, "test-site", types.MetricTemperature)
			require.NoError(t, err)
			assert.True(t, latest.IsZero())
			assert.Equal(t, 0, version)
		})
	})

	t.Run("Forecasts", func(t *testing.T) {
		now := time.Now().Truncate(time.Second).UTC()
		rec := types.ForecastRecord{
			RunID:        "run-1",
			CreatedAt:    now,
			Kind:         types.MetricConsumption,
			TargetDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			HorizonDays:  7,
			Strategy:     1,
			StrategyName: "seasonal_smoothing",
			Confidence:   90,
			Accuracy:     "5-star",
			Predictions: []types.Prediction{
				{Date: "2024-05-01", Value: 12.5},
				{Date: "2024-05-02", Value: 13.0},
			},
		}
		require.NoError(t, f.InsertForecast(ctx, "test-site", rec))

		older := rec
		older.RunID = "run-0"
		older.CreatedAt = now.Add(-48 * time.Hour)
		require.NoError(t, f.InsertForecast(ctx, "test-site", older))

		t.Run("History", func(t *testing.T) {
			got, err := f.GetForecastHistory(ctx, "test-site", types.MetricConsumption, now.Add(-time.Hour), now.Add(time.Hour))
			require.NoError(t, err)
			require.Len(t, got, 1, "older run should be outside the range")
			assert.Equal(t, "run-1", got[0].RunID)
			require.Len(t, got[0].Predictions, 2)
			assert.Equal(t, 12.5, got[0].Predictions[0].Value)
		})

		t.Run("GetLatestForecast", func(t *testing.T) {
			got, err := f.GetLatestForecast(ctx, "test-site", types.MetricConsumption)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "run-1", got.RunID)
			assert.Equal(t, "seasonal_smoothing", got.StrategyName)
		})

		t.Run("GetLatestForecastEmpty", func(t *testing.T) {
			got, err := f.GetLatestForecast(ctx, "test-site", types.MetricTemperature)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	})

	t.Run("Sites", func(t *testing.T) {
		site := types.Site{
			ID:        "test-site-crud",
			Name:      "Test Site",
			CreatedAt: time.Now().Truncate(time.Second).UTC(),
		}

		t.Run("CreateSite", func(t *testing.T) {
			require.NoError(t, f.CreateSite(ctx, "test-site-crud", site))

			got, err := f.GetSite(ctx, "test-site-crud")
			require.NoError(t, err)
			assert.Equal(t, "Test Site", got.Name)
			assert.True(t, got.CreatedAt.Equal(site.CreatedAt))
		})

		t.Run("CreateSiteDuplicate", func(t *testing.T) {
			err := f.CreateSite(ctx, "test-site-crud", site)
			assert.Error(t, err)
		})

		t.Run("UpdateSite", func(t *testing.T) {
			site.Name = "Renamed Site"
			require.NoError(t, f.UpdateSite(ctx, "test-site-crud", site))

			got, err := f.GetSite(ctx, "test-site-crud")
			require.NoError(t, err)
			assert.Equal(t, "Renamed Site", got.Name)
		})

		t.Run("GetSiteNotFound", func(t *testing.T) {
			_, err := f.GetSite(ctx, "nonexistent-site")
			assert.True(t, errors.Is(err, ErrSiteNotFound))
		})

		t.Run("ListSites", func(t *testing.T) {
			site2 := types.Site{ID: "site2", Name: "Site 2"}
			require.NoError(t, f.CreateSite(ctx, "site2", site2))

			sites, err := f.ListSites(ctx)
			require.NoError(t, err)

			foundCrud := false
			foundSite2 := false
			for _, s := range sites {
				if s.ID == "test-site-crud" {
					foundCrud = true
				}
				if s.ID == "site2" {
					foundSite2 = true
				}
			}
			assert.True(t, foundCrud, "ListSites did not return test-site-crud")
			assert.True(t, foundSite2, "ListSites did not return site2")
		})
	})
}
