package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecosphere/forecast/pkg/storage/storagemock"
	"github.com/ecosphere/forecast/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleIngestSamples(t *testing.T) {
	post := func(srv *Server, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/samples", bytes.NewBufferString(body))
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()
		srv.handleIngestSamples(w, req)
		return w
	}
	errOf := func(t *testing.T, w *httptest.ResponseRecorder) string {
		t.Helper()
		var errResp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		return errResp.Error
	}

	t.Run("OK", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("UpsertSamples", mock.Anything, types.SiteIDNone, types.MetricConsumption,
			mock.MatchedBy(func(samples []types.MetricSample) bool {
				return len(samples) == 2 && samples[0].Value == 1.5
			}), types.CurrentSampleHistoryVersion).Return(nil).Once()

		w := post(&Server{storage: mockDB}, `{
			"kind": "consumption",
			"samples": [
				{"timestamp": "2024-06-01T10:00:00Z", "value": 1.5},
				{"timestamp": "2024-06-01T11:00:00Z", "value": 2.5}
			]
		}`)

		require.Equal(t, 200, w.Result().StatusCode)
		var resp struct {
			Upserted int `json:"upserted"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Upserted)
		mockDB.AssertExpectations(t)
	})

	t.Run("Thermal Stats Collapse", func(t *testing.T) {
		noon := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("UpsertSamples", mock.Anything, types.SiteIDNone, types.MetricTemperature,
			mock.MatchedBy(func(samples []types.MetricSample) bool {
				// two sensors averaged into one synthetic noon sample
				return len(samples) == 1 && samples[0].Value == 21 && samples[0].Timestamp.Equal(noon)
			}), types.CurrentSampleHistoryVersion).Return(nil).Once()

		w := post(&Server{storage: mockDB}, `{
			"kind": "temperature",
			"thermalStats": [
				{"date": "2024-06-01", "sensor": "living", "high": 23, "low": 18, "avg": 20},
				{"date": "2024-06-01", "sensor": "bedroom", "high": 24, "low": 19, "avg": 22}
			]
		}`)

		require.Equal(t, 200, w.Result().StatusCode)
		var resp struct {
			Upserted int `json:"upserted"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Upserted)
		mockDB.AssertExpectations(t)
	})

	t.Run("Thermal Stats Wrong Kind", func(t *testing.T) {
		w := post(&Server{}, `{
			"kind": "consumption",
			"thermalStats": [{"date": "2024-06-01", "sensor": "living", "avg": 20}]
		}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, "thermalStats only apply to the temperature kind", errOf(t, w))
	})

	t.Run("Thermal Stats And Samples", func(t *testing.T) {
		w := post(&Server{}, `{
			"kind": "temperature",
			"samples": [{"timestamp": "2024-06-01T10:00:00Z", "value": 20}],
			"thermalStats": [{"date": "2024-06-01", "sensor": "living", "avg": 20}]
		}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, "provide samples or thermalStats, not both", errOf(t, w))
	})

	t.Run("Invalid Kind", func(t *testing.T) {
		w := post(&Server{}, `{"kind": "banana", "samples": [{"timestamp": "2024-06-01T10:00:00Z", "value": 1}]}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, `invalid kind: "banana"`, errOf(t, w))
	})

	t.Run("Empty", func(t *testing.T) {
		w := post(&Server{}, `{"kind": "consumption", "samples": []}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, "no samples provided", errOf(t, w))
	})

	t.Run("Batch Too Large", func(t *testing.T) {
		w := post(&Server{maxSampleBatch: 1}, `{
			"kind": "consumption",
			"samples": [
				{"timestamp": "2024-06-01T10:00:00Z", "value": 1},
				{"timestamp": "2024-06-01T11:00:00Z", "value": 2}
			]
		}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, "too many samples in one batch, max 1", errOf(t, w))
	})

	t.Run("Missing Timestamp", func(t *testing.T) {
		w := post(&Server{}, `{"kind": "consumption", "samples": [{"value": 5}]}`)

		require.Equal(t, 400, w.Result().StatusCode)
		assert.Equal(t, "sample 0 missing timestamp", errOf(t, w))
	})

	t.Run("Invalid Body", func(t *testing.T) {
		w := post(&Server{}, "{not json")
		assert.Equal(t, 400, w.Result().StatusCode)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("UpsertSamples", mock.Anything, types.SiteIDNone, types.MetricConsumption, mock.Anything, types.CurrentSampleHistoryVersion).
			Return(assert.AnError).Once()

		w := post(&Server{storage: mockDB}, `{"kind": "consumption", "samples": [{"timestamp": "2024-06-01T10:00:00Z", "value": 1}]}`)

		require.Equal(t, 500, w.Result().StatusCode)
		assert.Equal(t, "failed to save samples", errOf(t, w))
	})
}

func TestHandleLatestSample(t *testing.T) {
	t.Run("Has Samples", func(t *testing.T) {
		latest := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetLatestSampleTime", mock.Anything, types.SiteIDNone, types.MetricConsumption).
			Return(latest, types.CurrentSampleHistoryVersion, nil).Once()

		srv := &Server{storage: mockDB}
		req := httptest.NewRequest("GET", "/api/samples/latest?kind=consumption", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleLatestSample(w, req)

		require.Equal(t, 200, w.Result().StatusCode)
		var resp struct {
			Latest  *time.Time `json:"latest"`
			Version int        `json:"version"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.NotNil(t, resp.Latest)
		assert.True(t, resp.Latest.Equal(latest))
		assert.Equal(t, types.CurrentSampleHistoryVersion, resp.Version)
	})

	t.Run("No Samples Yet", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetLatestSampleTime", mock.Anything, types.SiteIDNone, types.MetricConsumption).
			Return(time.Time{}, 0, nil).Once()

		srv := &Server{storage: mockDB}
		req := httptest.NewRequest("GET", "/api/samples/latest?kind=consumption", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleLatestSample(w, req)

		require.Equal(t, 200, w.Result().StatusCode)
		var resp struct {
			Latest *time.Time `json:"latest"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Nil(t, resp.Latest)
	})

	t.Run("Invalid Kind", func(t *testing.T) {
		srv := &Server{}
		req := httptest.NewRequest("GET", "/api/samples/latest?kind=", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleLatestSample(w, req)

		assert.Equal(t, 400, w.Result().StatusCode)
	})
}
