package server

import (
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

func TestHandleHistorySamples(t *testing.T) {
	get := func(srv *Server, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", target, nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()
		srv.handleHistorySamples(w, req)
		return w
	}

	t.Run("Past Range", func(t *testing.T) {
		start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		samples := hourlySamples(end, 1, 1.5)
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetSampleHistory", mock.Anything, types.SiteIDNone, types.MetricConsumption, start, end).
			Return(samples, nil).Once()

		w := get(&Server{storage: mockDB}, "/api/history/samples?kind=consumption&start=2024-05-01T00:00:00Z&end=2024-05-02T00:00:00Z")

		res := w.Result()
		require.Equal(t, 200, res.StatusCode)
		// a fully past range is immutable, cache it for a day
		assert.Equal(t, "private, max-age=86400", res.Header.Get("Cache-Control"))
		var got []types.MetricSample
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Len(t, got, 24)
		mockDB.AssertExpectations(t)
	})

	t.Run("Default Last Day", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetSampleHistory", mock.Anything, types.SiteIDNone, types.MetricConsumption, mock.Anything, mock.Anything).
			Return([]types.MetricSample{}, nil).Once()

		w := get(&Server{storage: mockDB}, "/api/history/samples?kind=consumption")

		res := w.Result()
		require.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "private, max-age=60", res.Header.Get("Cache-Control"))
	})

	t.Run("Invalid Kind", func(t *testing.T) {
		w := get(&Server{}, "/api/history/samples?kind=banana")
		assert.Equal(t, 400, w.Result().StatusCode)
	})

	t.Run("Range Too Large", func(t *testing.T) {
		w := get(&Server{}, "/api/history/samples?kind=consumption&start=2024-05-01T00:00:00Z&end=2024-06-15T00:00:00Z")

		require.Equal(t, 400, w.Result().StatusCode)
		var errResp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Contains(t, errResp.Error, "time range cannot exceed")
	})

	t.Run("Backwards Range", func(t *testing.T) {
		w := get(&Server{}, "/api/history/samples?kind=consumption&start=2024-05-02T00:00:00Z&end=2024-05-01T00:00:00Z")

		require.Equal(t, 400, w.Result().StatusCode)
		var errResp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Contains(t, errResp.Error, "start time must be before end time")
	})

	t.Run("Invalid Start", func(t *testing.T) {
		w := get(&Server{}, "/api/history/samples?kind=consumption&start=yesterday&end=2024-05-01T00:00:00Z")

		require.Equal(t, 400, w.Result().StatusCode)
		var errResp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Contains(t, errResp.Error, "invalid start time")
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetSampleHistory", mock.Anything, types.SiteIDNone, types.MetricConsumption, mock.Anything, mock.Anything).
			Return([]types.MetricSample{}, assert.AnError).Once()

		w := get(&Server{storage: mockDB}, "/api/history/samples?kind=consumption")

		assert.Equal(t, 500, w.Result().StatusCode)
	})
}

func TestHandleHistoryForecasts(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
		records := []types.ForecastRecord{
			{RunID: "run-1", Kind: types.MetricGeneration, StrategyName: "weather_regression"},
			{RunID: "run-2", Kind: types.MetricGeneration, StrategyName: "trend"},
		}
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetForecastHistory", mock.Anything, types.SiteIDNone, types.MetricGeneration, start, end).
			Return(records, nil).Once()

		srv := &Server{storage: mockDB}
		req := httptest.NewRequest("GET", "/api/history/forecasts?kind=generation&start=2024-05-01T00:00:00Z&end=2024-05-08T00:00:00Z", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleHistoryForecasts(w, req)

		res := w.Result()
		require.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "private, max-age=86400", res.Header.Get("Cache-Control"))
		var got []types.ForecastRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got, 2)
		assert.Equal(t, "run-1", got[0].RunID)
		mockDB.AssertExpectations(t)
	})

	t.Run("Invalid Kind", func(t *testing.T) {
		srv := &Server{}
		req := httptest.NewRequest("GET", "/api/history/forecasts?kind=", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleHistoryForecasts(w, req)

		assert.Equal(t, 400, w.Result().StatusCode)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockDB := new(storagemock.MockDatabase)
		mockDB.On("GetForecastHistory", mock.Anything, types.SiteIDNone, types.MetricGeneration, mock.Anything, mock.Anything).
			Return([]types.ForecastRecord{}, assert.AnError).Once()

		srv := &Server{storage: mockDB}
		req := httptest.NewRequest("GET", "/api/history/forecasts?kind=generation", nil)
		req = req.WithContext(context.WithValue(req.Context(), siteIDContextKey, types.SiteIDNone))
		w := httptest.NewRecorder()

		srv.handleHistoryForecasts(w, req)

		assert.Equal(t, 500, w.Result().StatusCode)
	})
}
