package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ecosphere/forecast/pkg/forecast"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
	"github.com/ecosphere/forecast/pkg/weather"
	"github.com/google/uuid"
)

const (
	maxForecastDays = 30
	// Open-Meteo only forecasts 16 days out, longer horizons use the tiers
	maxWeatherForecastDays = 16

	defaultHorizonDays = 7
	defaultHistoryDays = 400
)

// kindUsesWeather reports whether forecasts for the kind are driven by weather
// when a site location is configured.
func kindUsesWeather(kind types.MetricKind) bool {
	return kind == types.MetricGeneration || kind == types.MetricTemperature
}

// parseForecastQuery validates the kind/target/days params shared by the
// forecast and availability endpoints. The horizon falls back to the site's
// configured default when not given.
func parseForecastQuery(r *http.Request, settings types.Settings) (types.MetricKind, time.Time, int, error) {
	kind := types.MetricKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		return "", time.Time{}, 0, fmt.Errorf("invalid kind: %q", string(kind))
	}

	target := truncateDay(time.Now().UTC())
	if targetStr := r.URL.Query().Get("target"); targetStr != "" {
		var err error
		target, err = time.ParseInLocation("2006-01-02", targetStr, time.UTC)
		if err != nil {
			return "", time.Time{}, 0, fmt.Errorf("invalid target date: %w", err)
		}
	}

	days := settings.DefaultHorizonDays
	if days == 0 {
		days = defaultHorizonDays
	}
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		var err error
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			return "", time.Time{}, 0, fmt.Errorf("invalid days: %w", err)
		}
	}
	if days < 1 || days > maxForecastDays {
		return "", time.Time{}, 0, fmt.Errorf("days must be between 1 and %d", maxForecastDays)
	}

	return kind, target, days, nil
}

type forecastResponse struct {
	RunID       string             `json:"runID"`
	Kind        types.MetricKind   `json:"kind"`
	TargetDate  string             `json:"targetDate"`
	HorizonDays int                `json:"horizonDays"`
	Predictions []types.Prediction `json:"predictions"`
	Metadata    forecast.Metadata  `json:"metadata"`
	// WeatherFallback explains why a weather-driven kind fell back to the
	// tiered strategies. Empty when the weather path ran or never applied.
	WeatherFallback string `json:"weatherFallback,omitempty"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	settings, err := s.getSettingsWithMigration(ctx, siteID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	kind, target, days, err := parseForecastQuery(r, settings.Settings)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	historyDays := settings.MaxHistoryDays
	if historyDays == 0 {
		historyDays = defaultHistoryDays
	}
	samples, err := s.storage.GetSampleHistory(ctx, siteID, kind, target.AddDate(0, 0, -historyDays), target)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get sample history", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get sample history", http.StatusInternalServerError)
		return
	}

	req := forecast.Request{
		TargetDate:        target,
		HorizonDays:       days,
		HistoricalSamples: samples,
	}

	var result *forecast.Result
	var weatherFallback string
	if kindUsesWeather(kind) && settings.HasLocation() && !settings.DisableWeatherRegression && len(samples) > 0 {
		result, weatherFallback = s.weatherForecast(ctx, req, settings.Settings)
	}
	if result == nil {
		result, err = s.engine.Forecast(ctx, req)
		if err != nil {
			var insufficient *forecast.InsufficientDataError
			if errors.As(err, &insufficient) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				if err := json.NewEncoder(w).Encode(struct {
					Error            string                    `json:"error"`
					DataAvailability forecast.DataAvailability `json:"dataAvailability"`
				}{Error: err.Error(), DataAvailability: insufficient.Availability}); err != nil {
					panic(http.ErrAbortHandler)
				}
				return
			}
			var invalidRange *forecast.InvalidRangeError
			if errors.As(err, &invalidRange) {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Ctx(ctx).ErrorContext(ctx, "forecast failed", slog.String("kind", string(kind)), slog.Any("error", err))
			writeJSONError(w, "forecast failed", http.StatusInternalServerError)
			return
		}
	}
	s.metrics.observeForecastRun(string(kind), result.Metadata.StrategyName)

	record := types.ForecastRecord{
		RunID:        uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Kind:         kind,
		TargetDate:   target,
		HorizonDays:  days,
		Strategy:     int(result.Metadata.Strategy),
		StrategyName: result.Metadata.StrategyName,
		Confidence:   result.Metadata.Confidence,
		Accuracy:     result.Metadata.Accuracy,
		Warning:      result.Metadata.Warning,
		Predictions:  result.Predictions,
	}
	if result.Metadata.RegressionModel != nil {
		record.RSquared = result.Metadata.RegressionModel.RSquared
	}
	// the forecast succeeded even if we can't save the run
	if err := s.storage.InsertForecast(ctx, siteID, record); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save forecast run", slog.String("runID", record.RunID), slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if err := json.NewEncoder(w).Encode(forecastResponse{
		RunID:           record.RunID,
		Kind:            kind,
		TargetDate:      target.Format("2006-01-02"),
		HorizonDays:     days,
		Predictions:     result.Predictions,
		Metadata:        result.Metadata,
		WeatherFallback: weatherFallback,
	}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// weatherForecast runs the regression path. It returns a nil result and the
// reason whenever the caller should fall back to the tiered strategies, the
// fallback is reported to the client rather than silently downgraded.
func (s *Server) weatherForecast(ctx context.Context, req forecast.Request, settings types.Settings) (*forecast.Result, string) {
	provider, err := s.weather.Provider(settings.WeatherProvider)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "weather provider unavailable", slog.String("provider", settings.WeatherProvider), slog.Any("error", err))
		return nil, fmt.Sprintf("weather provider unavailable: %v", err)
	}

	today := truncateDay(time.Now().UTC())
	horizonEnd := req.TargetDate.AddDate(0, 0, req.HorizonDays)
	var forecastDays int
	if horizonEnd.After(today) {
		forecastDays = int(horizonEnd.Sub(today).Hours() / 24)
		if forecastDays > maxWeatherForecastDays {
			return nil, fmt.Sprintf("forecast window of %d days exceeds the %d day weather forecast", forecastDays, maxWeatherForecastDays)
		}
	}

	// the training window matches the sample history
	trainStart := truncateDay(req.HistoricalSamples[0].Timestamp.UTC())

	var wg sync.WaitGroup
	var hist, fore []types.WeatherObservation
	var histErr, foreErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		hist, histErr = provider.GetHistorical(ctx, settings.Latitude, settings.Longitude, trainStart, req.TargetDate)
	}()
	go func() {
		defer wg.Done()
		if forecastDays > 0 {
			fore, foreErr = provider.GetForecast(ctx, settings.Latitude, settings.Longitude, forecastDays)
		} else {
			// the whole horizon is in the past, read it from the archive
			fore, foreErr = provider.GetHistorical(ctx, settings.Latitude, settings.Longitude, req.TargetDate, horizonEnd)
		}
	}()
	wg.Wait()
	if histErr != nil {
		s.metrics.observeWeatherFetch(settings.WeatherProvider, "error")
		log.Ctx(ctx).WarnContext(ctx, "failed to get historical weather", slog.Any("error", histErr))
		return nil, fmt.Sprintf("historical weather fetch failed: %v", histErr)
	}
	if foreErr != nil {
		s.metrics.observeWeatherFetch(settings.WeatherProvider, "error")
		log.Ctx(ctx).WarnContext(ctx, "failed to get forecast weather", slog.Any("error", foreErr))
		return nil, fmt.Sprintf("forecast weather fetch failed: %v", foreErr)
	}
	s.metrics.observeWeatherFetch(settings.WeatherProvider, "ok")

	wreq := req
	wreq.HistoricalWeather = weather.AggregateDaily(hist)
	wreq.ForecastWeather = weather.AggregateDaily(fore)
	if dates := weather.SortedDates(wreq.HistoricalWeather); len(dates) > 0 {
		log.Ctx(ctx).DebugContext(ctx, "training weather coverage",
			slog.String("first", dates[0]),
			slog.String("last", dates[len(dates)-1]),
			slog.Int("days", len(dates)),
		)
	}
	result, err := s.engine.ForecastWithWeather(ctx, wreq)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "weather regression unusable, falling back", slog.Any("error", err))
		return nil, fmt.Sprintf("weather regression unusable: %v", err)
	}
	return result, ""
}

func (s *Server) handleLatestForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	kind := types.MetricKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeJSONError(w, fmt.Sprintf("invalid kind: %q", string(kind)), http.StatusBadRequest)
		return
	}

	record, err := s.storage.GetLatestForecast(ctx, siteID, kind)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest forecast", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get latest forecast", http.StatusInternalServerError)
		return
	}
	if record == nil {
		writeJSONError(w, "no forecast runs yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		panic(http.ErrAbortHandler)
	}
}
