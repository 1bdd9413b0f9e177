package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
	"github.com/ecosphere/forecast/pkg/weather"
)

// siteWeatherProvider resolves the provider configured for the site. The site
// needs coordinates before any weather call makes sense.
func (s *Server) siteWeatherProvider(w http.ResponseWriter, r *http.Request) (weather.Provider, types.Settings, bool) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	settings, err := s.getSettingsWithMigration(ctx, siteID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return nil, types.Settings{}, false
	}
	if !settings.HasLocation() {
		writeJSONError(w, "site location not configured", http.StatusBadRequest)
		return nil, types.Settings{}, false
	}

	provider, err := s.weather.Provider(settings.WeatherProvider)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "weather provider unavailable", slog.String("provider", settings.WeatherProvider), slog.Any("error", err))
		writeJSONError(w, "weather provider unavailable", http.StatusInternalServerError)
		return nil, types.Settings{}, false
	}
	return provider, settings.Settings, true
}

func (s *Server) handleWeatherHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := parseTimeRange(r, maxHistoryRange)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	provider, settings, ok := s.siteWeatherProvider(w, r)
	if !ok {
		return
	}

	obs, err := provider.GetHistorical(ctx, settings.Latitude, settings.Longitude, start, end)
	if err != nil {
		s.metrics.observeWeatherFetch(settings.WeatherProvider, "error")
		log.Ctx(ctx).ErrorContext(ctx, "failed to get historical weather", slog.Any("error", err))
		writeJSONError(w, "failed to get historical weather", http.StatusInternalServerError)
		return
	}
	s.metrics.observeWeatherFetch(settings.WeatherProvider, "ok")

	w.Header().Set("Content-Type", "application/json")
	setHistoryCacheHeaders(w, end)

	if err := json.NewEncoder(w).Encode(weather.AggregateDaily(obs)); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleWeatherForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, settings, ok := s.siteWeatherProvider(w, r)
	if !ok {
		return
	}

	days := settings.DefaultHorizonDays
	if days == 0 {
		days = defaultHorizonDays
	}
	if days > maxWeatherForecastDays {
		days = maxWeatherForecastDays
	}
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		var err error
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			writeJSONError(w, "invalid days: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if days < 1 || days > maxWeatherForecastDays {
		writeJSONError(w, fmt.Sprintf("days must be between 1 and %d", maxWeatherForecastDays), http.StatusBadRequest)
		return
	}

	obs, err := provider.GetForecast(ctx, settings.Latitude, settings.Longitude, days)
	if err != nil {
		s.metrics.observeWeatherFetch(settings.WeatherProvider, "error")
		log.Ctx(ctx).ErrorContext(ctx, "failed to get forecast weather", slog.Any("error", err))
		writeJSONError(w, "failed to get forecast weather", http.StatusInternalServerError)
		return
	}
	s.metrics.observeWeatherFetch(settings.WeatherProvider, "ok")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=300")

	if err := json.NewEncoder(w).Encode(weather.AggregateDaily(obs)); err != nil {
		panic(http.ErrAbortHandler)
	}
}
