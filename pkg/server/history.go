package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
)

// maxHistoryRange caps one history read, a month of hourly samples
const maxHistoryRange = 31 * 24 * time.Hour

func (s *Server) handleHistorySamples(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	kind := types.MetricKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeJSONError(w, fmt.Sprintf("invalid kind: %q", string(kind)), http.StatusBadRequest)
		return
	}
	start, end, err := parseTimeRange(r, maxHistoryRange)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	samples, err := s.storage.GetSampleHistory(ctx, siteID, kind, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get samples", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get samples", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	setHistoryCacheHeaders(w, end)

	if err := json.NewEncoder(w).Encode(samples); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHistoryForecasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	kind := types.MetricKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeJSONError(w, fmt.Sprintf("invalid kind: %q", string(kind)), http.StatusBadRequest)
		return
	}
	start, end, err := parseTimeRange(r, maxHistoryRange)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetForecastHistory(ctx, siteID, kind, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get forecast history", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get forecast history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	setHistoryCacheHeaders(w, end)

	if err := json.NewEncoder(w).Encode(records); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// setHistoryCacheHeaders sets Cache-Control based on the range end.
// If the range ends before today (midnight today), cache for 24 hours.
// Otherwise, cache for 1 minute.
func setHistoryCacheHeaders(w http.ResponseWriter, end time.Time) {
	today := time.Now().Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}
}

func parseTimeRange(r *http.Request, maxRange time.Duration) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 24 hours if not specified
		end := time.Now()
		start := end.Add(-24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > maxRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed %s", maxRange)
	}

	return start, end, nil
}
