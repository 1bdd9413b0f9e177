package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ecosphere/forecast/pkg/forecast"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
)

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
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

	// runs created before the range can still have predicted days inside it,
	// so reach back one horizon-and-change worth of runs
	records, err := s.storage.GetForecastHistory(ctx, siteID, kind, start.AddDate(0, 0, -31), end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get forecast history", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get forecast history", http.StatusInternalServerError)
		return
	}
	samples, err := s.storage.GetSampleHistory(ctx, siteID, kind, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get samples", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get samples", http.StatusInternalServerError)
		return
	}

	stats := forecast.ComputeAccuracy(kind, start, end, records, samples)

	w.Header().Set("Content-Type", "application/json")
	setHistoryCacheHeaders(w, end)

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		panic(http.ErrAbortHandler)
	}
}
