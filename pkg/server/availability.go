package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ecosphere/forecast/pkg/forecast"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
)

type availabilityResponse struct {
	Kind             types.MetricKind          `json:"kind"`
	TargetDate       string                    `json:"targetDate"`
	HorizonDays      int                       `json:"horizonDays"`
	DataAvailability forecast.DataAvailability `json:"dataAvailability"`
	// Decision is what the engine would pick for this history, nothing runs
	Decision forecast.Decision `json:"decision"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
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

	avail := forecast.Assess(target, days, samples)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if err := json.NewEncoder(w).Encode(availabilityResponse{
		Kind:             kind,
		TargetDate:       target.Format("2006-01-02"),
		HorizonDays:      days,
		DataAvailability: avail,
		Decision:         forecast.SelectStrategy(avail),
	}); err != nil {
		panic(http.ErrAbortHandler)
	}
}
