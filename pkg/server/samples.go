package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ecosphere/forecast/pkg/forecast"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
)

func (s *Server) handleIngestSamples(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	var req struct {
		Kind    types.MetricKind    `json:"kind"`
		Samples []types.MetricSample `json:"samples"`
		// ThermalStats are per-sensor daily temperature summaries, collapsed
		// into one synthetic sample per day before storing.
		ThermalStats []types.ThermalDailyStat `json:"thermalStats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode samples", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Kind.Valid() {
		writeJSONError(w, fmt.Sprintf("invalid kind: %q", string(req.Kind)), http.StatusBadRequest)
		return
	}

	samples := req.Samples
	if len(req.ThermalStats) > 0 {
		if req.Kind != types.MetricTemperature {
			writeJSONError(w, "thermalStats only apply to the temperature kind", http.StatusBadRequest)
			return
		}
		if len(samples) > 0 {
			writeJSONError(w, "provide samples or thermalStats, not both", http.StatusBadRequest)
			return
		}
		samples = forecast.CollapseThermalDailyStats(req.ThermalStats)
	}
	if len(samples) == 0 {
		writeJSONError(w, "no samples provided", http.StatusBadRequest)
		return
	}
	if s.maxSampleBatch > 0 && len(samples) > s.maxSampleBatch {
		writeJSONError(w, fmt.Sprintf("too many samples in one batch, max %d", s.maxSampleBatch), http.StatusBadRequest)
		return
	}
	for i, sample := range samples {
		if sample.Timestamp.IsZero() {
			writeJSONError(w, fmt.Sprintf("sample %d missing timestamp", i), http.StatusBadRequest)
			return
		}
	}

	if err := s.storage.UpsertSamples(ctx, siteID, req.Kind, samples, types.CurrentSampleHistoryVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to upsert samples", slog.String("kind", string(req.Kind)), slog.Any("error", err))
		writeJSONError(w, "failed to save samples", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "ingested samples", slog.String("kind", string(req.Kind)), slog.Int("count", len(samples)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Upserted int `json:"upserted"`
	}{Upserted: len(samples)}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleLatestSample(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := s.getSiteID(r)

	kind := types.MetricKind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		writeJSONError(w, fmt.Sprintf("invalid kind: %q", string(kind)), http.StatusBadRequest)
		return
	}

	latest, version, err := s.storage.GetLatestSampleTime(ctx, siteID, kind)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest sample time", slog.String("kind", string(kind)), slog.Any("error", err))
		writeJSONError(w, "failed to get latest sample time", http.StatusInternalServerError)
		return
	}

	// null latest tells ingest clients to backfill from scratch
	resp := struct {
		Latest  *time.Time `json:"latest"`
		Version int        `json:"version"`
	}{}
	if !latest.IsZero() {
		resp.Latest = &latest
		resp.Version = version
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(http.ErrAbortHandler)
	}
}
