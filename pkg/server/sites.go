package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/storage"
	"github.com/ecosphere/forecast/pkg/types"
	"github.com/google/uuid"
)

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sites, err := s.storage.ListSites(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list sites", slog.Any("error", err))
		writeJSONError(w, "failed to list sites", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sites); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// handleCreateSite creates a site, or renames it when the id already exists.
func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.singleSite {
		writeJSONError(w, "site management is disabled in single-site mode", http.StatusBadRequest)
		return
	}

	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode site", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeJSONError(w, "site name required", http.StatusBadRequest)
		return
	}

	site := types.Site{
		ID:        req.ID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if site.ID == "" {
		site.ID = uuid.NewString()
	} else {
		existing, err := s.storage.GetSite(ctx, site.ID)
		if err == nil {
			// already exists, treat this as a rename
			existing.Name = req.Name
			if err := s.storage.UpdateSite(ctx, existing.ID, existing); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to update site", slog.String("updateSiteID", existing.ID), slog.Any("error", err))
				writeJSONError(w, "failed to update site", http.StatusInternalServerError)
				return
			}
			log.Ctx(ctx).InfoContext(ctx, "updated site", slog.String("updateSiteID", existing.ID))
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(existing); err != nil {
				panic(http.ErrAbortHandler)
			}
			return
		}
		if !errors.Is(err, storage.ErrSiteNotFound) {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get site", slog.String("getSiteID", site.ID), slog.Any("error", err))
			writeJSONError(w, "failed to get site", http.StatusInternalServerError)
			return
		}
	}

	if err := s.storage.CreateSite(ctx, site.ID, site); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create site", slog.String("createSiteID", site.ID), slog.Any("error", err))
		writeJSONError(w, "failed to create site", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "created site", slog.String("createSiteID", site.ID))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(site); err != nil {
		panic(http.ErrAbortHandler)
	}
}
