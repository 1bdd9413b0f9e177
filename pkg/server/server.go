package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ecosphere/forecast/pkg/forecast"
	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/storage"
	"github.com/ecosphere/forecast/pkg/weather"
	"github.com/levenlabs/go-lflag"
)

type contextKey string

const siteIDContextKey contextKey = "siteID"

// Server handles the HTTP API for the forecast system. It orchestrates
// interactions between the forecast engine, weather providers, and storage.
type Server struct {
	weather *weather.Map
	storage storage.Database
	engine  *forecast.Engine
	metrics *metrics

	listenAddr string
	httpServer *http.Server

	singleSite     bool
	maxSampleBatch int
	serverName     string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(w *weather.Map, s storage.Database) *Server {
	srv := &Server{
		weather:    w,
		storage:    s,
		engine:     forecast.NewEngine(),
		metrics:    newMetrics(),
		serverName: "forecastd",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	singleSite := lflag.Bool("single-site", false, "Enable single-site mode (disables siteID requirement)")
	maxSampleBatch := 10000
	lflag.JSON(&maxSampleBatch, "max-sample-batch", maxSampleBatch, "Maximum samples accepted in one ingest request (0 disables the limit)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.singleSite = *singleSite
		srv.maxSampleBatch = maxSampleBatch
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/forecast", s.handleForecast)
	apiMux.HandleFunc("GET /api/forecast/latest", s.handleLatestForecast)
	apiMux.HandleFunc("GET /api/availability", s.handleAvailability)
	apiMux.HandleFunc("POST /api/samples", s.handleIngestSamples)
	apiMux.HandleFunc("GET /api/samples/latest", s.handleLatestSample)
	apiMux.HandleFunc("GET /api/history/samples", s.handleHistorySamples)
	apiMux.HandleFunc("GET /api/history/forecasts", s.handleHistoryForecasts)
	apiMux.HandleFunc("GET /api/accuracy", s.handleAccuracy)
	apiMux.HandleFunc("GET /api/weather", s.handleWeatherHistory)
	apiMux.HandleFunc("GET /api/weather/forecast", s.handleWeatherForecast)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("GET /api/list/strategies", s.handleListStrategies)
	apiMux.HandleFunc("GET /api/list/sites", s.handleListSites)
	apiMux.HandleFunc("POST /api/sites", s.handleCreateSite)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.requestMetricsMiddleware(s.siteMiddleware(apiMux)))
	mux.Handle("GET /metrics", s.metrics.handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

func (s *Server) getSiteID(r *http.Request) string {
	if siteID, ok := r.Context().Value(siteIDContextKey).(string); ok {
		return siteID
	}
	// we want to have a stack trace when this happens
	panic("no siteID in context")
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Strict-Transport-Security: max-age=2 years
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")

		// Prevent MIME-sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
