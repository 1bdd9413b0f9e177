package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus instruments for the service. All methods are
// safe on a nil receiver so handler tests can construct a bare Server.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	forecastRuns    *prometheus.CounterVec
	weatherFetches  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_http_requests_total",
			Help: "HTTP requests processed, by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		forecastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_runs_total",
			Help: "Completed forecast runs, by metric kind and selected strategy.",
		}, []string{"kind", "strategy"}),
		weatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_weather_fetches_total",
			Help: "Weather provider fetches, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.forecastRuns, m.weatherFetches)
	return m
}

func (m *metrics) observeRequest(route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(dur.Seconds())
}

func (m *metrics) observeForecastRun(kind, strategy string) {
	if m == nil {
		return
	}
	m.forecastRuns.WithLabelValues(kind, strategy).Inc()
}

func (m *metrics) observeWeatherFetch(provider, outcome string) {
	if m == nil {
		return
	}
	m.weatherFetches.WithLabelValues(provider, outcome).Inc()
}

func (m *metrics) handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the status code a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.observeRequest(r.URL.Path, rec.status, time.Since(start))
	})
}
