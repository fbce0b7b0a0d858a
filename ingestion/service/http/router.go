package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"statsvc/config"
)

// NewRouter registers the API routes and the request middleware stack
func NewRouter(h *StatsHandler, monitoring config.MonitoringConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.logger, NoColor: true}))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.Post("/ingest/", h.Ingest)
	r.Post("/ingest", h.Ingest)
	r.Get("/get_stats/{request_id}", h.GetStats)

	healthPath := monitoring.HealthCheckPath
	if healthPath == "" {
		healthPath = "/health"
	}
	r.Get(healthPath, h.HealthCheck)

	if monitoring.EnableMetrics {
		metricsPath := monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Get(metricsPath, h.Metrics)
	}

	return r
}
