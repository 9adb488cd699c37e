package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StatsProvider reports runtime counters, such as the websocket hub's.
type StatsProvider interface {
	Stats() map[string]int64
}

// MetricsHandler exposes Prometheus metrics and a JSON summary of the hub
type MetricsHandler struct {
	prometheus http.Handler
	hub        StatsProvider
}

// NewMetricsHandler creates a new metrics handler. Either argument may be nil.
func NewMetricsHandler(prometheus http.Handler, hub StatsProvider) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/stats", h.GetStats)
	return r
}

// GetMetrics serves the Prometheus exposition format
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats returns the websocket hub counters
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]int64{}
	if h.hub != nil {
		stats = h.hub.Stats()
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
		"count":  len(stats),
	})
}
