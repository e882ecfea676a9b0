package api

import (
	"net/http"

	"github.com/okian/artemis/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleHealth handles GET /healthz by serving the service metrics registry.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}
