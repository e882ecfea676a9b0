package api

import (
	"net/http"
)

// handleDashboard serves the embedded parent view. The page reads a profile
// from /profiles/{user_id} in the browser.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
