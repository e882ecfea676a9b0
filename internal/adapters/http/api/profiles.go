package api

import (
	"net/http"
	"strings"
)

func userID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("user_id"))
}

// handleGetProfile handles GET /profiles/{user_id}.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	p, err := s.deps.Profile(r.Context(), userID(r))
	if err != nil {
		s.writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProfile handles DELETE /profiles/{user_id}.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_profile"
	if err := s.deps.DeleteProfile(r.Context(), userID(r)); err != nil {
		s.writeError(r.Context(), w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClassification handles GET /profiles/{user_id}/classification.
func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_classification"
	c, err := s.deps.Classification(r.Context(), userID(r))
	if err != nil {
		s.writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleSkills handles GET /skills.
func (s *Server) handleSkills(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"skills": s.deps.SkillCatalog()})
}
