package api

import (
	"net/http"
	"strings"

	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
)

// handleEvaluateReasoning handles POST /reasoning/evaluate.
func (s *Server) handleEvaluateReasoning(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate_reasoning"
	ctx := r.Context()

	var req reasoning.Request
	if err := decodeJSON(op, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Reasoning) == "" {
		s.writeError(ctx, w, WrapKind(op, ErrBadRequest, reasoning.ErrEmptyReasoning))
		return
	}

	a, err := s.deps.EvaluateReasoning(ctx, req)
	if err != nil {
		s.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleTutor handles POST /tutor.
func (s *Server) handleTutor(w http.ResponseWriter, r *http.Request) {
	const op = "api.tutor"
	ctx := r.Context()

	var req tutor.Request
	if err := decodeJSON(op, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	reply, err := s.deps.Tutor(ctx, req)
	if err != nil {
		s.writeError(ctx, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
