package api

import (
	"net/http"

	"github.com/okian/artemis/internal/domain/model"
)

type ackResponse struct {
	Status       string `json:"status"`
	Duplicate    bool   `json:"duplicate"`
	SubmissionID string `json:"submission_id"`
}

// handlePostSession handles POST /sessions. A new submission is acknowledged
// with 202 and folded into the profile asynchronously; a repeated submission
// id is acknowledged with 200.
func (s *Server) handlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	ctx := r.Context()

	var req model.Submission
	if err := decodeJSON(op, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(ctx, w, WrapKind(op, ErrBadRequest, err))
		return
	}

	ev := req.Event(s.now())
	duplicate, err := s.deps.Submit(ctx, ev)
	if err != nil {
		s.writeError(ctx, w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, SubmissionID: ev.SubmissionID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: ev.SubmissionID})
}
