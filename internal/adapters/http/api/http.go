// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a session. duplicate is true for a repeated submission id.
	Submit(ctx context.Context, e model.SessionEvent) (duplicate bool, err error)

	Profile(ctx context.Context, userID string) (*model.Profile, error)
	Classification(ctx context.Context, userID string) (model.Classification, error)
	DeleteProfile(ctx context.Context, userID string) error
	SkillCatalog() []catalog.SkillCategory

	EvaluateReasoning(ctx context.Context, req reasoning.Request) (reasoning.Assessment, error)
	Tutor(ctx context.Context, req tutor.Request) (tutor.Reply, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps   Dependencies
	stats  StatsProvider
	logger logger.Logger
	now    func() time.Time

	maxBodyBytes int64
	limiter      *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRateLimit limits write endpoints to rps requests per second with the
// given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock sets the time source used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		stats:        stats,
		logger:       logger.Nop(),
		now:          time.Now,
		maxBodyBytes: 1 << 20,
		limiter:      rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("http")
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	write := func(h http.HandlerFunc) http.HandlerFunc {
		return RateLimit(s.limiter, LimitBody(s.maxBodyBytes, h))
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.HandleFunc("POST /sessions", MetricsMiddleware(write(s.handlePostSession), "sessions"))
	mux.HandleFunc("GET /profiles/{user_id}", MetricsMiddleware(s.handleGetProfile, "profiles"))
	mux.HandleFunc("DELETE /profiles/{user_id}", MetricsMiddleware(s.handleDeleteProfile, "profiles"))
	mux.HandleFunc("GET /profiles/{user_id}/classification", MetricsMiddleware(s.handleClassification, "classification"))
	mux.HandleFunc("GET /skills", MetricsMiddleware(s.handleSkills, "skills"))
	mux.HandleFunc("POST /reasoning/evaluate", MetricsMiddleware(write(s.handleEvaluateReasoning), "reasoning"))
	mux.HandleFunc("POST /tutor", MetricsMiddleware(write(s.handleTutor), "tutor"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes the error body. Server-side
// failures are logged; their details are not echoed to the client.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", logger.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a JSON body into v, translating oversized bodies.
func decodeJSON(op string, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrPayloadTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
