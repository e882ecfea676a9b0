package api

import (
	"errors"
	"fmt"
	"net/http"

	repository "github.com/okian/artemis/internal/adapters/repository"
	service "github.com/okian/artemis/internal/app"
	"github.com/okian/artemis/internal/domain/tutor"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("not found")
	ErrBackpressure    = errors.New("backpressure")
	ErrRateLimited     = errors.New("rate limited")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnavailable     = errors.New("service unavailable")
	ErrInternal        = errors.New("internal error")
)

// KindError tags an underlying error with the operation that failed and the
// API kind it maps to.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err from the service layer and tags it with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return err
	}
	return WrapKind(op, classify(err), err)
}

func classify(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, tutor.ErrEmptyProblem),
		errors.Is(err, tutor.ErrUnknownRole):
		return ErrBadRequest
	default:
		return ErrInternal
	}
}

// statusFor maps an error kind to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
