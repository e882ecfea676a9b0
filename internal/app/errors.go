package service

import "errors"

var (
	// ErrNotStarted is returned by Submit before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrBackpressure is returned by Submit when the ingestion queue is full.
	// The submission id is released so the producer can retry.
	ErrBackpressure = errors.New("ingestion queue is full")

	// ErrInvalidUserID is returned for empty user ids.
	ErrInvalidUserID = errors.New("user id is required")

	// ErrInvalidSubmission is returned for events without a submission id.
	ErrInvalidSubmission = errors.New("submission id is required")

	// ErrTooManyConflicts is returned when a profile kept changing underneath
	// an ingestion. It wraps repository.ErrVersionConflict.
	ErrTooManyConflicts = errors.New("profile update kept conflicting")
)
