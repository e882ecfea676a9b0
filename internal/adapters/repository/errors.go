package repository

import "errors"

// Sentinel kinds for profile store errors.
var (
	ErrNotFound        = errors.New("profile not found")
	ErrVersionConflict = errors.New("profile version conflict")
	ErrEmptyUserID     = errors.New("user id is empty")
	ErrNilProfile      = errors.New("profile is nil")
	ErrUnknownDriver   = errors.New("unknown store driver")
)
