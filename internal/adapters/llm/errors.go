package llm

import "errors"

var (
	// ErrUnavailable indicates the model endpoint could not be reached.
	ErrUnavailable = errors.New("llm endpoint unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the response could not be parsed into the
	// expected structure.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted indicates every attempt failed for a non-network reason.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)
