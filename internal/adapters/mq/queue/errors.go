package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("queue is full")
	ErrClosed = errors.New("queue is closed")
)
