package kafka

import "errors"

var (
	ErrNoBrokers   = errors.New("at least one kafka broker is required")
	ErrNoTopic     = errors.New("kafka topic must not be empty")
	ErrNoGroup     = errors.New("kafka consumer group must not be empty")
	ErrNoSubmitter = errors.New("submitter must not be nil")
)
