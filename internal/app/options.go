package service

import (
	"time"

	repository "github.com/okian/artemis/internal/adapters/repository"
	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the profile store. The service closes it on Stop.
func WithStore(store repository.ProfileStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAggregator sets the profile aggregator.
func WithAggregator(a *iq.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithEstimator sets the reasoning-quality estimator.
func WithEstimator(e reasoning.Estimator) Option {
	return func(s *Service) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithTutor sets the Socratic tutor.
func WithTutor(t *tutor.Tutor) Option {
	return func(s *Service) {
		if t != nil {
			s.tutor = t
		}
	}
}

// WithClock sets the time source used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
