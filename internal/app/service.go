// Package service wires the aggregator, the profile store and the ingestion
// pipeline into the operations the HTTP API and the Kafka consumer need.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"time"

	eventqueue "github.com/okian/artemis/internal/adapters/mq/queue"
	workerpool "github.com/okian/artemis/internal/adapters/mq/worker"
	repository "github.com/okian/artemis/internal/adapters/repository"
	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/dedupe"
	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
)

const (
	lockStripes      = 64
	maxSaveAttempts  = 3
	defaultQueueSize = 10000
	defaultDedupe    = 50000
)

// Service implements the API dependencies for the profile system.
type Service struct {
	mu sync.RWMutex

	// Core components
	aggregator *iq.Aggregator
	store      repository.ProfileStore
	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	pool       *workerpool.Pool
	estimator  reasoning.Estimator
	tutor      *tutor.Tutor

	// Per-user serialisation of load-aggregate-save
	locks [lockStripes]sync.Mutex

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	logger  logger.Logger
	now     func() time.Time
}

// New constructs a Service. Components not supplied through options get
// in-process defaults: the default catalog, an in-memory store, rule-based
// reasoning scoring and the scripted tutor.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupe,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.aggregator == nil {
		s.aggregator = iq.NewAggregator()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.estimator == nil {
		s.estimator = reasoning.NewFallback(s.logger.Named("reasoning"), reasoning.NewRuleBased())
	}
	if s.tutor == nil {
		s.tutor = tutor.New(nil, s.logger.Named("tutor"))
	}
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting profile service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.logger)
	// Workers outlive ctx so Stop can drain the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalProfiles(n)
	}

	s.started = true
	s.logger.Info(ctx, "profile service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("skills", s.aggregator.Catalog().Len()),
	)
	return nil
}

// Stop stops accepting submissions, drains the queue within ctx and closes
// the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping profile service...")

	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain queue: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.logger.Info(context.Background(), "profile service stopped")
	return errors.Join(errs...)
}

// Submit accepts a submission for asynchronous ingestion. A submission id
// seen before is acknowledged as a duplicate and not queued again.
func (s *Service) Submit(ctx context.Context, e model.SessionEvent) (duplicate bool, err error) {
	if strings.TrimSpace(e.SubmissionID) == "" {
		metrics.RecordSessionRejected("invalid")
		return false, ErrInvalidSubmission
	}
	if strings.TrimSpace(e.UserID) == "" {
		metrics.RecordSessionRejected("invalid")
		return false, ErrInvalidUserID
	}

	s.mu.RLock()
	started, deduper, q := s.started, s.deduper, s.queue
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if deduper.SeenAndRecord(ctx, e.SubmissionID) {
		metrics.RecordSessionDuplicate()
		s.logger.Debug(ctx, "duplicate submission", logger.String("submission_id", e.SubmissionID))
		return true, nil
	}

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = s.now()
	}
	if err := q.Enqueue(ctx, e); err != nil {
		deduper.Unrecord(ctx, e.SubmissionID)
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			metrics.RecordSessionRejected("backpressure")
			return false, ErrBackpressure
		case errors.Is(err, eventqueue.ErrClosed):
			return false, ErrNotStarted
		default:
			return false, err
		}
	}
	metrics.RecordSessionSubmitted()
	return false, nil
}

// IngestEvent is called by the workers for each queued submission. When the
// profile cannot be updated the submission id is released for a retry.
func (s *Service) IngestEvent(ctx context.Context, e model.SessionEvent) error {
	if _, err := s.Ingest(ctx, e.UserID, e.Input); err != nil {
		s.mu.RLock()
		deduper := s.deduper
		s.mu.RUnlock()
		if deduper != nil {
			deduper.Unrecord(ctx, e.SubmissionID)
		}
		return fmt.Errorf("ingest submission %s: %w", e.SubmissionID, err)
	}
	return nil
}

// Ingest folds one session into the user's profile and persists it. Writers
// for the same user are serialised in-process; concurrent writers in other
// processes are detected by the store's version check and retried.
func (s *Service) Ingest(ctx context.Context, userID string, in model.SessionInput) (*model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		prev, version, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		next, err := s.aggregator.AddSession(prev, in)
		if err != nil {
			return nil, err
		}
		metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000)

		_, err = s.store.Save(ctx, userID, next, version)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Warn(ctx, "profile changed during ingestion, retrying",
				logger.String("user_id", userID),
				logger.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}

		if version == 0 {
			if n, err := s.store.Count(ctx); err == nil {
				metrics.UpdateTotalProfiles(n)
			}
		}
		metrics.RecordSessionIngested(string(in.GameType))
		metrics.RecordCompositeIQ(next.OverallIQ)
		s.logger.Debug(ctx, "session ingested",
			logger.String("user_id", userID),
			logger.String("game_type", string(in.GameType)),
			logger.Int("iq", next.OverallIQ),
		)
		return next, nil
	}
	return nil, fmt.Errorf("%w for user %s: %w", ErrTooManyConflicts, userID, repository.ErrVersionConflict)
}

// load returns the stored profile or a fresh default one with version 0.
func (s *Service) load(ctx context.Context, userID string) (*model.Profile, int64, error) {
	rec, err := s.store.Load(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return iq.CreateDefaultProfile(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load profile: %w", err)
	}
	return rec.Profile, rec.Version, nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Profile returns the user's profile. Users without sessions observe the
// default profile, which is not persisted.
func (s *Service) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}
	p, _, err := s.load(ctx, userID)
	return p, err
}

// Classification returns the band of the user's current IQ.
func (s *Service) Classification(ctx context.Context, userID string) (model.Classification, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return model.Classification{}, err
	}
	return iq.ClassifyIQ(p.OverallIQ), nil
}

// DeleteProfile removes the user's profile. Returns repository.ErrNotFound
// for unknown users.
func (s *Service) DeleteProfile(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalProfiles(n)
	}
	s.logger.Info(ctx, "profile deleted", logger.String("user_id", userID))
	return nil
}

// SkillCatalog returns the skills the composite IQ is weighted by.
func (s *Service) SkillCatalog() []catalog.SkillCategory {
	return s.aggregator.Catalog().Skills()
}

// EvaluateReasoning scores a child's written explanation.
func (s *Service) EvaluateReasoning(ctx context.Context, req reasoning.Request) (reasoning.Assessment, error) {
	return s.estimator.Evaluate(ctx, req)
}

// Tutor returns the next Socratic message for a problem.
func (s *Service) Tutor(ctx context.Context, req tutor.Request) (tutor.Reply, error) {
	return s.tutor.Next(ctx, req)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"skillCount":  s.aggregator.Catalog().Len(),
	}

	if s.started {
		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = s.queue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["totalProfiles"] = n
		}
	}
	return stats
}

// UpdateMetrics refreshes the gauges that are sampled rather than counted.
func (s *Service) UpdateMetrics(ctx context.Context) {
	s.mu.RLock()
	started, q, pool := s.started, s.queue, s.pool
	s.mu.RUnlock()

	if started {
		metrics.UpdateQueueSize(q.Len())
		metrics.UpdateWorkerCount(pool.Size())
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalProfiles(n)
	}
}
