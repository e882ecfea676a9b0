package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/artemis/internal/domain/model"
)

// MemoryStore keeps profiles in process memory. Profiles are deep-copied on
// the way in and out so callers never share slices with the store.
type MemoryStore struct {
	opts    storeOptions
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o, records: make(map[string]Record)}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (rec Record, err error) {
	defer func(start time.Time) { observe(opLoad, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	r.Profile = r.Profile.Clone()
	return r, nil
}

func (s *MemoryStore) Save(_ context.Context, userID string, p *model.Profile, expectedVersion int64) (v int64, err error) {
	defer func(start time.Time) { observe(opSave, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrNilProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[userID].Version != expectedVersion {
		return 0, ErrVersionConflict
	}
	next := expectedVersion + 1
	s.records[userID] = Record{Profile: p.Clone(), Version: next, UpdatedAt: s.opts.now()}
	return next, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) (err error) {
	defer func(start time.Time) { observe(opDelete, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[userID]; !ok {
		return ErrNotFound
	}
	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Close() error { return nil }
