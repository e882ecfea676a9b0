// Package repository persists user profiles behind a versioned key-value port.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/pkg/metrics"
)

// Record is a stored profile with its optimistic-concurrency version.
type Record struct {
	Profile   *model.Profile
	Version   int64
	UpdatedAt time.Time
}

// ProfileStore provides durable access to profiles keyed by user id.
type ProfileStore interface {
	// Load returns the stored profile. Returns ErrNotFound for unknown users.
	Load(ctx context.Context, userID string) (Record, error)

	// Save stores p if the current version equals expectedVersion and returns
	// the new version. expectedVersion 0 means the profile must not exist yet.
	// Returns ErrVersionConflict when another writer got there first.
	Save(ctx context.Context, userID string, p *model.Profile, expectedVersion int64) (int64, error)

	// Delete removes the profile. Returns ErrNotFound for unknown users.
	Delete(ctx context.Context, userID string) error

	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Store operation names used for metrics.
const (
	opLoad   = "load"
	opSave   = "save"
	opDelete = "delete"
	opCount  = "count"
)

// observe records latency and failures of a store operation. Not-found and
// version conflicts are expected outcomes, not store errors.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
	case errors.Is(err, ErrVersionConflict):
		metrics.RecordVersionConflict()
	default:
		metrics.RecordStoreError(op)
	}
}

func encodeProfile(p *model.Profile) ([]byte, error) {
	if p == nil {
		return nil, ErrNilProfile
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return b, nil
}

func decodeProfile(b []byte) (*model.Profile, error) {
	var p model.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.SkillScores == nil {
		p.SkillScores = []model.SkillScore{}
	}
	if p.Sessions == nil {
		p.Sessions = []model.GameSession{}
	}
	if p.WeeklyProgress == nil {
		p.WeeklyProgress = []model.WeeklyProgress{}
	}
	return &p, nil
}

func validate(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	return nil
}
