package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrVerificationFailed is returned when profiles disagree with what was submitted.
var ErrVerificationFailed = errors.New("profile verification failed")

// Run generates sessions, submits them, waits for ingestion and verifies
// the resulting profiles.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.withDefaults()
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("sessionsPerUser", cfg.SessionsPerUser),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs := newGenerator(cfg.Seed).generate(cfg.Users, cfg.SessionsPerUser)
	stats.Generated = len(subs)

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	expected := submitAll(ctx, client, cfg, subs, stats, log)

	profiles := settle(ctx, client, cfg, expected, log)
	issues := verifyProfiles(expected, profiles)
	stats.ProfilesChecked = len(profiles)
	stats.Mismatched = len(issues)
	for _, issue := range issues {
		log.Warn(ctx, "profile mismatch", logger.String("issue", issue))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if len(issues) > 0 {
		return stats, fmt.Errorf("%w: %d of %d users", ErrVerificationFailed, len(issues), len(expected))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// submitAll posts subs with cfg.Workers concurrent submitters and returns
// the number of accepted sessions per user.
func submitAll(ctx context.Context, client *Client, cfg Config, subs []model.Submission, stats *Stats, log logger.Logger) map[string]int {
	var (
		submitted int64
		accepted  int64
		duplicate int64
		failed    int64

		mu       sync.Mutex
		expected = make(map[string]int)
	)
	for _, s := range subs {
		expected[s.UserID] = 0
	}

	jobs := make(chan model.Submission, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				result, err := client.Submit(ctx, sub)
				atomic.AddInt64(&submitted, 1)
				switch result {
				case ResultAccepted:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					expected[sub.UserID]++
					mu.Unlock()
				case ResultDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed", logger.String("submission_id", sub.SubmissionID), logger.Error(err))
					}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int64("submitted", atomic.LoadInt64(&submitted)),
					logger.Int("total", len(subs)),
					logger.Int64("failed", atomic.LoadInt64(&failed)),
				)
			}
		}
	}()

feed:
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- sub:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Duplicate = int(duplicate)
	stats.Failed = int(failed)
	return expected
}

// settle polls profiles until every user has caught up with its accepted
// sessions, the settle window passes, or ctx ends. It returns the last
// profile seen per user.
func settle(ctx context.Context, client *Client, cfg Config, expected map[string]int, log logger.Logger) map[string]*model.Profile {
	profiles := make(map[string]*model.Profile, len(expected))
	deadline := time.Now().Add(cfg.Settle)

	for {
		pending := 0
		for userID, want := range expected {
			if p, ok := profiles[userID]; ok && p.TotalGamesPlayed >= want {
				continue
			}
			p, err := client.Profile(ctx, userID)
			if err != nil {
				log.Debug(ctx, "profile fetch failed", logger.String("user_id", userID), logger.Error(err))
				pending++
				continue
			}
			profiles[userID] = p
			if p.TotalGamesPlayed < want {
				pending++
			}
		}
		if pending == 0 || time.Now().After(deadline) {
			return profiles
		}

		log.Debug(ctx, "waiting for ingestion", logger.Int("pendingUsers", pending))
		select {
		case <-ctx.Done():
			return profiles
		case <-time.After(cfg.PollInterval):
		}
	}
}

func saveSubmissions(path string, subs []model.Submission) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(path, b, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted) / float64(stats.Submitted) * 100
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("profilesChecked", stats.ProfilesChecked),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
