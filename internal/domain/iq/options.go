package iq

import (
	"time"

	"github.com/okian/artemis/internal/domain/catalog"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithSkillCatalog sets the weighted catalog used for the composite score.
func WithSkillCatalog(c *catalog.Catalog) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.catalog = c
		}
	}
}

// WithClock overrides the time source used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *Aggregator) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// WithLocation sets the timezone whose calendar days drive streaks and week keys.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithMaxSessions sets how many recent sessions a profile retains.
func WithMaxSessions(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxSessions = n
		}
	}
}

// WithMaxWeeks sets how many weekly progress entries a profile retains.
func WithMaxWeeks(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxWeeks = n
		}
	}
}
