package repository

import "time"

type storeOptions struct {
	now       func() time.Time
	keyPrefix string
	table     string
}

func defaultOptions() storeOptions {
	return storeOptions{
		now:       time.Now,
		keyPrefix: "artemis:",
		table:     "profiles",
	}
}

// Option applies a configuration option to a profile store.
type Option func(*storeOptions)

// WithClock sets the time source for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *storeOptions) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithTable sets the SQL table name.
func WithTable(table string) Option {
	return func(o *storeOptions) {
		if table != "" {
			o.table = table
		}
	}
}
