package repository

import (
	"context"
	"fmt"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Settings selects and configures a store driver.
type Settings struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
	Postgres   PostgresConfig
}

// Open builds the store named by s.Driver.
func Open(ctx context.Context, s Settings, opts ...Option) (ProfileStore, error) {
	switch s.Driver {
	case "", DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite:
		return OpenSQLite(s.SQLitePath, opts...)
	case DriverRedis:
		return NewRedisStore(ctx, s.Redis, opts...)
	case DriverPostgres:
		return NewPostgresStore(ctx, s.Postgres, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
}
