package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/artemis/internal/domain/model"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	MaxLifetime time.Duration
}

// PostgresStore persists profiles as JSONB documents in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts storeOptions
}

// NewPostgresStore connects, pings and ensures the profiles table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, opts ...Option) (*PostgresStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = 25
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 2
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, opts: o}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id    TEXT PRIMARY KEY,
		version    BIGINT NOT NULL,
		profile    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, o.table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create profiles table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (rec Record, err error) {
	defer func(start time.Time) { observe(opLoad, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return Record{}, err
	}
	var doc []byte
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT version, profile, updated_at FROM %s WHERE user_id = $1`, s.opts.table), userID,
	).Scan(&rec.Version, &doc, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if rec.Profile, err = decodeProfile(doc); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, p *model.Profile, expectedVersion int64) (v int64, err error) {
	defer func(start time.Time) { observe(opSave, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return 0, err
	}
	doc, err := encodeProfile(p)
	if err != nil {
		return 0, err
	}
	next := expectedVersion + 1
	now := s.opts.now().UTC()

	var query string
	var args []any
	if expectedVersion == 0 {
		query = fmt.Sprintf(`INSERT INTO %s (user_id, version, profile, updated_at)
			VALUES ($1, $2, $3, $4) ON CONFLICT (user_id) DO NOTHING`, s.opts.table)
		args = []any{userID, next, doc, now}
	} else {
		query = fmt.Sprintf(`UPDATE %s SET version = $1, profile = $2, updated_at = $3
			WHERE user_id = $4 AND version = $5`, s.opts.table)
		args = []any{next, doc, now, userID, expectedVersion}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to save profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) { observe(opDelete, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, s.opts.table), userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe(opCount, start, err) }(time.Now())
	if err = s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.opts.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
