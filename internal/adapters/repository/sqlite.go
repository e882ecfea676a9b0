package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/artemis/internal/domain/model"

	_ "modernc.org/sqlite"
)

// querier is the subset of *sql.DB the load path needs.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ querier = (*sql.DB)(nil)

// SQLiteStore persists profiles as JSON documents in an embedded database.
type SQLiteStore struct {
	db   *sql.DB
	opts storeOptions
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, opts: o}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrations() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id    TEXT PRIMARY KEY,
			version    INTEGER NOT NULL,
			profile    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, s.opts.table),
	}
}

func (s *SQLiteStore) migrate() error {
	for i, stmt := range s.migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (rec Record, err error) {
	defer func(start time.Time) { observe(opLoad, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return Record{}, err
	}
	return loadSQL(ctx, s.db, s.opts.table, userID)
}

func loadSQL(ctx context.Context, q querier, table, userID string) (Record, error) {
	var (
		version   int64
		doc       string
		updatedAt string
	)
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version, profile, updated_at FROM %s WHERE user_id = ?`, table), userID,
	).Scan(&version, &doc, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading profile: %w", err)
	}
	p, err := decodeProfile([]byte(doc))
	if err != nil {
		return Record{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return Record{Profile: p, Version: version, UpdatedAt: ts}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, userID string, p *model.Profile, expectedVersion int64) (v int64, err error) {
	defer func(start time.Time) { observe(opSave, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return 0, err
	}
	doc, err := encodeProfile(p)
	if err != nil {
		return 0, err
	}
	now := s.opts.now().UTC().Format(time.RFC3339Nano)
	next := expectedVersion + 1

	var res sql.Result
	if expectedVersion == 0 {
		res, err = s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, version, profile, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(user_id) DO NOTHING`, s.opts.table),
			userID, next, string(doc), now)
	} else {
		res, err = s.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET version = ?, profile = ?, updated_at = ?
				WHERE user_id = ? AND version = ?`, s.opts.table),
			next, string(doc), now, userID, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("saving profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("saving profile: %w", err)
	}
	if n == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) { observe(opDelete, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, s.opts.table), userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe(opCount, start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.opts.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting profiles: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
