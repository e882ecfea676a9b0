package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// Hash fields of a stored profile.
const (
	fieldVersion   = "version"
	fieldProfile   = "profile"
	fieldUpdatedAt = "updated_at"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each profile in a hash and tracks user ids in a set.
// Saves are compare-and-swap transactions guarded by WATCH.
type RedisStore struct {
	client *redis.Client
	opts   storeOptions
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisStore(client, opts...), nil
}

func newRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, opts: o}
}

func (s *RedisStore) profileKey(userID string) string {
	return s.opts.keyPrefix + "profile:" + userID
}

func (s *RedisStore) indexKey() string {
	return s.opts.keyPrefix + "profiles"
}

func (s *RedisStore) Load(ctx context.Context, userID string) (rec Record, err error) {
	defer func(start time.Time) { observe(opLoad, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return Record{}, err
	}
	fields, err := s.client.HGetAll(ctx, s.profileKey(userID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return recordFromHash(fields)
}

func recordFromHash(fields map[string]string) (Record, error) {
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parsing version: %w", err)
	}
	p, err := decodeProfile([]byte(fields[fieldProfile]))
	if err != nil {
		return Record{}, err
	}
	updated, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	if err != nil {
		return Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return Record{Profile: p, Version: version, UpdatedAt: updated}, nil
}

func (s *RedisStore) Save(ctx context.Context, userID string, p *model.Profile, expectedVersion int64) (v int64, err error) {
	defer func(start time.Time) { observe(opSave, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return 0, err
	}
	doc, err := encodeProfile(p)
	if err != nil {
		return 0, err
	}
	key := s.profileKey(userID)
	next := expectedVersion + 1

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedVersion {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldVersion, next,
				fieldProfile, doc,
				fieldUpdatedAt, s.opts.now().UTC().Format(time.RFC3339Nano),
			)
			pipe.SAdd(ctx, s.indexKey(), userID)
			return nil
		})
		return err
	}

	switch err := s.client.Watch(ctx, txf, key); {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrVersionConflict):
		return 0, ErrVersionConflict
	default:
		return 0, fmt.Errorf("failed to save profile: %w", err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) { observe(opDelete, start, err) }(time.Now())
	if err := validate(userID); err != nil {
		return err
	}
	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.profileKey(userID))
		pipe.SRem(ctx, s.indexKey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe(opCount, start, err) }(time.Now())
	c, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return int(c), nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
