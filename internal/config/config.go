// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and ARTEMIS_ env vars.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers accepted by StoreDriver.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxSessions and MaxWeeks cap the history kept on a profile.
	MaxSessions int `koanf:"max_sessions"`
	MaxWeeks    int `koanf:"max_weeks"`

	// Timezone is the IANA zone whose calendar days drive streaks and weeks.
	Timezone string `koanf:"timezone"`

	// SkillCatalogPath optionally replaces the built-in skill catalog.
	SkillCatalogPath string `koanf:"skill_catalog_path"`

	// Profile store.
	StoreDriver     string `koanf:"store_driver"`
	SQLitePath      string `koanf:"sqlite_path"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	PostgresDSN     string `koanf:"postgres_dsn"`
	PostgresMaxConn int32  `koanf:"postgres_max_conns"`

	// Kafka ingestion is enabled when brokers and topic are both set.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroupID string   `koanf:"kafka_group_id"`

	// Language model backing the reasoning estimator and the tutor.
	LLMEnabled   bool   `koanf:"llm_enabled"`
	LLMEndpoint  string `koanf:"llm_endpoint"`
	LLMModel     string `koanf:"llm_model"`
	LLMAPIKey    string `koanf:"llm_api_key"`
	LLMTimeoutMS int    `koanf:"llm_timeout_ms"`

	// HTTP surface.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	MaxBodyBytes       int64    `koanf:"max_body_bytes"`
	RateLimitRPS       float64  `koanf:"rate_limit_rps"`
	RateLimitBurst     int      `koanf:"rate_limit_burst"`
	ShutdownTimeoutMS  int      `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		MaxSessions:        50,
		MaxWeeks:           12,
		Timezone:           "UTC",
		StoreDriver:        StoreMemory,
		SQLitePath:         "artemis.db",
		RedisAddr:          "localhost:6379",
		PostgresMaxConn:    10,
		KafkaGroupID:       "artemis-profiles",
		LLMEndpoint:        "http://localhost:11434/v1",
		LLMModel:           "llama3.1",
		LLMTimeoutMS:       8000,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
		RateLimitRPS:       200,
		RateLimitBurst:     400,
		ShutdownTimeoutMS:  30_000,
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxSessions <= 0:
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	case c.MaxWeeks <= 0:
		return fmt.Errorf("%w: max_weeks must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis store", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if c.LLMEnabled && (c.LLMEndpoint == "" || c.LLMModel == "") {
		return fmt.Errorf("%w: llm_endpoint and llm_model are required when llm_enabled", ErrInvalidConfig)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// KafkaEnabled reports whether the Kafka consumer should run.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// LLMTimeout returns the per-call model timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns how long shutdown may take to drain.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
