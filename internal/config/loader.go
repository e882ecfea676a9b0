package config

import (
	"fmt"
	"os"
	"strings"
	_ "time/tzdata" // timezone names resolve on hosts without zoneinfo

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "ARTEMIS_"
	envFileVar = "ARTEMIS_CONFIG"
)

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{ //nolint:gochecknoglobals // static key set
	"kafka_brokers":        true,
	"cors_allowed_origins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARTEMIS_CONFIG is set
//  3. env (prefix ARTEMIS_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ARTEMIS_QUEUE_SIZE -> queue_size. Keys stay flat so underscores
	// match the koanf tags on the struct.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
