package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if KSICHT_CONFIG is set
//  3. env (prefix KSICHT_), with a best-effort .env load first
func Load(ctx context.Context) (*Config, error) {
	// Local development convenience; ignore a missing .env file.
	_ = godotenv.Load()

	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("KSICHT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: KSICHT_ADDR, KSICHT_DATABASE_DSN, ...
	// Map env keys like KSICHT_EXPORT_QUEUE_SIZE -> export_queue_size
	// (flat keys; underscores preserved to match koanf tags).
	envProvider := env.Provider("KSICHT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ksicht_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate applies basic sanity checks.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ExportQueueSize < 1:
		return fmt.Errorf("%w: export_queue_size must be positive", ErrInvalidConfig)
	case c.ExportWorkerCount < 1:
		return fmt.Errorf("%w: export_worker_count must be positive", ErrInvalidConfig)
	case c.MaxPageSize < 1:
		return fmt.Errorf("%w: max_page_size must be positive", ErrInvalidConfig)
	case c.MaxUploadBytes < 1:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.SessionTTLMinutes < 1:
		return fmt.Errorf("%w: session_ttl_minutes must be positive", ErrInvalidConfig)
	case c.StorageEndpoint != "" && c.StorageBucket == "":
		return fmt.Errorf("%w: storage_bucket required with storage_endpoint", ErrInvalidConfig)
	}
	return nil
}
