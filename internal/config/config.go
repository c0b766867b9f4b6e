// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseDSN is the Postgres connection string. Empty selects the
	// in-memory repository (dev and tests).
	DatabaseDSN string `koanf:"database_dsn"`

	// Object storage settings. Empty endpoint selects the in-memory store.
	StorageEndpoint  string `koanf:"storage_endpoint"`
	StorageAccessKey string `koanf:"storage_access_key"`
	StorageSecretKey string `koanf:"storage_secret_key"`
	StorageBucket    string `koanf:"storage_bucket"`
	StorageUseSSL    bool   `koanf:"storage_use_ssl"`

	// ExportQueueSize bounds the in-memory export job queue.
	ExportQueueSize int `koanf:"export_queue_size"`

	// ExportWorkerCount sets the number of export workers.
	ExportWorkerCount int `koanf:"export_worker_count"`

	// DedupeSize sets the size of the export job deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxPageSize caps page sizes for listing endpoints.
	MaxPageSize int `koanf:"max_page_size"`

	// MaxUploadBytes caps solution/attachment upload sizes.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// SessionTTLMinutes controls how long auth sessions stay valid.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		DatabaseDSN:       "",
		StorageEndpoint:   "",
		StorageBucket:     "ksicht",
		StorageUseSSL:     false,
		ExportQueueSize:   1_000,
		ExportWorkerCount: runtime.NumCPU(),
		DedupeSize:        10_000,
		MaxPageSize:       100,
		MaxUploadBytes:    20 << 20, // 20 MiB per uploaded solution
		SessionTTLMinutes: 12 * 60,
	}
	return c
}
