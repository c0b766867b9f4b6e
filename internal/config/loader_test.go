package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/ksicht/ksicht/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 1_000)
				convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KSICHT_ADDR", ":8080")
			_ = os.Setenv("KSICHT_EXPORT_QUEUE_SIZE", "500")
			_ = os.Setenv("KSICHT_EXPORT_WORKER_COUNT", "3")
			_ = os.Setenv("KSICHT_DATABASE_DSN", "host=localhost user=ksicht dbname=ksicht")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.ExportWorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.DatabaseDSN, convey.ShouldEqual, "host=localhost user=ksicht dbname=ksicht")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
export_queue_size: 2000
export_worker_count: 8
storage_endpoint: "minio:9000"
storage_bucket: "seminar"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KSICHT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 2000)
				convey.So(cfg.ExportWorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.StorageEndpoint, convey.ShouldEqual, "minio:9000")
				convey.So(cfg.StorageBucket, convey.ShouldEqual, "seminar")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
export_queue_size: 2000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KSICHT_CONFIG", tmpFile)
			_ = os.Setenv("KSICHT_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")          // Overridden by env
				convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 2000) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KSICHT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("KSICHT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("KSICHT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a storage endpoint but no bucket", func() {
			_ = os.Setenv("KSICHT_STORAGE_ENDPOINT", "minio:9000")
			_ = os.Setenv("KSICHT_STORAGE_BUCKET", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with partial YAML file", func() {
			yamlContent := `
addr: ":9090"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KSICHT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")         // From file
				convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 1_000) // From defaults
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)     // From defaults
			})
		})
	})
}

// clearConfigEnvVars removes all KSICHT_ environment variables set by tests.
func clearConfigEnvVars() {
	vars := []string{
		"KSICHT_CONFIG",
		"KSICHT_ADDR",
		"KSICHT_LOG_LEVEL",
		"KSICHT_DATABASE_DSN",
		"KSICHT_STORAGE_ENDPOINT",
		"KSICHT_STORAGE_ACCESS_KEY",
		"KSICHT_STORAGE_SECRET_KEY",
		"KSICHT_STORAGE_BUCKET",
		"KSICHT_STORAGE_USE_SSL",
		"KSICHT_EXPORT_QUEUE_SIZE",
		"KSICHT_EXPORT_WORKER_COUNT",
		"KSICHT_DEDUPE_SIZE",
		"KSICHT_MAX_PAGE_SIZE",
		"KSICHT_MAX_UPLOAD_BYTES",
		"KSICHT_SESSION_TTL_MINUTES",
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

// createTempConfigFile writes content to a temp file and returns its path.
func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "ksicht-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	_ = f.Close()
	return f.Name()
}
