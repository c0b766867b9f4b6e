package config_test

import (
	"runtime"
	"testing"

	"github.com/ksicht/ksicht/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabaseDSN, convey.ShouldEqual, "")
			convey.So(cfg.StorageBucket, convey.ShouldEqual, "ksicht")
			convey.So(cfg.ExportQueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.ExportWorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(20<<20))
			convey.So(cfg.SessionTTLMinutes, convey.ShouldEqual, 12*60)
		})
	})
}
