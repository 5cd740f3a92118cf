package main

import (
	"context"
	"testing"

	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestStorageProvider(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("Then visitor state is kept in memory", func() {
			p, err := storageProvider(cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := p.(*storage.Memory)
			convey.So(ok, convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a storage directory", t, func() {
		cfg := config.New()
		cfg.StorageDir = t.TempDir()

		convey.Convey("Then visitor state survives in files", func() {
			p, err := storageProvider(cfg)
			convey.So(err, convey.ShouldBeNil)
			st, err := p.Open(context.Background(), "visitor-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(st.Set(context.Background(), storage.KeyTheme, "dark"), convey.ShouldBeNil)

			again, err := storageProvider(cfg)
			convey.So(err, convey.ShouldBeNil)
			st2, err := again.Open(context.Background(), "visitor-1")
			convey.So(err, convey.ShouldBeNil)
			v, found, err := st2.Get(context.Background(), storage.KeyTheme)
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, "dark")
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the metrics registry", t, func() {
		convey.Convey("When the runtime gauges are refreshed", func() {
			updateSystemMetrics()

			convey.Convey("Then they are exported", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				convey.So(names, convey.ShouldContain, "scout_dashboard_system_goroutine_count")
			})
		})
	})
}
