package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("test") == nil {
		t.Fatal("named logger is nil")
	}
	Get().Info(context.Background(), "test message", String("k", "v"))
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		_ = SetLevelString("info")
		var buf bytes.Buffer
		l, err := NewWithWriter(&buf, FormatJSON)
		So(err, ShouldBeNil)

		Convey("When logging with fields", func() {
			l.With(String("visitor", "v-1")).Named("prospects").Info(context.Background(), "fetched",
				Int("count", 2),
				Bool("stale", false),
				Duration("took", 15*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries every field and the caller", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "fetched")
				So(rec["visitor"], ShouldEqual, "v-1")
				group, ok := rec["prospects"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["count"], ShouldEqual, float64(2))
				So(group["stale"], ShouldEqual, false)
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is above the record level", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			l.Debug(context.Background(), "hidden")
			l.Info(context.Background(), "hidden too")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestLoggerConfiguration(t *testing.T) {
	Convey("Given logger configuration helpers", t, func() {
		Convey("Then unknown formats are rejected", func() {
			_, err := NewWithWriter(&bytes.Buffer{}, Format("xml"))
			So(err, ShouldNotBeNil)
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
			So(SetLevelString("WARNING"), ShouldBeNil)
			So(SetLevelString(""), ShouldBeNil)
		})

		Convey("And OrNamed prefers the explicit logger", func() {
			explicit := Nop()
			So(OrNamed(explicit, "x"), ShouldEqual, explicit)
			So(OrNamed(nil, "x"), ShouldNotBeNil)
		})
	})
}
