package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordBackendRequest("prospects.list", "200", 12)

			Convey("Then metrics carry the namespace and const labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_sub_backend_requests_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When metrics are disabled", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry), WithMetricsEnabled(false))
			manager.RecordHTTPRequest("/dashboard", "GET", "200", 3)

			Convey("Then observations are ignored", func() {
				So(testutil.ToFloat64(manager.httpRequests.WithLabelValues("/dashboard", "GET", "200")), ShouldEqual, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording dashboard metrics", func() {
			before := testutil.ToFloat64(globalManager.staleResponses.WithLabelValues("list"))
			RecordStaleResponse("list")

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.staleResponses.WithLabelValues("list")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordHTTPRequest("/healthz", "GET", "200", 1)
					RecordBackendRequest("auth.me", "401", 4)
					RecordFetchCancelled()
					RecordControllerError("create")
					RecordSessionEvent("login", "failure")
					UpdateWorkspacesActive(3)
					RecordWorkspaceEviction()
					RecordDeviceClass("tablet")
					RecordErrorByComponent("backend", "decode")
					RecordErrorByEndpoint("/login", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.4)
				}, ShouldNotPanic)
			})
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
