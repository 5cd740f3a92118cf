package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestMiddleware(t *testing.T) {
	convey.Convey("Given a wrapped handler", t, func() {
		h := Middleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.WriteHeader(http.StatusOK)
		}, "middleware_test")

		convey.Convey("When it answers", func() {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			convey.Convey("Then the first status is recorded", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)

				out := httptest.NewRecorder()
				Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
				body := out.Body.String()
				convey.So(body, convey.ShouldContainSubstring, `endpoint="middleware_test"`)
				convey.So(strings.Contains(body, `error_type="not_found"`), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given status codes", t, func() {
		convey.So(ErrorType(503), convey.ShouldEqual, "server_error")
		convey.So(ErrorType(429), convey.ShouldEqual, "rate_limit")
		convey.So(ErrorType(404), convey.ShouldEqual, "not_found")
		convey.So(ErrorType(401), convey.ShouldEqual, "unauthorized")
		convey.So(ErrorType(422), convey.ShouldEqual, "client_error")
		convey.So(ErrorType(200), convey.ShouldEqual, "unknown")
	})
}
