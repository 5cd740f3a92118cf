package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/scout/internal/adapters/http/mockapi"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewMux(t *testing.T) {
	convey.Convey("Given a seeded mock backend", t, func() {
		cfg := config.New()
		mux, err := newMux(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the demo scout logs in", func() {
			body := `{"email":"` + mockapi.DemoEmail + `","password":"` + mockapi.DemoPassword + `"}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

			convey.Convey("Then a token pair is issued", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "refreshToken")
			})
		})

		convey.Convey("When the docs are requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			convey.Convey("Then the document is served", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			})
		})
	})

	convey.Convey("Given an empty jwt secret", t, func() {
		cfg := config.New()
		cfg.JWTSecret = ""

		convey.Convey("Then the mux is not built", func() {
			_, err := newMux(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
