package mockapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/adapters/http/mockapi"
	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
)

func newBackend() (*backend.Client, *httptest.Server) {
	store := repository.NewMemStore()
	if err := mockapi.SeedDemo(context.Background(), store); err != nil {
		panic(err)
	}
	srv, err := mockapi.NewServer(store, "test-secret")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	client, err := backend.New(ts.URL + "/api")
	if err != nil {
		panic(err)
	}
	return client, ts
}

func login(ctx context.Context, c *backend.Client) account.Session {
	s, err := c.Login(ctx, account.Credentials{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword})
	So(err, ShouldBeNil)
	c.Credentials().Set(s.Tokens)
	return s
}

func TestMockAPIProspects(t *testing.T) {
	Convey("Given the development backend with demo data", t, func() {
		ctx := context.Background()
		c, ts := newBackend()
		defer ts.Close()

		Convey("When browsing anonymously", func() {
			page, err := c.ListProspects(ctx, prospect.DefaultFilters(10))
			So(err, ShouldBeNil)
			m, err := c.ProspectMetrics(ctx)
			So(err, ShouldBeNil)

			Convey("Then pages and metrics are served", func() {
				So(page.Data, ShouldHaveLength, 10)
				So(page.Pagination.Total, ShouldEqual, 24)
				So(page.Pagination.TotalPages, ShouldEqual, 3)
				So(m.Total, ShouldEqual, 24)
			})
		})

		Convey("When mutating without a token", func() {
			_, err := c.CreateProspect(ctx, prospect.Draft{Name: "Nuevo", Position: prospect.Defensa})

			Convey("Then the backend refuses", func() {
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
			})
		})

		Convey("When logged in", func() {
			login(ctx, c)

			Convey("Then create, update and delete round-trip", func() {
				created, err := c.CreateProspect(ctx, prospect.Draft{Name: "Nuevo", Position: prospect.Defensa})
				So(err, ShouldBeNil)
				So(created.SessionID, ShouldNotBeEmpty)
				So(created.Status, ShouldEqual, prospect.Pendiente)

				rated, err := c.UpdateRating(ctx, created.SessionID, prospect.Ratings{OvrGeneral: 77})
				So(err, ShouldBeNil)
				So(rated.OvrGeneral, ShouldEqual, 77)

				noted, err := c.AddNotes(ctx, created.SessionID, "Buen juego aéreo")
				So(err, ShouldBeNil)
				So(noted.Notes, ShouldEqual, "Buen juego aéreo")
				So(noted.OvrGeneral, ShouldEqual, 77)

				_, err = c.UpdateStatus(ctx, created.SessionID, "Retirado")
				So(errors.Is(err, backend.ErrValidation), ShouldBeTrue)

				So(c.DeleteProspect(ctx, created.SessionID), ShouldBeNil)
				_, err = c.GetProspect(ctx, created.SessionID)
				So(errors.Is(err, backend.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then a video upload is stored and linked", func() {
				page, err := c.ListProspects(ctx, prospect.DefaultFilters(1))
				So(err, ShouldBeNil)
				id := page.Data[0].ID()

				out, err := c.UploadVideo(ctx, id, "clip.mp4", strings.NewReader("fake video"))
				So(err, ShouldBeNil)
				So(out.VideoURL, ShouldEqual, "/api/prospects/"+id+"/video")

				p, err := c.GetProspect(ctx, id)
				So(err, ShouldBeNil)
				So(p.Videos, ShouldEqual, out.VideoURL)

				resp, err := http.Get(ts.URL + out.VideoURL)
				So(err, ShouldBeNil)
				body, _ := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				So(string(body), ShouldEqual, "fake video")
			})
		})
	})
}

func TestMockAPIAuth(t *testing.T) {
	Convey("Given the development backend", t, func() {
		ctx := context.Background()
		c, ts := newBackend()
		defer ts.Close()

		Convey("When the password is wrong", func() {
			_, err := c.Login(ctx, account.Credentials{Email: mockapi.DemoEmail, Password: "wrong-one"})
			So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When logged in", func() {
			s := login(ctx, c)

			Convey("Then me returns the account", func() {
				u, err := c.Me(ctx)
				So(err, ShouldBeNil)
				So(u.Email, ShouldEqual, mockapi.DemoEmail)
				So(u.ID, ShouldEqual, s.User.ID)
			})

			Convey("Then a refresh token works exactly once", func() {
				next, err := c.Refresh(ctx, s.RefreshToken)
				So(err, ShouldBeNil)
				So(next.Token, ShouldNotBeEmpty)
				So(next.RefreshToken, ShouldNotEqual, s.RefreshToken)

				_, err = c.Refresh(ctx, s.RefreshToken)
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
			})

			Convey("Then the profile echoes the change", func() {
				u, err := c.UpdateProfile(ctx, account.ProfileUpdate{Name: "Jefa de Scouting"})
				So(err, ShouldBeNil)
				So(u.Name, ShouldEqual, "Jefa de Scouting")
			})

			Convey("Then the password changes only with the current one", func() {
				err := c.ChangePassword(ctx, account.PasswordChange{CurrentPassword: "nope-nope", NewPassword: "another1"})
				So(errors.Is(err, backend.ErrValidation), ShouldBeTrue)
				So(c.ChangePassword(ctx, account.PasswordChange{CurrentPassword: mockapi.DemoPassword, NewPassword: "another1"}), ShouldBeNil)
				_, err = c.Login(ctx, account.Credentials{Email: mockapi.DemoEmail, Password: "another1"})
				So(err, ShouldBeNil)
			})

			Convey("Then logout kills the access and refresh tokens", func() {
				So(c.Logout(ctx), ShouldBeNil)
				_, err := c.Me(ctx)
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
				_, err = c.Refresh(ctx, s.RefreshToken)
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
			})
		})
	})
}
