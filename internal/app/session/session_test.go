package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/pkg/logger"
)

var demo = account.User{ID: "u1", Email: "scout@example.com", Name: "Demo"}

func tokenExpiring(at time.Time) string {
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   demo.ID,
		ExpiresAt: jwt.NewNumericDate(at),
	}).SignedString([]byte("test"))
	if err != nil {
		panic(err)
	}
	return t
}

type fakeBackend struct {
	mu sync.Mutex

	creds        *backend.Credentials
	loginEntered chan struct{}
	loginGate    chan struct{}
	loginErr     error
	logoutErr    error
	meErr        error
	refreshErr   error
	tokens       account.Tokens

	logoutCalls  int
	refreshCalls int
	meTokens     []string
}

func (f *fakeBackend) Login(context.Context, account.Credentials) (account.Session, error) {
	if f.loginGate != nil {
		close(f.loginEntered)
		<-f.loginGate
	}
	if f.loginErr != nil {
		return account.Session{}, f.loginErr
	}
	return account.Session{User: demo, Tokens: f.tokens}, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeBackend) Me(context.Context) (account.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meTokens = append(f.meTokens, f.creds.Token())
	if f.meErr != nil {
		return account.User{}, f.meErr
	}
	return demo, nil
}

func (f *fakeBackend) Refresh(_ context.Context, refreshToken string) (account.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return account.Tokens{}, f.refreshErr
	}
	return account.Tokens{Token: tokenExpiring(time.Now().Add(time.Hour)), RefreshToken: refreshToken + "+1"}, nil
}

func (f *fakeBackend) UpdateProfile(_ context.Context, p account.ProfileUpdate) (account.User, error) {
	u := demo
	u.Name = p.Name
	return u, nil
}

func (f *fakeBackend) ChangePassword(context.Context, account.PasswordChange) error {
	return nil
}

type recorder struct {
	mu   sync.Mutex
	seen []Destination
}

func (r *recorder) Navigate(_ context.Context, to Destination) {
	r.mu.Lock()
	r.seen = append(r.seen, to)
	r.mu.Unlock()
}

func (r *recorder) last() Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return 0
	}
	return r.seen[len(r.seen)-1]
}

type fixture struct {
	store   *Store
	backend *fakeBackend
	creds   *backend.Credentials
	persist storage.Store
	nav     *recorder
}

func newFixture(ctx context.Context) fixture {
	persist, err := storage.NewMemory().Open(ctx, "visitor")
	if err != nil {
		panic(err)
	}
	creds := &backend.Credentials{}
	fb := &fakeBackend{
		creds:  creds,
		tokens: account.Tokens{Token: tokenExpiring(time.Now().Add(time.Hour)), RefreshToken: "r1"},
	}
	nav := &recorder{}
	return fixture{
		store:   New(fb, creds, persist, WithLogger(logger.Nop()), WithNavigator(nav)),
		backend: fb,
		creds:   creds,
		persist: persist,
		nav:     nav,
	}
}

func persisted(ctx context.Context, s storage.Store, key string) string {
	v, _, err := s.Get(ctx, key)
	So(err, ShouldBeNil)
	return v
}

func TestLogin(t *testing.T) {
	Convey("Given a logged-out session", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)

		Convey("When logging in with good credentials", func() {
			u, err := fx.store.Login(ctx, account.Credentials{Email: demo.Email, Password: "scout123"})
			So(err, ShouldBeNil)

			Convey("Then the session is live, persisted and attached", func() {
				st := fx.store.State()
				So(st.Authenticated, ShouldBeTrue)
				So(*st.User, ShouldResemble, u)
				So(st.Loading, ShouldBeFalse)
				So(st.ExpiresAt.After(time.Now()), ShouldBeTrue)
				So(fx.creds.Token(), ShouldEqual, fx.backend.tokens.Token)
				So(persisted(ctx, fx.persist, storage.KeyToken), ShouldEqual, fx.backend.tokens.Token)
				So(persisted(ctx, fx.persist, storage.KeyRefreshToken), ShouldEqual, "r1")
				So(fx.nav.last(), ShouldEqual, Landing)
			})
		})

		Convey("When the backend rejects the credentials", func() {
			fx.backend.loginErr = &backend.APIError{Status: 401, Message: "wrong email or password"}
			_, err := fx.store.Login(ctx, account.Credentials{Email: demo.Email, Password: "nope-nope"})

			Convey("Then the visitor stays logged out with an error", func() {
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
				st := fx.store.State()
				So(st.Authenticated, ShouldBeFalse)
				So(st.Error, ShouldEqual, "wrong email or password")
				So(fx.nav.last(), ShouldEqual, Destination(0))
			})
		})

		Convey("When the credentials are malformed", func() {
			_, err := fx.store.Login(ctx, account.Credentials{Email: "not-an-email", Password: "x"})

			Convey("Then they never reach the backend", func() {
				So(errors.Is(err, account.ErrInvalid), ShouldBeTrue)
				So(fx.store.State().Error, ShouldNotBeEmpty)
			})
		})

		Convey("When a logout lands while the login is in flight", func() {
			fx.backend.loginEntered = make(chan struct{})
			fx.backend.loginGate = make(chan struct{})
			errc := make(chan error, 1)
			go func() {
				_, err := fx.store.Login(ctx, account.Credentials{Email: demo.Email, Password: "scout123"})
				errc <- err
			}()
			<-fx.backend.loginEntered
			fx.store.Logout(ctx)
			close(fx.backend.loginGate)
			err := <-errc

			Convey("Then the late login is dropped", func() {
				So(errors.Is(err, ErrSuperseded), ShouldBeTrue)
				So(fx.store.Authenticated(), ShouldBeFalse)
				So(fx.creds.Token(), ShouldBeEmpty)
			})
		})
	})
}

func TestLogout(t *testing.T) {
	Convey("Given a logged-in session", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)
		_, err := fx.store.Login(ctx, account.Credentials{Email: demo.Email, Password: "scout123"})
		So(err, ShouldBeNil)

		Convey("When logging out and the backend call fails", func() {
			fx.backend.logoutErr = backend.ErrUnavailable
			fx.store.Logout(ctx)

			Convey("Then everything is cleared anyway", func() {
				st := fx.store.State()
				So(st.Authenticated, ShouldBeFalse)
				So(st.User, ShouldBeNil)
				So(fx.creds.Token(), ShouldBeEmpty)
				_, ok, _ := fx.persist.Get(ctx, storage.KeyToken)
				So(ok, ShouldBeFalse)
				_, ok, _ = fx.persist.Get(ctx, storage.KeyUser)
				So(ok, ShouldBeFalse)
				So(fx.backend.logoutCalls, ShouldEqual, 1)
				So(fx.nav.last(), ShouldEqual, LoginPage)
			})
		})

		Convey("When the refresh is rejected", func() {
			fx.backend.refreshErr = backend.ErrUnauthorized
			err := fx.store.Refresh(ctx)

			Convey("Then the visitor is logged out", func() {
				So(errors.Is(err, backend.ErrUnauthorized), ShouldBeTrue)
				So(fx.store.Authenticated(), ShouldBeFalse)
				So(fx.nav.last(), ShouldEqual, LoginPage)
			})
		})

		Convey("When the refresh succeeds", func() {
			So(fx.store.Refresh(ctx), ShouldBeNil)

			Convey("Then the new pair is held and persisted", func() {
				So(fx.store.Authenticated(), ShouldBeTrue)
				So(persisted(ctx, fx.persist, storage.KeyRefreshToken), ShouldEqual, "r1+1")
				So(fx.creds.Get().RefreshToken, ShouldEqual, "r1+1")
			})
		})

		Convey("When the profile is updated", func() {
			u, err := fx.store.UpdateProfile(ctx, account.ProfileUpdate{Name: "Jefa"})
			So(err, ShouldBeNil)

			Convey("Then the echoed user is kept", func() {
				So(u.Name, ShouldEqual, "Jefa")
				So(fx.store.State().User.Name, ShouldEqual, "Jefa")
			})
		})

		Convey("When the password change is invalid", func() {
			err := fx.store.ChangePassword(ctx, account.PasswordChange{CurrentPassword: "scout123", NewPassword: "scout123"})

			Convey("Then it is rejected locally", func() {
				So(errors.Is(err, account.ErrInvalid), ShouldBeTrue)
			})
		})
	})
}

func TestRestore(t *testing.T) {
	Convey("Given persisted tokens", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)
		valid := tokenExpiring(time.Now().Add(time.Hour))
		So(fx.persist.Set(ctx, storage.KeyToken, valid), ShouldBeNil)
		So(fx.persist.Set(ctx, storage.KeyRefreshToken, "r0"), ShouldBeNil)
		So(storage.SetJSON(ctx, fx.persist, storage.KeyUser, demo), ShouldBeNil)

		Convey("When the backend accepts them", func() {
			fx.store.Restore(ctx)

			Convey("Then the session is live and the token was sent", func() {
				So(fx.store.Authenticated(), ShouldBeTrue)
				So(fx.store.Restored(), ShouldBeTrue)
				So(fx.backend.meTokens, ShouldResemble, []string{valid})
			})
		})

		Convey("When the backend rejects them", func() {
			fx.backend.meErr = backend.ErrUnauthorized
			fx.store.Restore(ctx)

			Convey("Then the visitor is logged out and storage cleared", func() {
				So(fx.store.Authenticated(), ShouldBeFalse)
				So(fx.store.State().Error, ShouldBeEmpty)
				So(fx.creds.Token(), ShouldBeEmpty)
				_, ok, _ := fx.persist.Get(ctx, storage.KeyToken)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the access token has expired", func() {
			So(fx.persist.Set(ctx, storage.KeyToken, tokenExpiring(time.Now().Add(-time.Minute))), ShouldBeNil)
			fx.store.Restore(ctx)

			Convey("Then it is refreshed before validation", func() {
				So(fx.backend.refreshCalls, ShouldEqual, 1)
				So(fx.store.Authenticated(), ShouldBeTrue)
				So(persisted(ctx, fx.persist, storage.KeyRefreshToken), ShouldEqual, "r0+1")
			})
		})

		Convey("When the persisted user is missing", func() {
			So(fx.persist.Delete(ctx, storage.KeyUser), ShouldBeNil)
			fx.store.Restore(ctx)

			Convey("Then the stray token is discarded without a backend call", func() {
				So(fx.store.Authenticated(), ShouldBeFalse)
				So(fx.backend.meTokens, ShouldBeEmpty)
				_, ok, _ := fx.persist.Get(ctx, storage.KeyToken)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When restoring twice", func() {
			fx.store.Restore(ctx)
			fx.store.Restore(ctx)

			Convey("Then the backend is asked once", func() {
				So(fx.backend.meTokens, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given nothing persisted", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)
		fx.store.Restore(ctx)

		Convey("Then the visitor is logged out without a backend call", func() {
			So(fx.store.Authenticated(), ShouldBeFalse)
			So(fx.backend.meTokens, ShouldBeEmpty)
		})

		Convey("Then profile operations are refused", func() {
			_, err := fx.store.UpdateProfile(ctx, account.ProfileUpdate{Name: "x"})
			So(errors.Is(err, ErrNotAuthenticated), ShouldBeTrue)
		})
	})
}

func TestEnsureFresh(t *testing.T) {
	Convey("Given a session whose token expires in a minute", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)
		fx.backend.tokens.Token = tokenExpiring(time.Now().Add(time.Minute))
		_, err := fx.store.Login(ctx, account.Credentials{Email: demo.Email, Password: "scout123"})
		So(err, ShouldBeNil)

		Convey("When the margin is smaller than the remaining time", func() {
			So(fx.store.EnsureFresh(ctx, time.Second), ShouldBeNil)
			So(fx.backend.refreshCalls, ShouldEqual, 0)
		})

		Convey("When the margin covers the expiry", func() {
			So(fx.store.EnsureFresh(ctx, 5*time.Minute), ShouldBeNil)
			So(fx.backend.refreshCalls, ShouldEqual, 1)
		})
	})

	Convey("TokenExpiry ignores garbage", t, func() {
		_, ok := TokenExpiry("not.a.jwt")
		So(ok, ShouldBeFalse)
	})
}

// pausedStore blocks the first Set until release is closed.
type pausedStore struct {
	storage.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausedStore) Set(ctx context.Context, key, value string) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return p.Store.Set(ctx, key, value)
}

func TestLogoutDuringLoginSave(t *testing.T) {
	Convey("Given a login whose save is still in progress", t, func() {
		ctx := context.Background()
		fx := newFixture(ctx)
		paused := &pausedStore{Store: fx.persist, entered: make(chan struct{}), release: make(chan struct{})}
		store := New(fx.backend, fx.creds, paused, WithLogger(logger.Nop()))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Login(ctx, account.Credentials{Email: demo.Email, Password: "secret1"})
		}()
		<-paused.entered
		go func() {
			defer wg.Done()
			store.Logout(ctx)
		}()

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			fx.backend.mu.Lock()
			calls := fx.backend.logoutCalls
			fx.backend.mu.Unlock()
			if calls > 0 {
				break
			}
			time.Sleep(time.Millisecond)
		}
		close(paused.release)
		wg.Wait()

		Convey("Then nothing of the session survives the logout", func() {
			So(store.Authenticated(), ShouldBeFalse)
			So(fx.creds.Token(), ShouldBeEmpty)
			for _, key := range []string{storage.KeyToken, storage.KeyRefreshToken, storage.KeyUser} {
				_, ok, err := fx.persist.Get(ctx, key)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("Then a later restore finds no session", func() {
			again := New(fx.backend, &backend.Credentials{}, fx.persist, WithLogger(logger.Nop()))
			again.Restore(ctx)
			So(again.Authenticated(), ShouldBeFalse)
		})
	})
}
