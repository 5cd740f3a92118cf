// Package session tracks who is logged in for one visitor and keeps the
// tokens persisted and attached to outgoing backend calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// Backend is the part of the REST client the store needs.
type Backend interface {
	Login(ctx context.Context, creds account.Credentials) (account.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (account.User, error)
	Refresh(ctx context.Context, refreshToken string) (account.Tokens, error)
	UpdateProfile(ctx context.Context, p account.ProfileUpdate) (account.User, error)
	ChangePassword(ctx context.Context, p account.PasswordChange) error
}

// Destination is a logical navigation target.
type Destination int

// Navigation targets.
const (
	Landing Destination = iota + 1
	LoginPage
)

func (d Destination) String() string {
	switch d {
	case Landing:
		return "landing"
	case LoginPage:
		return "login"
	default:
		return "unknown"
	}
}

// Navigator receives navigation side effects.
type Navigator interface {
	Navigate(ctx context.Context, to Destination)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, to Destination)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, to Destination) { f(ctx, to) }

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, Destination) {}

// State is a snapshot of the session.
type State struct {
	User          *account.User
	Authenticated bool
	Loading       bool
	Error         string
	ExpiresAt     time.Time
}

// Store is the session of one visitor.
//
// Every logout bumps an epoch; a login, refresh or restore that started under
// an older epoch is dropped when it resolves. Writes to creds and persist go
// through commit or Logout, which serialize on persistMu so a logout can never
// be followed by a stale save.
type Store struct {
	backend Backend
	creds   *backend.Credentials
	persist storage.Store
	nav     Navigator
	logger  logger.Logger
	now     func() time.Time

	persistMu sync.Mutex

	mu       sync.RWMutex
	user     *account.User
	tokens   account.Tokens
	loading  int
	errMsg   string
	epoch    uint64
	restored bool
}

// New builds a logged-out store. creds is the holder the backend client reads
// its bearer token from; persist keeps the tokens across page loads.
func New(b Backend, creds *backend.Credentials, persist storage.Store, opts ...Option) *Store {
	s := &Store{
		backend: b,
		creds:   creds,
		persist: persist,
		nav:     noopNavigator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNamed(s.logger, "session")
	return s
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Authenticated: s.user != nil && s.tokens.Token != "",
		Loading:       s.loading > 0,
		Error:         s.errMsg,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	if exp, ok := TokenExpiry(s.tokens.Token); ok {
		st.ExpiresAt = exp
	}
	return st
}

// Authenticated reports whether a user is logged in.
func (s *Store) Authenticated() bool {
	return s.State().Authenticated
}

// Restored reports whether Restore has run.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// ClearError resets Error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Restore rebuilds the session from persisted tokens, validating them with
// the backend. Any failure leaves the visitor logged out; it never errors.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return
	}
	s.restored = true
	epoch := s.epoch
	s.loading++
	s.mu.Unlock()
	defer s.done()

	tokens, ok := s.loadSession(ctx)
	if !ok {
		s.logger.Debug(ctx, "no persisted session")
		return
	}
	if !s.attach(epoch, tokens) {
		metrics.RecordSessionEvent("restore", "superseded")
		return
	}

	if exp, ok := TokenExpiry(tokens.Token); ok && !exp.After(s.now()) && tokens.RefreshToken != "" {
		fresh, err := s.backend.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			s.dropRestore(ctx, epoch, "refresh", err)
			return
		}
		tokens = fresh
		if !s.attach(epoch, tokens) {
			metrics.RecordSessionEvent("restore", "superseded")
			return
		}
	}

	u, err := s.backend.Me(ctx)
	if err != nil {
		s.dropRestore(ctx, epoch, "me", err)
		return
	}

	if !s.commit(ctx, epoch, tokens, &u) {
		metrics.RecordSessionEvent("restore", "superseded")
		return
	}
	metrics.RecordSessionEvent("restore", "ok")
	s.logger.Info(ctx, "session restored", logger.String("user", u.ID))
}

func (s *Store) dropRestore(ctx context.Context, epoch uint64, step string, err error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.Lock()
	current := s.epoch == epoch
	if current {
		s.user = nil
		s.tokens = account.Tokens{}
	}
	s.mu.Unlock()
	if !current {
		return
	}
	s.creds.Clear()
	s.forget(ctx)
	metrics.RecordSessionEvent("restore", "invalid")
	s.logger.Info(ctx, "persisted session rejected", logger.String("step", step), logger.Error(err))
}

// Login authenticates, persists the tokens and navigates to the landing page.
// On failure the visitor stays logged out and Error is set.
func (s *Store) Login(ctx context.Context, creds account.Credentials) (account.User, error) {
	epoch := s.begin()
	defer s.done()

	if err := creds.Validate(); err != nil {
		return account.User{}, s.fail(ctx, "login", err)
	}
	sess, err := s.backend.Login(ctx, creds)
	if err != nil {
		return account.User{}, s.fail(ctx, "login", err)
	}

	u := sess.User
	if !s.commit(ctx, epoch, sess.Tokens, &u) {
		metrics.RecordSessionEvent("login", "superseded")
		return account.User{}, ErrSuperseded
	}
	metrics.RecordSessionEvent("login", "ok")
	s.logger.Info(ctx, "logged in", logger.String("user", u.ID))
	s.nav.Navigate(ctx, Landing)
	return u, nil
}

// Logout tells the backend, then clears local and persisted state whatever
// the backend answered, and navigates to the login page.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	hadToken := s.tokens.Token != "" || s.creds.Token() != ""
	s.mu.Unlock()

	outcome := "ok"
	if hadToken {
		if err := s.backend.Logout(ctx); err != nil {
			outcome = "server_error"
			s.logger.Warn(ctx, "backend logout failed", logger.Error(err))
		}
	}

	s.persistMu.Lock()
	s.mu.Lock()
	// Drops a login that started while the backend call was in flight.
	s.epoch++
	s.user = nil
	s.tokens = account.Tokens{}
	s.errMsg = ""
	s.mu.Unlock()
	s.creds.Clear()
	s.forget(ctx)
	s.persistMu.Unlock()

	metrics.RecordSessionEvent("logout", outcome)
	s.logger.Info(ctx, "logged out")
	s.nav.Navigate(ctx, LoginPage)
}

// Refresh exchanges the refresh token for a new pair. Any failure logs the
// visitor out.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	epoch := s.epoch
	refresh := s.tokens.RefreshToken
	s.mu.RUnlock()

	if refresh == "" {
		metrics.RecordSessionEvent("refresh", "missing")
		s.Logout(ctx)
		return ErrNoRefreshToken
	}
	tokens, err := s.backend.Refresh(ctx, refresh)
	if err != nil {
		metrics.RecordSessionEvent("refresh", "failed")
		s.logger.Warn(ctx, "token refresh failed", logger.Error(err))
		s.Logout(ctx)
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.RLock()
	u := s.user
	s.mu.RUnlock()
	if u == nil || !s.commit(ctx, epoch, tokens, u) {
		metrics.RecordSessionEvent("refresh", "superseded")
		return ErrSuperseded
	}
	metrics.RecordSessionEvent("refresh", "ok")
	return nil
}

// EnsureFresh refreshes the tokens when the access token expires within margin.
func (s *Store) EnsureFresh(ctx context.Context, margin time.Duration) error {
	s.mu.RLock()
	token := s.tokens.Token
	s.mu.RUnlock()
	if token == "" {
		return nil
	}
	exp, ok := TokenExpiry(token)
	if !ok || exp.After(s.now().Add(margin)) {
		return nil
	}
	return s.Refresh(ctx)
}

// UpdateProfile sends the change and keeps the user the server echoes back.
func (s *Store) UpdateProfile(ctx context.Context, p account.ProfileUpdate) (account.User, error) {
	if !s.Authenticated() {
		return account.User{}, ErrNotAuthenticated
	}
	epoch := s.begin()
	defer s.done()

	if err := p.Validate(); err != nil {
		return account.User{}, s.fail(ctx, "profile", err)
	}
	u, err := s.backend.UpdateProfile(ctx, p)
	if err != nil {
		return account.User{}, s.fail(ctx, "profile", err)
	}

	s.mu.RLock()
	tokens := s.tokens
	s.mu.RUnlock()
	if tokens.Token == "" || !s.commit(ctx, epoch, tokens, &u) {
		return account.User{}, ErrSuperseded
	}
	metrics.RecordSessionEvent("profile", "ok")
	return u, nil
}

// ChangePassword replaces the password of the current user.
func (s *Store) ChangePassword(ctx context.Context, p account.PasswordChange) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	s.begin()
	defer s.done()

	if err := p.Validate(); err != nil {
		return s.fail(ctx, "password", err)
	}
	if err := s.backend.ChangePassword(ctx, p); err != nil {
		return s.fail(ctx, "password", err)
	}
	metrics.RecordSessionEvent("password", "ok")
	return nil
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
	s.errMsg = ""
	return s.epoch
}

func (s *Store) done() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func (s *Store) fail(ctx context.Context, op string, err error) error {
	s.mu.Lock()
	s.errMsg = backend.Describe(err)
	s.mu.Unlock()
	metrics.RecordSessionEvent(op, "failed")
	s.logger.Warn(ctx, "session operation failed", logger.String("op", op), logger.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

// commit installs tokens and user and persists them, unless a logout has
// happened since epoch. It reports false when superseded.
func (s *Store) commit(ctx context.Context, epoch uint64, t account.Tokens, u *account.User) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.user = u
	s.tokens = t
	s.mu.Unlock()
	s.creds.Set(t)
	s.save(ctx, t, u)
	return true
}

// attach hands tokens to the backend client without touching session state.
func (s *Store) attach(epoch uint64, t account.Tokens) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.mu.RLock()
	current := s.epoch == epoch
	s.mu.RUnlock()
	if current {
		s.creds.Set(t)
	}
	return current
}

// loadSession reads the persisted tokens and user. Both must be present; a
// token left without its user is discarded.
func (s *Store) loadSession(ctx context.Context) (account.Tokens, bool) {
	var t account.Tokens
	var err error
	if t.Token, _, err = s.persist.Get(ctx, storage.KeyToken); err != nil {
		s.logger.Warn(ctx, "read persisted token", logger.Error(err))
		return account.Tokens{}, false
	}
	if t.RefreshToken, _, err = s.persist.Get(ctx, storage.KeyRefreshToken); err != nil {
		s.logger.Warn(ctx, "read persisted refresh token", logger.Error(err))
	}
	if t.Token == "" {
		return account.Tokens{}, false
	}
	var u account.User
	found, err := storage.GetJSON(ctx, s.persist, storage.KeyUser, &u)
	if err != nil || !found || u.ID == "" {
		if err != nil {
			s.logger.Warn(ctx, "read persisted user", logger.Error(err))
		}
		s.forget(ctx)
		return account.Tokens{}, false
	}
	return t, true
}

// save persists tokens and user. Storage failures are logged; the in-memory
// session stays valid.
func (s *Store) save(ctx context.Context, t account.Tokens, u *account.User) {
	err := errors.Join(
		s.persist.Set(ctx, storage.KeyToken, t.Token),
		s.persist.Set(ctx, storage.KeyRefreshToken, t.RefreshToken),
	)
	if u != nil {
		err = errors.Join(err, storage.SetJSON(ctx, s.persist, storage.KeyUser, u))
	}
	if err != nil {
		s.logger.Warn(ctx, "persist session", logger.Error(err))
	}
}

func (s *Store) forget(ctx context.Context) {
	if err := s.persist.Delete(ctx, storage.KeyToken, storage.KeyRefreshToken, storage.KeyUser); err != nil {
		s.logger.Warn(ctx, "clear persisted session", logger.Error(err))
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The backend
// remains the authority on validity.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
