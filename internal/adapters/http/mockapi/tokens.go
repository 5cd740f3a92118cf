package mockapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okian/scout/internal/domain/account"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type tokenClaims struct {
	Kind  string `json:"kind"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access and refresh tokens and tracks revoked access tokens.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // access jti -> expiry
}

func newTokenIssuer(secret string) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(secret),
		accessTTL:  15 * time.Minute,
		refreshTTL: 30 * 24 * time.Hour,
		now:        time.Now,
		revoked:    make(map[string]time.Time),
	}
}

// issued is a token pair plus the refresh id the store must remember.
type issued struct {
	account.Tokens
	refreshID  string
	refreshExp time.Time
}

func (t *tokenIssuer) issue(u account.User) (issued, error) {
	now := t.now()
	access, err := t.sign(tokenClaims{
		Kind:  kindAccess,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	})
	if err != nil {
		return issued{}, err
	}
	out := issued{refreshID: uuid.NewString(), refreshExp: now.Add(t.refreshTTL)}
	refresh, err := t.sign(tokenClaims{
		Kind: kindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        out.refreshID,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(out.refreshExp),
		},
	})
	if err != nil {
		return issued{}, err
	}
	out.Tokens = account.Tokens{Token: access, RefreshToken: refresh}
	return out, nil
}

func (t *tokenIssuer) sign(c tokenClaims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// parse verifies signature, expiry and kind.
func (t *tokenIssuer) parse(raw, kind string) (*tokenClaims, error) {
	var c tokenClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, wrapKind("parse token", ErrUnauthorized, err)
	}
	if c.Kind != kind || c.Subject == "" {
		return nil, wrapKind("parse token", ErrUnauthorized, errors.New("wrong token kind"))
	}
	if kind == kindAccess && t.isRevoked(c.ID) {
		return nil, wrapKind("parse token", ErrUnauthorized, ErrTokenRevoked)
	}
	return &c, nil
}

func (t *tokenIssuer) revoke(c *tokenClaims) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, id)
		}
	}
	if c.ExpiresAt != nil {
		t.revoked[c.ID] = c.ExpiresAt.Time
	}
}

func (t *tokenIssuer) isRevoked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.revoked[id]
	return ok
}
