package backend

import (
	"context"
	"net/http"

	"github.com/okian/scout/internal/domain/account"
)

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds account.Credentials) (account.Session, error) {
	var s account.Session
	err := c.doJSON(ctx, "auth.login", http.MethodPost, []string{"auth", "login"}, nil, creds, &s)
	return s, err
}

// Logout calls POST /auth/logout with the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "auth.logout", http.MethodPost, []string{"auth", "logout"}, nil, nil, nil)
}

// Me calls GET /auth/me and returns the user owning the current token.
func (c *Client) Me(ctx context.Context) (account.User, error) {
	var u account.User
	err := c.doJSON(ctx, "auth.me", http.MethodGet, []string{"auth", "me"}, nil, nil, &u)
	return u, err
}

// Refresh calls POST /auth/refresh and returns a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (account.Tokens, error) {
	var t account.Tokens
	body := map[string]string{"refreshToken": refreshToken}
	err := c.doJSON(ctx, "auth.refresh", http.MethodPost, []string{"auth", "refresh"}, nil, body, &t)
	return t, err
}

// UpdateProfile calls PATCH /auth/profile and returns the server's copy.
func (c *Client) UpdateProfile(ctx context.Context, p account.ProfileUpdate) (account.User, error) {
	var u account.User
	err := c.doJSON(ctx, "auth.profile", http.MethodPatch, []string{"auth", "profile"}, nil, p, &u)
	return u, err
}

// ChangePassword calls POST /auth/password.
func (c *Client) ChangePassword(ctx context.Context, p account.PasswordChange) error {
	return c.doJSON(ctx, "auth.password", http.MethodPost, []string{"auth", "password"}, nil, p, nil)
}
