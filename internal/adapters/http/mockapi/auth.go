package mockapi

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/pkg/logger"
)

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.login"
	var creds account.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := creds.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	u, hash, err := s.store.UserByEmail(r.Context(), creds.Email)
	if err == nil {
		err = bcrypt.CompareHashAndPassword(hash, []byte(creds.Password))
	}
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", errors.New("wrong email or password"))
		return
	}
	tokens, err := s.issue(r, u)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	s.logger.Info(r.Context(), "login", logger.String("user", u.ID))
	writeJSON(w, http.StatusOK, account.Session{User: u, Tokens: tokens})
}

// handleRefresh handles POST /api/auth/refresh. Refresh tokens rotate: each works once.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.refresh"
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	c, err := s.tokens.parse(body.RefreshToken, kindRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", errors.New("refresh token is invalid or expired"))
		return
	}
	owner, err := s.store.ConsumeRefresh(r.Context(), c.ID)
	if err != nil || owner != c.Subject {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", errors.New("refresh token already used or revoked"))
		return
	}
	u, _, err := s.store.User(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", errors.New("unknown user"))
		return
	}
	tokens, err := s.issue(r, u)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// handleLogout handles POST /api/auth/logout: the access token and every refresh token die.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	s.tokens.revoke(c)
	if err := s.store.RevokeUser(r.Context(), c.Subject); err != nil {
		s.writeFailure(w, r, "mockapi.logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _, err := s.store.User(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", errors.New("unknown user"))
			return
		}
		s.writeFailure(w, r, "mockapi.me", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleProfile handles PATCH /api/auth/profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.profile"
	var upd account.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := upd.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	u, err := s.store.UpdateUser(r.Context(), claimsFrom(r.Context()).Subject, func(u *account.User) {
		if upd.Name != "" {
			u.Name = upd.Name
		}
		if upd.Club != "" {
			u.Club = upd.Club
		}
		if upd.AvatarURL != "" {
			u.AvatarURL = upd.AvatarURL
		}
	})
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handlePassword handles POST /api/auth/password.
func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.password"
	var change account.PasswordChange
	if err := decodeJSON(w, r, &change); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := change.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	id := claimsFrom(r.Context()).Subject
	_, hash, err := s.store.User(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(change.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "wrong_password", errors.New("current password does not match"))
		return
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(change.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := s.store.SetPasswordHash(r.Context(), id, newHash); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issue(r *http.Request, u account.User) (account.Tokens, error) {
	out, err := s.tokens.issue(u)
	if err != nil {
		return account.Tokens{}, err
	}
	if err := s.store.SaveRefresh(r.Context(), out.refreshID, u.ID, out.refreshExp); err != nil {
		return account.Tokens{}, err
	}
	return out.Tokens, nil
}
