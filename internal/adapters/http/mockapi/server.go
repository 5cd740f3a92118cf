// Package mockapi is an in-memory implementation of the scouting REST backend
// used for local development and end-to-end tests.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const maxJSONBytes = 1 << 20

// Store is the persistence the backend needs.
type Store interface {
	repository.ProspectStore
	repository.UserStore
}

type video struct {
	name        string
	contentType string
	data        []byte
}

// Server wires HTTP routes for the backend API.
type Server struct {
	store         Store
	tokens        *tokenIssuer
	logger        logger.Logger
	maxVideoBytes int64

	mu     sync.RWMutex
	videos map[string]video
}

// NewServer creates a backend over store signing tokens with secret.
func NewServer(store Store, secret string, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("mockapi: nil store")
	}
	if secret == "" {
		return nil, errors.New("mockapi: empty jwt secret")
	}
	s := &Server{
		store:         store,
		tokens:        newTokenIssuer(secret),
		maxVideoBytes: 64 << 20,
		videos:        make(map[string]video),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNamed(s.logger, "mockapi")
	return s, nil
}

// Register attaches all HTTP routes to mux under /api.
func (s *Server) Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mockapi.Register: nil mux")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, metrics.Middleware(h, endpoint))
	}

	route("GET /healthz", "healthz", metrics.Handler().ServeHTTP)

	route("GET /api/prospects", "prospects.list", s.handleList)
	route("GET /api/prospects/metrics", "prospects.metrics", s.handleMetrics)
	route("GET /api/prospects/{id}", "prospects.get", s.handleGet)
	route("GET /api/prospects/{id}/video", "prospects.video.get", s.handleGetVideo)
	route("POST /api/prospects", "prospects.create", s.requireAuth(s.handleCreate))
	route("PATCH /api/prospects/{id}", "prospects.update", s.requireAuth(s.handleUpdate))
	route("DELETE /api/prospects/{id}", "prospects.delete", s.requireAuth(s.handleDelete))
	route("PATCH /api/prospects/{id}/rating", "prospects.rating", s.requireAuth(s.handleRating))
	route("PATCH /api/prospects/{id}/status", "prospects.status", s.requireAuth(s.handleStatus))
	route("PATCH /api/prospects/{id}/notes", "prospects.notes", s.requireAuth(s.handleNotes))
	route("POST /api/prospects/{id}/video", "prospects.video", s.requireAuth(s.handleUploadVideo))

	route("POST /api/auth/login", "auth.login", s.handleLogin)
	route("POST /api/auth/refresh", "auth.refresh", s.handleRefresh)
	route("POST /api/auth/logout", "auth.logout", s.requireAuth(s.handleLogout))
	route("GET /api/auth/me", "auth.me", s.requireAuth(s.handleMe))
	route("PATCH /api/auth/profile", "auth.profile", s.requireAuth(s.handleProfile))
	route("POST /api/auth/password", "auth.password", s.requireAuth(s.handlePassword))
}

type ctxKey struct{}

// requireAuth verifies the bearer access token and stores its claims in the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", errors.New("missing bearer token"))
			return
		}
		c, err := s.tokens.parse(raw, kindAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", errors.New("invalid or expired token"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	}
}

func claimsFrom(ctx context.Context) *tokenClaims {
	c, _ := ctx.Value(ctxKey{}).(*tokenClaims)
	return c
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a store or validation error to a status.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", errors.New("not found"))
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, prospect.ErrInvalid),
		errors.Is(err, account.ErrInvalid), errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, prospect.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
