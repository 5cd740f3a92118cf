// Package shell serves the dashboard pages. Each request is classified by
// device and served from the desktop or the mobile page tree; the state
// behind the pages lives in the visitor's workspace.
package shell

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scout/internal/adapters/http/site"
	"github.com/okian/scout/internal/app/session"
	"github.com/okian/scout/internal/app/workspace"
	"github.com/okian/scout/internal/domain/device"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// VisitorCookie holds the visitor id the workspace is keyed by.
const VisitorCookie = "scout_vid"

const (
	defaultMaxUpload     = 64 << 20
	defaultRefreshMargin = time.Minute
	visitorCookieMaxAge  = 365 * 24 * 60 * 60
)

// Workspaces hands out the workspace of a visitor.
type Workspaces interface {
	Get(ctx context.Context, id string) (*workspace.Workspace, error)
}

// Server is the dashboard front end.
type Server struct {
	workspaces    Workspaces
	logger        logger.Logger
	pages         map[string]*template.Template
	desktop       *http.ServeMux
	mobile        *http.ServeMux
	cookieSecure  bool
	maxUpload     int64
	refreshMargin time.Duration
	now           func() time.Time
}

// NewServer builds the shell on top of ws.
func NewServer(ws Workspaces, opts ...Option) (*Server, error) {
	s := &Server{
		workspaces:    ws,
		maxUpload:     defaultMaxUpload,
		refreshMargin: defaultRefreshMargin,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNamed(s.logger, "shell")

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages

	s.desktop = http.NewServeMux()
	s.desktop.HandleFunc("GET /login", s.handleDesktopLogin)
	s.desktop.HandleFunc("GET /dashboard", s.handleDashboard)
	s.desktop.HandleFunc("GET /", redirectTo("/dashboard"))

	s.mobile = http.NewServeMux()
	s.mobile.HandleFunc("GET /mobile", s.handleMobileHome)
	s.mobile.HandleFunc("GET /mobile/login", s.handleMobileLogin)
	s.mobile.HandleFunc("GET /mobile/prospects", s.handleMobileList)
	s.mobile.HandleFunc("GET /mobile/prospects/{id}", s.handleMobileDetail)
	s.mobile.HandleFunc("GET /", redirectTo("/mobile"))
	return s, nil
}

// Register attaches every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /healthz", metrics.Handler())
	site.Register(mux)

	mux.HandleFunc("GET /api/state", metrics.Middleware(s.visit(s.handleState), "state"))

	mux.HandleFunc("POST /actions/login", metrics.Middleware(s.visit(s.handleLogin), "action_login"))
	mux.HandleFunc("POST /actions/logout", metrics.Middleware(s.visit(s.handleLogout), "action_logout"))
	mux.HandleFunc("POST /actions/theme", metrics.Middleware(s.visit(s.handleTheme), "action_theme"))
	mux.HandleFunc("POST /actions/clear-error", metrics.Middleware(s.visit(s.handleClearError), "action_clear_error"))
	mux.HandleFunc("POST /actions/prospects", metrics.Middleware(s.visit(s.authed(s.handleCreate)), "action_create"))
	mux.HandleFunc("POST /actions/prospects/{id}/status", metrics.Middleware(s.visit(s.authed(s.handleStatus)), "action_status"))
	mux.HandleFunc("POST /actions/prospects/{id}/rating", metrics.Middleware(s.visit(s.authed(s.handleRating)), "action_rating"))
	mux.HandleFunc("POST /actions/prospects/{id}/notes", metrics.Middleware(s.visit(s.authed(s.handleNotes)), "action_notes"))
	mux.HandleFunc("POST /actions/prospects/{id}/update", metrics.Middleware(s.visit(s.authed(s.handleUpdate)), "action_update"))
	mux.HandleFunc("POST /actions/prospects/{id}/delete", metrics.Middleware(s.visit(s.authed(s.handleDelete)), "action_delete"))
	mux.HandleFunc("POST /actions/prospects/{id}/video", metrics.Middleware(s.visit(s.authed(s.handleVideo)), "action_video"))

	mux.HandleFunc("GET /", metrics.Middleware(s.visit(s.servePage), "page"))
}

// servePage routes into the page tree of the visitor's device.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if v.tree == device.MobileTree {
		s.mobile.ServeHTTP(w, r)
		return
	}
	s.desktop.ServeHTTP(w, r)
}

type visitKey struct{}

// visit is what a request knows about its visitor.
type visit struct {
	ws    *workspace.Workspace
	class device.Class
	tree  device.Tree
}

func visitFrom(ctx context.Context) visit {
	v, _ := ctx.Value(visitKey{}).(visit)
	return v
}

// visit resolves the visitor, its workspace and its device, restores the
// session on first contact and keeps the access token fresh.
func (s *Server) visit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Accept-CH", "Sec-CH-Viewport-Width, Viewport-Width, Sec-CH-Prefers-Color-Scheme")
		w.Header().Add("Vary", "Sec-CH-Viewport-Width, Viewport-Width, Cookie")

		class := classify(r)
		metrics.RecordDeviceClass(string(class))

		ws, err := s.workspaces.Get(ctx, s.visitorID(w, r))
		if err != nil {
			metrics.RecordErrorByComponent("shell", "workspace")
			s.logger.Error(ctx, "resolve workspace", logger.Error(err))
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		ws.Session.Restore(ctx)
		if ws.Session.Authenticated() {
			if err := ws.Session.EnsureFresh(ctx, s.refreshMargin); err != nil {
				s.logger.Info(ctx, "token refresh forced logout", logger.Error(err))
				ws.Nav.Take()
			}
		}

		v := visit{ws: ws, class: class, tree: class.Tree()}
		next(w, r.WithContext(context.WithValue(ctx, visitKey{}, v)))
	}
}

// authed sends logged-out visitors to the login page of their tree.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitFrom(r.Context())
		if !v.ws.Session.Authenticated() {
			http.Redirect(w, r, loginPath(v.tree), http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// visitorID returns the visitor cookie, issuing a new id when it is missing or malformed.
func (s *Server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(VisitorCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// classify reads the viewport width from client hints or the viewport cookie
// and falls back on the user agent.
func classify(r *http.Request) device.Class {
	return device.Classify(viewportWidth(r), r.UserAgent())
}

func viewportWidth(r *http.Request) int {
	for _, h := range []string{"Sec-CH-Viewport-Width", "Viewport-Width"} {
		if w, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(h))); err == nil && w > 0 {
			return w
		}
	}
	if c, err := r.Cookie(site.ViewportCookie); err == nil {
		if w, err := strconv.Atoi(c.Value); err == nil && w > 0 {
			return w
		}
	}
	return 0
}

func landingPath(t device.Tree) string {
	if t == device.MobileTree {
		return "/mobile"
	}
	return "/dashboard"
}

func loginPath(t device.Tree) string {
	if t == device.MobileTree {
		return "/mobile/login"
	}
	return "/login"
}

func destinationPath(t device.Tree, d session.Destination) string {
	if d == session.LoginPage {
		return loginPath(t)
	}
	return landingPath(t)
}

func redirectTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusFound)
	}
}

// returnPath reads the "return" form value, accepting only local paths.
func returnPath(r *http.Request, fallback string) string {
	p := r.FormValue("return")
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
