package shell

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/app/prospects"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/pkg/logger"
)

// extraFilterKeys are query keys passed through to the backend as extra filters.
var extraFilterKeys = []string{"club"} //nolint:gochecknoglobals // read-only key list

// handleDesktopLogin handles GET /login.
func (s *Server) handleDesktopLogin(w http.ResponseWriter, r *http.Request) {
	s.serveLogin(w, r)
}

// handleMobileLogin handles GET /mobile/login.
func (s *Server) handleMobileLogin(w http.ResponseWriter, r *http.Request) {
	s.serveLogin(w, r)
}

func (s *Server) serveLogin(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if v.ws.Session.Authenticated() {
		http.Redirect(w, r, landingPath(v.tree), http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.newPage(r, "Ingresar"))
}

// handleDashboard handles GET /dashboard. Browsing works logged out; the
// mutation forms are only rendered for a logged-in scout.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	pending, ok := s.syncList(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", withPending(s.newPage(r, "Prospectos"), pending))
}

// handleMobileHome handles GET /mobile.
func (s *Server) handleMobileHome(w http.ResponseWriter, r *http.Request) {
	c := visitFrom(r.Context()).ws.Prospects
	if c.Started() {
		c.FetchMetrics(r.Context())
	} else {
		c.Start(r.Context())
	}
	s.render(w, r, http.StatusOK, "mobile_home.html", s.newPage(r, "Inicio"))
}

// handleMobileList handles GET /mobile/prospects.
func (s *Server) handleMobileList(w http.ResponseWriter, r *http.Request) {
	pending, ok := s.syncList(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "mobile_list.html", withPending(s.newPage(r, "Prospectos"), pending))
}

// handleMobileDetail handles GET /mobile/prospects/{id}.
func (s *Server) handleMobileDetail(w http.ResponseWriter, r *http.Request) {
	c := visitFrom(r.Context()).ws.Prospects
	p, err := c.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrInvalidID) {
			status = http.StatusNotFound
		}
		data := s.newPage(r, "Prospecto")
		data.Error = backend.Describe(err)
		s.render(w, r, status, "mobile_detail.html", data)
		return
	}
	data := s.newPage(r, p.Name)
	data.Prospect = &p
	s.render(w, r, http.StatusOK, "mobile_detail.html", data)
}

// syncList brings the controller in line with the query string: a change of
// any filter goes through SetFilters, a change of page alone through SetPage,
// and an unchanged query refreshes the current page. The refresh clears the
// controller error, so the error pending before it is returned for this one
// render. ok is false when the request has already been answered.
func (s *Server) syncList(w http.ResponseWriter, r *http.Request) (pending string, ok bool) {
	ctx := r.Context()
	c := visitFrom(ctx).ws.Prospects
	patch, err := prospect.ParseQuery(r.URL.Query(), extraFilterKeys...)
	if err != nil {
		s.logger.Debug(ctx, "bad list query", logger.Error(err))
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
		return "", false
	}
	pending = c.State().Error
	started := c.Started()
	c.Start(ctx)
	applyQuery(ctx, c, patch, started)
	return pending, true
}

// withPending shows pending when nothing newer is there to show.
func withPending(p page, pending string) page {
	if p.Error == "" {
		p.Error = pending
	}
	return p
}

// applyQuery diffs patch against the controller filters.
func applyQuery(ctx context.Context, c *prospects.Controller, patch prospect.FilterPatch, refresh bool) {
	cur := c.Filters()
	next := cur.Merge(patch)
	switch {
	case next.Equal(cur):
		if refresh {
			c.Fetch(ctx)
			c.FetchMetrics(ctx)
		}
	case next.WithPage(cur.Page).Equal(cur):
		c.SetPage(ctx, next.Page)
	default:
		patch.Page = nil
		c.SetFilters(ctx, patch)
	}
}

// stateView is the JSON shape of GET /api/state.
type stateView struct {
	Device    string        `json:"device"`
	Tree      string        `json:"tree"`
	Theme     string        `json:"theme"`
	Session   sessionView   `json:"session"`
	Prospects prospectsView `json:"prospects"`
}

type sessionView struct {
	Authenticated bool          `json:"isAuthenticated"`
	User          *account.User `json:"user"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
}

type prospectsView struct {
	Data       []prospect.Prospect `json:"prospects"`
	Metrics    *prospect.Metrics   `json:"metrics"`
	Pagination prospect.Pagination `json:"pagination"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
	Filters    url.Values          `json:"filters"`
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	v.ws.Prospects.Start(r.Context())
	p := s.newPage(r, "")
	writeJSON(w, http.StatusOK, stateView{
		Device: string(p.Class),
		Tree:   string(p.Tree),
		Theme:  string(p.Theme),
		Session: sessionView{
			Authenticated: p.Session.Authenticated,
			User:          p.Session.User,
			Loading:       p.Session.Loading,
			Error:         p.Session.Error,
		},
		Prospects: prospectsView{
			Data:       p.List.Prospects,
			Metrics:    p.List.Metrics,
			Pagination: p.List.Pagination,
			Loading:    p.List.Loading,
			Error:      p.List.Error,
			Filters:    p.List.Filters.Query(),
		},
	})
}
