package shell

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/app/prospects"
	"github.com/okian/scout/internal/app/session"
	"github.com/okian/scout/internal/domain/device"
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/internal/domain/theme"
	"github.com/okian/scout/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{ //nolint:gochecknoglobals // fixed page set
	"login.html",
	"dashboard.html",
	"mobile_home.html",
	"mobile_list.html",
	"mobile_detail.html",
}

var funcs = template.FuncMap{ //nolint:gochecknoglobals // template helpers
	"rated": func(v int) string {
		if v == 0 {
			return "-"
		}
		return strconv.Itoa(v)
	},
	"height": func(m float64) string {
		if m == 0 {
			return "-"
		}
		return strconv.FormatFloat(m, 'f', 2, 64) + " m"
	},
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplates, name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// page is the data every template renders from.
type page struct {
	Title      string
	Tree       device.Tree
	Class      device.Class
	Theme      theme.Preference
	ThemePref  theme.Preference
	Themes     []theme.Preference
	Session    session.State
	List       prospects.State
	Prospect   *prospect.Prospect
	Error      string
	Return     string
	Positions  []prospect.Position
	Statuses   []prospect.Status
	PrevURL    string
	NextURL    string
	LoginURL   string
	LandingURL string
	Now        time.Time
}

// newPage collects the visitor's state for rendering.
func (s *Server) newPage(r *http.Request, title string) page {
	v := visitFrom(r.Context())
	pref := s.themePreference(r.Context(), v.ws.Storage)
	p := page{
		Title:      title,
		Tree:       v.tree,
		Class:      v.class,
		ThemePref:  pref,
		Theme:      pref.Resolve(r.Header.Get("Sec-CH-Prefers-Color-Scheme")),
		Themes:     []theme.Preference{theme.System, theme.Light, theme.Dark},
		Session:    v.ws.Session.State(),
		List:       v.ws.Prospects.State(),
		Return:     r.URL.RequestURI(),
		Positions:  prospect.Positions,
		Statuses:   prospect.Statuses,
		LoginURL:   loginPath(v.tree),
		LandingURL: landingPath(v.tree),
		Now:        s.now(),
	}
	p.Error = p.List.Error
	if p.Error == "" {
		p.Error = p.Session.Error
	}
	pg := p.List.Pagination
	if pg.HasPrev() {
		p.PrevURL = pageURL(r.URL.Path, p.List.Filters, pg.Page-1)
	}
	if pg.HasNext() {
		p.NextURL = pageURL(r.URL.Path, p.List.Filters, pg.Page+1)
	}
	return p
}

func pageURL(path string, f prospect.Filters, n int) string {
	q := f.WithPage(n).Query()
	return (&url.URL{Path: path, RawQuery: q.Encode()}).String()
}

func (s *Server) themePreference(ctx context.Context, st storage.Store) theme.Preference {
	raw, _, err := st.Get(ctx, storage.KeyTheme)
	if err != nil {
		s.logger.Warn(ctx, "read theme", logger.Error(err))
		return theme.System
	}
	pref, err := theme.Parse(raw)
	if err != nil {
		return theme.System
	}
	return pref
}

// render executes the named page into a buffer so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error(r.Context(), "render page", logger.String("page", name), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
