package shell

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/device"
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/internal/domain/theme"
	"github.com/okian/scout/pkg/logger"
)

// maxFormBytes caps url-encoded form bodies.
const maxFormBytes = 1 << 20

// handleLogin handles POST /actions/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	creds := account.Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if _, err := v.ws.Session.Login(r.Context(), creds); err != nil {
		http.Redirect(w, r, loginPath(v.tree), http.StatusSeeOther)
		return
	}
	s.followNavigation(w, r, landingPath(v.tree))
}

// handleLogout handles POST /actions/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	v.ws.Session.Logout(r.Context())
	s.followNavigation(w, r, loginPath(v.tree))
}

// followNavigation redirects to the destination the session asked for.
func (s *Server) followNavigation(w http.ResponseWriter, r *http.Request, fallback string) {
	v := visitFrom(r.Context())
	target := fallback
	if to, ok := v.ws.Nav.Take(); ok {
		target = destinationPath(v.tree, to)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleTheme handles POST /actions/theme.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	pref, err := theme.Parse(r.PostFormValue("theme"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := v.ws.Storage.Set(r.Context(), storage.KeyTheme, string(pref)); err != nil {
		s.logger.Warn(r.Context(), "persist theme", logger.Error(err))
	}
	http.Redirect(w, r, returnPath(r, landingPath(v.tree)), http.StatusSeeOther)
}

// handleClearError handles POST /actions/clear-error.
func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	v.ws.Prospects.ClearError()
	v.ws.Session.ClearError()
	http.Redirect(w, r, returnPath(r, landingPath(v.tree)), http.StatusSeeOther)
}

// handleCreate handles POST /actions/prospects.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	d, err := draftFromForm(r)
	if err == nil {
		_, err = v.ws.Prospects.Create(r.Context(), d)
	}
	s.afterMutation(w, r, "create", err)
}

// handleStatus handles POST /actions/prospects/{id}/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	_, err := v.ws.Prospects.UpdateStatus(r.Context(), r.PathValue("id"), prospect.Status(r.PostFormValue("status")))
	s.afterMutation(w, r, "status", err)
}

// handleRating handles POST /actions/prospects/{id}/rating.
func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	ratings, err := ratingsFromForm(r)
	if err == nil {
		_, err = v.ws.Prospects.UpdateRating(r.Context(), r.PathValue("id"), ratings)
	}
	s.afterMutation(w, r, "rating", err)
}

// handleNotes handles POST /actions/prospects/{id}/notes.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	_, err := v.ws.Prospects.AddNotes(r.Context(), r.PathValue("id"), r.PostFormValue("notes"))
	s.afterMutation(w, r, "notes", err)
}

// handleUpdate handles POST /actions/prospects/{id}/update. Only submitted
// non-empty fields are changed.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	patch, err := patchFromForm(r)
	if err == nil {
		_, err = v.ws.Prospects.Update(r.Context(), r.PathValue("id"), patch)
	}
	s.afterMutation(w, r, "update", err)
}

// handleDelete handles POST /actions/prospects/{id}/delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	err := v.ws.Prospects.Delete(r.Context(), r.PathValue("id"))
	// The detail page of a deleted prospect is gone.
	if err == nil && v.tree == device.MobileTree {
		http.Redirect(w, r, "/mobile/prospects", http.StatusSeeOther)
		return
	}
	s.afterMutation(w, r, "delete", err)
}

// handleVideo handles POST /actions/prospects/{id}/video, streaming the
// uploaded file to the backend.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expected a multipart form", http.StatusBadRequest)
		return
	}
	back := landingPath(v.tree)
	for {
		part, err := mr.NextPart()
		if err != nil {
			http.Error(w, "missing video file", http.StatusBadRequest)
			return
		}
		switch part.FormName() {
		case "return":
			b := make([]byte, 512)
			n, _ := part.Read(b)
			if p := string(b[:n]); strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") {
				back = p
			}
		case "video":
			_, err := v.ws.Prospects.UploadVideo(r.Context(), r.PathValue("id"), part.FileName(), part)
			_ = part.Close()
			if err != nil {
				s.logger.Warn(r.Context(), "video upload failed", logger.Error(err))
			}
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		_ = part.Close()
	}
}

// afterMutation redirects back to the page the form came from. The error,
// if any, is already in the controller state and is shown there.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, op string, err error) {
	v := visitFrom(r.Context())
	if err != nil {
		s.logger.Debug(r.Context(), "mutation failed", logger.String("op", op), logger.Error(err))
	}
	http.Redirect(w, r, returnPath(r, landingPath(v.tree)), http.StatusSeeOther)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Errorf("%w: %w", ErrBadForm, err).Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func draftFromForm(r *http.Request) (prospect.Draft, error) {
	d := prospect.Draft{
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		BirthdayDate: strings.TrimSpace(r.PostFormValue("birthdayDate")),
		Position:     prospect.Position(r.PostFormValue("position")),
		Club:         strings.TrimSpace(r.PostFormValue("club")),
		Status:       prospect.Status(r.PostFormValue("status")),
		ImgData:      strings.TrimSpace(r.PostFormValue("imgData")),
	}
	var err error
	if d.YearOfBirth, err = formInt(r, "yearOfbirth"); err != nil {
		return prospect.Draft{}, err
	}
	if d.Talla, err = formFloat(r, "talla"); err != nil {
		return prospect.Draft{}, err
	}
	if d.Ratings, err = ratingsFromForm(r); err != nil {
		return prospect.Draft{}, err
	}
	return d, nil
}

func patchFromForm(r *http.Request) (prospect.Patch, error) {
	var p prospect.Patch
	if v := strings.TrimSpace(r.PostFormValue("name")); v != "" {
		p.Name = &v
	}
	if v := strings.TrimSpace(r.PostFormValue("club")); v != "" {
		p.Club = &v
	}
	if v := strings.TrimSpace(r.PostFormValue("birthdayDate")); v != "" {
		p.BirthdayDate = &v
	}
	if v := strings.TrimSpace(r.PostFormValue("imgData")); v != "" {
		p.ImgData = &v
	}
	if v := prospect.Position(r.PostFormValue("position")); v != "" {
		p.Position = &v
	}
	if n, err := formInt(r, "yearOfbirth"); err != nil {
		return prospect.Patch{}, err
	} else if n != 0 {
		p.YearOfBirth = &n
	}
	if f, err := formFloat(r, "talla"); err != nil {
		return prospect.Patch{}, err
	} else if f != 0 {
		p.Talla = &f
	}
	return p, nil
}

func ratingsFromForm(r *http.Request) (prospect.Ratings, error) {
	var out prospect.Ratings
	fields := []struct {
		key string
		dst *int
	}{
		{"ovrGeneral", &out.OvrGeneral},
		{"ovrFisico", &out.OvrFisico},
		{"ovrTecnico", &out.OvrTecnico},
		{"overCompetencia", &out.OverCompetencia},
		{"potencia", &out.Potencia},
		{"resistencia", &out.Resistencia},
		{"fuerza", &out.Fuerza},
		{"agilidad", &out.Agilidad},
		{"velocidad", &out.Velocidad},
		{"flexibilidad", &out.Flexibilidad},
	}
	for _, f := range fields {
		n, err := formInt(r, f.key)
		if err != nil {
			return prospect.Ratings{}, err
		}
		*f.dst = n
	}
	return out, nil
}

func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", prospect.ErrInvalid, key, err)
	}
	return n, nil
}

func formFloat(r *http.Request, key string) (float64, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(r.PostFormValue(key), ",", "."))
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", prospect.ErrInvalid, key, err)
	}
	return f, nil
}
