package mockapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/okian/scout/internal/domain/prospect"
)

// handleList handles GET /api/prospects.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.list"
	patch, err := prospect.ParseQuery(r.URL.Query(), "club")
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	f := prospect.DefaultFilters(prospect.DefaultLimit).Merge(patch)
	page, err := s.store.List(r.Context(), f)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleMetrics handles GET /api/prospects/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Metrics(r.Context())
	if err != nil {
		s.writeFailure(w, r, "mockapi.metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleGet handles GET /api/prospects/{id}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, "mockapi.get", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreate handles POST /api/prospects.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.create"
	var d prospect.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := d.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	status := d.Status
	if status == "" {
		status = prospect.Pendiente
	}
	created, err := s.store.Create(r.Context(), prospect.Prospect{
		Name:         d.Name,
		YearOfBirth:  d.YearOfBirth,
		BirthdayDate: d.BirthdayDate,
		Position:     d.Position,
		Club:         d.Club,
		Talla:        d.Talla,
		Status:       status,
		Ratings:      d.Ratings,
		ImgData:      d.ImgData,
	})
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdate handles PATCH /api/prospects/{id}.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.update"
	var patch prospect.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := patch.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	s.update(w, r, op, func(p *prospect.Prospect) { *p = patch.ApplyTo(*p) })
}

// handleRating handles PATCH /api/prospects/{id}/rating.
func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.rating"
	var ratings prospect.Ratings
	if err := decodeJSON(w, r, &ratings); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if err := ratings.Validate(); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	s.update(w, r, op, func(p *prospect.Prospect) { p.Ratings = ratings })
}

// handleStatus handles PATCH /api/prospects/{id}/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.status"
	var body struct {
		Status prospect.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	if !body.Status.Valid() {
		s.writeFailure(w, r, op, wrapKind(op, ErrBadRequest, fmt.Errorf("unknown status %q", body.Status)))
		return
	}
	s.update(w, r, op, func(p *prospect.Prospect) { p.Status = body.Status })
}

// handleNotes handles PATCH /api/prospects/{id}/notes.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.notes"
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	s.update(w, r, op, func(p *prospect.Prospect) { p.Notes = body.Notes })
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, op string, fn func(*prospect.Prospect)) {
	p, err := s.store.Update(r.Context(), r.PathValue("id"), fn)
	if err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDelete handles DELETE /api/prospects/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, r, "mockapi.delete", err)
		return
	}
	s.mu.Lock()
	delete(s.videos, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadVideo handles POST /api/prospects/{id}/video with multipart field "video".
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	const op = "mockapi.video"
	id := r.PathValue("id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxVideoBytes+(1<<20))
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeFailure(w, r, op, wrapKind(op, ErrBadRequest, err))
		return
	}
	var upload *video
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeFailure(w, r, op, wrapKind(op, ErrBadRequest, err))
			return
		}
		if part.FormName() != "video" {
			continue
		}
		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, s.maxVideoBytes+1))
		if err != nil {
			s.writeFailure(w, r, op, wrapKind(op, ErrBadRequest, err))
			return
		}
		if n > s.maxVideoBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", errors.New("video exceeds the upload limit"))
			return
		}
		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(buf.Bytes())
		}
		upload = &video{name: path.Base(part.FileName()), contentType: contentType, data: buf.Bytes()}
		break
	}
	if upload == nil {
		s.writeFailure(w, r, op, wrapKind(op, ErrBadRequest, errors.New("missing video part")))
		return
	}

	videoURL := "/api/prospects/" + url.PathEscape(id) + "/video"
	if _, err := s.store.Update(r.Context(), id, func(p *prospect.Prospect) { p.Videos = videoURL }); err != nil {
		s.writeFailure(w, r, op, err)
		return
	}
	s.mu.Lock()
	s.videos[id] = *upload
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, prospect.VideoUpload{VideoURL: videoURL})
}

// handleGetVideo handles GET /api/prospects/{id}/video.
func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	v, ok := s.videos[r.PathValue("id")]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no video"))
		return
	}
	w.Header().Set("Content-Type", v.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", v.name))
	_, _ = w.Write(v.data)
}
