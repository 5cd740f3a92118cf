package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/okian/scout/internal/domain/prospect"
)

// ListProspects calls GET /prospects with the filters as query.
func (c *Client) ListProspects(ctx context.Context, f prospect.Filters) (prospect.Page, error) {
	var page prospect.Page
	if err := c.doJSON(ctx, "prospects.list", http.MethodGet, []string{"prospects"}, f.Query(), nil, &page); err != nil {
		return prospect.Page{}, err
	}
	if page.Data == nil {
		page.Data = []prospect.Prospect{}
	}
	return page, nil
}

// ProspectMetrics calls GET /prospects/metrics.
func (c *Client) ProspectMetrics(ctx context.Context) (prospect.Metrics, error) {
	var m prospect.Metrics
	err := c.doJSON(ctx, "prospects.metrics", http.MethodGet, []string{"prospects", "metrics"}, nil, nil, &m)
	return m, err
}

// GetProspect calls GET /prospects/{id}.
func (c *Client) GetProspect(ctx context.Context, id string) (prospect.Prospect, error) {
	if err := checkID(id); err != nil {
		return prospect.Prospect{}, err
	}
	var p prospect.Prospect
	err := c.doJSON(ctx, "prospects.get", http.MethodGet, []string{"prospects", id}, nil, nil, &p)
	return p, err
}

// CreateProspect calls POST /prospects and returns the stored record.
func (c *Client) CreateProspect(ctx context.Context, d prospect.Draft) (prospect.Prospect, error) {
	var p prospect.Prospect
	err := c.doJSON(ctx, "prospects.create", http.MethodPost, []string{"prospects"}, nil, d, &p)
	return p, err
}

// UpdateProspect calls PATCH /prospects/{id}.
func (c *Client) UpdateProspect(ctx context.Context, id string, patch prospect.Patch) (prospect.Prospect, error) {
	return c.patchProspect(ctx, "prospects.update", id, "", patch)
}

// UpdateRating calls PATCH /prospects/{id}/rating.
func (c *Client) UpdateRating(ctx context.Context, id string, r prospect.Ratings) (prospect.Prospect, error) {
	return c.patchProspect(ctx, "prospects.rating", id, "rating", r)
}

// UpdateStatus calls PATCH /prospects/{id}/status.
func (c *Client) UpdateStatus(ctx context.Context, id string, s prospect.Status) (prospect.Prospect, error) {
	return c.patchProspect(ctx, "prospects.status", id, "status", map[string]prospect.Status{"status": s})
}

// AddNotes calls PATCH /prospects/{id}/notes.
func (c *Client) AddNotes(ctx context.Context, id, notes string) (prospect.Prospect, error) {
	return c.patchProspect(ctx, "prospects.notes", id, "notes", map[string]string{"notes": notes})
}

// DeleteProspect calls DELETE /prospects/{id}. Any 2xx is success.
func (c *Client) DeleteProspect(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, "prospects.delete", http.MethodDelete, []string{"prospects", id}, nil, nil, nil)
}

// UploadVideo sends the file as multipart field "video" to POST /prospects/{id}/video.
// The body is streamed; content is not buffered in memory.
func (c *Client) UploadVideo(ctx context.Context, id, filename string, content io.Reader) (prospect.VideoUpload, error) {
	if err := checkID(id); err != nil {
		return prospect.VideoUpload{}, err
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("video", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	var out prospect.VideoUpload
	err := c.do(ctx, call{
		op:          "prospects.video",
		method:      http.MethodPost,
		path:        []string{"prospects", id, "video"},
		body:        pr,
		contentType: mw.FormDataContentType(),
	}, &out)
	// Unblock the writer when the request ended before draining the pipe.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return prospect.VideoUpload{}, err
	}
	return out, nil
}

func (c *Client) patchProspect(ctx context.Context, op, id, sub string, body any) (prospect.Prospect, error) {
	if err := checkID(id); err != nil {
		return prospect.Prospect{}, err
	}
	path := []string{"prospects", id}
	if sub != "" {
		path = append(path, sub)
	}
	var p prospect.Prospect
	err := c.doJSON(ctx, op, http.MethodPatch, path, nil, body, &p)
	return p, err
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
