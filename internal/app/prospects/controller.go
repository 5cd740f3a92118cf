// Package prospects owns the visible page of prospects and mediates every
// read and write against the remote collection.
package prospects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/domain/prospect"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const tracerName = "github.com/okian/scout/internal/app/prospects"

// Backend is the part of the REST client the controller needs.
type Backend interface {
	ListProspects(ctx context.Context, f prospect.Filters) (prospect.Page, error)
	ProspectMetrics(ctx context.Context) (prospect.Metrics, error)
	GetProspect(ctx context.Context, id string) (prospect.Prospect, error)
	CreateProspect(ctx context.Context, d prospect.Draft) (prospect.Prospect, error)
	UpdateProspect(ctx context.Context, id string, patch prospect.Patch) (prospect.Prospect, error)
	UpdateRating(ctx context.Context, id string, r prospect.Ratings) (prospect.Prospect, error)
	UpdateStatus(ctx context.Context, id string, s prospect.Status) (prospect.Prospect, error)
	AddNotes(ctx context.Context, id, notes string) (prospect.Prospect, error)
	DeleteProspect(ctx context.Context, id string) error
	UploadVideo(ctx context.Context, id, filename string, content io.Reader) (prospect.VideoUpload, error)
}

// State is a snapshot of the controller. It shares nothing with the controller.
type State struct {
	Prospects  []prospect.Prospect
	Metrics    *prospect.Metrics
	Pagination prospect.Pagination
	Loading    bool
	Error      string
	Filters    prospect.Filters
}

// Controller holds the current page under the current filters.
//
// List fetches are numbered; only the response of the latest issued fetch is
// applied, and issuing a fetch cancels the one in flight. Metrics fetches are
// numbered separately. All methods are safe for concurrent use.
type Controller struct {
	backend Backend
	logger  logger.Logger
	tracer  trace.Tracer

	life     context.Context
	shutdown context.CancelFunc

	mu         sync.RWMutex
	prospects  []prospect.Prospect // replaced, never mutated in place
	metrics    *prospect.Metrics
	pagination prospect.Pagination
	filters    prospect.Filters
	errMsg     string
	inflight   int
	listSeq    uint64
	listCancel context.CancelFunc
	metricsSeq uint64
	started    bool
	closed     bool
}

// New constructs a controller on page 1.
func New(b Backend, opts ...Option) *Controller {
	life, shutdown := context.WithCancel(context.Background())
	c := &Controller{
		backend:   b,
		filters:   prospect.DefaultFilters(prospect.DefaultLimit),
		prospects: []prospect.Prospect{},
		life:      life,
		shutdown:  shutdown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNamed(c.logger, "prospects")
	c.tracer = otel.Tracer(tracerName)
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := State{
		Prospects:  slices.Clone(c.prospects),
		Pagination: c.pagination,
		Loading:    c.inflight > 0,
		Error:      c.errMsg,
		Filters:    c.filters.Clone(),
	}
	if c.metrics != nil {
		m := c.metrics.Clone()
		s.Metrics = &m
	}
	return s
}

// Filters returns a copy of the current filters.
func (c *Controller) Filters() prospect.Filters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filters.Clone()
}

// Started reports whether Start has run.
func (c *Controller) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Start performs the initial list and metrics fetch. Only the first call does anything.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.FetchMetrics(ctx)
	}()
	c.Fetch(ctx)
	wg.Wait()
}

// Close cancels in-flight work. Later calls fail with ErrClosed or do nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.listCancel != nil {
		c.listCancel()
		c.listCancel = nil
		metrics.RecordFetchCancelled()
	}
	c.shutdown()
}

// scope derives a context that also ends when the controller closes.
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Fetch loads the list with overrides merged into a copy of the filters; the
// stored filters are not changed. Success replaces prospects and pagination;
// failure keeps the prospects and sets Error.
func (c *Controller) Fetch(ctx context.Context, overrides ...prospect.FilterPatch) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	f := c.filters.Clone()
	for _, o := range overrides {
		f = f.Merge(o)
	}
	if c.listCancel != nil {
		c.listCancel()
		metrics.RecordFetchCancelled()
	}
	c.listSeq++
	seq := c.listSeq
	fctx, cancel := c.scope(ctx)
	c.listCancel = cancel
	c.inflight++
	c.errMsg = ""
	c.mu.Unlock()

	fctx, span := c.tracer.Start(fctx, "prospects.Fetch", trace.WithAttributes(
		attribute.Int64("prospects.seq", int64(seq)),
		attribute.Int("prospects.page", f.Page),
	))
	defer span.End()

	c.logger.Debug(fctx, "fetch prospects", logger.Uint64("seq", seq), logger.String("query", f.Query().Encode()))
	page, err := c.backend.ListProspects(fctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	current := seq == c.listSeq
	if current {
		c.listCancel = nil
	}
	cancel()

	switch {
	case !current:
		span.SetAttributes(attribute.Bool("prospects.stale", true))
		metrics.RecordStaleResponse("list")
		c.logger.Debug(ctx, "discard stale prospects response", logger.Uint64("seq", seq), logger.Uint64("latest", c.listSeq))
	case c.closed:
	case errors.Is(err, context.Canceled):
		c.logger.Debug(ctx, "prospects fetch cancelled", logger.Uint64("seq", seq))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.errMsg = backend.Describe(err)
		metrics.RecordControllerError("fetch")
		c.logger.Warn(ctx, "fetch prospects failed", logger.Uint64("seq", seq), logger.Error(err))
	default:
		c.prospects = page.Data
		c.pagination = page.Pagination
		c.logger.Debug(ctx, "fetched prospects",
			logger.Uint64("seq", seq),
			logger.Int("count", len(page.Data)),
			logger.Int("total", page.Pagination.Total),
		)
	}
}

// FetchMetrics refreshes the aggregate metrics. Failures are logged only.
func (c *Controller) FetchMetrics(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.metricsSeq++
	seq := c.metricsSeq
	c.mu.Unlock()

	mctx, done := c.scope(ctx)
	defer done()
	m, err := c.backend.ProspectMetrics(mctx)
	if err != nil {
		c.logger.Warn(ctx, "fetch metrics failed", logger.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.metricsSeq {
		metrics.RecordStaleResponse("metrics")
		return
	}
	c.metrics = &m
}

// Get looks up one prospect. The result goes to the caller only; Error is untouched.
func (c *Controller) Get(ctx context.Context, id string) (prospect.Prospect, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return prospect.Prospect{}, ErrClosed
	}
	gctx, done := c.scope(ctx)
	defer done()
	p, err := c.backend.GetProspect(gctx, id)
	if err != nil {
		return prospect.Prospect{}, fmt.Errorf("get prospect %s: %w", id, err)
	}
	return p, nil
}

// Create stores d and puts the server's record at the front of the page.
func (c *Controller) Create(ctx context.Context, d prospect.Draft) (prospect.Prospect, error) {
	var created prospect.Prospect
	err := c.mutate(ctx, "create", func(ctx context.Context) error {
		if err := d.Validate(); err != nil {
			return err
		}
		var err error
		created, err = c.backend.CreateProspect(ctx, d)
		return err
	}, func() {
		c.prospects = append([]prospect.Prospect{created}, c.prospects...)
	})
	if err != nil {
		return prospect.Prospect{}, err
	}
	c.FetchMetrics(ctx)
	return created, nil
}

// Update applies patch and swaps in the server's record.
func (c *Controller) Update(ctx context.Context, id string, patch prospect.Patch) (prospect.Prospect, error) {
	return c.replace(ctx, "update", id, func(ctx context.Context) (prospect.Prospect, error) {
		if err := patch.Validate(); err != nil {
			return prospect.Prospect{}, err
		}
		return c.backend.UpdateProspect(ctx, id, patch)
	})
}

// UpdateRating replaces the ratings and swaps in the server's record.
func (c *Controller) UpdateRating(ctx context.Context, id string, r prospect.Ratings) (prospect.Prospect, error) {
	return c.replace(ctx, "rating", id, func(ctx context.Context) (prospect.Prospect, error) {
		if err := r.Validate(); err != nil {
			return prospect.Prospect{}, err
		}
		return c.backend.UpdateRating(ctx, id, r)
	})
}

// UpdateStatus changes the status and swaps in the server's record.
func (c *Controller) UpdateStatus(ctx context.Context, id string, s prospect.Status) (prospect.Prospect, error) {
	return c.replace(ctx, "status", id, func(ctx context.Context) (prospect.Prospect, error) {
		if !s.Valid() {
			return prospect.Prospect{}, fmt.Errorf("%w: unknown status %q", prospect.ErrInvalid, s)
		}
		return c.backend.UpdateStatus(ctx, id, s)
	})
}

// AddNotes stores notes and swaps in the server's record.
func (c *Controller) AddNotes(ctx context.Context, id, notes string) (prospect.Prospect, error) {
	return c.replace(ctx, "notes", id, func(ctx context.Context) (prospect.Prospect, error) {
		return c.backend.AddNotes(ctx, id, notes)
	})
}

// Delete removes the prospect and its row, then refreshes metrics.
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.mutate(ctx, "delete", func(ctx context.Context) error {
		return c.backend.DeleteProspect(ctx, id)
	}, func() {
		if slices.ContainsFunc(c.prospects, matchID(id)) {
			c.prospects = slices.DeleteFunc(slices.Clone(c.prospects), matchID(id))
		}
	})
	if err != nil {
		return err
	}
	c.FetchMetrics(ctx)
	return nil
}

// UploadVideo sends the video and updates only the videos field of the row.
func (c *Controller) UploadVideo(ctx context.Context, id, filename string, content io.Reader) (prospect.VideoUpload, error) {
	var out prospect.VideoUpload
	err := c.mutate(ctx, "video", func(ctx context.Context) error {
		var err error
		out, err = c.backend.UploadVideo(ctx, id, filename, content)
		return err
	}, func() {
		c.replaceRow(id, func(p prospect.Prospect) prospect.Prospect {
			p.Videos = out.VideoURL
			return p
		})
	})
	return out, err
}

// SetFilters merges patch, returns to page 1 and fetches once.
func (c *Controller) SetFilters(ctx context.Context, patch prospect.FilterPatch) {
	c.mu.Lock()
	c.filters = c.filters.Apply(patch)
	c.mu.Unlock()
	c.Fetch(ctx)
}

// SetPage moves to page n, keeping every other filter, and fetches once.
func (c *Controller) SetPage(ctx context.Context, n int) {
	c.mu.Lock()
	c.filters = c.filters.WithPage(n)
	c.mu.Unlock()
	c.Fetch(ctx)
}

// ClearError resets Error.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

// replace runs a call answering with the updated record and swaps it into the page.
func (c *Controller) replace(ctx context.Context, op, id string, call func(context.Context) (prospect.Prospect, error)) (prospect.Prospect, error) {
	var updated prospect.Prospect
	err := c.mutate(ctx, op, func(ctx context.Context) error {
		var err error
		updated, err = call(ctx)
		return err
	}, func() {
		c.replaceRow(id, func(prospect.Prospect) prospect.Prospect { return updated })
	})
	if err != nil {
		return prospect.Prospect{}, err
	}
	return updated, nil
}

// mutate brackets call with Loading, records failures in Error and runs apply
// under the lock on success.
func (c *Controller) mutate(ctx context.Context, op string, call func(context.Context) error, apply func()) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.inflight++
	c.errMsg = ""
	c.mu.Unlock()

	mctx, done := c.scope(ctx)
	defer done()
	err := call(mctx)

	c.mu.Lock()
	c.inflight--
	if err != nil {
		c.errMsg = backend.Describe(err)
	} else {
		apply()
	}
	c.mu.Unlock()

	if err != nil {
		metrics.RecordControllerError(op)
		c.logger.Warn(ctx, "prospect mutation failed", logger.String("op", op), logger.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// replaceRow swaps the row with identity id for fn(row). Callers hold mu.
func (c *Controller) replaceRow(id string, fn func(prospect.Prospect) prospect.Prospect) {
	i := slices.IndexFunc(c.prospects, matchID(id))
	if i < 0 {
		return
	}
	next := slices.Clone(c.prospects)
	next[i] = fn(next[i])
	c.prospects = next
}

func matchID(id string) func(prospect.Prospect) bool {
	return func(p prospect.Prospect) bool { return p.ID() == id }
}
