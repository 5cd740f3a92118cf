package workspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// node is an entry of the recency list.
type node struct {
	ws         *Workspace
	prev, next *node
}

// Registry keeps one workspace per visitor id.
// For bounded mode (maxSize > 0): a doubly linked recency list; the least
// recently used workspace is closed and evicted when a new one is added.
// For unbounded mode (maxSize <= 0): entries are only removed by Remove.
type Registry struct {
	build   Factory
	logger  logger.Logger
	maxSize int

	mu     sync.Mutex
	byID   map[string]*node
	head   *node // most recently used
	tail   *node // least recently used
	size   atomic.Int64
	closed bool
}

// NewRegistry creates a registry building missing workspaces with build.
func NewRegistry(build Factory, opts ...Option) *Registry {
	r := &Registry{
		build:   build,
		maxSize: 10000,
		byID:    make(map[string]*node),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrNamed(r.logger, "workspace")
	return r
}

// Get returns the workspace of id, building it on first use. The lock is held
// while building so a visitor never gets two workspaces.
func (r *Registry) Get(ctx context.Context, id string) (*Workspace, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if n, ok := r.byID[id]; ok {
		r.moveToFront(n)
		return n.ws, nil
	}

	ws, err := r.build(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("build workspace: %w", err)
	}
	if r.maxSize > 0 && len(r.byID) >= r.maxSize {
		r.evictLRU(ctx)
	}
	n := &node{ws: ws}
	r.pushFront(n)
	r.byID[id] = n
	metrics.UpdateWorkspacesActive(r.size.Add(1))
	r.logger.Debug(ctx, "workspace created", logger.String("visitor", id))
	return ws, nil
}

// Remove closes and drops the workspace of id, if any.
func (r *Registry) Remove(_ context.Context, id string) {
	r.mu.Lock()
	n, ok := r.byID[id]
	if ok {
		r.unlink(n)
		delete(r.byID, id)
		metrics.UpdateWorkspacesActive(r.size.Add(-1))
	}
	r.mu.Unlock()
	if ok {
		n.ws.Close()
	}
}

// Size returns the number of live workspaces.
func (r *Registry) Size() int64 {
	return r.size.Load()
}

// Close closes every workspace. Later Gets fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	nodes := make([]*node, 0, len(r.byID))
	for n := r.head; n != nil; n = n.next {
		nodes = append(nodes, n)
	}
	r.byID = make(map[string]*node)
	r.head, r.tail = nil, nil
	r.size.Store(0)
	r.mu.Unlock()

	metrics.UpdateWorkspacesActive(0)
	for _, n := range nodes {
		n.ws.Close()
	}
}

// evictLRU closes and drops the tail. Must be called with r.mu held.
func (r *Registry) evictLRU(ctx context.Context) {
	n := r.tail
	if n == nil {
		return
	}
	r.unlink(n)
	delete(r.byID, n.ws.ID)
	r.size.Add(-1)
	n.ws.Close()
	metrics.RecordWorkspaceEviction()
	r.logger.Debug(ctx, "workspace evicted", logger.String("visitor", n.ws.ID))
}

func (r *Registry) pushFront(n *node) {
	n.prev = nil
	n.next = r.head
	if r.head != nil {
		r.head.prev = n
	}
	r.head = n
	if r.tail == nil {
		r.tail = n
	}
}

func (r *Registry) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		r.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (r *Registry) moveToFront(n *node) {
	if r.head == n {
		return
	}
	r.unlink(n)
	r.pushFront(n)
}
