// Package workspace wires the per-visitor state: one session, one prospect
// controller and one persisted namespace, built once and shared by every
// request of that visitor.
package workspace

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/scout/internal/adapters/backend"
	"github.com/okian/scout/internal/adapters/storage"
	"github.com/okian/scout/internal/app/prospects"
	"github.com/okian/scout/internal/app/session"
	"github.com/okian/scout/pkg/logger"
)

// Workspace is the state of one visitor.
type Workspace struct {
	ID        string
	Session   *session.Store
	Prospects *prospects.Controller
	Storage   storage.Store
	Nav       *Navigation

	release func()
}

// Close stops in-flight work and hands the storage namespace back.
func (w *Workspace) Close() {
	w.Prospects.Close()
	if w.release != nil {
		w.release()
	}
}

// Navigation remembers the last destination the session asked for until the
// request handler picks it up.
type Navigation struct {
	mu      sync.Mutex
	pending session.Destination
}

// Navigate records to.
func (n *Navigation) Navigate(_ context.Context, to session.Destination) {
	n.mu.Lock()
	n.pending = to
	n.mu.Unlock()
}

// Take returns the pending destination and clears it. ok is false when none is pending.
func (n *Navigation) Take() (session.Destination, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	to := n.pending
	n.pending = 0
	return to, to != 0
}

// Factory builds the workspace of a visitor.
type Factory func(ctx context.Context, id string) (*Workspace, error)

// Deps is what every workspace is built from.
type Deps struct {
	BackendURL     string
	BackendOptions []backend.Option
	Storage        storage.Provider
	PageLimit      int
	Logger         logger.Logger
}

// Factory returns a Factory building workspaces from d.
func (d Deps) Factory() Factory {
	return func(ctx context.Context, id string) (*Workspace, error) {
		persist, err := d.Storage.Open(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		log := logger.OrNamed(d.Logger, "workspace").With(logger.String("visitor", id))

		creds := &backend.Credentials{}
		opts := append(slices.Clone(d.BackendOptions), backend.WithCredentials(creds), backend.WithLogger(log))
		client, err := backend.New(d.BackendURL, opts...)
		if err != nil {
			d.Storage.Release(id)
			return nil, err
		}

		nav := &Navigation{}
		return &Workspace{
			ID:      id,
			Storage: persist,
			Nav:     nav,
			release: func() { d.Storage.Release(id) },
			Session: session.New(client, creds, persist,
				session.WithNavigator(nav),
				session.WithLogger(log),
			),
			Prospects: prospects.New(client,
				prospects.WithPageLimit(d.PageLimit),
				prospects.WithLogger(log),
			),
		}, nil
	}
}
