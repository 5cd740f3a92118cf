package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
)

// ProspectStore provides read/write access to prospects.
type ProspectStore interface {
	// List returns one page, newest first, matching the filters.
	List(ctx context.Context, f prospect.Filters) (prospect.Page, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (prospect.Prospect, error)
	// Create assigns a sessionID and stores p.
	Create(ctx context.Context, p prospect.Prospect) (prospect.Prospect, error)
	// Update applies fn to the stored record and returns the result.
	Update(ctx context.Context, id string, fn func(*prospect.Prospect)) (prospect.Prospect, error)
	Delete(ctx context.Context, id string) error
	Metrics(ctx context.Context) (prospect.Metrics, error)
}

// UserStore provides access to accounts and their refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u account.User, passwordHash []byte) (account.User, error)
	UserByEmail(ctx context.Context, email string) (account.User, []byte, error)
	User(ctx context.Context, id string) (account.User, []byte, error)
	UpdateUser(ctx context.Context, id string, fn func(*account.User)) (account.User, error)
	SetPasswordHash(ctx context.Context, id string, hash []byte) error

	// SaveRefresh records a live refresh token id for a user until exp.
	SaveRefresh(ctx context.Context, tokenID, userID string, exp time.Time) error
	// ConsumeRefresh deletes the token id and returns its owner. Each id works once.
	ConsumeRefresh(ctx context.Context, tokenID string) (string, error)
	// RevokeUser drops every refresh token of a user.
	RevokeUser(ctx context.Context, userID string) error
}

type userRecord struct {
	user account.User
	hash []byte
}

type refreshRecord struct {
	userID string
	exp    time.Time
}

// MemStore implements ProspectStore and UserStore in memory.
type MemStore struct {
	mu       sync.RWMutex
	order    []string // prospect ids, oldest first
	byID     map[string]prospect.Prospect
	users    map[string]*userRecord
	emails   map[string]string
	refresh  map[string]refreshRecord
	newID    func() string
	now      func() time.Time
	maxLimit int
}

var (
	_ ProspectStore = (*MemStore)(nil)
	_ UserStore     = (*MemStore)(nil)
)

// NewMemStore returns an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		byID:     make(map[string]prospect.Prospect),
		users:    make(map[string]*userRecord),
		emails:   make(map[string]string),
		refresh:  make(map[string]refreshRecord),
		newID:    uuid.NewString,
		now:      time.Now,
		maxLimit: prospect.MaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List filters by search (name or club, case-insensitive), position, status and
// the "club" extra key, then pages newest first.
func (s *MemStore) List(_ context.Context, f prospect.Filters) (prospect.Page, error) {
	if f.Limit <= 0 || f.Limit > s.maxLimit {
		return prospect.Page{}, fmt.Errorf("%w: %d", ErrInvalidLimit, f.Limit)
	}
	page := max(f.Page, 1)
	search := strings.ToLower(strings.TrimSpace(f.Search))
	club := strings.ToLower(f.Extra["club"])

	s.mu.RLock()
	matched := make([]prospect.Prospect, 0, len(s.order))
	for _, id := range slices.Backward(s.order) {
		p := s.byID[id]
		if f.Position != "" && p.Position != f.Position {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if club != "" && strings.ToLower(p.Club) != club {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Club), search) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	total := len(matched)
	from := min((page-1)*f.Limit, total)
	to := min(from+f.Limit, total)
	return prospect.Page{
		Data: slices.Clone(matched[from:to]),
		Pagination: prospect.Pagination{
			Page:       page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

func (s *MemStore) Get(_ context.Context, id string) (prospect.Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return prospect.Prospect{}, fmt.Errorf("%w: prospect %s", ErrNotFound, id)
	}
	return p, nil
}

func (s *MemStore) Create(_ context.Context, p prospect.Prospect) (prospect.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.SessionID == "" {
		p.SessionID = s.newID()
	}
	if _, exists := s.byID[p.SessionID]; exists {
		return prospect.Prospect{}, fmt.Errorf("%w: prospect %s", ErrConflict, p.SessionID)
	}
	s.byID[p.SessionID] = p
	s.order = append(s.order, p.SessionID)
	return p, nil
}

func (s *MemStore) Update(_ context.Context, id string, fn func(*prospect.Prospect)) (prospect.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return prospect.Prospect{}, fmt.Errorf("%w: prospect %s", ErrNotFound, id)
	}
	fn(&p)
	p.SessionID = id
	s.byID[id] = p
	return p, nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: prospect %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// Metrics counts prospects by status and position and averages rated ovrGeneral.
func (s *MemStore) Metrics(_ context.Context) (prospect.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := prospect.Metrics{
		Total:      len(s.byID),
		ByStatus:   make(map[string]int),
		ByPosition: make(map[string]int),
	}
	var sum, rated int
	for _, p := range s.byID {
		if p.Status != "" {
			m.ByStatus[string(p.Status)]++
		}
		if p.Position != "" {
			m.ByPosition[string(p.Position)]++
		}
		if p.FullAccess {
			m.FullAccess++
		}
		if p.OvrGeneral > 0 {
			sum += p.OvrGeneral
			rated++
		}
	}
	if rated > 0 {
		m.AverageOvr = float64(sum) / float64(rated)
	}
	return m, nil
}

func (s *MemStore) CreateUser(_ context.Context, u account.User, hash []byte) (account.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[email]; exists {
		return account.User{}, fmt.Errorf("%w: user %s", ErrConflict, email)
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	u.Email = email
	s.users[u.ID] = &userRecord{user: u, hash: slices.Clone(hash)}
	s.emails[email] = u.ID
	return u, nil
}

func (s *MemStore) UserByEmail(_ context.Context, email string) (account.User, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return account.User{}, nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	rec := s.users[id]
	return rec.user, rec.hash, nil
}

func (s *MemStore) User(_ context.Context, id string) (account.User, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return account.User{}, nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return rec.user, rec.hash, nil
}

func (s *MemStore) UpdateUser(_ context.Context, id string, fn func(*account.User)) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return account.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	u := rec.user
	fn(&u)
	u.ID, u.Email = rec.user.ID, rec.user.Email
	rec.user = u
	return u, nil
}

func (s *MemStore) SetPasswordHash(_ context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	rec.hash = slices.Clone(hash)
	return nil
}

func (s *MemStore) SaveRefresh(_ context.Context, tokenID, userID string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[tokenID] = refreshRecord{userID: userID, exp: exp}
	return nil
}

func (s *MemStore) ConsumeRefresh(_ context.Context, tokenID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.refresh[tokenID]
	delete(s.refresh, tokenID)
	if !ok || !s.now().Before(rec.exp) {
		return "", fmt.Errorf("%w: refresh token", ErrNotFound)
	}
	return rec.userID, nil
}

func (s *MemStore) RevokeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.refresh {
		if rec.userID == userID {
			delete(s.refresh, id)
		}
	}
	return nil
}
