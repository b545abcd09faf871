package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

// MemoryStore keeps sessions in a map for the lifetime of the process.
// Sessions are never evicted. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	closed   bool
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.Session)}
}

// Create stores a new session. Ids are never reused, so an existing id is an error.
func (m *MemoryStore) Create(s *models.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("store: create: %w: empty session id", models.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errClosed
	}
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("store: create %s: %w: id already in use", s.ID, models.ErrInvalidState)
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

// Get returns a snapshot of the session.
func (m *MemoryStore) Get(id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("store: %s: %w", id, models.ErrNotFound)
	}
	return cloneSession(s), nil
}

// Update applies fn to a copy of the session and stores the result when fn
// succeeds. The returned session is a snapshot of the new state.
func (m *MemoryStore) Update(id string, fn func(s *models.Session) error) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errClosed
	}
	cur, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("store: %s: %w", id, models.ErrNotFound)
	}

	next := cloneSession(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	m.sessions[id] = next
	return cloneSession(next), nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("store: %s: %w", id, models.ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

// List returns snapshots of every session, newest first.
func (m *MemoryStore) List() []*models.Session {
	m.mu.RLock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close drops every session and rejects further writes.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = make(map[string]*models.Session)
	return nil
}

var errClosed = fmt.Errorf("store: %w: store is closed", models.ErrInvalidState)

func cloneSession(s *models.Session) *models.Session {
	c := *s
	if s.Leads != nil {
		c.Leads = make([]models.Lead, len(s.Leads))
		for i := range s.Leads {
			c.Leads[i] = CloneLead(s.Leads[i])
		}
	}
	return &c
}

// CloneLead returns a lead sharing no memory with l.
func CloneLead(l models.Lead) models.Lead {
	c := l
	if l.Rating != nil {
		v := *l.Rating
		c.Rating = &v
	}
	if l.ReviewsCount != nil {
		v := *l.ReviewsCount
		c.ReviewsCount = &v
	}
	if l.Coordinates != nil {
		v := *l.Coordinates
		c.Coordinates = &v
	}
	if l.ValidationFlags != nil {
		c.ValidationFlags = append([]models.ValidationFlag(nil), l.ValidationFlags...)
	}
	return c
}
