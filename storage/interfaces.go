package storage

import (
	"context"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

// SessionStore is the interface any session backend must satisfy.
//
// Get returns a snapshot the caller may keep or modify freely. Update hands fn a
// private copy of the session and swaps it in only when fn returns nil, so every
// Update is one atomic step as seen by concurrent readers.
type SessionStore interface {
	Create(s *models.Session) error
	Get(id string) (*models.Session, error)
	Update(id string, fn func(s *models.Session) error) (*models.Session, error)
	Delete(id string) error
	List() []*models.Session
	Count() int
	Close() error
}

// LeadArchive persists a session's leads outside the process.
type LeadArchive interface {
	Archive(ctx context.Context, s *models.Session) (int, error)
	Close() error
}
