package repository

import (
	"context"
	"errors"

	"realty_leads_backend/internal/agentqueue/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("queue entry not found")
	ErrAlreadyExists   = errors.New("queue entry already exists")
	ErrVersionConflict = errors.New("queue entry version conflict")
)

// EntryReader provides read access to queue entries.
type EntryReader interface {
	Get(ctx context.Context, agentID uuid.UUID) (domain.Entry, error)
	// List returns entries of teamID (all teams when nil), active and inactive.
	List(ctx context.Context, teamID *uuid.UUID) ([]domain.Entry, error)
	ListActive(ctx context.Context, teamID *uuid.UUID) ([]domain.Entry, error)
}

// EntryWriter mutates queue entries. Update is conditioned on entry.Version and
// returns the stored entry with the incremented version.
type EntryWriter interface {
	Insert(ctx context.Context, entry domain.Entry) (domain.Entry, error)
	Update(ctx context.Context, entry domain.Entry) (domain.Entry, error)
	NextPosition(ctx context.Context) (int64, error)
}

// Store is the full persistence contract of the queue.
type Store interface {
	EntryReader
	EntryWriter
}
