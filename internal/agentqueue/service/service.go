// Package service implements the agent queue: registration, fair candidate
// selection and active-lead accounting.
package service

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/agentqueue/domain"
	"realty_leads_backend/internal/agentqueue/repository"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
)

// maxCASAttempts bounds the read-modify-write retries of counter updates.
const maxCASAttempts = 8

// AgentDirectory answers who may sit in the queue.
type AgentDirectory interface {
	GetUserRole(ctx context.Context, userID uuid.UUID) (string, error)
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service manages queue entries.
type Service struct {
	store     repository.Store
	directory AgentDirectory
	log       *logger.Logger
	now       func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a queue service. directory may be nil, in which case agents are
// admitted without a directory lookup.
func New(store repository.Store, directory AgentDirectory, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, directory: directory, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the agent at the tail of the queue. Registering an inactive
// entry reactivates it at the tail and keeps its counters.
func (s *Service) Register(ctx context.Context, agentID uuid.UUID, teamID *uuid.UUID) (domain.Entry, error) {
	if err := s.ensureAgent(ctx, agentID); err != nil {
		return domain.Entry{}, err
	}

	existing, err := s.store.Get(ctx, agentID)
	switch {
	case err == nil:
		if existing.Status == domain.StatusActive && sameTeam(existing.TeamID, teamID) {
			return existing, nil
		}
		var tail int64
		reactivating := existing.Status != domain.StatusActive
		if reactivating {
			if tail, err = s.store.NextPosition(ctx); err != nil {
				return domain.Entry{}, err
			}
		}
		return s.mutate(ctx, agentID, func(e *domain.Entry) error {
			if reactivating && e.Status != domain.StatusActive {
				e.Position = tail
				e.LastActivityAt = s.now()
			}
			e.Status = domain.StatusActive
			if teamID != nil {
				e.TeamID = teamID
			}
			return nil
		})
	case !errors.Is(err, repository.ErrNotFound):
		return domain.Entry{}, err
	}

	position, err := s.store.NextPosition(ctx)
	if err != nil {
		return domain.Entry{}, err
	}
	now := s.now()
	entry, err := s.store.Insert(ctx, domain.Entry{
		AgentID:        agentID,
		TeamID:         teamID,
		Position:       position,
		Status:         domain.StatusActive,
		LastActivityAt: now,
		CreatedAt:      now,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Lost a concurrent registration race; the winner's entry is the answer.
		return s.store.Get(ctx, agentID)
	}
	if err != nil {
		return domain.Entry{}, err
	}
	s.log.Info("agent registered in queue", "agentId", agentID, "position", position)
	return entry, nil
}

// Deactivate excludes the agent from future draws. Existing assignments stay.
func (s *Service) Deactivate(ctx context.Context, agentID uuid.UUID) (domain.Entry, error) {
	return s.mutate(ctx, agentID, func(e *domain.Entry) error {
		e.Status = domain.StatusInactive
		return nil
	})
}

// NextEligible returns the best candidate under filter; false when nobody qualifies.
func (s *Service) NextEligible(ctx context.Context, filter domain.Filter) (domain.Entry, bool, error) {
	entries, err := s.store.ListActive(ctx, filter.TeamID)
	if err != nil {
		return domain.Entry{}, false, err
	}
	entry, ok := domain.Pick(entries, filter)
	return entry, ok, nil
}

// OnAssigned records a new active lead and moves the agent to the queue tail.
func (s *Service) OnAssigned(ctx context.Context, agentID uuid.UUID) (domain.Entry, error) {
	position, err := s.store.NextPosition(ctx)
	if err != nil {
		return domain.Entry{}, err
	}
	return s.mutate(ctx, agentID, func(e *domain.Entry) error {
		e.ActiveLeadCount++
		e.Position = position
		e.LastActivityAt = s.now()
		return nil
	})
}

// OnReleased decrements the active lead count, never below zero.
func (s *Service) OnReleased(ctx context.Context, agentID uuid.UUID) (domain.Entry, error) {
	return s.mutate(ctx, agentID, func(e *domain.Entry) error {
		if e.ActiveLeadCount > 0 {
			e.ActiveLeadCount--
		}
		return nil
	})
}

// SetScore changes the agent's priority score.
func (s *Service) SetScore(ctx context.Context, agentID uuid.UUID, score float64) (domain.Entry, error) {
	return s.mutate(ctx, agentID, func(e *domain.Entry) error {
		e.Score = score
		return nil
	})
}

// Get returns the agent's entry.
func (s *Service) Get(ctx context.Context, agentID uuid.UUID) (domain.Entry, error) {
	entry, err := s.store.Get(ctx, agentID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Entry{}, apperr.NotFound("agent is not registered in the queue")
	}
	return entry, err
}

// Snapshot lists the queue of teamID (every team when nil) in selection order.
func (s *Service) Snapshot(ctx context.Context, teamID *uuid.UUID) ([]domain.Entry, error) {
	entries, err := s.store.List(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return domain.Rank(entries), nil
}

// mutate applies change with optimistic versioning, re-reading on conflict.
func (s *Service) mutate(ctx context.Context, agentID uuid.UUID, change func(*domain.Entry) error) (domain.Entry, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		entry, err := s.store.Get(ctx, agentID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Entry{}, apperr.NotFound("agent is not registered in the queue")
		}
		if err != nil {
			return domain.Entry{}, err
		}
		if err := change(&entry); err != nil {
			return domain.Entry{}, err
		}
		entry.UpdatedAt = s.now()

		updated, err := s.store.Update(ctx, entry)
		if errors.Is(err, repository.ErrVersionConflict) {
			if err := ctx.Err(); err != nil {
				return domain.Entry{}, err
			}
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Entry{}, apperr.NotFound("agent is not registered in the queue")
		}
		return updated, err
	}
	return domain.Entry{}, apperr.StaleState("queue entry is under heavy contention, retry later")
}

func (s *Service) ensureAgent(ctx context.Context, agentID uuid.UUID) error {
	if s.directory == nil {
		return nil
	}
	active, err := s.directory.IsActive(ctx, agentID)
	if err != nil {
		return apperr.External("user directory unavailable", err)
	}
	if !active {
		return apperr.Forbidden("user is not active")
	}
	role, err := s.directory.GetUserRole(ctx, agentID)
	if err != nil {
		return apperr.External("user directory unavailable", err)
	}
	if role != "agent" && role != "admin" {
		return apperr.Forbidden("only agents can join the queue")
	}
	return nil
}

func sameTeam(a, b *uuid.UUID) bool {
	if b == nil {
		return true
	}
	return a != nil && *a == *b
}
