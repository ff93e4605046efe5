package repository

import (
	"context"
	"slices"
	"sync"

	"realty_leads_backend/internal/agentqueue/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same versioning contract as
// the Postgres repository. Used by tests and local tooling.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]domain.Entry
	position int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]domain.Entry)}
}

func (m *MemoryStore) Get(_ context.Context, agentID uuid.UUID) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[agentID]
	if !ok {
		return domain.Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) List(_ context.Context, teamID *uuid.UUID) ([]domain.Entry, error) {
	return m.filter(func(e domain.Entry) bool { return domain.MatchesTeam(e, teamID) }), nil
}

func (m *MemoryStore) ListActive(_ context.Context, teamID *uuid.UUID) ([]domain.Entry, error) {
	return m.filter(func(e domain.Entry) bool {
		return e.Status == domain.StatusActive && domain.MatchesTeam(e, teamID)
	}), nil
}

func (m *MemoryStore) Insert(_ context.Context, e domain.Entry) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.AgentID]; ok {
		return domain.Entry{}, ErrAlreadyExists
	}
	e.Version = 1
	e.UpdatedAt = e.CreatedAt
	m.entries[e.AgentID] = e
	return e, nil
}

func (m *MemoryStore) Update(_ context.Context, e domain.Entry) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.entries[e.AgentID]
	if !ok {
		return domain.Entry{}, ErrNotFound
	}
	if current.Version != e.Version {
		return domain.Entry{}, ErrVersionConflict
	}
	e.Version++
	e.CreatedAt = current.CreatedAt
	m.entries[e.AgentID] = e
	return e, nil
}

func (m *MemoryStore) NextPosition(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position++
	return m.position, nil
}

func (m *MemoryStore) filter(keep func(domain.Entry) bool) []domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.Entry) int { return int(a.Position - b.Position) })
	return out
}
