package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// MemoryRepository implements LeadsRepository in process with the same
// version and atomicity guarantees as the Postgres repository.
type MemoryRepository struct {
	mu       sync.RWMutex
	leads    map[uuid.UUID]domain.Lead
	events   map[uuid.UUID][]domain.TimelineEvent
	messages map[uuid.UUID][]domain.Message
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		leads:    make(map[uuid.UUID]domain.Lead),
		events:   make(map[uuid.UUID][]domain.TimelineEvent),
		messages: make(map[uuid.UUID][]domain.Message),
	}
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return cloneLead(l), nil
}

func (m *MemoryRepository) ListReservationsDue(_ context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Lead, 0)
	for _, l := range m.leads {
		if (l.Status == domain.StatusWaitingAgentAccept || l.Status == domain.StatusWaitingOwnerApproval) && l.ReservationElapsed(now) {
			out = append(out, cloneLead(l))
		}
	}
	slices.SortFunc(out, func(a, b domain.Lead) int { return a.ReservedUntil.Compare(*b.ReservedUntil) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListActivity(_ context.Context, teamID *uuid.UUID) ([]LeadActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LeadActivity, 0, len(m.leads))
	for _, l := range m.leads {
		if teamID != nil && (l.TeamID == nil || *l.TeamID != *teamID) {
			continue
		}
		a := LeadActivity{
			LeadID:      l.ID,
			TeamID:      l.TeamID,
			AgentID:     l.AgentID,
			Status:      l.Status,
			Stage:       l.Stage,
			CreatedAt:   l.CreatedAt,
			RespondedAt: l.RespondedAt,
		}
		if msgs := m.messages[l.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			a.LastMessageAt = &last.CreatedAt
			a.LastMessageSender = &last.SenderType
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryRepository) Create(_ context.Context, lead domain.Lead, events []domain.TimelineEvent) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead.Version = 1
	m.leads[lead.ID] = cloneLead(lead)
	m.events[lead.ID] = append(m.events[lead.ID], events...)
	return cloneLead(lead), nil
}

func (m *MemoryRepository) Save(_ context.Context, lead domain.Lead, events []domain.TimelineEvent, msg *domain.Message) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.leads[lead.ID]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	if current.Version != lead.Version {
		return domain.Lead{}, ErrStaleState
	}
	lead.Version++
	m.leads[lead.ID] = cloneLead(lead)
	if msg != nil {
		m.messages[lead.ID] = append(m.messages[lead.ID], *msg)
	}
	m.events[lead.ID] = append(m.events[lead.ID], events...)
	return cloneLead(lead), nil
}

func (m *MemoryRepository) AppendMessage(_ context.Context, msg domain.Message, event domain.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[msg.LeadID]; !ok {
		return ErrNotFound
	}
	m.messages[msg.LeadID] = append(m.messages[msg.LeadID], msg)
	m.events[msg.LeadID] = append(m.events[msg.LeadID], event)
	return nil
}

func (m *MemoryRepository) GetMessage(_ context.Context, id uuid.UUID) (domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, msgs := range m.messages {
		for _, msg := range msgs {
			if msg.ID == id {
				return msg, nil
			}
		}
	}
	return domain.Message{}, ErrNotFound
}

func (m *MemoryRepository) ListRecentMessages(_ context.Context, leadID uuid.UUID, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[leadID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs), nil
}

func (m *MemoryRepository) AppendEvent(_ context.Context, event domain.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[event.LeadID]; !ok {
		return ErrNotFound
	}
	m.events[event.LeadID] = append(m.events[event.LeadID], event)
	return nil
}

func (m *MemoryRepository) ListEvents(_ context.Context, leadID uuid.UUID) ([]domain.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.events[leadID])
	slices.SortStableFunc(out, func(a, b domain.TimelineEvent) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) LatestEventAt(_ context.Context, leadID uuid.UUID, eventType domain.EventType, title string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest time.Time
	found := false
	for _, e := range m.events[leadID] {
		if e.Type == eventType && e.Title == title && (!found || e.CreatedAt.After(latest)) {
			latest, found = e.CreatedAt, true
		}
	}
	return latest, found, nil
}

func cloneLead(l domain.Lead) domain.Lead {
	l.ExcludedAgentIDs = slices.Clone(l.ExcludedAgentIDs)
	if l.ExcludedAgentIDs == nil {
		l.ExcludedAgentIDs = []uuid.UUID{}
	}
	return l
}

var _ LeadsRepository = (*MemoryRepository)(nil)
var _ LeadsRepository = (*Repository)(nil)
