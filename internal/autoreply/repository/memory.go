package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"realty_leads_backend/internal/autoreply/domain"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process for tests and single-node dev runs.
type MemoryStore struct {
	mu        sync.Mutex
	settings  map[uuid.UUID]domain.Settings
	decisions map[uuid.UUID]domain.Decision
	claims    map[uuid.UUID]Claim
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		settings:  make(map[uuid.UUID]domain.Settings),
		decisions: make(map[uuid.UUID]domain.Decision),
		claims:    make(map[uuid.UUID]Claim),
	}
}

func (m *MemoryStore) GetSettings(_ context.Context, agentID uuid.UUID) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[agentID]
	if !ok {
		return domain.Settings{}, ErrNotFound
	}
	s.WeekSchedule = maps.Clone(s.WeekSchedule)
	return s, nil
}

func (m *MemoryStore) UpsertSettings(_ context.Context, s domain.Settings) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.WeekSchedule = maps.Clone(s.WeekSchedule)
	m.settings[s.AgentID] = s
	return s, nil
}

func (m *MemoryStore) InsertDecision(_ context.Context, d domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decisions[d.ClientMessageID]; ok {
		return ErrDuplicate
	}
	m.decisions[d.ClientMessageID] = d
	return nil
}

func (m *MemoryStore) GetDecision(_ context.Context, clientMessageID uuid.UUID) (domain.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[clientMessageID]
	if !ok {
		return domain.Decision{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) ListDecisions(_ context.Context, leadID uuid.UUID, limit int) ([]domain.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Decision, 0)
	for _, d := range m.decisions {
		if d.LeadID == leadID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b domain.Decision) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) History(_ context.Context, leadID uuid.UUID, now time.Time) (domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var h domain.History
	windowStart := now.Add(-24 * time.Hour)
	for _, d := range m.decisions {
		if d.LeadID != leadID || d.Outcome != domain.OutcomeSent || d.CreatedAt.After(now) {
			continue
		}
		if h.LastSentAt == nil || d.CreatedAt.After(*h.LastSentAt) {
			at := d.CreatedAt
			h.LastSentAt = &at
		}
		if d.CreatedAt.After(windowStart) {
			h.SentLast24h++
		}
	}
	return h, nil
}

func (m *MemoryStore) CountSince(_ context.Context, since time.Time, leadIDs []uuid.UUID) (map[domain.Outcome]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.Outcome]int)
	for _, d := range m.decisions {
		if d.CreatedAt.Before(since) {
			continue
		}
		if leadIDs != nil && !slices.Contains(leadIDs, d.LeadID) {
			continue
		}
		out[d.Outcome]++
	}
	return out, nil
}

func (m *MemoryStore) Claim(_ context.Context, clientMessageID, leadID uuid.UUID, now, until time.Time) (Claim, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[clientMessageID]
	if ok && c.ClaimedUntil.After(now) {
		return Claim{}, false, nil
	}
	for id, other := range m.claims {
		if id != clientMessageID && other.LeadID == leadID && other.ClaimedUntil.After(now) {
			return Claim{}, false, ErrLeadBusy
		}
	}
	if !ok {
		c = Claim{ClientMessageID: clientMessageID, LeadID: leadID}
	}
	c.ClaimedUntil = until
	m.claims[clientMessageID] = c
	return c, true, nil
}

func (m *MemoryStore) Release(_ context.Context, clientMessageID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[clientMessageID]
	if !ok {
		return ErrNotFound
	}
	if c.ClaimedUntil.After(now) {
		c.ClaimedUntil = now
		m.claims[clientMessageID] = c
	}
	return nil
}

func (m *MemoryStore) AttachReply(_ context.Context, clientMessageID, replyMessageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[clientMessageID]
	if !ok {
		return ErrNotFound
	}
	c.ReplyMessageID = &replyMessageID
	m.claims[clientMessageID] = c
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*Repository)(nil)
