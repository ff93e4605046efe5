package repository

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("lead not found")
	ErrStaleState = errors.New("lead was modified concurrently")
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	// ListReservationsDue returns non-terminal leads whose reservation ended at or before now.
	ListReservationsDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)
	// ListActivity returns one row per lead of teamID (all teams when nil) with
	// its latest conversation message.
	ListActivity(ctx context.Context, teamID *uuid.UUID) ([]LeadActivity, error)
}

// LeadWriter persists lead state. Every write stores the lead and its timeline
// entries in one transaction.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead, events []domain.TimelineEvent) (domain.Lead, error)
	// Save is conditioned on lead.Version and returns the lead with the next version.
	// msg, when set, is stored in the same transaction.
	Save(ctx context.Context, lead domain.Lead, events []domain.TimelineEvent, msg *domain.Message) (domain.Lead, error)
}

// ConversationStore records messages that do not change lead state.
type ConversationStore interface {
	AppendMessage(ctx context.Context, msg domain.Message, event domain.TimelineEvent) error
	GetMessage(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// ListRecentMessages returns up to limit latest messages, oldest first.
	ListRecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Message, error)
}

// TimelineStore is the append-only event log.
type TimelineStore interface {
	AppendEvent(ctx context.Context, event domain.TimelineEvent) error
	ListEvents(ctx context.Context, leadID uuid.UUID) ([]domain.TimelineEvent, error)
	// LatestEventAt returns the newest createdAt of events matching type and title.
	LatestEventAt(ctx context.Context, leadID uuid.UUID, eventType domain.EventType, title string) (time.Time, bool, error)
}

// LeadsRepository composes all lead persistence.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ConversationStore
	TimelineStore
}

// LeadActivity is the reporting projection used by insights.
type LeadActivity struct {
	LeadID            uuid.UUID
	TeamID            *uuid.UUID
	AgentID           *uuid.UUID
	Status            domain.Status
	Stage             domain.Stage
	CreatedAt         time.Time
	RespondedAt       *time.Time
	LastMessageAt     *time.Time
	LastMessageSender *domain.SenderType
}
