// Package ports defines what the auto-reply engine needs from other bounded
// contexts. Implementations live in internal/adapters.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by readers for unknown ids.
var ErrNotFound = errors.New("not found")

// LeadSnapshot is the lead state the engine decides on.
type LeadSnapshot struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	ContactID  uuid.UUID
	AgentID    *uuid.UUID
	Status     string
	Closed     bool
}

// ConversationMessage is one message of the lead conversation.
type ConversationMessage struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	FromAgent bool
	AutoReply bool
	Content   string
	CreatedAt time.Time
}

// ListingSummary describes the property for the prompt.
type ListingSummary struct {
	Title      string
	City       string
	PriceCents int64
}

// Leads gives read access to leads and stores replies on their behalf.
type Leads interface {
	GetLead(ctx context.Context, leadID uuid.UUID) (LeadSnapshot, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (ConversationMessage, error)
	// RecentMessages returns up to limit latest messages, oldest first.
	RecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]ConversationMessage, error)
	// StoreReply records an automatic reply authored for agentID.
	StoreReply(ctx context.Context, leadID, agentID uuid.UUID, content string) (uuid.UUID, error)
}

// Listings reads the property summary.
type Listings interface {
	GetListing(ctx context.Context, propertyID uuid.UUID) (ListingSummary, error)
}

// People resolves display names used in the prompt.
type People interface {
	AgentName(ctx context.Context, agentID uuid.UUID) (string, error)
	ContactName(ctx context.Context, contactID uuid.UUID) (string, error)
}

// RetryScheduler enqueues a durable re-run of a client message.
type RetryScheduler interface {
	ScheduleAutoReply(ctx context.Context, clientMessageID uuid.UUID, runAt time.Time) error
}
