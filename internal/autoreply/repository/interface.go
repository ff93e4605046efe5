package repository

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/autoreply/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("decision already recorded")
	// ErrLeadBusy means another message of the same lead holds an unexpired lease.
	ErrLeadBusy = errors.New("lead has a message in progress")
)

// SettingsStore keeps one settings row per agent.
type SettingsStore interface {
	GetSettings(ctx context.Context, agentID uuid.UUID) (domain.Settings, error)
	UpsertSettings(ctx context.Context, s domain.Settings) (domain.Settings, error)
}

// DecisionStore is the audit log of auto-reply decisions, unique per client message.
type DecisionStore interface {
	InsertDecision(ctx context.Context, d domain.Decision) error
	GetDecision(ctx context.Context, clientMessageID uuid.UUID) (domain.Decision, error)
	ListDecisions(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Decision, error)
	// History summarizes SENT decisions of the lead as seen at now.
	History(ctx context.Context, leadID uuid.UUID, now time.Time) (domain.History, error)
	// CountSince counts decisions per outcome created at or after since,
	// restricted to leadIDs unless nil.
	CountSince(ctx context.Context, since time.Time, leadIDs []uuid.UUID) (map[domain.Outcome]int, error)
}

// Claim is the processing lease of one client message.
type Claim struct {
	ClientMessageID uuid.UUID
	LeadID          uuid.UUID
	ClaimedUntil    time.Time
	ReplyMessageID  *uuid.UUID
}

// ClaimStore hands out leases so a client message is processed by one worker
// at a time, and remembers a reply that was stored before its decision.
// At most one message per lead holds an unexpired lease.
type ClaimStore interface {
	// Claim takes the lease until the given time. ok is false while another
	// worker holds an unexpired lease on the message; ErrLeadBusy is returned
	// while another message of the lead does.
	Claim(ctx context.Context, clientMessageID, leadID uuid.UUID, now, until time.Time) (claim Claim, ok bool, err error)
	// Release ends the lease at now.
	Release(ctx context.Context, clientMessageID uuid.UUID, now time.Time) error
	AttachReply(ctx context.Context, clientMessageID, replyMessageID uuid.UUID) error
}

// Store composes all auto-reply persistence.
type Store interface {
	SettingsStore
	DecisionStore
	ClaimStore
}
