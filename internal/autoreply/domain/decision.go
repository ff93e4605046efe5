package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of evaluating one client message.
type Outcome string

const (
	OutcomeSent    Outcome = "SENT"
	OutcomeSkipped Outcome = "SKIPPED"
	OutcomeFailed  Outcome = "FAILED"
)

// Reasons recorded with SKIPPED and FAILED decisions.
const (
	ReasonDisabled       = "disabled"
	ReasonAgentAvailable = "agent_online_or_in_hours"
	ReasonCooldown       = "cooldown"
	ReasonRateLimited    = "rate_limited"
	ReasonGenerationErr  = "generation_error"
	ReasonNoAgent        = "no_assigned_agent"
	ReasonLeadClosed     = "lead_closed"
	ReasonPersistErr     = "persist_error"
)

// Decision is the audit record of one client message.
type Decision struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	ClientMessageID uuid.UUID
	AgentID         *uuid.UUID
	Outcome         Outcome
	Reason          string
	ReplyMessageID  *uuid.UUID
	CreatedAt       time.Time
}

// History summarizes the SENT decisions of a lead.
type History struct {
	LastSentAt  *time.Time
	SentLast24h int
}

// Verdict is the outcome of the rule checks that run before generation.
type Verdict struct {
	Generate bool
	Reason   string
}

// Evaluate applies the rules in order and stops at the first one that
// disqualifies. A Verdict with Generate set means the reply should be generated.
func Evaluate(now time.Time, s Settings, online bool, h History) Verdict {
	if !s.Enabled {
		return Verdict{Reason: ReasonDisabled}
	}
	inHours, err := s.InWorkingHours(now)
	if err != nil {
		return Verdict{Reason: ReasonDisabled}
	}
	if inHours && online {
		return Verdict{Reason: ReasonAgentAvailable}
	}
	if h.LastSentAt != nil && now.Sub(*h.LastSentAt) < time.Duration(s.CooldownMinutes)*time.Minute {
		return Verdict{Reason: ReasonCooldown}
	}
	if h.SentLast24h >= s.MaxRepliesPerLeadPer24h {
		return Verdict{Reason: ReasonRateLimited}
	}
	return Verdict{Generate: true}
}
