// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"realty_leads_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published once a lead row and its creation event are committed.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	PropertyID uuid.UUID  `json:"propertyId"`
	ContactID  uuid.UUID  `json:"contactId"`
	TeamID     *uuid.UUID `json:"teamId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadOffered is published when a lead enters WAITING_AGENT_ACCEPT for an agent.
type LeadOffered struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	AgentID       uuid.UUID  `json:"agentId"`
	PropertyID    uuid.UUID  `json:"propertyId"`
	TeamID        *uuid.UUID `json:"teamId,omitempty"`
	ReservedUntil time.Time  `json:"reservedUntil"`
	Claimed       bool       `json:"claimed"`
}

func (e LeadOffered) EventName() string { return "leads.lead.offered" }

// LeadStatusChanged is published after every committed status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID  uuid.UUID  `json:"leadId"`
	TeamID  *uuid.UUID `json:"teamId,omitempty"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	From    string     `json:"from"`
	To      string     `json:"to"`
	Reason  string     `json:"reason,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// PipelineStageChanged is published when the sales stage of a lead moves.
type PipelineStageChanged struct {
	BaseEvent
	LeadID  uuid.UUID  `json:"leadId"`
	TeamID  *uuid.UUID `json:"teamId,omitempty"`
	ActorID *uuid.UUID `json:"actorId,omitempty"`
	From    string     `json:"from"`
	To      string     `json:"to"`
}

func (e PipelineStageChanged) EventName() string { return "leads.stage.changed" }

// OwnerApprovalRequested is published when an accepted lead waits on the listing owner.
type OwnerApprovalRequested struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	PropertyID    uuid.UUID `json:"propertyId"`
	OwnerID       uuid.UUID `json:"ownerId"`
	AgentID       uuid.UUID `json:"agentId"`
	ReservedUntil time.Time `json:"reservedUntil"`
}

func (e OwnerApprovalRequested) EventName() string { return "leads.owner_approval.requested" }

// =============================================================================
// Conversation Events
// =============================================================================

// ClientMessageReceived is published after an inbound client message is stored.
type ClientMessageReceived struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	MessageID uuid.UUID  `json:"messageId"`
	ContactID uuid.UUID  `json:"contactId"`
	AgentID   *uuid.UUID `json:"agentId,omitempty"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
	Content   string     `json:"content"`
}

func (e ClientMessageReceived) EventName() string { return "leads.message.client_received" }

// AgentMessageRecorded is published after an agent-authored message is stored.
type AgentMessageRecorded struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	MessageID uuid.UUID  `json:"messageId"`
	AgentID   uuid.UUID  `json:"agentId"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
	AutoReply bool       `json:"autoReply"`
}

func (e AgentMessageRecorded) EventName() string { return "leads.message.agent_recorded" }

// AutoReplySent is published when the engine stored a generated reply that
// should be delivered to the client.
type AutoReplySent struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	ClientMessageID uuid.UUID `json:"clientMessageId"`
	ReplyMessageID  uuid.UUID `json:"replyMessageId"`
	AgentID         uuid.UUID `json:"agentId"`
	ContactID       uuid.UUID `json:"contactId"`
	Content         string    `json:"content"`
}

func (e AutoReplySent) EventName() string { return "autoreply.sent" }
