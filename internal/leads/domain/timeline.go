package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies timeline entries.
type EventType string

const (
	EventLeadCreated     EventType = "LEAD_CREATED"
	EventStatusChange    EventType = "STATUS_CHANGE"
	EventStageChange     EventType = "STAGE_CHANGE"
	EventClientMessage   EventType = "CLIENT_MESSAGE"
	EventAgentMessage    EventType = "AGENT_MESSAGE"
	EventAutoReply       EventType = "AUTO_REPLY"
	EventInternalMessage EventType = "INTERNAL_MESSAGE"
)

// TimelineEvent is an immutable, append-only record of something that
// happened to a lead.
type TimelineEvent struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        EventType
	ActorID     *uuid.UUID
	Title       string
	Description string
	FromStatus  *Status
	ToStatus    *Status
	FromStage   *Stage
	ToStage     *Stage
	Metadata    map[string]any
	CreatedAt   time.Time
}

func newEvent(leadID uuid.UUID, typ EventType, title string, actor *uuid.UUID, at time.Time) TimelineEvent {
	return TimelineEvent{
		ID:        uuid.New(),
		LeadID:    leadID,
		Type:      typ,
		ActorID:   actor,
		Title:     title,
		Metadata:  map[string]any{},
		CreatedAt: at,
	}
}

// NewInternalEvent builds an INTERNAL_MESSAGE entry. The title doubles as the
// notification dedupe key.
func NewInternalEvent(leadID uuid.UUID, title, description string, metadata map[string]any, at time.Time) TimelineEvent {
	e := newEvent(leadID, EventInternalMessage, title, nil, at)
	e.Description = description
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return e
}
