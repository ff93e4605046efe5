package domain

import (
	"time"

	"github.com/google/uuid"
)

type SenderType string

const (
	SenderClient SenderType = "CLIENT"
	SenderAgent  SenderType = "AGENT"
)

// Message is one entry of the lead conversation.
type Message struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	SenderType SenderType
	SenderID   *uuid.UUID
	Content    string
	AutoReply  bool
	CreatedAt  time.Time
}

// IsProfessional reports whether the message counts as a reply from the
// agency side for response tracking.
func (m Message) IsProfessional() bool {
	return m.SenderType != SenderClient && !m.AutoReply
}

// TimelineEntry returns the conversation event recorded next to m.
func (m Message) TimelineEntry() TimelineEvent {
	typ, title := EventClientMessage, "Client message"
	switch {
	case m.AutoReply:
		typ, title = EventAutoReply, "Automatic reply"
	case m.SenderType == SenderAgent:
		typ, title = EventAgentMessage, "Agent message"
	}
	e := newEvent(m.LeadID, typ, title, m.SenderID, m.CreatedAt)
	e.Description = m.Content
	e.Metadata["messageId"] = m.ID.String()
	return e
}
