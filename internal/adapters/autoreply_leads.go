package adapters

import (
	"context"

	"realty_leads_backend/internal/autoreply/ports"
	"realty_leads_backend/internal/leads"
	leaddomain "realty_leads_backend/internal/leads/domain"
	leadservice "realty_leads_backend/internal/leads/service"
	"realty_leads_backend/internal/notification"
	"realty_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

// AutoReplyLeads gives the auto-reply engine system-level access to leads and
// their conversation, and stores generated replies through the state machine.
type AutoReplyLeads struct {
	svc *leadservice.Service
}

func NewAutoReplyLeads(svc *leadservice.Service) *AutoReplyLeads {
	return &AutoReplyLeads{svc: svc}
}

func (a *AutoReplyLeads) GetLead(ctx context.Context, leadID uuid.UUID) (ports.LeadSnapshot, error) {
	l, err := a.svc.GetLead(ctx, leadID, nil)
	if err != nil {
		return ports.LeadSnapshot{}, mapLeadNotFound(err)
	}
	lead := leads.FromDomain(l)
	return ports.LeadSnapshot{
		ID:         lead.ID,
		PropertyID: lead.PropertyID,
		ContactID:  lead.ContactID,
		AgentID:    lead.AgentID,
		Status:     lead.Status,
		Closed:     lead.Terminal,
	}, nil
}

func (a *AutoReplyLeads) GetMessage(ctx context.Context, messageID uuid.UUID) (ports.ConversationMessage, error) {
	m, err := a.svc.GetMessage(ctx, messageID)
	if err != nil {
		return ports.ConversationMessage{}, mapLeadNotFound(err)
	}
	return toConversationMessage(m), nil
}

func (a *AutoReplyLeads) RecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]ports.ConversationMessage, error) {
	msgs, err := a.svc.ListMessages(ctx, leadID, nil, limit)
	if err != nil {
		return nil, mapLeadNotFound(err)
	}
	out := make([]ports.ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toConversationMessage(m))
	}
	return out, nil
}

func (a *AutoReplyLeads) StoreReply(ctx context.Context, leadID, agentID uuid.UUID, content string) (uuid.UUID, error) {
	msg, err := a.svc.RecordAutoReply(ctx, leadID, agentID, content)
	if err != nil {
		return uuid.Nil, mapLeadNotFound(err)
	}
	return msg.ID, nil
}

func toConversationMessage(m leaddomain.Message) ports.ConversationMessage {
	return ports.ConversationMessage{
		ID:        m.ID,
		LeadID:    m.LeadID,
		FromAgent: m.SenderType == leaddomain.SenderAgent,
		AutoReply: m.AutoReply,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func mapLeadNotFound(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return ports.ErrNotFound
	}
	return err
}

// NotificationLeadAccess authorizes realtime lead topics with the same rule
// as lead reads.
type NotificationLeadAccess struct {
	svc *leadservice.Service
}

func NewNotificationLeadAccess(svc *leadservice.Service) *NotificationLeadAccess {
	return &NotificationLeadAccess{svc: svc}
}

func (a *NotificationLeadAccess) CanViewLead(ctx context.Context, leadID, userID uuid.UUID, admin bool) error {
	_, err := a.svc.GetLead(ctx, leadID, &leadservice.Actor{ID: userID, Admin: admin})
	return err
}

// Compile-time checks.
var (
	_ ports.Leads             = (*AutoReplyLeads)(nil)
	_ notification.LeadAccess = (*NotificationLeadAccess)(nil)
)
