package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxMessageRunes = 4000
	maxSaveAttempts = 3
)

// RecordClientMessage stores an inbound client message on a live lead. The
// contact must be the one the lead was created for.
func (s *Service) RecordClientMessage(ctx context.Context, leadID, contactID uuid.UUID, content string) (domain.Message, error) {
	body, err := cleanBody(content)
	if err != nil {
		return domain.Message{}, err
	}
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Message{}, err
	}
	if lead.ContactID != contactID {
		return domain.Message{}, apperr.NotFound("lead not found")
	}
	if lead.Status.IsTerminal() {
		return domain.Message{}, apperr.InvalidTransition("lead is closed")
	}

	msg := domain.Message{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		SenderType: domain.SenderClient,
		Content:    body,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg, msg.TimelineEntry()); err != nil {
		return domain.Message{}, translate(err)
	}

	s.pushRealtime(ctx, lead, "message.created", map[string]any{"messageId": msg.ID, "senderType": msg.SenderType})
	// Subscribers run inline so the auto-reply gets its bounded first attempt
	// within this request. Their failures never fail the message.
	if s.bus != nil {
		err := s.bus.PublishSync(ctx, events.ClientMessageReceived{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			MessageID: msg.ID,
			ContactID: lead.ContactID,
			AgentID:   lead.AgentID,
			TeamID:    lead.TeamID,
			Content:   msg.Content,
		})
		if err != nil {
			s.log.SideEffectFailed("client_message_subscribers", lead.ID.String(), err)
		}
	}
	return msg, nil
}

// RecordAgentMessage stores a message written by the assigned agent or an
// admin. The first professional reply stamps RespondedAt and moves NEW to CONTACT.
func (s *Service) RecordAgentMessage(ctx context.Context, leadID uuid.UUID, actor Actor, content string) (domain.Message, error) {
	body, err := cleanBody(content)
	if err != nil {
		return domain.Message{}, err
	}

	for attempt := 1; ; attempt++ {
		lead, err := s.load(ctx, leadID)
		if err != nil {
			return domain.Message{}, err
		}
		if err := authorizeParticipant(lead, &actor); err != nil {
			return domain.Message{}, err
		}
		if lead.Status.IsTerminal() {
			return domain.Message{}, apperr.InvalidTransition("lead is closed")
		}

		msg, saved, err := s.storeAgentMessage(ctx, lead, actor.ID, body)
		if errors.Is(err, repository.ErrStaleState) && attempt < maxSaveAttempts {
			continue
		}
		if err != nil {
			return domain.Message{}, translate(err)
		}

		s.publish(ctx, events.AgentMessageRecorded{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    saved.ID,
			MessageID: msg.ID,
			AgentID:   actor.ID,
			TeamID:    saved.TeamID,
		})
		s.pushRealtime(ctx, saved, "message.created", map[string]any{"messageId": msg.ID, "senderType": msg.SenderType})
		return msg, nil
	}
}

// storeAgentMessage appends the message, saving the lead as well when the
// reply changed it.
func (s *Service) storeAgentMessage(ctx context.Context, lead domain.Lead, authorID uuid.UUID, body string) (domain.Message, domain.Lead, error) {
	now := s.now()
	msg := domain.Message{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		SenderType: domain.SenderAgent,
		SenderID:   &authorID,
		Content:    body,
		CreatedAt:  now,
	}

	firstReply := lead.RespondedAt == nil
	nudge := lead.RecordProfessionalReply(&authorID, now)
	if !firstReply && nudge == nil {
		if err := s.repo.AppendMessage(ctx, msg, msg.TimelineEntry()); err != nil {
			return domain.Message{}, domain.Lead{}, err
		}
		return msg, lead, nil
	}

	entries := []domain.TimelineEvent{msg.TimelineEntry()}
	if nudge != nil {
		entries = append(entries, *nudge)
	}
	saved, err := s.repo.Save(ctx, lead, entries, &msg)
	if err != nil {
		return domain.Message{}, domain.Lead{}, err
	}
	s.afterCommit(ctx, saved, entries)
	return msg, saved, nil
}

// RecordAutoReply stores a generated reply on behalf of the assigned agent.
// Automatic replies never count as a professional response.
func (s *Service) RecordAutoReply(ctx context.Context, leadID, agentID uuid.UUID, content string) (domain.Message, error) {
	body, err := cleanBody(content)
	if err != nil {
		return domain.Message{}, err
	}
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Message{}, err
	}
	if lead.Status.IsTerminal() {
		return domain.Message{}, apperr.InvalidTransition("lead is closed")
	}

	msg := domain.Message{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		SenderType: domain.SenderAgent,
		SenderID:   &agentID,
		Content:    body,
		AutoReply:  true,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg, msg.TimelineEntry()); err != nil {
		return domain.Message{}, translate(err)
	}

	s.publish(ctx, events.AgentMessageRecorded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		MessageID: msg.ID,
		AgentID:   agentID,
		TeamID:    lead.TeamID,
		AutoReply: true,
	})
	s.pushRealtime(ctx, lead, "message.created", map[string]any{"messageId": msg.ID, "senderType": msg.SenderType, "autoReply": true})
	return msg, nil
}

// ListMessages returns up to limit latest messages of the lead, oldest first.
func (s *Service) ListMessages(ctx context.Context, leadID uuid.UUID, actor *Actor, limit int) ([]domain.Message, error) {
	if _, err := s.GetLead(ctx, leadID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListRecentMessages(ctx, leadID, limit)
}

// GetMessage returns a stored message by ID.
func (s *Service) GetMessage(ctx context.Context, messageID uuid.UUID) (domain.Message, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Message{}, apperr.NotFound("message not found")
	}
	return msg, err
}

// LastInternalEventAt reports when an INTERNAL_MESSAGE with title was last logged.
func (s *Service) LastInternalEventAt(ctx context.Context, leadID uuid.UUID, title string) (time.Time, bool, error) {
	return s.repo.LatestEventAt(ctx, leadID, domain.EventInternalMessage, title)
}

// RecordInternalEvent appends an INTERNAL_MESSAGE entry to the timeline.
func (s *Service) RecordInternalEvent(ctx context.Context, leadID uuid.UUID, title, description string, metadata map[string]any) error {
	e := domain.NewInternalEvent(leadID, title, description, metadata, s.now())
	return translate(s.repo.AppendEvent(ctx, e))
}

func cleanBody(content string) (string, error) {
	body := sanitize.Text(content)
	if body == "" {
		return "", apperr.Validation("message content is empty")
	}
	if utf8.RuneCountInString(body) > maxMessageRunes {
		return "", apperr.Validation("message content is too long")
	}
	return body, nil
}
