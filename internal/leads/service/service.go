// Package service implements the lead lifecycle: matching, acceptance,
// owner approval, completion, conversation recording and the reservation sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
)

// Timing holds the lifecycle timers.
type Timing struct {
	AcceptWindow        time.Duration
	OwnerApprovalWindow time.Duration
	MatchingTimeout     time.Duration
}

// DefaultTiming mirrors the configuration defaults.
var DefaultTiming = Timing{
	AcceptWindow:        15 * time.Minute,
	OwnerApprovalWindow: 48 * time.Hour,
	MatchingTimeout:     24 * time.Hour,
}

// Actor is the caller of a lifecycle operation. Nil actors are the system.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// Deps bundles the collaborators of the service.
type Deps struct {
	Repo       repository.LeadsRepository
	Queue      ports.AgentQueue
	Properties ports.PropertyReader
	Users      ports.UserDirectory
	Bus        events.Bus
	Realtime   ports.RealtimePublisher
	Log        *logger.Logger
	Timing     Timing
	Now        func() time.Time
}

// Service is the lead state machine.
type Service struct {
	repo       repository.LeadsRepository
	queue      ports.AgentQueue
	properties ports.PropertyReader
	users      ports.UserDirectory
	bus        events.Bus
	realtime   ports.RealtimePublisher
	log        *logger.Logger
	timing     Timing
	now        func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		repo:       d.Repo,
		queue:      d.Queue,
		properties: d.Properties,
		users:      d.Users,
		bus:        d.Bus,
		realtime:   d.Realtime,
		log:        d.Log,
		timing:     d.Timing,
		now:        d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.NewDiscard()
	}
	if s.timing == (Timing{}) {
		s.timing = DefaultTiming
	}
	return s
}

// GetLead returns the lead if the actor may see it.
func (s *Service) GetLead(ctx context.Context, leadID uuid.UUID, actor *Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorizeParticipant(lead, actor); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// GetTimeline returns the lead's events in creation order.
func (s *Service) GetTimeline(ctx context.Context, leadID uuid.UUID, actor *Actor) ([]domain.TimelineEvent, error) {
	if _, err := s.GetLead(ctx, leadID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, leadID)
}

func (s *Service) load(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	return lead, nil
}

// translate maps repository and domain sentinels to typed application errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrStaleState):
		return apperr.StaleState("lead was modified concurrently, reload and retry")
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return apperr.AlreadyAssigned("lead already has an agent")
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrTerminalStage):
		return apperr.Wrap(apperr.KindInvalidTransition, err.Error(), err)
	default:
		return err
	}
}

// authorizeParticipant allows admins and the agent currently on the lead.
func authorizeParticipant(lead domain.Lead, actor *Actor) error {
	if actor == nil || actor.Admin {
		return nil
	}
	if lead.AgentID != nil && *lead.AgentID == actor.ID {
		return nil
	}
	return apperr.Forbidden("lead is not assigned to you")
}

func actorID(actor *Actor) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

// afterCommit publishes bus events and realtime updates for committed entries.
func (s *Service) afterCommit(ctx context.Context, lead domain.Lead, entries []domain.TimelineEvent) {
	for _, e := range entries {
		switch e.Type {
		case domain.EventStatusChange:
			from, to := string(*e.FromStatus), string(*e.ToStatus)
			reason, _ := e.Metadata["reason"].(string)
			s.log.LeadTransition(lead.ID.String(), from, to, reason)
			s.publish(ctx, events.LeadStatusChanged{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				TeamID:    lead.TeamID,
				AgentID:   lead.AgentID,
				From:      from,
				To:        to,
				Reason:    reason,
			})
		case domain.EventStageChange:
			s.publish(ctx, events.PipelineStageChanged{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				TeamID:    lead.TeamID,
				ActorID:   e.ActorID,
				From:      string(*e.FromStage),
				To:        string(*e.ToStage),
			})
		}
	}
	s.pushRealtime(ctx, lead, "lead.updated", nil)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) pushRealtime(ctx context.Context, lead domain.Lead, kind string, extra map[string]any) {
	if s.realtime == nil {
		return
	}
	payload := map[string]any{
		"type":    kind,
		"leadId":  lead.ID,
		"status":  lead.Status,
		"stage":   lead.Stage,
		"version": lead.Version,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.realtime.Publish(ctx, LeadTopic(lead.ID), payload)
	if lead.TeamID != nil {
		s.realtime.Publish(ctx, TeamTopic(*lead.TeamID), payload)
	}
}

// LeadTopic is the realtime topic of a single lead.
func LeadTopic(id uuid.UUID) string { return fmt.Sprintf("lead:%s", id) }

// TeamTopic is the realtime topic of a team's lead board.
func TeamTopic(id uuid.UUID) string { return fmt.Sprintf("team:%s", id) }
