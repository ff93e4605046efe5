// Package service exposes auto-reply settings, decisions and presence to handlers.
package service

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/autoreply/domain"
	"realty_leads_backend/internal/autoreply/ports"
	"realty_leads_backend/internal/autoreply/presence"
	"realty_leads_backend/internal/autoreply/repository"
	"realty_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

const maxDecisionPage = 100

type Service struct {
	store    repository.Store
	leads    ports.Leads
	presence presence.Tracker
	now      func() time.Time
}

func New(store repository.Store, leads ports.Leads, tracker presence.Tracker) *Service {
	if tracker == nil {
		tracker = presence.Offline{}
	}
	return &Service{store: store, leads: leads, presence: tracker, now: time.Now}
}

// GetSettings returns the agent's settings, or the disabled defaults.
func (s *Service) GetSettings(ctx context.Context, agentID uuid.UUID) (domain.Settings, error) {
	settings, err := s.store.GetSettings(ctx, agentID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.DefaultSettings(agentID), nil
	}
	return settings, err
}

// SaveSettings validates and stores the agent's settings.
func (s *Service) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, apperr.Validation(err.Error())
	}
	settings.UpdatedAt = s.now()
	return s.store.UpsertSettings(ctx, settings)
}

// ListDecisions returns the latest decisions for a lead the caller may see.
func (s *Service) ListDecisions(ctx context.Context, leadID, callerID uuid.UUID, admin bool, limit int) ([]domain.Decision, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, err
	}
	if !admin && (lead.AgentID == nil || *lead.AgentID != callerID) {
		return nil, apperr.Forbidden("lead is not assigned to you")
	}
	if limit <= 0 || limit > maxDecisionPage {
		limit = maxDecisionPage
	}
	return s.store.ListDecisions(ctx, leadID, limit)
}

// Heartbeat marks the agent online for the presence TTL.
func (s *Service) Heartbeat(ctx context.Context, agentID uuid.UUID) error {
	if err := s.presence.Heartbeat(ctx, agentID); err != nil {
		return apperr.External("presence store unavailable", err)
	}
	return nil
}

// IsOnline reports the agent's presence.
func (s *Service) IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error) {
	return s.presence.IsOnline(ctx, agentID)
}
