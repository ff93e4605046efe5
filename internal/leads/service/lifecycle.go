package service

import (
	"context"
	"errors"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

// CreateLead stores a PENDING lead and immediately runs the first match.
func (s *Service) CreateLead(ctx context.Context, propertyID, contactID uuid.UUID) (domain.Lead, error) {
	property, err := s.properties.GetProperty(ctx, propertyID)
	if errors.Is(err, ports.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("property not found")
	}
	if err != nil {
		return domain.Lead{}, apperr.External("listing store unavailable", err)
	}

	now := s.now()
	lead, created := domain.NewLead(propertyID, contactID, property.TeamID, property.RequiresOwnerApproval, s.timing.MatchingTimeout, now)
	lead, err = s.repo.Create(ctx, lead, []domain.TimelineEvent{created})
	if err != nil {
		return domain.Lead{}, err
	}
	s.publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		PropertyID: lead.PropertyID,
		ContactID:  lead.ContactID,
		TeamID:     lead.TeamID,
	})

	return s.dispatch(ctx, lead, "new lead", nil, nil)
}

// dispatch moves lead into MATCHING (if not already there), draws a candidate
// and leaves the lead either offered or AVAILABLE, all in one write.
// prior entries are committed in the same write. released is the agent that
// just gave the lead back, if any.
func (s *Service) dispatch(ctx context.Context, lead domain.Lead, reason string, prior []domain.TimelineEvent, released *uuid.UUID) (domain.Lead, error) {
	now := s.now()
	entries := append(make([]domain.TimelineEvent, 0, len(prior)+2), prior...)
	if lead.Status != domain.StatusMatching {
		e, err := lead.Transition(domain.StatusMatching, reason, nil, now)
		if err != nil {
			return domain.Lead{}, translate(err)
		}
		entries = append(entries, e)
	}

	agentID, found, err := s.queue.NextEligible(ctx, lead.ExcludedAgentIDs, lead.TeamID)
	if err != nil {
		s.log.SideEffectFailed("queue_draw", lead.ID.String(), err)
		found = false
	}

	var next domain.TimelineEvent
	if found {
		next, err = lead.Offer(agentID, now.Add(s.timing.AcceptWindow), "matched from queue", nil, now)
	} else {
		next, err = lead.Transition(domain.StatusAvailable, "no eligible agent", nil, now)
	}
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	entries = append(entries, next)

	saved, err := s.repo.Save(ctx, lead, entries, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}

	if released != nil {
		s.release(ctx, saved.ID, *released)
	}
	if found {
		s.assign(ctx, saved.ID, agentID)
		s.publish(ctx, events.LeadOffered{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        saved.ID,
			AgentID:       agentID,
			PropertyID:    saved.PropertyID,
			TeamID:        saved.TeamID,
			ReservedUntil: *saved.ReservedUntil,
		})
	}
	s.afterCommit(ctx, saved, entries)
	return saved, nil
}

// AcceptLead confirms the offer for the reserved agent. Leads that need the
// owner's consent move on to WAITING_OWNER_APPROVAL.
func (s *Service) AcceptLead(ctx context.Context, leadID, agentID uuid.UUID) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.StatusWaitingAgentAccept {
		return domain.Lead{}, apperr.InvalidTransition("lead is not waiting for acceptance")
	}
	if lead.AgentID == nil || *lead.AgentID != agentID {
		return domain.Lead{}, apperr.Forbidden("lead is not offered to you")
	}
	now := s.now()
	if lead.ReservationElapsed(now) {
		return domain.Lead{}, apperr.InvalidTransition("offer has expired")
	}

	accepted, err := lead.Transition(domain.StatusAccepted, "accepted by agent", &agentID, now)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	entries := []domain.TimelineEvent{accepted}

	var follow domain.TimelineEvent
	if lead.RequiresOwnerApproval {
		follow, err = lead.Transition(domain.StatusWaitingOwnerApproval, "awaiting owner approval", nil, now)
		until := now.Add(s.timing.OwnerApprovalWindow)
		lead.ReservedUntil = &until
	} else {
		follow, err = lead.Transition(domain.StatusConfirmed, "confirmed", nil, now)
	}
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	entries = append(entries, follow)

	saved, err := s.repo.Save(ctx, lead, entries, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}

	if saved.Status == domain.StatusWaitingOwnerApproval {
		s.requestOwnerApproval(ctx, saved)
	}
	s.afterCommit(ctx, saved, entries)
	return saved, nil
}

func (s *Service) requestOwnerApproval(ctx context.Context, lead domain.Lead) {
	property, err := s.properties.GetProperty(ctx, lead.PropertyID)
	if err != nil {
		s.log.SideEffectFailed("owner_approval_lookup", lead.ID.String(), err)
		return
	}
	s.publish(ctx, events.OwnerApprovalRequested{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		PropertyID:    lead.PropertyID,
		OwnerID:       property.OwnerID,
		AgentID:       *lead.AgentID,
		ReservedUntil: *lead.ReservedUntil,
	})
}

// RejectLead returns an offered lead to matching and redraws without the agent.
func (s *Service) RejectLead(ctx context.Context, leadID, agentID uuid.UUID, reason string) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.StatusWaitingAgentAccept {
		return domain.Lead{}, apperr.InvalidTransition("lead is not waiting for acceptance")
	}
	if lead.AgentID == nil || *lead.AgentID != agentID {
		return domain.Lead{}, apperr.Forbidden("lead is not offered to you")
	}
	if reason == "" {
		reason = "rejected by agent"
	}
	return s.redistribute(ctx, lead, reason)
}

// redistribute releases the current agent of a WAITING_AGENT_ACCEPT lead and
// runs a new draw that excludes every agent who already passed on it.
func (s *Service) redistribute(ctx context.Context, lead domain.Lead, reason string) (domain.Lead, error) {
	e, err := lead.Transition(domain.StatusMatching, reason, nil, s.now())
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	released := lead.ReleaseAgent()
	return s.dispatch(ctx, lead, reason, []domain.TimelineEvent{e}, released)
}

// ClaimLead lets an agent pick an AVAILABLE lead from the pool. The claim is
// an offer to the claimer, who still confirms it with AcceptLead.
func (s *Service) ClaimLead(ctx context.Context, leadID, agentID uuid.UUID) (domain.Lead, error) {
	if s.users != nil {
		active, err := s.users.IsActive(ctx, agentID)
		if err != nil {
			return domain.Lead{}, apperr.External("user directory unavailable", err)
		}
		if !active {
			return domain.Lead{}, apperr.Forbidden("user is not active")
		}
	}

	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.AgentID == nil && lead.Status != domain.StatusAvailable {
		return domain.Lead{}, apperr.InvalidTransition("only available leads can be claimed")
	}
	now := s.now()
	e, err := lead.Offer(agentID, now.Add(s.timing.AcceptWindow), "claimed by agent", &agentID, now)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	saved, err := s.repo.Save(ctx, lead, []domain.TimelineEvent{e}, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}

	s.assign(ctx, saved.ID, agentID)
	s.publish(ctx, events.LeadOffered{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        saved.ID,
		AgentID:       agentID,
		PropertyID:    saved.PropertyID,
		TeamID:        saved.TeamID,
		ReservedUntil: *saved.ReservedUntil,
		Claimed:       true,
	})
	s.afterCommit(ctx, saved, []domain.TimelineEvent{e})
	return saved, nil
}

// CancelLead terminates any non-terminal lead.
func (s *Service) CancelLead(ctx context.Context, leadID uuid.UUID, actor *Actor, reason string) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorizeParticipant(lead, actor); err != nil {
		return domain.Lead{}, err
	}
	if reason == "" {
		reason = "cancelled"
	}
	return s.terminate(ctx, lead, domain.StatusCancelled, reason, actorID(actor))
}

// terminate moves lead to a terminal status and gives the agent slot back.
func (s *Service) terminate(ctx context.Context, lead domain.Lead, to domain.Status, reason string, actor *uuid.UUID) (domain.Lead, error) {
	heldBy := lead.AgentID
	held := lead.Status.HoldsAgent()
	e, err := lead.Transition(to, reason, actor, s.now())
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	saved, err := s.repo.Save(ctx, lead, []domain.TimelineEvent{e}, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	if held && heldBy != nil {
		s.release(ctx, saved.ID, *heldBy)
	}
	s.afterCommit(ctx, saved, []domain.TimelineEvent{e})
	return saved, nil
}

// CompleteLead closes a CONFIRMED lead with a WON or LOST outcome.
func (s *Service) CompleteLead(ctx context.Context, leadID uuid.UUID, actor *Actor, outcome domain.Outcome) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorizeParticipant(lead, actor); err != nil {
		return domain.Lead{}, err
	}
	heldBy := lead.AgentID
	entries, err := lead.Complete(outcome, actorID(actor), s.now())
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	saved, err := s.repo.Save(ctx, lead, entries, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	if heldBy != nil {
		s.release(ctx, saved.ID, *heldBy)
	}
	s.afterCommit(ctx, saved, entries)
	return saved, nil
}

// ApproveByOwner confirms a lead waiting on the listing owner.
func (s *Service) ApproveByOwner(ctx context.Context, leadID, ownerID uuid.UUID) (domain.Lead, error) {
	lead, err := s.ownerDecisionTarget(ctx, leadID, ownerID)
	if err != nil {
		return domain.Lead{}, err
	}
	e, err := lead.Transition(domain.StatusConfirmed, "approved by owner", &ownerID, s.now())
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	saved, err := s.repo.Save(ctx, lead, []domain.TimelineEvent{e}, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	s.afterCommit(ctx, saved, []domain.TimelineEvent{e})
	return saved, nil
}

// RejectByOwner ends a lead the listing owner declined.
func (s *Service) RejectByOwner(ctx context.Context, leadID, ownerID uuid.UUID, reason string) (domain.Lead, error) {
	lead, err := s.ownerDecisionTarget(ctx, leadID, ownerID)
	if err != nil {
		return domain.Lead{}, err
	}
	if reason == "" {
		reason = "rejected by owner"
	}
	return s.terminate(ctx, lead, domain.StatusOwnerRejected, reason, &ownerID)
}

func (s *Service) ownerDecisionTarget(ctx context.Context, leadID, ownerID uuid.UUID) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.StatusWaitingOwnerApproval {
		return domain.Lead{}, apperr.InvalidTransition("lead is not waiting for owner approval")
	}
	property, err := s.properties.GetProperty(ctx, lead.PropertyID)
	if err != nil {
		return domain.Lead{}, apperr.External("listing store unavailable", err)
	}
	if property.OwnerID != ownerID {
		return domain.Lead{}, apperr.Forbidden("only the listing owner can decide")
	}
	return lead, nil
}

// DismissLead closes an AVAILABLE lead nobody should pick up.
func (s *Service) DismissLead(ctx context.Context, leadID uuid.UUID, actor *Actor, reason string) (domain.Lead, error) {
	if actor == nil || !actor.Admin {
		return domain.Lead{}, apperr.Forbidden("only admins can dismiss leads")
	}
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status != domain.StatusAvailable {
		return domain.Lead{}, apperr.InvalidTransition("only available leads can be dismissed")
	}
	if reason == "" {
		reason = "dismissed"
	}
	return s.terminate(ctx, lead, domain.StatusRejected, reason, &actor.ID)
}

// MoveStage changes the pipeline stage. WON and LOST are final.
func (s *Service) MoveStage(ctx context.Context, leadID uuid.UUID, actor *Actor, to domain.Stage) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorizeParticipant(lead, actor); err != nil {
		return domain.Lead{}, err
	}
	e, changed, err := lead.MoveStage(to, actorID(actor), s.now())
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	if !changed {
		return lead, nil
	}
	saved, err := s.repo.Save(ctx, lead, []domain.TimelineEvent{e}, nil)
	if err != nil {
		return domain.Lead{}, translate(err)
	}
	s.afterCommit(ctx, saved, []domain.TimelineEvent{e})
	return saved, nil
}

func (s *Service) assign(ctx context.Context, leadID, agentID uuid.UUID) {
	if err := s.queue.OnAssigned(ctx, agentID); err != nil {
		s.log.SideEffectFailed("queue_on_assigned", leadID.String(), err)
	}
}

func (s *Service) release(ctx context.Context, leadID, agentID uuid.UUID) {
	if err := s.queue.OnReleased(ctx, agentID); err != nil {
		s.log.SideEffectFailed("queue_on_released", leadID.String(), err)
	}
}
