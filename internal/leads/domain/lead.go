package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective client's interest in a property, routed to an agent.
// Methods mutate the value in memory and return the timeline entries that
// must be stored in the same transaction as the new state.
type Lead struct {
	ID                    uuid.UUID
	PropertyID            uuid.UUID
	ContactID             uuid.UUID
	TeamID                *uuid.UUID
	AgentID               *uuid.UUID
	Status                Status
	Stage                 Stage
	RequiresOwnerApproval bool
	ExcludedAgentIDs      []uuid.UUID
	ReservedUntil         *time.Time
	MatchDeadline         time.Time
	RespondedAt           *time.Time
	CompletedAt           *time.Time
	Outcome               *Outcome
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewLead returns a PENDING lead at stage NEW and its creation entry.
func NewLead(propertyID, contactID uuid.UUID, teamID *uuid.UUID, requiresApproval bool, matchingTimeout time.Duration, now time.Time) (Lead, TimelineEvent) {
	l := Lead{
		ID:                    uuid.New(),
		PropertyID:            propertyID,
		ContactID:             contactID,
		TeamID:                teamID,
		Status:                StatusPending,
		Stage:                 StageNew,
		RequiresOwnerApproval: requiresApproval,
		ExcludedAgentIDs:      []uuid.UUID{},
		MatchDeadline:         now.Add(matchingTimeout),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	e := newEvent(l.ID, EventLeadCreated, "Lead created", nil, now)
	e.ToStatus = ptr(StatusPending)
	e.ToStage = ptr(StageNew)
	e.Metadata["propertyId"] = propertyID.String()
	return l, e
}

// Transition moves the status axis. Leaving a waiting status drops the reservation.
func (l *Lead) Transition(to Status, reason string, actor *uuid.UUID, now time.Time) (TimelineEvent, error) {
	if !CanTransition(l.Status, to) {
		return TimelineEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}
	from := l.Status
	l.Status = to
	l.UpdatedAt = now
	if to != StatusWaitingAgentAccept && to != StatusWaitingOwnerApproval {
		l.ReservedUntil = nil
	}

	e := newEvent(l.ID, EventStatusChange, fmt.Sprintf("Status changed to %s", to), actor, now)
	e.FromStatus = ptr(from)
	e.ToStatus = ptr(to)
	if reason != "" {
		e.Description = reason
		e.Metadata["reason"] = reason
	}
	if l.AgentID != nil {
		e.Metadata["agentId"] = l.AgentID.String()
	}
	return e, nil
}

// Offer reserves the lead for agentID until the given time. The lead must be
// unassigned and in MATCHING or AVAILABLE.
func (l *Lead) Offer(agentID uuid.UUID, until time.Time, reason string, actor *uuid.UUID, now time.Time) (TimelineEvent, error) {
	if l.AgentID != nil {
		return TimelineEvent{}, ErrAlreadyAssigned
	}
	if !CanTransition(l.Status, StatusWaitingAgentAccept) {
		return TimelineEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, StatusWaitingAgentAccept)
	}
	l.AgentID = &agentID
	l.ReservedUntil = &until
	return l.Transition(StatusWaitingAgentAccept, reason, actor, now)
}

// ReleaseAgent clears the assignment and remembers the agent so the next draw
// skips it. Returns the released agent, if any.
func (l *Lead) ReleaseAgent() *uuid.UUID {
	released := l.AgentID
	if released != nil && !slices.Contains(l.ExcludedAgentIDs, *released) {
		l.ExcludedAgentIDs = append(l.ExcludedAgentIDs, *released)
	}
	l.AgentID = nil
	l.ReservedUntil = nil
	return released
}

// MoveStage changes the pipeline stage. Returns false when the stage is unchanged.
// WON and LOST reject every move, including one to the same stage.
func (l *Lead) MoveStage(to Stage, actor *uuid.UUID, now time.Time) (TimelineEvent, bool, error) {
	if l.Stage.IsTerminal() {
		return TimelineEvent{}, false, fmt.Errorf("%w: %s", ErrTerminalStage, l.Stage)
	}
	if l.Stage == to {
		return TimelineEvent{}, false, nil
	}
	from := l.Stage
	l.Stage = to
	l.UpdatedAt = now

	e := newEvent(l.ID, EventStageChange, fmt.Sprintf("Stage changed to %s", to), actor, now)
	e.FromStage = ptr(from)
	e.ToStage = ptr(to)
	return e, true, nil
}

// RecordProfessionalReply stamps RespondedAt on the first reply and advances
// NEW to CONTACT. The stage entry is returned when the nudge happens.
func (l *Lead) RecordProfessionalReply(actor *uuid.UUID, now time.Time) *TimelineEvent {
	if l.RespondedAt == nil {
		l.RespondedAt = &now
		l.UpdatedAt = now
	}
	if l.Stage != StageNew {
		return nil
	}
	e, changed, err := l.MoveStage(StageContact, actor, now)
	if err != nil || !changed {
		return nil
	}
	return &e
}

// Complete closes a CONFIRMED lead and forces the stage to the outcome.
func (l *Lead) Complete(outcome Outcome, actor *uuid.UUID, now time.Time) ([]TimelineEvent, error) {
	target := outcome.Stage()
	if l.Stage.IsTerminal() && l.Stage != target {
		return nil, fmt.Errorf("%w: stage %s conflicts with outcome %s", ErrTerminalStage, l.Stage, outcome)
	}
	statusEvent, err := l.Transition(StatusCompleted, "completed as "+string(outcome), actor, now)
	if err != nil {
		return nil, err
	}
	statusEvent.Metadata["outcome"] = string(outcome)
	l.Outcome = &outcome
	l.CompletedAt = &now

	out := []TimelineEvent{statusEvent}
	if l.Stage == target {
		return out, nil
	}
	stageEvent, _, err := l.MoveStage(target, actor, now)
	if err != nil {
		return nil, err
	}
	return append(out, stageEvent), nil
}

// ReservationElapsed reports whether a held reservation has run out at now.
func (l Lead) ReservationElapsed(now time.Time) bool {
	return l.ReservedUntil != nil && !now.Before(*l.ReservedUntil)
}

func ptr[T any](v T) *T { return &v }
