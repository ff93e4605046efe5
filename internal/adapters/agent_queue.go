// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"

	queuedomain "realty_leads_backend/internal/agentqueue/domain"
	queueservice "realty_leads_backend/internal/agentqueue/service"
	"realty_leads_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// LeadsAgentQueue adapts the agent queue service to the leads AgentQueue port.
type LeadsAgentQueue struct {
	svc *queueservice.Service
}

func NewLeadsAgentQueue(svc *queueservice.Service) *LeadsAgentQueue {
	return &LeadsAgentQueue{svc: svc}
}

func (q *LeadsAgentQueue) NextEligible(ctx context.Context, exclude []uuid.UUID, teamID *uuid.UUID) (uuid.UUID, bool, error) {
	entry, ok, err := q.svc.NextEligible(ctx, queuedomain.Filter{Exclude: exclude, TeamID: teamID})
	if err != nil || !ok {
		return uuid.Nil, false, err
	}
	return entry.AgentID, true, nil
}

func (q *LeadsAgentQueue) OnAssigned(ctx context.Context, agentID uuid.UUID) error {
	_, err := q.svc.OnAssigned(ctx, agentID)
	return err
}

func (q *LeadsAgentQueue) OnReleased(ctx context.Context, agentID uuid.UUID) error {
	_, err := q.svc.OnReleased(ctx, agentID)
	return err
}

// Compile-time check.
var _ ports.AgentQueue = (*LeadsAgentQueue)(nil)
