// Package ports defines the interfaces the leads domain requires from other
// bounded contexts and external systems. Implementations live in
// internal/adapters so leads never imports those contexts directly.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// AgentQueue is the distribution queue as seen by the lead state machine.
type AgentQueue interface {
	// NextEligible returns the best active agent not in exclude, restricted to
	// teamID when set. ok is false when nobody qualifies.
	NextEligible(ctx context.Context, exclude []uuid.UUID, teamID *uuid.UUID) (agentID uuid.UUID, ok bool, err error)
	OnAssigned(ctx context.Context, agentID uuid.UUID) error
	OnReleased(ctx context.Context, agentID uuid.UUID) error
}
