// Package leads provides lead distribution functionality.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the lead information shared with other domains.
type Lead struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	ContactID  uuid.UUID
	TeamID     *uuid.UUID
	AgentID    *uuid.UUID
	Status     string
	Stage      string
	Terminal   bool
}

// FromDomain converts the internal lead to the shared shape.
func FromDomain(l domain.Lead) Lead {
	return Lead{
		ID:         l.ID,
		PropertyID: l.PropertyID,
		ContactID:  l.ContactID,
		TeamID:     l.TeamID,
		AgentID:    l.AgentID,
		Status:     string(l.Status),
		Stage:      string(l.Stage),
		Terminal:   l.Status.IsTerminal(),
	}
}
