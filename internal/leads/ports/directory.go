package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by directory lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// Property is the listing data the lead lifecycle needs.
type Property struct {
	ID                    uuid.UUID
	OwnerID               uuid.UUID
	TeamID                *uuid.UUID
	Title                 string
	City                  string
	PriceCents            int64
	RequiresOwnerApproval bool
}

// PropertyReader reads listings from the listing store.
type PropertyReader interface {
	GetProperty(ctx context.Context, id uuid.UUID) (Property, error)
}

// UserDirectory answers role and activity questions about users.
type UserDirectory interface {
	GetUserRole(ctx context.Context, userID uuid.UUID) (string, error)
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}
