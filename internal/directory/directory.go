// Package directory reads the users, properties and contacts owned by the
// surrounding platform. The lead distribution core only reads these rows.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("directory: not found")

// User is a platform account: agent, owner or admin.
type User struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Phone    string
	Role     string
	Active   bool
	Timezone string
}

type Property struct {
	ID                    uuid.UUID
	OwnerID               uuid.UUID
	TeamID                *uuid.UUID
	Title                 string
	City                  string
	PriceCents            int64
	RequiresOwnerApproval bool
}

type Contact struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Reader is implemented by the Postgres repository and the in-memory store.
type Reader interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetProperty(ctx context.Context, id uuid.UUID) (Property, error)
	GetContact(ctx context.Context, id uuid.UUID) (Contact, error)
}
