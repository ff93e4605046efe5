package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUser joins the agent's auto-reply timezone when one is configured.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.email, u.phone, u.role, u.is_active, COALESCE(s.timezone, '')
		FROM users u
		LEFT JOIN auto_reply_settings s ON s.agent_id = u.id
		WHERE u.id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Active, &u.Timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) GetProperty(ctx context.Context, id uuid.UUID) (Property, error) {
	var p Property
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, team_id, title, city, price_cents, requires_owner_approval
		FROM properties
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.TeamID, &p.Title, &p.City, &p.PriceCents, &p.RequiresOwnerApproval)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) GetContact(ctx context.Context, id uuid.UUID) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone
		FROM contacts
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

var _ Reader = (*Repository)(nil)
