package repository

import (
	"context"
	"errors"

	"realty_leads_backend/internal/agentqueue/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `agent_id, team_id, position, score, status, active_lead_count,
	last_activity_at, version, created_at, updated_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, agentID uuid.UUID) (domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM agent_queue_entries WHERE agent_id = $1`, agentID)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Entry{}, ErrNotFound
	}
	return entry, err
}

func (r *Repository) List(ctx context.Context, teamID *uuid.UUID) ([]domain.Entry, error) {
	return r.query(ctx, `
		SELECT `+entryColumns+`
		FROM agent_queue_entries
		WHERE ($1::uuid IS NULL OR team_id = $1)
		ORDER BY position ASC
	`, teamID)
}

func (r *Repository) ListActive(ctx context.Context, teamID *uuid.UUID) ([]domain.Entry, error) {
	return r.query(ctx, `
		SELECT `+entryColumns+`
		FROM agent_queue_entries
		WHERE status = 'ACTIVE' AND ($1::uuid IS NULL OR team_id = $1)
		ORDER BY position ASC
	`, teamID)
}

func (r *Repository) Insert(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO agent_queue_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)
		RETURNING `+entryColumns,
		e.AgentID, e.TeamID, e.Position, e.Score, string(e.Status), e.ActiveLeadCount,
		e.LastActivityAt, e.CreatedAt,
	)
	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Entry{}, ErrAlreadyExists
		}
		return domain.Entry{}, err
	}
	return entry, nil
}

func (r *Repository) Update(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE agent_queue_entries
		SET team_id = $3, position = $4, score = $5, status = $6,
			active_lead_count = $7, last_activity_at = $8,
			version = version + 1, updated_at = $9
		WHERE agent_id = $1 AND version = $2
		RETURNING `+entryColumns,
		e.AgentID, e.Version, e.TeamID, e.Position, e.Score, string(e.Status),
		e.ActiveLeadCount, e.LastActivityAt, e.UpdatedAt,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, e.AgentID); errors.Is(getErr, ErrNotFound) {
			return domain.Entry{}, ErrNotFound
		}
		return domain.Entry{}, ErrVersionConflict
	}
	return entry, err
}

func (r *Repository) NextPosition(ctx context.Context) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx, `SELECT nextval('agent_queue_position_seq')`).Scan(&next)
	return next, err
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	return items, rows.Err()
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var e domain.Entry
	var status string
	err := row.Scan(&e.AgentID, &e.TeamID, &e.Position, &e.Score, &status, &e.ActiveLeadCount,
		&e.LastActivityAt, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	e.Status = domain.Status(status)
	return e, err
}
