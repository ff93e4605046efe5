// Package repository reads lead, event-log and auto-reply tables for insight rollups.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FirstResponse aggregates time-to-first-professional-reply.
type FirstResponse struct {
	Responded  int
	AvgSeconds float64
	Breaches   int
}

// Reader is the read side the insights service depends on. A nil teamID
// means every team.
type Reader interface {
	CountByStage(ctx context.Context, teamID *uuid.UUID) (map[string]int, error)
	CountByStatus(ctx context.Context, teamID *uuid.UUID) (map[string]int, error)
	CountPendingReplies(ctx context.Context, teamID *uuid.UUID) (int, error)
	FirstResponse(ctx context.Context, teamID *uuid.UUID, sla time.Duration, now time.Time) (FirstResponse, error)
	LeadIDsActiveSince(ctx context.Context, teamID uuid.UUID, since time.Time) ([]uuid.UUID, error)
}

// terminalStatuses mirrors the absorbing lead statuses.
var terminalStatuses = []string{"COMPLETED", "CANCELLED", "EXPIRED", "REJECTED", "OWNER_REJECTED"}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CountByStage(ctx context.Context, teamID *uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pipeline_stage, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR team_id = $1)
		GROUP BY pipeline_stage
	`, teamID)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

func (r *Repository) CountByStatus(ctx context.Context, teamID *uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR team_id = $1)
		GROUP BY status
	`, teamID)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

// CountPendingReplies counts open leads whose latest message came from the client.
func (r *Repository) CountPendingReplies(ctx context.Context, teamID *uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM leads l
		JOIN LATERAL (
			SELECT m.sender_type
			FROM lead_messages m
			WHERE m.lead_id = l.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) last ON TRUE
		WHERE ($1::uuid IS NULL OR l.team_id = $1)
			AND l.status <> ALL($2)
			AND last.sender_type = 'CLIENT'
	`, teamID, terminalStatuses).Scan(&n)
	return n, err
}

// FirstResponse counts a breach when the first reply came later than sla, or
// when an open lead still has none sla after creation.
func (r *Repository) FirstResponse(ctx context.Context, teamID *uuid.UUID, sla time.Duration, now time.Time) (FirstResponse, error) {
	var out FirstResponse
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE responded_at IS NOT NULL),
			COALESCE(AVG(EXTRACT(EPOCH FROM (responded_at - created_at))) FILTER (WHERE responded_at IS NOT NULL), 0),
			COUNT(*) FILTER (
				WHERE (responded_at IS NOT NULL AND responded_at - created_at > $2::float8 * INTERVAL '1 second')
					OR (responded_at IS NULL AND status <> ALL($4) AND created_at < $3 - $2::float8 * INTERVAL '1 second')
			)
		FROM leads
		WHERE ($1::uuid IS NULL OR team_id = $1)
	`, teamID, sla.Seconds(), now, terminalStatuses).Scan(&out.Responded, &out.AvgSeconds, &out.Breaches)
	return out, err
}

func (r *Repository) LeadIDsActiveSince(ctx context.Context, teamID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT l.id
		FROM leads l
		JOIN lead_messages m ON m.lead_id = l.id
		WHERE l.team_id = $1 AND m.created_at >= $2
	`, teamID, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func collectCounts(rows pgx.Rows) (map[string]int, error) {
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

var _ Reader = (*Repository)(nil)
