package repository

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, property_id, contact_id, team_id, agent_id, status, pipeline_stage,
	requires_owner_approval, excluded_agent_ids, reserved_until, match_deadline,
	responded_at, completed_at, outcome, version, created_at, updated_at`

// Repository is the Postgres implementation of LeadsRepository.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) ListReservationsDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE reserved_until IS NOT NULL AND reserved_until <= $1
			AND status IN ('WAITING_AGENT_ACCEPT', 'WAITING_OWNER_APPROVAL')
		ORDER BY reserved_until ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	return items, rows.Err()
}

func (r *Repository) ListActivity(ctx context.Context, teamID *uuid.UUID) ([]LeadActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.team_id, l.agent_id, l.status, l.pipeline_stage, l.created_at, l.responded_at,
			m.created_at, m.sender_type
		FROM leads l
		LEFT JOIN LATERAL (
			SELECT created_at, sender_type
			FROM lead_messages
			WHERE lead_id = l.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE
		WHERE ($1::uuid IS NULL OR l.team_id = $1)
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]LeadActivity, 0)
	for rows.Next() {
		var a LeadActivity
		var status, stage string
		var sender *string
		if err := rows.Scan(&a.LeadID, &a.TeamID, &a.AgentID, &status, &stage, &a.CreatedAt,
			&a.RespondedAt, &a.LastMessageAt, &sender); err != nil {
			return nil, err
		}
		a.Status = domain.Status(status)
		a.Stage = domain.Stage(stage)
		if sender != nil {
			st := domain.SenderType(*sender)
			a.LastMessageSender = &st
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead, events []domain.TimelineEvent) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16)
		RETURNING `+leadColumns,
		lead.ID, lead.PropertyID, lead.ContactID, lead.TeamID, lead.AgentID, string(lead.Status),
		string(lead.Stage), lead.RequiresOwnerApproval, lead.ExcludedAgentIDs, lead.ReservedUntil,
		lead.MatchDeadline, lead.RespondedAt, lead.CompletedAt, outcomeValue(lead.Outcome),
		lead.CreatedAt, lead.UpdatedAt,
	))
	if err != nil {
		return domain.Lead{}, err
	}
	if err := insertEventsTx(ctx, tx, events); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return created, nil
}

func (r *Repository) Save(ctx context.Context, lead domain.Lead, events []domain.TimelineEvent, msg *domain.Message) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET agent_id = $3, status = $4, pipeline_stage = $5, excluded_agent_ids = $6,
			reserved_until = $7, responded_at = $8, completed_at = $9, outcome = $10,
			team_id = $11, version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2
		RETURNING `+leadColumns,
		lead.ID, lead.Version, lead.AgentID, string(lead.Status), string(lead.Stage),
		lead.ExcludedAgentIDs, lead.ReservedUntil, lead.RespondedAt, lead.CompletedAt,
		outcomeValue(lead.Outcome), lead.TeamID, lead.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, lead.ID).Scan(&exists); err != nil {
			return domain.Lead{}, err
		}
		if !exists {
			return domain.Lead{}, ErrNotFound
		}
		return domain.Lead{}, ErrStaleState
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if msg != nil {
		if err := insertMessageTx(ctx, tx, *msg); err != nil {
			return domain.Lead{}, err
		}
	}
	if err := insertEventsTx(ctx, tx, events); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return saved, nil
}

func outcomeValue(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	v := string(*o)
	return &v
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var status, stage string
	var outcome *string
	err := row.Scan(&l.ID, &l.PropertyID, &l.ContactID, &l.TeamID, &l.AgentID, &status, &stage,
		&l.RequiresOwnerApproval, &l.ExcludedAgentIDs, &l.ReservedUntil, &l.MatchDeadline,
		&l.RespondedAt, &l.CompletedAt, &outcome, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return domain.Lead{}, err
	}
	l.Status = domain.Status(status)
	l.Stage = domain.Stage(stage)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		l.Outcome = &o
	}
	if l.ExcludedAgentIDs == nil {
		l.ExcludedAgentIDs = []uuid.UUID{}
	}
	return l, nil
}
