package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realty_leads_backend/internal/autoreply/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const decisionColumns = `id, lead_id, client_message_id, agent_id, decision, reason, reply_message_id, created_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetSettings(ctx context.Context, agentID uuid.UUID) (domain.Settings, error) {
	var (
		s        domain.Settings
		schedule []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, enabled, timezone, week_schedule, cooldown_minutes,
			max_replies_per_lead_per_24h, updated_at
		FROM auto_reply_settings
		WHERE agent_id = $1
	`, agentID).Scan(&s.AgentID, &s.Enabled, &s.Timezone, &schedule, &s.CooldownMinutes,
		&s.MaxRepliesPerLeadPer24h, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, err
	}
	if err := json.Unmarshal(schedule, &s.WeekSchedule); err != nil {
		return domain.Settings{}, fmt.Errorf("decode week schedule: %w", err)
	}
	return s, nil
}

func (r *Repository) UpsertSettings(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	schedule, err := json.Marshal(s.WeekSchedule)
	if err != nil {
		return domain.Settings{}, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO auto_reply_settings (agent_id, enabled, timezone, week_schedule,
			cooldown_minutes, max_replies_per_lead_per_24h, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			timezone = EXCLUDED.timezone,
			week_schedule = EXCLUDED.week_schedule,
			cooldown_minutes = EXCLUDED.cooldown_minutes,
			max_replies_per_lead_per_24h = EXCLUDED.max_replies_per_lead_per_24h,
			updated_at = EXCLUDED.updated_at
	`, s.AgentID, s.Enabled, s.Timezone, schedule, s.CooldownMinutes, s.MaxRepliesPerLeadPer24h, s.UpdatedAt)
	if err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

func (r *Repository) InsertDecision(ctx context.Context, d domain.Decision) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auto_reply_decisions (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.LeadID, d.ClientMessageID, d.AgentID, string(d.Outcome), nullableText(d.Reason), d.ReplyMessageID, d.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) GetDecision(ctx context.Context, clientMessageID uuid.UUID) (domain.Decision, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+decisionColumns+` FROM auto_reply_decisions WHERE client_message_id = $1`, clientMessageID)
	d, err := scanDecision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Decision{}, ErrNotFound
	}
	return d, err
}

func (r *Repository) ListDecisions(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Decision, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+decisionColumns+`
		FROM auto_reply_decisions
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Decision, 0)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) History(ctx context.Context, leadID uuid.UUID, now time.Time) (domain.History, error) {
	var h domain.History
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(created_at), COUNT(*) FILTER (WHERE created_at > $2)
		FROM auto_reply_decisions
		WHERE lead_id = $1 AND decision = 'SENT' AND created_at <= $3
	`, leadID, now.Add(-24*time.Hour), now).Scan(&h.LastSentAt, &h.SentLast24h)
	return h, err
}

func (r *Repository) CountSince(ctx context.Context, since time.Time, leadIDs []uuid.UUID) (map[domain.Outcome]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT decision, COUNT(*)
		FROM auto_reply_decisions
		WHERE created_at >= $1 AND ($2::uuid[] IS NULL OR lead_id = ANY($2))
		GROUP BY decision
	`, since, leadIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[domain.Outcome(outcome)] = n
	}
	return out, rows.Err()
}

func (r *Repository) Claim(ctx context.Context, clientMessageID, leadID uuid.UUID, now, until time.Time) (Claim, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Claim{}, false, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes claims of one lead until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, leadID.String()); err != nil {
		return Claim{}, false, fmt.Errorf("lock lead claims: %w", err)
	}

	var busy bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM auto_reply_claims
			WHERE lead_id = $1 AND client_message_id <> $2 AND claimed_until > $3
		)
	`, leadID, clientMessageID, now).Scan(&busy)
	if err != nil {
		return Claim{}, false, err
	}
	if busy {
		return Claim{}, false, ErrLeadBusy
	}

	c := Claim{ClientMessageID: clientMessageID, LeadID: leadID}
	err = tx.QueryRow(ctx, `
		INSERT INTO auto_reply_claims (client_message_id, lead_id, claimed_until, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_message_id) DO UPDATE SET claimed_until = EXCLUDED.claimed_until
		WHERE auto_reply_claims.claimed_until <= $4
		RETURNING claimed_until, reply_message_id
	`, clientMessageID, leadID, until, now).Scan(&c.ClaimedUntil, &c.ReplyMessageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Claim{}, false, nil
	}
	if err != nil {
		return Claim{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Claim{}, false, fmt.Errorf("commit claim: %w", err)
	}
	return c, true, nil
}

func (r *Repository) Release(ctx context.Context, clientMessageID uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auto_reply_claims SET claimed_until = LEAST(claimed_until, $2)
		WHERE client_message_id = $1
	`, clientMessageID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) AttachReply(ctx context.Context, clientMessageID, replyMessageID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auto_reply_claims SET reply_message_id = $2 WHERE client_message_id = $1
	`, clientMessageID, replyMessageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDecision(row pgx.Row) (domain.Decision, error) {
	var (
		d       domain.Decision
		outcome string
		reason  *string
	)
	if err := row.Scan(&d.ID, &d.LeadID, &d.ClientMessageID, &d.AgentID, &outcome, &reason, &d.ReplyMessageID, &d.CreatedAt); err != nil {
		return domain.Decision{}, err
	}
	d.Outcome = domain.Outcome(outcome)
	if reason != nil {
		d.Reason = *reason
	}
	return d, nil
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
