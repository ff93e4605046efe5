package repository

import (
	"context"
	"errors"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, lead_id, sender_type, sender_id, content, auto_reply, created_at`

func (r *Repository) AppendMessage(ctx context.Context, msg domain.Message, event domain.TimelineEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, msg.LeadID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if err := insertMessageTx(ctx, tx, msg); err != nil {
		return err
	}
	if err := insertEventsTx(ctx, tx, []domain.TimelineEvent{event}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM lead_messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrNotFound
	}
	return msg, err
}

func (r *Repository) ListRecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM lead_messages
			WHERE lead_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	return items, rows.Err()
}

func insertMessageTx(ctx context.Context, tx pgx.Tx, msg domain.Message) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.LeadID, string(msg.SenderType), msg.SenderID, msg.Content, msg.AutoReply, msg.CreatedAt)
	return err
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	var sender string
	err := row.Scan(&m.ID, &m.LeadID, &sender, &m.SenderID, &m.Content, &m.AutoReply, &m.CreatedAt)
	m.SenderType = domain.SenderType(sender)
	return m, err
}
