package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, lead_id, event_type, actor_id, title, description,
	from_status, to_status, from_stage, to_stage, metadata, created_at`

func (r *Repository) AppendEvent(ctx context.Context, event domain.TimelineEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertEventsTx(ctx, tx, []domain.TimelineEvent{event}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID) ([]domain.TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM lead_events
		WHERE lead_id = $1
		ORDER BY created_at ASC, seq ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var e domain.TimelineEvent
		var typ string
		var fromStatus, toStatus, fromStage, toStage *string
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.LeadID, &typ, &e.ActorID, &e.Title, &e.Description,
			&fromStatus, &toStatus, &fromStage, &toStage, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.FromStatus = statusPtr(fromStatus)
		e.ToStatus = statusPtr(toStatus)
		e.FromStage = stagePtr(fromStage)
		e.ToStage = stagePtr(toStage)
		e.Metadata = map[string]any{}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *Repository) LatestEventAt(ctx context.Context, leadID uuid.UUID, eventType domain.EventType, title string) (time.Time, bool, error) {
	var at time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at
		FROM lead_events
		WHERE lead_id = $1 AND event_type = $2 AND title = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID, string(eventType), title).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func insertEventsTx(ctx context.Context, tx pgx.Tx, events []domain.TimelineEvent) error {
	for _, e := range events {
		metadata := e.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, e.ID, e.LeadID, string(e.Type), e.ActorID, e.Title, e.Description,
			textPtr(e.FromStatus), textPtr(e.ToStatus), textPtr(e.FromStage), textPtr(e.ToStage),
			metadataJSON, e.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func textPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func statusPtr(v *string) *domain.Status {
	if v == nil {
		return nil
	}
	s := domain.Status(*v)
	return &s
}

func stagePtr(v *string) *domain.Stage {
	if v == nil {
		return nil
	}
	s := domain.Stage(*v)
	return &s
}
