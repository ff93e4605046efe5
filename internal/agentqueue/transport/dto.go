package transport

import (
	"time"

	"realty_leads_backend/internal/agentqueue/domain"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	TeamID *uuid.UUID `json:"teamId"`
}

type AdminRegisterRequest struct {
	AgentID uuid.UUID  `json:"agentId" validate:"required"`
	TeamID  *uuid.UUID `json:"teamId"`
}

type SetScoreRequest struct {
	Score *float64 `json:"score" validate:"required,gte=-1000,lte=1000"`
}

type EntryResponse struct {
	AgentID         uuid.UUID  `json:"agentId"`
	TeamID          *uuid.UUID `json:"teamId,omitempty"`
	Position        int64      `json:"position"`
	Score           float64    `json:"score"`
	Status          string     `json:"status"`
	ActiveLeadCount int        `json:"activeLeadCount"`
	LastActivityAt  time.Time  `json:"lastActivityAt"`
}

type SnapshotResponse struct {
	Items []EntryResponse `json:"items"`
}

func ToEntryResponse(e domain.Entry) EntryResponse {
	return EntryResponse{
		AgentID:         e.AgentID,
		TeamID:          e.TeamID,
		Position:        e.Position,
		Score:           e.Score,
		Status:          string(e.Status),
		ActiveLeadCount: e.ActiveLeadCount,
		LastActivityAt:  e.LastActivityAt,
	}
}

func ToSnapshotResponse(entries []domain.Entry) SnapshotResponse {
	items := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, ToEntryResponse(e))
	}
	return SnapshotResponse{Items: items}
}
