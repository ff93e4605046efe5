package transport

import (
	"time"

	"realty_leads_backend/internal/insights/service"

	"github.com/google/uuid"
)

type RollupResponse struct {
	TeamID                  *uuid.UUID     `json:"teamId,omitempty"`
	GeneratedAt             time.Time      `json:"generatedAt"`
	Funnel                  map[string]int `json:"funnel"`
	Statuses                map[string]int `json:"statuses"`
	PendingReplies          int            `json:"pendingReplies"`
	RespondedLeads          int            `json:"respondedLeads"`
	AvgFirstResponseSeconds float64        `json:"avgFirstResponseSeconds"`
	SLABreaches             int            `json:"slaBreaches"`
	AutoReplies24h          map[string]int `json:"autoReplies24h"`
}

func ToRollupResponse(r service.Rollup) RollupResponse {
	return RollupResponse{
		TeamID:                  r.TeamID,
		GeneratedAt:             r.GeneratedAt,
		Funnel:                  r.Funnel,
		Statuses:                r.Statuses,
		PendingReplies:          r.PendingReplies,
		RespondedLeads:          r.RespondedLeads,
		AvgFirstResponseSeconds: r.AvgFirstResponseSeconds,
		SLABreaches:             r.SLABreaches,
		AutoReplies24h:          r.AutoReplies24h,
	}
}
