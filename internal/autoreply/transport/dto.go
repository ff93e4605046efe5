package transport

import (
	"time"

	"realty_leads_backend/internal/autoreply/domain"

	"github.com/google/uuid"
)

type DayWindowDTO struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start" validate:"required,hhmm"`
	End     string `json:"end" validate:"required,hhmm"`
}

type SettingsRequest struct {
	Enabled                 bool                    `json:"enabled"`
	Timezone                string                  `json:"timezone" validate:"required,timezone"`
	WeekSchedule            map[string]DayWindowDTO `json:"weekSchedule" validate:"dive,keys,weekday,endkeys"`
	CooldownMinutes         int                     `json:"cooldownMinutes" validate:"required,gte=1,lte=1440"`
	MaxRepliesPerLeadPer24h int                     `json:"maxRepliesPerLeadPer24h" validate:"required,gte=1,lte=100"`
}

type SettingsResponse struct {
	AgentID                 uuid.UUID               `json:"agentId"`
	Enabled                 bool                    `json:"enabled"`
	Timezone                string                  `json:"timezone"`
	WeekSchedule            map[string]DayWindowDTO `json:"weekSchedule"`
	CooldownMinutes         int                     `json:"cooldownMinutes"`
	MaxRepliesPerLeadPer24h int                     `json:"maxRepliesPerLeadPer24h"`
	UpdatedAt               *time.Time              `json:"updatedAt,omitempty"`
}

type DecisionResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          uuid.UUID  `json:"leadId"`
	ClientMessageID uuid.UUID  `json:"clientMessageId"`
	AgentID         *uuid.UUID `json:"agentId,omitempty"`
	Decision        string     `json:"decision"`
	Reason          string     `json:"reason,omitempty"`
	ReplyMessageID  *uuid.UUID `json:"replyMessageId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type DecisionListResponse struct {
	Items []DecisionResponse `json:"items"`
}

type PresenceResponse struct {
	AgentID uuid.UUID `json:"agentId"`
	Online  bool      `json:"online"`
}

func (r SettingsRequest) ToDomain(agentID uuid.UUID) domain.Settings {
	schedule := make(map[string]domain.DayWindow, len(r.WeekSchedule))
	for day, w := range r.WeekSchedule {
		schedule[day] = domain.DayWindow{Enabled: w.Enabled, Start: w.Start, End: w.End}
	}
	return domain.Settings{
		AgentID:                 agentID,
		Enabled:                 r.Enabled,
		Timezone:                r.Timezone,
		WeekSchedule:            schedule,
		CooldownMinutes:         r.CooldownMinutes,
		MaxRepliesPerLeadPer24h: r.MaxRepliesPerLeadPer24h,
	}
}

func ToSettingsResponse(s domain.Settings) SettingsResponse {
	schedule := make(map[string]DayWindowDTO, len(s.WeekSchedule))
	for day, w := range s.WeekSchedule {
		schedule[day] = DayWindowDTO{Enabled: w.Enabled, Start: w.Start, End: w.End}
	}
	resp := SettingsResponse{
		AgentID:                 s.AgentID,
		Enabled:                 s.Enabled,
		Timezone:                s.Timezone,
		WeekSchedule:            schedule,
		CooldownMinutes:         s.CooldownMinutes,
		MaxRepliesPerLeadPer24h: s.MaxRepliesPerLeadPer24h,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return resp
}

func ToDecisionListResponse(decisions []domain.Decision) DecisionListResponse {
	items := make([]DecisionResponse, 0, len(decisions))
	for _, d := range decisions {
		items = append(items, DecisionResponse{
			ID:              d.ID,
			LeadID:          d.LeadID,
			ClientMessageID: d.ClientMessageID,
			AgentID:         d.AgentID,
			Decision:        string(d.Outcome),
			Reason:          d.Reason,
			ReplyMessageID:  d.ReplyMessageID,
			CreatedAt:       d.CreatedAt,
		})
	}
	return DecisionListResponse{Items: items}
}
