package transport

import (
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	PropertyID uuid.UUID `json:"propertyId" validate:"required"`
	ContactID  uuid.UUID `json:"contactId" validate:"required"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CompleteLeadRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=WON LOST"`
}

type MoveStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=NEW CONTACT VISIT PROPOSAL DOCUMENTS WON LOST"`
}

type AgentMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type ClientMessageRequest struct {
	ContactID uuid.UUID `json:"contactId" validate:"required"`
	Content   string    `json:"content" validate:"required,max=4000"`
}

type LeadResponse struct {
	ID                    uuid.UUID   `json:"id"`
	PropertyID            uuid.UUID   `json:"propertyId"`
	ContactID             uuid.UUID   `json:"contactId"`
	TeamID                *uuid.UUID  `json:"teamId,omitempty"`
	AgentID               *uuid.UUID  `json:"agentId,omitempty"`
	Status                string      `json:"status"`
	Stage                 string      `json:"stage"`
	RequiresOwnerApproval bool        `json:"requiresOwnerApproval"`
	ExcludedAgentIDs      []uuid.UUID `json:"excludedAgentIds"`
	ReservedUntil         *time.Time  `json:"reservedUntil,omitempty"`
	MatchDeadline         time.Time   `json:"matchDeadline"`
	RespondedAt           *time.Time  `json:"respondedAt,omitempty"`
	CompletedAt           *time.Time  `json:"completedAt,omitempty"`
	Outcome               *string     `json:"outcome,omitempty"`
	Version               int64       `json:"version"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

type MessageResponse struct {
	ID         uuid.UUID  `json:"id"`
	LeadID     uuid.UUID  `json:"leadId"`
	SenderType string     `json:"senderType"`
	SenderID   *uuid.UUID `json:"senderId,omitempty"`
	Content    string     `json:"content"`
	AutoReply  bool       `json:"autoReply"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
}

type TimelineEventResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	ActorID     *uuid.UUID     `json:"actorId,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	FromStatus  *string        `json:"fromStatus,omitempty"`
	ToStatus    *string        `json:"toStatus,omitempty"`
	FromStage   *string        `json:"fromStage,omitempty"`
	ToStage     *string        `json:"toStage,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type TimelineResponse struct {
	Items []TimelineEventResponse `json:"items"`
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:                    l.ID,
		PropertyID:            l.PropertyID,
		ContactID:             l.ContactID,
		TeamID:                l.TeamID,
		AgentID:               l.AgentID,
		Status:                string(l.Status),
		Stage:                 string(l.Stage),
		RequiresOwnerApproval: l.RequiresOwnerApproval,
		ExcludedAgentIDs:      l.ExcludedAgentIDs,
		ReservedUntil:         l.ReservedUntil,
		MatchDeadline:         l.MatchDeadline,
		RespondedAt:           l.RespondedAt,
		CompletedAt:           l.CompletedAt,
		Version:               l.Version,
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
	}
	if l.Outcome != nil {
		resp.Outcome = stringPtr(*l.Outcome)
	}
	return resp
}

func ToMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		LeadID:     m.LeadID,
		SenderType: string(m.SenderType),
		SenderID:   m.SenderID,
		Content:    m.Content,
		AutoReply:  m.AutoReply,
		CreatedAt:  m.CreatedAt,
	}
}

func ToMessageListResponse(msgs []domain.Message) MessageListResponse {
	items := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, ToMessageResponse(m))
	}
	return MessageListResponse{Items: items}
}

func ToTimelineResponse(events []domain.TimelineEvent) TimelineResponse {
	items := make([]TimelineEventResponse, 0, len(events))
	for _, e := range events {
		item := TimelineEventResponse{
			ID:          e.ID,
			Type:        string(e.Type),
			ActorID:     e.ActorID,
			Title:       e.Title,
			Description: e.Description,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt,
		}
		if e.FromStatus != nil {
			item.FromStatus = stringPtr(*e.FromStatus)
		}
		if e.ToStatus != nil {
			item.ToStatus = stringPtr(*e.ToStatus)
		}
		if e.FromStage != nil {
			item.FromStage = stringPtr(*e.FromStage)
		}
		if e.ToStage != nil {
			item.ToStage = stringPtr(*e.ToStage)
		}
		items = append(items, item)
	}
	return TimelineResponse{Items: items}
}

func stringPtr[T ~string](v T) *string {
	s := string(v)
	return &s
}
