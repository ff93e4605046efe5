package handler

import (
	"net/http"
	"strconv"

	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/service"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

const (
	msgInvalidRequest = "invalid request"
	defaultPageSize   = 50
	maxPageSize       = 200
)

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts routes used by agents and admins.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/timeline", h.Timeline)
	rg.GET("/:id/messages", h.ListMessages)
	rg.POST("/:id/messages", h.SendMessage)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/claim", h.Claim)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/complete", h.Complete)
	rg.PATCH("/:id/stage", h.MoveStage)
}

// RegisterOwnerRoutes mounts the listing owner decisions.
func (h *Handler) RegisterOwnerRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/owner-approve", h.OwnerApprove)
	rg.POST("/:id/owner-reject", h.OwnerReject)
}

// RegisterAdminRoutes mounts admin-only lead routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/dismiss", h.Dismiss)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	lead, err := h.svc.CreateLead(c.Request.Context(), req.PropertyID, req.ContactID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	lead, err := h.svc.GetLead(c.Request.Context(), leadID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Timeline(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	events, err := h.svc.GetTimeline(c.Request.Context(), leadID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTimelineResponse(events))
}

func (h *Handler) ListMessages(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		limit = n
	}
	msgs, err := h.svc.ListMessages(c.Request.Context(), leadID, actor, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToMessageListResponse(msgs))
}

func (h *Handler) SendMessage(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	var req transport.AgentMessageRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	msg, err := h.svc.RecordAgentMessage(c.Request.Context(), leadID, *actor, req.Content)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToMessageResponse(msg))
}

func (h *Handler) Accept(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	lead, err := h.svc.AcceptLead(c.Request.Context(), leadID, actor.ID)
	respondLead(c, lead, err)
}

func (h *Handler) Reject(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	lead, err := h.svc.RejectLead(c.Request.Context(), leadID, actor.ID, reason)
	respondLead(c, lead, err)
}

func (h *Handler) Claim(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	lead, err := h.svc.ClaimLead(c.Request.Context(), leadID, actor.ID)
	respondLead(c, lead, err)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	lead, err := h.svc.CancelLead(c.Request.Context(), leadID, actor, reason)
	respondLead(c, lead, err)
}

func (h *Handler) Complete(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	var req transport.CompleteLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	lead, err := h.svc.CompleteLead(c.Request.Context(), leadID, actor, outcome)
	respondLead(c, lead, err)
}

func (h *Handler) MoveStage(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	var req transport.MoveStageRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	stage, err := domain.ParseStage(req.Stage)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	lead, err := h.svc.MoveStage(c.Request.Context(), leadID, actor, stage)
	respondLead(c, lead, err)
}

func (h *Handler) OwnerApprove(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	lead, err := h.svc.ApproveByOwner(c.Request.Context(), leadID, actor.ID)
	respondLead(c, lead, err)
}

func (h *Handler) OwnerReject(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	lead, err := h.svc.RejectByOwner(c.Request.Context(), leadID, actor.ID, reason)
	respondLead(c, lead, err)
}

func (h *Handler) Dismiss(c *gin.Context) {
	actor, leadID, ok := actorAndLead(c)
	if !ok {
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	lead, err := h.svc.DismissLead(c.Request.Context(), leadID, actor, reason)
	respondLead(c, lead, err)
}

func actorAndLead(c *gin.Context) (*service.Actor, uuid.UUID, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return nil, uuid.Nil, false
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return nil, uuid.Nil, false
	}
	return &service.Actor{ID: id.UserID(), Admin: id.HasRole(httpkit.RoleAdmin)}, leadID, true
}

// bindReason reads the optional {"reason": "..."} body.
func bindReason(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req transport.ReasonRequest
	if !httpkit.BindJSON(c, &req) {
		return "", false
	}
	return req.Reason, true
}

func respondLead(c *gin.Context, lead domain.Lead, err error) {
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}
