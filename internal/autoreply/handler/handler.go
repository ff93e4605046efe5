package handler

import (
	"net/http"
	"strconv"

	"realty_leads_backend/internal/autoreply/service"
	"realty_leads_backend/internal/autoreply/transport"
	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts routes under /auto-reply.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.PutSettings)
	rg.GET("/leads/:id/decisions", h.ListDecisions)
}

// RegisterPresenceRoutes mounts routes under /presence.
func (h *Handler) RegisterPresenceRoutes(rg *gin.RouterGroup) {
	rg.POST("/heartbeat", h.Heartbeat)
	rg.GET("/:agentId", h.Presence)
}

func (h *Handler) GetSettings(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	settings, err := h.svc.GetSettings(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSettingsResponse(settings))
}

func (h *Handler) PutSettings(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	var req transport.SettingsRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	settings, err := h.svc.SaveSettings(c.Request.Context(), req.ToDomain(id.UserID()))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSettingsResponse(settings))
}

func (h *Handler) ListDecisions(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	decisions, err := h.svc.ListDecisions(c.Request.Context(), leadID, id.UserID(), id.HasRole(httpkit.RoleAdmin), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDecisionListResponse(decisions))
}

func (h *Handler) Heartbeat(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	if httpkit.HandleError(c, h.svc.Heartbeat(c.Request.Context(), id.UserID())) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Presence(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("agentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	online, err := h.svc.IsOnline(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PresenceResponse{AgentID: agentID, Online: online})
}
