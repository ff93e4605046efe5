package handler

import (
	"net/http"

	"realty_leads_backend/internal/agentqueue/service"
	"realty_leads_backend/internal/agentqueue/transport"
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

// RegisterRoutes mounts the self-service routes for agents.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Snapshot)
	rg.GET("/me", h.Me)
	rg.POST("/me/register", h.RegisterSelf)
	rg.POST("/me/deactivate", h.DeactivateSelf)
}

// RegisterAdminRoutes mounts queue management routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.AdminRegister)
	rg.POST("/:agentId/deactivate", h.AdminDeactivate)
	rg.PUT("/:agentId/score", h.SetScore)
}

// Snapshot lists the queue. Non-admins only see their own team.
func (h *Handler) Snapshot(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	teamID := id.TeamID()
	if raw := c.Query("teamId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if !id.HasRole(httpkit.RoleAdmin) && (teamID == nil || *teamID != parsed) {
			httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		teamID = &parsed
	}

	entries, err := h.svc.Snapshot(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSnapshotResponse(entries))
}

func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	entry, err := h.svc.Get(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) RegisterSelf(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	teamID := id.TeamID()
	if c.Request.ContentLength > 0 {
		var req transport.RegisterRequest
		if !httpkit.BindJSON(c, &req) {
			return
		}
		if req.TeamID != nil {
			teamID = req.TeamID
		}
	}

	entry, err := h.svc.Register(c.Request.Context(), id.UserID(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) DeactivateSelf(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	entry, err := h.svc.Deactivate(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) AdminRegister(c *gin.Context) {
	var req transport.AdminRegisterRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	entry, err := h.svc.Register(c.Request.Context(), req.AgentID, req.TeamID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToEntryResponse(entry))
}

func (h *Handler) AdminDeactivate(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("agentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	entry, err := h.svc.Deactivate(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}

func (h *Handler) SetScore(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("agentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.SetScoreRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	entry, err := h.svc.SetScore(c.Request.Context(), agentID, *req.Score)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToEntryResponse(entry))
}
