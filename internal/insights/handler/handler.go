package handler

import (
	"net/http"

	"realty_leads_backend/internal/insights/service"
	"realty_leads_backend/internal/insights/transport"
	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Rollup)
}

// Rollup serves GET /insights. Admins may pass ?teamId= or nothing for every
// team; everyone else sees the team in their token.
func (h *Handler) Rollup(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	teamID, ok := resolveTeam(c, id)
	if !ok {
		return
	}

	rollup, err := h.svc.Rollup(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRollupResponse(rollup))
}

func resolveTeam(c *gin.Context, id httpkit.Identity) (*uuid.UUID, bool) {
	raw := c.Query("teamId")
	if !id.HasRole(httpkit.RoleAdmin) {
		team := id.TeamID()
		if team == nil || (raw != "" && raw != team.String()) {
			httpkit.Error(c, http.StatusForbidden, "team insights are not available", nil)
			return nil, false
		}
		return team, true
	}
	if raw == "" {
		return nil, true
	}
	team, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid teamId", nil)
		return nil, false
	}
	return &team, true
}
