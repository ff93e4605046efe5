package handler

import (
	"net/http"

	"realty_leads_backend/internal/leads/service"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicHandler serves the unauthenticated endpoints used by the listing
// site and the messaging gateway.
type PublicHandler struct {
	svc *service.Service
}

func NewPublicHandler(svc *service.Service) *PublicHandler {
	return &PublicHandler{svc: svc}
}

// RegisterRoutes mounts routes under /public/leads.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.ExpressInterest)
	rg.POST("/:id/messages", h.ClientMessage)
}

// ExpressInterest creates a lead for a prospect interested in a listing.
func (h *PublicHandler) ExpressInterest(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	lead, err := h.svc.CreateLead(c.Request.Context(), req.PropertyID, req.ContactID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{"id": lead.ID, "status": lead.Status})
}

func (h *PublicHandler) ClientMessage(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.ClientMessageRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	msg, err := h.svc.RecordClientMessage(c.Request.Context(), leadID, req.ContactID, req.Content)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToMessageResponse(msg))
}
