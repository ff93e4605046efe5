// Package agentqueue provides the agent distribution queue bounded context.
package agentqueue

import (
	"realty_leads_backend/internal/agentqueue/handler"
	"realty_leads_backend/internal/agentqueue/repository"
	"realty_leads_backend/internal/agentqueue/service"
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/platform/httpkit"
	"realty_leads_backend/platform/logger"
)

// Module is the agent queue bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the queue on top of store.
func NewModule(store repository.Store, directory service.AgentDirectory, log *logger.Logger) *Module {
	svc := service.New(store, directory, log)
	return &Module{handler: handler.New(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agentqueue"
}

// Service exposes the queue to other modules through adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts queue routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/queue", httpkit.RequireRole(httpkit.RoleAgent, httpkit.RoleAdmin)))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/queue"))
}

var _ apphttp.Module = (*Module)(nil)
