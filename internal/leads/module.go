// Package leads provides the lead distribution bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/internal/leads/handler"
	"realty_leads_backend/internal/leads/service"
	"realty_leads_backend/platform/httpkit"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	public  *handler.PublicHandler
	service *service.Service
}

// NewModule creates the lead state machine and its handlers.
func NewModule(deps service.Deps) *Module {
	svc := service.New(deps)
	return &Module{
		handler: handler.New(svc),
		public:  handler.NewPublicHandler(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead lifecycle service for adapters and workers.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads", httpkit.RequireRole(httpkit.RoleAgent, httpkit.RoleAdmin)))
	m.handler.RegisterOwnerRoutes(ctx.Protected.Group("/leads", httpkit.RequireRole(httpkit.RoleOwner)))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))

	public := ctx.V1.Group("/public/leads")
	if ctx.InboundLimiter != nil {
		public.Use(ctx.InboundLimiter.RateLimit())
	}
	m.public.RegisterRoutes(public)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
