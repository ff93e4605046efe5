// Package autoreply provides the offline auto-reply bounded context: per-agent
// settings, presence and the decision engine.
package autoreply

import (
	"realty_leads_backend/internal/autoreply/engine"
	"realty_leads_backend/internal/autoreply/handler"
	"realty_leads_backend/internal/autoreply/service"
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/platform/httpkit"
)

// Module is the auto-reply bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *engine.Engine
}

// NewModule builds the engine and subscribes it to inbound client messages
// when deps.Bus is set.
func NewModule(deps engine.Deps) (*Module, error) {
	eng, err := engine.New(deps)
	if err != nil {
		return nil, err
	}
	if deps.Bus != nil {
		eng.Subscribe(deps.Bus)
	}
	svc := service.New(deps.Store, deps.Leads, deps.Presence)
	return &Module{handler: handler.New(svc), engine: eng}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "autoreply"
}

// Engine exposes the processor to the background worker.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// RegisterRoutes mounts settings, decision and presence routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agents := httpkit.RequireRole(httpkit.RoleAgent, httpkit.RoleAdmin)
	m.handler.RegisterRoutes(ctx.Protected.Group("/auto-reply", agents))
	m.handler.RegisterPresenceRoutes(ctx.Protected.Group("/presence", agents))
}

var _ apphttp.Module = (*Module)(nil)
