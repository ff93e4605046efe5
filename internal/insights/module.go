// Package insights serves read-only dashboard rollups: funnel, pending
// replies, first-response SLA and auto-reply activity.
package insights

import (
	"time"

	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/internal/insights/handler"
	"realty_leads_backend/internal/insights/repository"
	"realty_leads_backend/internal/insights/service"
	"realty_leads_backend/platform/httpkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, autoReply service.AutoReplyCounter, sla time.Duration) *Module {
	svc := service.New(repository.New(pool), autoReply, sla, nil)
	return &Module{handler: handler.New(svc), service: svc}
}

func (m *Module) Name() string {
	return "insights"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/insights", httpkit.RequireRole(httpkit.RoleAgent, httpkit.RoleAdmin, httpkit.RoleOwner)))
}

var _ apphttp.Module = (*Module)(nil)
