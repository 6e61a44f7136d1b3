// Package packages provides the package catalog with time-boxed discounts.
package packages

import (
	"time"

	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/packages/handler"
	"leaddesk_backend/internal/packages/repository"
	"leaddesk_backend/internal/packages/service"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the packages module. loc is the zone discount dates are
// entered in. eventBus may be nil when nothing mirrors package names.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, loc *time.Location, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), loc, log)
	if eventBus != nil {
		svc.SetEventBus(eventBus)
	}
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "packages"
}

// Service exposes pricing and cleanup to other modules and the scheduler.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/packages"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/packages"))
}

var _ apphttp.Module = (*Module)(nil)
