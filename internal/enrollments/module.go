// Package enrollments provides the enrolled client bounded context: the
// two-phase sales/admin approval of pricing and final terms.
package enrollments

import (
	"leaddesk_backend/internal/enrollments/handler"
	"leaddesk_backend/internal/enrollments/ports"
	"leaddesk_backend/internal/enrollments/repository"
	"leaddesk_backend/internal/enrollments/service"
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the enrollments module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the enrollments module. packages prices new enrollments
// and may be nil.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, packages ports.PackageCatalog) *Module {
	svc := service.New(repository.New(pool), packages, eventBus)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "enrollments"
}

// Service exposes the workflow; it satisfies the leads Enroller port.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/enrollments"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/enrollments"))
}

var _ apphttp.Module = (*Module)(nil)
