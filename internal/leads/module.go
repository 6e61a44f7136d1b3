// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/handler"
	"leaddesk_backend/internal/leads/management"
	"leaddesk_backend/internal/leads/ports"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// enroller may be nil and attached later with SetEnroller.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, enroller ports.Enroller, log *logger.Logger) (*Module, error) {
	if err := val.RegisterOneOf("lead_status", domain.AllStatuses()); err != nil {
		return nil, err
	}
	if err := val.RegisterOneOf("tab_filter", domain.TabNames()); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	mgmtSvc := management.New(repo, eventBus, enroller, log)
	h := handler.New(mgmtSvc, val)

	return &Module{
		handler:    h,
		management: mgmtSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// SetEnroller attaches the enrollments adapter.
func (m *Module) SetEnroller(enroller ports.Enroller) {
	m.management.SetEnroller(enroller)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
