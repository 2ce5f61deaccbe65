// Package contracts provides the maintenance-contracts domain module:
// contract administration, governing-contract resolution, and SLA derivation.
package contracts

import (
	"fieldservice_backend/internal/contracts/handler"
	"fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/contracts/service"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// Module represents the contracts domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new contracts module with all dependencies wired
func NewModule(pool *pgxpool.Pool, slaCfg config.SLAConfig, log *logger.Logger, eventBus events.Bus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, slaCfg, log, eventBus, clockwork.NewRealClock())
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Service exposes the contracts service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "contracts"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/contracts"))
	m.handler.RegisterSLARoutes(ctx.Protected.Group("/sla"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
