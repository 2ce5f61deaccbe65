// Package pm provides the preventive-maintenance domain module: schedule
// generation from contract terms, visit lifecycle, and the realtime
// reconciliation of visit change events.
package pm

import (
	contractrepo "fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/notification"
	"fieldservice_backend/internal/pm/handler"
	pmrealtime "fieldservice_backend/internal/pm/realtime"
	"fieldservice_backend/internal/pm/repository"
	"fieldservice_backend/internal/pm/service"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// Module represents the PM visits domain module
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	sessions *pmrealtime.SessionManager
}

// NewModule creates a new PM module with all dependencies wired. The notifier
// may be nil in worker processes that have no notification sink.
func NewModule(pool *pgxpool.Pool, scheduleCfg config.ScheduleConfig, realtimeCfg config.RealtimeConfig, log *logger.Logger, eventBus events.Bus, val *validator.Validator, notifier notification.Notifier) *Module {
	clock := clockwork.NewRealClock()
	repo := repository.New(pool)
	contracts := contractrepo.New(pool)
	svc := service.New(repo, contracts, scheduleCfg, log, eventBus, clock)

	var sessions *pmrealtime.SessionManager
	if notifier != nil {
		sessions = pmrealtime.NewSessionManager(pool, svc, notifier, realtimeCfg, clock, log)
	}

	h := handler.New(svc, sessionStarter(sessions), val)

	return &Module{
		handler:  h,
		service:  svc,
		sessions: sessions,
	}
}

// sessionStarter keeps the handler's interface value nil when no session
// manager exists, instead of a non-nil interface holding a nil pointer.
func sessionStarter(sessions *pmrealtime.SessionManager) handler.SessionStarter {
	if sessions == nil {
		return nil
	}
	return sessions
}

// Service exposes the PM service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Close tears down the realtime sessions.
func (m *Module) Close() {
	if m.sessions != nil {
		m.sessions.Close()
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "pm"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/pm"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
