// Package notification provides the user-facing notification sink. Alerts
// produced by the realtime reconciler are broadcast to connected clients over
// Server-Sent Events; delivery is fire-and-forget.
package notification

import (
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/notification/sse"
	"fieldservice_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Notifier accepts user-facing notifications for a tenant. Implemented by
// the SSE service; the reconciler depends on this interface only.
type Notifier interface {
	Notify(tenantID uuid.UUID, n sse.Notification)
}

// Module represents the notification module.
type Module struct {
	sseService *sse.Service
}

// NewModule creates the notification module.
func NewModule() *Module {
	return &Module{sseService: sse.New()}
}

// Notifier exposes the notification sink for other modules.
func (m *Module) Notifier() Notifier {
	return m.sseService
}

// Close tears down all client connections.
func (m *Module) Close() {
	m.sseService.Close()
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	handler := m.sseService.Handler(
		func(c *gin.Context) (uuid.UUID, bool) {
			identity := httpkit.GetIdentity(c)
			if !identity.IsAuthenticated() {
				return uuid.Nil, false
			}
			return identity.UserID(), true
		},
		func(c *gin.Context) (uuid.UUID, bool) {
			identity := httpkit.GetIdentity(c)
			if identity.TenantID() == uuid.Nil {
				return uuid.Nil, false
			}
			return identity.TenantID(), true
		},
	)
	ctx.Protected.GET("/notifications/stream", handler)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
