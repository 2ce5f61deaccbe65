package handler

import (
	"net/http"

	"fieldservice_backend/internal/pm/service"
	"fieldservice_backend/internal/pm/transport"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// SessionStarter lazily starts the tenant's realtime session. Implemented by
// the realtime session manager.
type SessionStarter interface {
	EnsureSession(tenantID uuid.UUID) error
}

// Handler handles HTTP requests for PM visits and schedule generation.
type Handler struct {
	svc      *service.Service
	sessions SessionStarter
	val      *validator.Validator
}

// New creates a new PM visits handler.
func New(svc *service.Service, sessions SessionStarter, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sessions: sessions, val: val}
}

// RegisterRoutes registers the PM visit routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/visits", h.List)
	rg.GET("/visits/live", h.Live)
	rg.GET("/visits/:id", h.GetByID)
	rg.PATCH("/visits/:id/status", h.UpdateStatus)
	rg.PATCH("/visits/:id/assign", h.Assign)
	rg.POST("/schedule/generate", h.GenerateSchedule)
}

// List handles GET /api/pm/visits
func (h *Handler) List(c *gin.Context) {
	var req transport.ListVisitsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.ListVisits(c.Request.Context(), tenantID, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Live handles GET /api/pm/visits/live. It starts the tenant's realtime
// session if none is running and serves the reconciled in-memory collection;
// subsequent changes reach the client through the notifications stream.
func (h *Handler) Live(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	if h.sessions != nil {
		if err := h.sessions.EnsureSession(tenantID); httpkit.HandleError(c, err) {
			return
		}
	}

	httpkit.OK(c, h.svc.SnapshotVisits(tenantID))
}

// GetByID handles GET /api/pm/visits/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.GetVisit(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// UpdateStatus handles PATCH /api/pm/visits/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateVisitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), id, tenantID, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Assign handles PATCH /api/pm/visits/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AssignEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.AssignEngineer(c.Request.Context(), id, tenantID, req.Engineer)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GenerateSchedule handles POST /api/pm/schedule/generate
func (h *Handler) GenerateSchedule(c *gin.Context) {
	var req transport.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}
	if !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "admin role required", nil)
		return
	}

	result, err := h.svc.GenerateForContract(c.Request.Context(), req.ContractID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
