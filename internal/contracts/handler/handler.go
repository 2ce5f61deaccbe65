package handler

import (
	"net/http"
	"time"

	"fieldservice_backend/internal/contracts/service"
	"fieldservice_backend/internal/contracts/transport"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for contracts and SLA resolution.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new contracts handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the contract administration routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Deactivate)
}

// RegisterSLARoutes registers the SLA resolution route.
func (h *Handler) RegisterSLARoutes(rg *gin.RouterGroup) {
	rg.GET("/resolve", h.ResolveSLA)
}

// List handles GET /api/contracts
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.ListActive(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Create handles POST /api/contracts
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateContractRequest
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

	result, err := h.svc.Create(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// GetByID handles GET /api/contracts/:id
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

	result, err := h.svc.GetByID(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Update handles PUT /api/contracts/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateContractRequest
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

	result, err := h.svc.Update(c.Request.Context(), id, tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Deactivate handles DELETE /api/contracts/:id
func (h *Handler) Deactivate(c *gin.Context) {
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
	if !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "admin role required", nil)
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), id, tenantID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "contract deactivated"})
}

// ResolveSLA handles GET /api/sla/resolve
func (h *Handler) ResolveSLA(c *gin.Context) {
	var req transport.ResolveSLARequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	facilityID, err := uuid.Parse(req.FacilityID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid facilityId format", nil)
		return
	}

	var asOf time.Time
	if req.AsOf != "" {
		asOf, err = time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid asOf format, expected RFC3339", nil)
			return
		}
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	resolution, err := h.svc.ResolveSLA(c.Request.Context(), tenantID, facilityID,
		transport.Priority(req.Priority), req.ServiceType, asOf)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ResolveSLAResponse{Source: string(resolution.Source)}
	if resolution.Contract != nil {
		id := resolution.Contract.ID
		resp.ContractID = &id
	}
	if resolution.SLA != nil {
		minutes := int64(resolution.SLA.Minutes())
		resp.SlaMinutes = &minutes
	}

	httpkit.OK(c, resp)
}
