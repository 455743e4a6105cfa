package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// AdminHandler exposes platform controls.
type AdminHandler struct {
	guard *service.Guard
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(guard *service.Guard) *AdminHandler {
	return &AdminHandler{guard: guard}
}

// MaintenanceRequest toggles maintenance mode.
type MaintenanceRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetMaintenance handles GET /v1/admin/maintenance
func (h *AdminHandler) GetMaintenance(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if !a.IsAdmin() {
		respondError(c, service.ErrForbidden)
		return
	}
	enabled, err := h.guard.Maintenance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"enabled": enabled})
}

// SetMaintenance handles PUT /v1/admin/maintenance
func (h *AdminHandler) SetMaintenance(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req MaintenanceRequest
	if !bind(c, &req) {
		return
	}
	if err := h.guard.SetMaintenance(c.Request.Context(), a, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"enabled": *req.Enabled})
}
