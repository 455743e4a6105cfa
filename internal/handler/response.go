package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{service.ErrMaintenanceMode, http.StatusServiceUnavailable, "maintenance"},
	{service.ErrValidation, http.StatusBadRequest, "validation"},
	{domain.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition"},
	{domain.ErrTripNotInProgress, http.StatusBadRequest, "trip_not_in_progress"},
	{domain.ErrAlreadyConfirmed, http.StatusBadRequest, "already_confirmed"},
	{domain.ErrTripTerminal, http.StatusBadRequest, "trip_terminal"},
	{domain.ErrVehicleRequired, http.StatusBadRequest, "validation"},
	{service.ErrVehicleUnavailable, http.StatusBadRequest, "vehicle_unavailable"},
	{service.ErrDriverUnavailable, http.StatusBadRequest, "driver_unavailable"},
	{service.ErrConflict, http.StatusBadRequest, "conflict"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrActorNotPermitted, http.StatusForbidden, "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
}

// respondError sends an error response with the appropriate HTTP status code.
// Unmapped errors are reported as internal without their message.
func respondError(c *gin.Context, err error) {
	status, code := mapError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
		_ = c.Error(err)
	}
	c.JSON(status, ErrorResponse{OK: false, Error: msg, Code: code})
}

// respondJSON sends a success envelope merged with data.
func respondJSON(c *gin.Context, status int, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// mapError maps service, domain and repository errors to an HTTP status
// and a stable error code.
func mapError(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
