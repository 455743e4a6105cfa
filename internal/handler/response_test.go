package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{service.ErrMaintenanceMode, http.StatusServiceUnavailable, "maintenance"},
		{fmt.Errorf("%w: bad limit", service.ErrValidation), http.StatusBadRequest, "validation"},
		{fmt.Errorf("%w: pending -> delivered", domain.ErrInvalidTransition), http.StatusBadRequest, "invalid_transition"},
		{domain.ErrAlreadyConfirmed, http.StatusBadRequest, "already_confirmed"},
		{domain.ErrVehicleRequired, http.StatusBadRequest, "validation"},
		{service.ErrVehicleUnavailable, http.StatusBadRequest, "vehicle_unavailable"},
		{service.ErrConflict, http.StatusBadRequest, "conflict"},
		{fmt.Errorf("%w: other company", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{domain.ErrActorNotPermitted, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: trip 1", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{repository.ErrNotFound, http.StatusNotFound, "not_found"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range cases {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "internal error", body.Error)
	assert.Equal(t, "internal", body.Code)
	require.Len(t, c.Errors, 1)
}

func TestRespondError_KeepsClientMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, fmt.Errorf("%w: customerId is required", service.ErrValidation))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "customerId is required")
	assert.Empty(t, c.Errors)
}

func TestRespondJSON_MergesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondJSON(c, http.StatusCreated, gin.H{"count": 3})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ok":true,"count":3}`, w.Body.String())
}
