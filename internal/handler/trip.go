package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/middleware"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// LocationBody is a pickup or dropoff point.
type LocationBody struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// PointBody is a recorded GPS point.
type PointBody struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// TripResponse is the HTTP representation of a trip.
type TripResponse struct {
	ID                string            `json:"id"`
	CompanyID         string            `json:"companyId"`
	CustomerID        string            `json:"customerId"`
	DriverID          *string           `json:"driverId"`
	VehicleID         *string           `json:"vehicleId"`
	Pickup            LocationBody      `json:"pickup"`
	Dropoff           LocationBody      `json:"dropoff"`
	Items             []domain.LineItem `json:"items"`
	DeliveryFee       float64           `json:"deliveryFee"`
	TotalAmount       float64           `json:"totalAmount"`
	PaymentStatus     string            `json:"paymentStatus"`
	Status            string            `json:"status"`
	LiveStatus        string            `json:"liveStatus"`
	AssignedAt        *time.Time        `json:"assignedAt,omitempty"`
	StartTime         *time.Time        `json:"startTime,omitempty"`
	EndTime           *time.Time        `json:"endTime,omitempty"`
	CustomerConfirmed bool              `json:"customerConfirmed"`
	ConfirmedAt       *time.Time        `json:"confirmedAt,omitempty"`
	LastLocation      *PointBody        `json:"lastLocation,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func newTripResponse(t *domain.Trip) TripResponse {
	items := t.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return TripResponse{
		ID:                t.ID,
		CompanyID:         t.CompanyID,
		CustomerID:        t.CustomerID,
		DriverID:          t.DriverID,
		VehicleID:         t.VehicleID,
		Pickup:            LocationBody(t.Pickup),
		Dropoff:           LocationBody(t.Dropoff),
		Items:             items,
		DeliveryFee:       t.DeliveryFee,
		TotalAmount:       t.TotalAmount,
		PaymentStatus:     string(t.PaymentStatus),
		Status:            string(t.Status),
		LiveStatus:        t.LiveStatus,
		AssignedAt:        t.AssignedAt,
		StartTime:         t.StartTime,
		EndTime:           t.EndTime,
		CustomerConfirmed: t.CustomerConfirmed,
		ConfirmedAt:       t.ConfirmedAt,
		LastLocation:      newPointBody(t.LastLocation),
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func newPointBody(p *domain.RoutePoint) *PointBody {
	if p == nil {
		return nil
	}
	return &PointBody{Lat: p.Lat, Lng: p.Lng, Timestamp: p.RecordedAt}
}

// CreateTripRequest is the HTTP request body for creating a trip.
// pickup and dropoff are accepted as short forms of pickupLocation and
// dropoffLocation.
type CreateTripRequest struct {
	CompanyID       string            `json:"companyId"`
	CustomerID      string            `json:"customerId"`
	DriverID        string            `json:"driverId"`
	VehicleID       string            `json:"vehicleId"`
	PickupLocation  *LocationBody     `json:"pickupLocation"`
	DropoffLocation *LocationBody     `json:"dropoffLocation"`
	Pickup          *LocationBody     `json:"pickup"`
	Dropoff         *LocationBody     `json:"dropoff"`
	Items           []domain.LineItem `json:"items"`
	DeliveryFee     float64           `json:"deliveryFee"`
}

func firstLocation(bodies ...*LocationBody) domain.Location {
	for _, b := range bodies {
		if b != nil {
			return domain.Location(*b)
		}
	}
	return domain.Location{}
}

// AssignRequest is the HTTP request body for assigning a driver.
type AssignRequest struct {
	DriverID  string `json:"driverId" binding:"required"`
	VehicleID string `json:"vehicleId"`
}

// UpdateStatusRequest is the HTTP request body for a status change.
type UpdateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	LiveStatus string `json:"liveStatus"`
}

// RecordLocationRequest is the HTTP request body for a GPS point.
type RecordLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// ConfirmRequest is the HTTP request body for confirming by code.
type ConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// actor returns the authenticated actor or writes a 401.
func actor(c *gin.Context) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, service.ErrUnauthenticated)
		return domain.Actor{}, false
	}
	return a, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return false
	}
	return true
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateTripRequest
	if !bind(c, &req) {
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), a, service.CreateTripRequest{
		CompanyID:   req.CompanyID,
		CustomerID:  req.CustomerID,
		DriverID:    req.DriverID,
		VehicleID:   req.VehicleID,
		Pickup:      firstLocation(req.PickupLocation, req.Pickup),
		Dropoff:     firstLocation(req.DropoffLocation, req.Dropoff),
		Items:       req.Items,
		DeliveryFee: req.DeliveryFee,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, gin.H{"trip": newTripResponse(trip)})
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	filter := repository.TripFilter{
		CompanyID:  c.Query("companyId"),
		DriverID:   c.Query("driverId"),
		CustomerID: c.Query("customerId"),
		Status:     domain.TripStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, fmt.Errorf("%w: limit must be a positive integer", service.ErrValidation))
			return
		}
		filter.Limit = limit
	}

	trips, err := h.tripService.ListTrips(c.Request.Context(), a, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, newTripResponse(t))
	}
	respondJSON(c, http.StatusOK, gin.H{"trips": out})
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	trip, err := h.tripService.GetTrip(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"trip": newTripResponse(trip)})
}

// AssignDriver handles POST /v1/trips/:id/assign
func (h *TripHandler) AssignDriver(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req AssignRequest
	if !bind(c, &req) {
		return
	}

	trip, err := h.tripService.AssignDriver(c.Request.Context(), a, c.Param("id"), service.AssignRequest{
		DriverID:  req.DriverID,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"trip": newTripResponse(trip)})
}

// UpdateStatus handles PATCH /v1/trips/:id/status
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bind(c, &req) {
		return
	}

	trip, err := h.tripService.UpdateStatus(c.Request.Context(), a, c.Param("id"), service.UpdateStatusRequest{
		Status:     domain.TripStatus(req.Status),
		LiveStatus: req.LiveStatus,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"trip": newTripResponse(trip)})
}

// RecordLocation handles PUT /v1/trips/:id/location
func (h *TripHandler) RecordLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req RecordLocationRequest
	if !bind(c, &req) {
		return
	}

	point, err := h.tripService.RecordLocation(c.Request.Context(), a, c.Param("id"), *req.Lat, *req.Lng)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"point": newPointBody(&point)})
}

// GetLocation handles GET /v1/trips/:id/location
func (h *TripHandler) GetLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	point, err := h.tripService.LastLocation(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"location": newPointBody(point)})
}

// GetRoute handles GET /v1/trips/:id/route
func (h *TripHandler) GetRoute(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	points, err := h.tripService.RouteHistory(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]PointBody, 0, len(points))
	for i := range points {
		out = append(out, *newPointBody(&points[i]))
	}
	respondJSON(c, http.StatusOK, gin.H{"route": out})
}

// GetQRCode handles GET /v1/trips/:id/qr
func (h *TripHandler) GetQRCode(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	qr, err := h.tripService.IssueCode(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"code": qr.Code, "payload": qr.Encoded})
}

// ConfirmByCode handles POST /v1/trips/confirm-by-code
func (h *TripHandler) ConfirmByCode(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req ConfirmRequest
	if !bind(c, &req) {
		return
	}

	trip, err := h.tripService.ConfirmByCode(c.Request.Context(), a, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"trip": newTripResponse(trip)})
}
