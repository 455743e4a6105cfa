package realtime

import (
	"time"

	"dispatch/internal/domain"
)

// TripStatusPayload accompanies trip:status_update.
type TripStatusPayload struct {
	TripID            string    `json:"tripId"`
	CompanyID         string    `json:"companyId"`
	Status            string    `json:"status"`
	LiveStatus        string    `json:"liveStatus"`
	DriverID          string    `json:"driverId,omitempty"`
	VehicleID         string    `json:"vehicleId,omitempty"`
	CustomerConfirmed bool      `json:"customerConfirmed"`
	PaymentStatus     string    `json:"paymentStatus"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewTripStatusPayload builds a TripStatusPayload from a trip.
func NewTripStatusPayload(t *domain.Trip) TripStatusPayload {
	return TripStatusPayload{
		TripID:            t.ID,
		CompanyID:         t.CompanyID,
		Status:            string(t.Status),
		LiveStatus:        t.LiveStatus,
		DriverID:          t.Driver(),
		VehicleID:         t.Vehicle(),
		CustomerConfirmed: t.CustomerConfirmed,
		PaymentStatus:     string(t.PaymentStatus),
		UpdatedAt:         t.UpdatedAt,
	}
}

// DriverChangePayload accompanies trip:driver_status_changed.
type DriverChangePayload struct {
	TripID           string `json:"tripId"`
	DriverID         string `json:"driverId"`
	PreviousDriverID string `json:"previousDriverId,omitempty"`
	VehicleID        string `json:"vehicleId,omitempty"`
	Status           string `json:"status"`
}

// LocationPayload accompanies trip:location_update.
type LocationPayload struct {
	TripID     string    `json:"tripId"`
	DriverID   string    `json:"driverId"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"timestamp"`
}

// NotificationPayload accompanies driver:notification:new.
type NotificationPayload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	TripID    *string   `json:"tripId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewNotificationPayload builds a NotificationPayload from a notification.
func NewNotificationPayload(n *domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		Category:  string(n.Category),
		Message:   n.Message,
		TripID:    n.TripID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
