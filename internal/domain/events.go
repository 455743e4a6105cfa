package domain

import "time"

// TripEventKind names a committed trip change.
type TripEventKind string

const (
	TripEventCreated           TripEventKind = "created"
	TripEventDriverAssigned    TripEventKind = "driver_assigned"
	TripEventStatusChanged     TripEventKind = "status_changed"
	TripEventDeliveryConfirmed TripEventKind = "delivery_confirmed"
)

// TripEvent describes a committed change, used for fan-out and the event log.
type TripEvent struct {
	Kind             TripEventKind
	Trip             *Trip
	PreviousDriverID string
	From             TripStatus
	Actor            Actor
	At               time.Time
}
