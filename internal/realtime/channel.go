// Package realtime addresses push events to users, trip rooms and company rooms.
package realtime

import (
	"context"
	"strings"
)

// Push event names.
const (
	EventTripStatusUpdate    = "trip:status_update"
	EventTripLocationUpdate  = "trip:location_update"
	EventDriverStatusChanged = "trip:driver_status_changed"
	EventNotificationNew     = "driver:notification:new"
)

// Target is a push address: "user:<id>", "trip:<id>" or "company:<id>".
type Target string

// UserTarget addresses a single user's private channel.
func UserTarget(id string) Target { return Target("user:" + id) }

// TripTarget addresses everyone watching a trip.
func TripTarget(id string) Target { return Target("trip:" + id) }

// CompanyTarget addresses everyone watching a company.
func CompanyTarget(id string) Target { return Target("company:" + id) }

// Kind returns the prefix of the target.
func (t Target) Kind() string {
	kind, _, _ := strings.Cut(string(t), ":")
	return kind
}

// ID returns the addressed id.
func (t Target) ID() string {
	_, id, _ := strings.Cut(string(t), ":")
	return id
}

// Message is one published event.
type Message struct {
	Target  Target `json:"target"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Channel publishes events to a target.
type Channel interface {
	Publish(ctx context.Context, target Target, event string, payload any) error
}

// NopChannel discards everything.
type NopChannel struct{}

// Publish implements Channel.
func (NopChannel) Publish(context.Context, Target, string, any) error { return nil }

var _ Channel = NopChannel{}
