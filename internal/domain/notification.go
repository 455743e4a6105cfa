package domain

import "time"

// NotificationCategory is the recipient class of a notification.
type NotificationCategory string

const (
	CategoryDriver   NotificationCategory = "driver"
	CategoryCustomer NotificationCategory = "customer"
	CategoryCompany  NotificationCategory = "company"
)

// NotificationType tags what happened.
type NotificationType string

const (
	NotificationTripCreated       NotificationType = "trip_created"
	NotificationTripAssigned      NotificationType = "trip_assigned"
	NotificationTripReassigned    NotificationType = "trip_reassigned"
	NotificationTripUnassigned    NotificationType = "trip_unassigned"
	NotificationTripStatusChanged NotificationType = "trip_status_changed"
	NotificationTripConfirmed     NotificationType = "trip_confirmed"
)

// Notification is one inbox entry per (recipient, event). Only Read is
// ever mutated after creation.
type Notification struct {
	ID          string
	RecipientID string
	Category    NotificationCategory
	Type        NotificationType
	Message     string
	TripID      *string
	Read        bool
	CreatedAt   time.Time
}

// NotificationMessage is the payload handed to the dispatcher.
type NotificationMessage struct {
	Type     NotificationType
	Message  string
	TripID   string
	Category NotificationCategory
}

// AuditEntry records a successful state-changing action.
type AuditEntry struct {
	ID        string
	ActorID   string
	ActorRole Role
	Action    string
	TripID    string
	Details   map[string]any
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Audit action names.
const (
	AuditTripCreated       = "trip.created"
	AuditTripAssigned      = "trip.assigned"
	AuditTripStatusChanged = "trip.status_changed"
	AuditTripConfirmed     = "trip.confirmed"
	AuditMaintenanceToggle = "platform.maintenance"
)
