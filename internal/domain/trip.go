package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusPending    TripStatus = "pending"
	TripStatusAssigned   TripStatus = "assigned"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusDelivered  TripStatus = "delivered"
	TripStatusCancelled  TripStatus = "cancelled"
	TripStatusDeclined   TripStatus = "declined"
)

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPending, TripStatusAssigned, TripStatusInProgress,
		TripStatusDelivered, TripStatusCancelled, TripStatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further mutation is allowed from s.
func (s TripStatus) Terminal() bool {
	return s == TripStatusDelivered || s == TripStatusCancelled
}

// Live status descriptions shown to humans.
const (
	LiveStatusWaiting              = "Waiting for driver"
	LiveStatusDriverAssigned       = "Driver assigned"
	LiveStatusOnTheWay             = "On the way"
	LiveStatusAwaitingConfirmation = "Awaiting confirmation"
	LiveStatusConfirmed            = "Delivered and confirmed"
	LiveStatusCancelled            = "Cancelled"
	LiveStatusDeclined             = "Declined by driver"
)

// Location is a pickup or dropoff point.
type Location struct {
	Address string   `validate:"required"`
	Lat     *float64 `validate:"omitempty,min=-90,max=90"`
	Lng     *float64 `validate:"omitempty,min=-180,max=180"`
}

// LineItem is a snapshot of an ordered product at trip creation.
type LineItem struct {
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"gte=1"`
}

// RoutePoint is a single recorded GPS position.
type RoutePoint struct {
	Lat        float64
	Lng        float64
	RecordedAt time.Time
}

// Trip is a single delivery from pickup to dropoff, owned by one company.
type Trip struct {
	ID         string
	CompanyID  string
	CustomerID string
	DriverID   *string
	VehicleID  *string

	Pickup  Location
	Dropoff Location

	Items         []LineItem
	DeliveryFee   float64
	TotalAmount   float64
	PaymentStatus PaymentStatus

	Status     TripStatus
	LiveStatus string
	AssignedAt *time.Time
	StartTime  *time.Time
	EndTime    *time.Time

	CustomerConfirmed bool
	ConfirmedAt       *time.Time
	ConfirmationCode  *string

	LastLocation *RoutePoint
	DeclinedBy   []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the trip reached delivered or cancelled.
func (t *Trip) IsTerminal() bool {
	return t.Status.Terminal()
}

// Driver returns the attached driver id or "".
func (t *Trip) Driver() string {
	if t.DriverID == nil {
		return ""
	}
	return *t.DriverID
}

// Vehicle returns the attached vehicle id or "".
func (t *Trip) Vehicle() string {
	if t.VehicleID == nil {
		return ""
	}
	return *t.VehicleID
}

// Code returns the confirmation code or "".
func (t *Trip) Code() string {
	if t.ConfirmationCode == nil {
		return ""
	}
	return *t.ConfirmationCode
}

// ComputeTotal sums the line items and the delivery fee.
func ComputeTotal(items []LineItem, deliveryFee float64) float64 {
	total := deliveryFee
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	c := *t
	c.DriverID = cloneString(t.DriverID)
	c.VehicleID = cloneString(t.VehicleID)
	c.ConfirmationCode = cloneString(t.ConfirmationCode)
	c.Pickup = cloneLocation(t.Pickup)
	c.Dropoff = cloneLocation(t.Dropoff)
	c.AssignedAt = cloneTime(t.AssignedAt)
	c.StartTime = cloneTime(t.StartTime)
	c.EndTime = cloneTime(t.EndTime)
	c.ConfirmedAt = cloneTime(t.ConfirmedAt)
	if t.Items != nil {
		c.Items = append([]LineItem(nil), t.Items...)
	}
	if t.DeclinedBy != nil {
		c.DeclinedBy = append([]string(nil), t.DeclinedBy...)
	}
	if t.LastLocation != nil {
		p := *t.LastLocation
		c.LastLocation = &p
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneLocation(l Location) Location {
	out := Location{Address: l.Address}
	if l.Lat != nil {
		v := *l.Lat
		out.Lat = &v
	}
	if l.Lng != nil {
		v := *l.Lng
		out.Lng = &v
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
