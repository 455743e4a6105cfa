package domain

import (
	"fmt"
	"time"
)

// allowedTransitions is the trip status flow. Assignment into assigned goes
// through Assign, never through ApplyTransition.
var allowedTransitions = map[TripStatus][]TripStatus{
	TripStatusPending:    {TripStatusAssigned, TripStatusDeclined, TripStatusCancelled},
	TripStatusDeclined:   {TripStatusAssigned, TripStatusCancelled},
	TripStatusAssigned:   {TripStatusInProgress, TripStatusCancelled},
	TripStatusInProgress: {TripStatusDelivered, TripStatusCancelled},
}

// CanTransition reports whether from -> to appears in the status flow.
func CanTransition(from, to TripStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Effect describes what a lifecycle change did to a trip and which
// collaborating records must follow.
type Effect struct {
	From TripStatus
	To   TripStatus

	// ClaimVehicleID is the vehicle that must be marked in use.
	ClaimVehicleID string
	// ReleaseVehicleID is the vehicle that must go back to available.
	ReleaseVehicleID string

	PreviousDriverID string
	Reassigned       bool
}

// StatusChanged reports whether the effect moved the trip to a new status.
func (e Effect) StatusChanged() bool {
	return e.From != e.To
}

// ApplyTransition validates and applies a status change on t. t must be the
// freshly read authoritative record; on error t is left untouched.
func ApplyTransition(t *Trip, to TripStatus, actor Actor, liveStatus string, now time.Time) (Effect, error) {
	from := t.Status
	if from.Terminal() {
		return Effect{}, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, from)
	}
	if to == TripStatusAssigned || !CanTransition(from, to) {
		return Effect{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if err := checkTransitionActor(t, to, actor); err != nil {
		return Effect{}, err
	}

	eff := Effect{From: from, To: to, PreviousDriverID: t.Driver()}
	switch to {
	case TripStatusDeclined:
		t.DeclinedBy = append(t.DeclinedBy, actor.ID)
		t.DriverID = nil
		if t.VehicleID != nil {
			eff.ReleaseVehicleID = *t.VehicleID
			t.VehicleID = nil
		}
		t.LiveStatus = LiveStatusDeclined
	case TripStatusInProgress:
		if t.StartTime == nil {
			t.StartTime = TimePtr(now)
		}
		t.LiveStatus = LiveStatusOnTheWay
	case TripStatusDelivered:
		if t.EndTime == nil {
			t.EndTime = TimePtr(now)
		}
		eff.ReleaseVehicleID = t.Vehicle()
		t.LiveStatus = LiveStatusAwaitingConfirmation
	case TripStatusCancelled:
		if t.EndTime == nil {
			t.EndTime = TimePtr(now)
		}
		eff.ReleaseVehicleID = t.Vehicle()
		t.LiveStatus = LiveStatusCancelled
	}
	if liveStatus != "" {
		t.LiveStatus = liveStatus
	}
	t.Status = to
	t.UpdatedAt = now
	return eff, nil
}

func checkTransitionActor(t *Trip, to TripStatus, actor Actor) error {
	isTripDriver := actor.Role == RoleDriver && t.DriverID != nil && *t.DriverID == actor.ID
	var ok bool
	switch to {
	case TripStatusDeclined:
		ok = isTripDriver
	case TripStatusInProgress:
		ok = isTripDriver
	case TripStatusDelivered, TripStatusCancelled:
		ok = isTripDriver || actor.IsStaff()
	}
	if !ok {
		return fmt.Errorf("%w: %s may not move trip to %s", ErrActorNotPermitted, actor.Role, to)
	}
	return nil
}

// Assign attaches driverID and vehicleID to t. A pending or declined trip
// moves to assigned; an assigned or in-progress trip keeps its status and
// swaps the driver. An empty vehicleID keeps the current vehicle.
func Assign(t *Trip, driverID, vehicleID string, actor Actor, now time.Time) (Effect, error) {
	if !actor.IsStaff() {
		return Effect{}, fmt.Errorf("%w: %s may not assign drivers", ErrActorNotPermitted, actor.Role)
	}
	from := t.Status
	if from.Terminal() {
		return Effect{}, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, from)
	}
	if driverID == "" {
		return Effect{}, fmt.Errorf("%w: driver is required", ErrInvalidTransition)
	}

	current := t.Vehicle()
	next := vehicleID
	if next == "" {
		next = current
	}
	if next == "" {
		return Effect{}, ErrVehicleRequired
	}
	previous := t.Driver()
	if (from == TripStatusAssigned || from == TripStatusInProgress) && previous == driverID && next == current {
		return Effect{}, fmt.Errorf("%w: trip already assigned to driver %s", ErrInvalidTransition, driverID)
	}

	eff := Effect{From: from, To: from, PreviousDriverID: previous}
	if previous != "" && previous != driverID {
		eff.Reassigned = true
	}
	if next != current {
		eff.ClaimVehicleID = next
		eff.ReleaseVehicleID = current
	}

	switch from {
	case TripStatusPending, TripStatusDeclined:
		eff.To = TripStatusAssigned
		t.Status = TripStatusAssigned
		t.LiveStatus = LiveStatusDriverAssigned
	case TripStatusAssigned:
		t.LiveStatus = LiveStatusDriverAssigned
	}
	t.DriverID = StringPtr(driverID)
	t.VehicleID = StringPtr(next)
	t.AssignedAt = TimePtr(now)
	t.UpdatedAt = now
	return eff, nil
}

// Offer attaches a driver to a pending trip without a vehicle. The trip
// stays pending until a staff member assigns a vehicle or the driver declines.
func Offer(t *Trip, driverID string, now time.Time) error {
	if t.Status != TripStatusPending && t.Status != TripStatusDeclined {
		return fmt.Errorf("%w: cannot offer a trip that is %s", ErrInvalidTransition, t.Status)
	}
	t.Status = TripStatusPending
	t.DriverID = StringPtr(driverID)
	t.LiveStatus = LiveStatusWaiting
	t.UpdatedAt = now
	return nil
}

// Confirm records the customer's receipt of the delivery. A trip in progress
// moves to delivered; a trip already marked delivered by the driver is
// completed without a status change.
func Confirm(t *Trip, now time.Time) (Effect, error) {
	if t.CustomerConfirmed {
		return Effect{}, ErrAlreadyConfirmed
	}
	eff := Effect{From: t.Status, To: TripStatusDelivered, PreviousDriverID: t.Driver()}
	switch t.Status {
	case TripStatusPending, TripStatusAssigned, TripStatusDeclined:
		return Effect{}, fmt.Errorf("%w: trip is %s", ErrTripNotInProgress, t.Status)
	case TripStatusCancelled:
		return Effect{}, fmt.Errorf("%w: trip is cancelled", ErrInvalidTransition)
	case TripStatusInProgress:
		eff.ReleaseVehicleID = t.Vehicle()
	}

	if t.EndTime == nil {
		t.EndTime = TimePtr(now)
	}
	t.Status = TripStatusDelivered
	t.CustomerConfirmed = true
	t.ConfirmedAt = TimePtr(now)
	t.LiveStatus = LiveStatusConfirmed
	if t.PaymentStatus == "" || t.PaymentStatus == PaymentStatusUnpaid {
		t.PaymentStatus = PaymentStatusPending
	}
	t.UpdatedAt = now
	return eff, nil
}
