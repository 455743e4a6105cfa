package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTripTerminal is returned when a delivered or cancelled trip is mutated.
	ErrTripTerminal = errors.New("trip is already delivered or cancelled")
	// ErrTripNotInProgress is returned when confirming a trip that has not started.
	ErrTripNotInProgress = errors.New("trip is not in progress")
	// ErrAlreadyConfirmed is returned when a delivery was already confirmed.
	ErrAlreadyConfirmed = errors.New("delivery already confirmed")
	// ErrActorNotPermitted is returned when the actor's role may not perform the change.
	ErrActorNotPermitted = errors.New("actor not permitted for this change")
	// ErrVehicleRequired is returned when assigning without a vehicle.
	ErrVehicleRequired = errors.New("vehicle is required for assignment")
)
