package service

import "errors"

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned on a role, ownership or company-scope violation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a trip, code, driver or vehicle is absent or out of scope.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a resource is busy, e.g. a vehicle under maintenance
	// or a concurrent assignment holding the trip lock.
	ErrConflict = errors.New("conflict")

	// ErrVehicleUnavailable is returned when the vehicle is already in use.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")

	// ErrDriverUnavailable is returned when the driver is not available or
	// is already working another trip.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrMaintenanceMode is returned for writes while the platform is frozen.
	ErrMaintenanceMode = errors.New("platform is in maintenance mode")

	// ErrUnauthenticated is returned when no actor could be established.
	ErrUnauthenticated = errors.New("unauthenticated")
)
