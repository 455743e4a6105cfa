package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVehicleNotAvailable is returned when claiming a vehicle that is not available.
	ErrVehicleNotAvailable = errors.New("vehicle not available")

	// ErrCodeTaken is returned when a confirmation code is already used by another trip.
	ErrCodeTaken = errors.New("confirmation code already in use")

	// ErrNotWritable is returned when a conditional write matched no row.
	ErrNotWritable = errors.New("entity not writable")
)
