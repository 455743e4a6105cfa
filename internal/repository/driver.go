package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverRepository defines the read operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
}

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// Claim marks an available vehicle as in use. Returns
	// ErrVehicleNotAvailable if the vehicle is not available.
	Claim(ctx context.Context, id string) error

	// Release marks a vehicle as available again. Releasing an available
	// vehicle is a no-op, so retries are safe.
	Release(ctx context.Context, id string) error
}

// UserDirectory resolves company membership.
type UserDirectory interface {
	// ManagerIDs lists the user ids of the managers of a company.
	ManagerIDs(ctx context.Context, companyID string) ([]string, error)
}
