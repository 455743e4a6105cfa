package repository

import (
	"context"

	"dispatch/internal/domain"
)

// TripFilter narrows a trip listing. Empty fields match everything.
type TripFilter struct {
	CompanyID  string
	DriverID   string
	CustomerID string
	Status     domain.TripStatus
	// Active keeps only trips a driver is working on: assigned or in progress.
	Active bool
	Limit  int
}

// MutateFunc inspects and changes the freshly read trip. Returning an error
// aborts the write and leaves the stored record unchanged.
type MutateFunc func(trip *domain.Trip) error

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// List retrieves trips matching the filter, newest first.
	List(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// Mutate reads the trip, applies fn and writes the result as one atomic
	// read-check-write. Concurrent calls on the same trip are serialised.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Trip, error)

	// SetConfirmationCode stores code if the trip has none yet and returns
	// the code that ends up stored. Returns ErrCodeTaken when another trip
	// already holds code.
	SetConfirmationCode(ctx context.Context, id, code string) (string, error)

	// GetByConfirmationCode finds the trip holding code among driverID's trips.
	GetByConfirmationCode(ctx context.Context, code, driverID string) (*domain.Trip, error)

	// AppendRoutePoint adds a point to the route of a non-terminal trip
	// assigned to driverID and updates its last known location. Returns
	// ErrNotWritable if the trip is terminal or not assigned to driverID.
	AppendRoutePoint(ctx context.Context, tripID, driverID string, point domain.RoutePoint) error

	// RouteHistory returns the recorded points in insertion order.
	RouteHistory(ctx context.Context, tripID string) ([]domain.RoutePoint, error)
}
