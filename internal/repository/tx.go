package repository

import "context"

// Stores groups the repositories bound to one transaction.
type Stores struct {
	Trips    TripRepository
	Drivers  DriverRepository
	Vehicles VehicleRepository
}

// Transactor runs work that spans trips and vehicles as one unit.
type Transactor interface {
	// WithinTx calls fn with repositories sharing a single transaction.
	// The transaction commits if fn returns nil; any error rolls back every
	// write made through the stores.
	WithinTx(ctx context.Context, fn func(Stores) error) error
}
