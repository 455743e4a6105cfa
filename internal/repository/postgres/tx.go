package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dispatch/internal/repository"
)

// Transactor is a PostgreSQL implementation of repository.Transactor.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new PostgreSQL transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn against trip, driver and vehicle repositories built on
// one *sql.Tx.
func (t *Transactor) WithinTx(ctx context.Context, fn func(repository.Stores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(repository.Stores{
		Trips:    NewTripRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
		Vehicles: NewVehicleRepositoryWithTx(tx),
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ensure Transactor implements repository.Transactor.
var _ repository.Transactor = (*Transactor)(nil)
