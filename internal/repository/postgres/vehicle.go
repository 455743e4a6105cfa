package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT id, company_id, plate_number, status, updated_at FROM vehicles WHERE id = $1`

	var v domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.CompanyID, &v.PlateNumber, &v.Status, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Claim marks an available vehicle as in use.
func (r *VehicleRepository) Claim(ctx context.Context, id string) error {
	query := `UPDATE vehicles SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, id, domain.VehicleStatusInUse, domain.VehicleStatusAvailable)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrVehicleNotAvailable
	}
	return nil
}

// Release marks an in-use vehicle as available. Vehicles in any other
// state are left alone.
func (r *VehicleRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE vehicles SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`
	_, err := r.q.ExecContext(ctx, query, id, domain.VehicleStatusAvailable, domain.VehicleStatusInUse)
	return err
}

// Ensure VehicleRepository implements repository.VehicleRepository.
var _ repository.VehicleRepository = (*VehicleRepository)(nil)
