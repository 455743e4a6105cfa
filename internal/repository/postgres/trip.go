package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	uniqueViolation = "23505"
)

const tripColumns = `id, company_id, customer_id, driver_id, vehicle_id,
	pickup_address, pickup_lat, pickup_lng, dropoff_address, dropoff_lat, dropoff_lng,
	items, delivery_fee, total_amount, payment_status, status, live_status,
	assigned_at, start_time, end_time, customer_confirmed, confirmed_at, confirmation_code,
	last_lat, last_lng, last_location_at, declined_by, created_at, updated_at`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	db *sql.DB
	q  Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db, q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
// Mutate runs inside the caller's transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip                           domain.Trip
		driverID, vehicleID, code      sql.NullString
		pickupLat, pickupLng           sql.NullFloat64
		dropoffLat, dropoffLng         sql.NullFloat64
		lastLat, lastLng               sql.NullFloat64
		assignedAt, startTime, endTime sql.NullTime
		confirmedAt, lastAt            sql.NullTime
		items                          []byte
		declinedBy                     []string
	)
	err := row.Scan(
		&trip.ID,
		&trip.CompanyID,
		&trip.CustomerID,
		&driverID,
		&vehicleID,
		&trip.Pickup.Address,
		&pickupLat,
		&pickupLng,
		&trip.Dropoff.Address,
		&dropoffLat,
		&dropoffLng,
		&items,
		&trip.DeliveryFee,
		&trip.TotalAmount,
		&trip.PaymentStatus,
		&trip.Status,
		&trip.LiveStatus,
		&assignedAt,
		&startTime,
		&endTime,
		&trip.CustomerConfirmed,
		&confirmedAt,
		&code,
		&lastLat,
		&lastLng,
		&lastAt,
		pq.Array(&declinedBy),
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = stringPtr(driverID)
	trip.VehicleID = stringPtr(vehicleID)
	trip.ConfirmationCode = stringPtr(code)
	trip.Pickup.Lat = floatPtr(pickupLat)
	trip.Pickup.Lng = floatPtr(pickupLng)
	trip.Dropoff.Lat = floatPtr(dropoffLat)
	trip.Dropoff.Lng = floatPtr(dropoffLng)
	trip.AssignedAt = timePtr(assignedAt)
	trip.StartTime = timePtr(startTime)
	trip.EndTime = timePtr(endTime)
	trip.ConfirmedAt = timePtr(confirmedAt)
	if len(declinedBy) > 0 {
		trip.DeclinedBy = declinedBy
	}
	if lastLat.Valid && lastLng.Valid {
		trip.LastLocation = &domain.RoutePoint{Lat: lastLat.Float64, Lng: lastLng.Float64}
		if lastAt.Valid {
			trip.LastLocation.RecordedAt = lastAt.Time
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &trip.Items); err != nil {
			return nil, fmt.Errorf("decode trip items: %w", err)
		}
	}
	return &trip, nil
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, company_id, customer_id, driver_id, vehicle_id,
			pickup_address, pickup_lat, pickup_lng, dropoff_address, dropoff_lat, dropoff_lng,
			items, delivery_fee, total_amount, payment_status, status, live_status,
			assigned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	items, err := json.Marshal(trip.Items)
	if err != nil {
		return fmt.Errorf("encode trip items: %w", err)
	}
	if trip.Items == nil {
		items = []byte("[]")
	}

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		trip.CompanyID,
		trip.CustomerID,
		nullString(trip.DriverID),
		nullString(trip.VehicleID),
		trip.Pickup.Address,
		nullFloat(trip.Pickup.Lat),
		nullFloat(trip.Pickup.Lng),
		trip.Dropoff.Address,
		nullFloat(trip.Dropoff.Lat),
		nullFloat(trip.Dropoff.Lng),
		items,
		trip.DeliveryFee,
		trip.TotalAmount,
		trip.PaymentStatus,
		trip.Status,
		trip.LiveStatus,
		nullTime(trip.AssignedAt),
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// List retrieves trips matching the filter, newest first.
func (r *TripRepository) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("company_id", filter.CompanyID)
	add("driver_id", filter.DriverID)
	add("customer_id", filter.CustomerID)
	add("status", string(filter.Status))
	if filter.Active {
		where = append(where, "status IN ('assigned', 'in_progress')")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// Mutate locks the trip row, applies fn to the locked copy and writes the
// result before releasing the lock.
func (r *TripRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*domain.Trip, error) {
	if r.db == nil {
		return r.mutate(ctx, r.q, id, fn)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin trip mutation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	trip, err := r.mutate(ctx, tx, id, fn)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit trip mutation: %w", err)
	}
	return trip, nil
}

func (r *TripRepository) mutate(ctx context.Context, q Querier, id string, fn repository.MutateFunc) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if err := fn(trip); err != nil {
		return nil, err
	}

	update := `
		UPDATE trips
		SET driver_id = $2, vehicle_id = $3, status = $4, live_status = $5, payment_status = $6,
			assigned_at = $7, start_time = $8, end_time = $9, customer_confirmed = $10,
			confirmed_at = $11, declined_by = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, update,
		trip.ID,
		nullString(trip.DriverID),
		nullString(trip.VehicleID),
		trip.Status,
		trip.LiveStatus,
		trip.PaymentStatus,
		nullTime(trip.AssignedAt),
		nullTime(trip.StartTime),
		nullTime(trip.EndTime),
		trip.CustomerConfirmed,
		nullTime(trip.ConfirmedAt),
		pq.Array(declined(trip.DeclinedBy)),
		trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return trip, nil
}

func declined(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// SetConfirmationCode stores code unless the trip already has one, then
// returns whichever code is stored.
func (r *TripRepository) SetConfirmationCode(ctx context.Context, id, code string) (string, error) {
	update := `UPDATE trips SET confirmation_code = $2 WHERE id = $1 AND confirmation_code IS NULL`
	if _, err := r.q.ExecContext(ctx, update, id, code); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", repository.ErrCodeTaken
		}
		return "", err
	}

	var stored sql.NullString
	err := r.q.QueryRowContext(ctx, `SELECT confirmation_code FROM trips WHERE id = $1`, id).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	if !stored.Valid {
		return "", repository.ErrNotWritable
	}
	return stored.String, nil
}

// GetByConfirmationCode finds the trip holding code among driverID's trips.
func (r *TripRepository) GetByConfirmationCode(ctx context.Context, code, driverID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE confirmation_code = $1 AND driver_id = $2`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, code, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// AppendRoutePoint inserts one point and updates the last known location
// in a single statement. The guard on driver and status is evaluated
// against the current row, so a concurrent cancellation wins.
func (r *TripRepository) AppendRoutePoint(ctx context.Context, tripID, driverID string, point domain.RoutePoint) error {
	query := `
		WITH target AS (
			UPDATE trips
			SET last_lat = $3, last_lng = $4, last_location_at = $5, updated_at = $5
			WHERE id = $1 AND driver_id = $2 AND status NOT IN ('delivered', 'cancelled')
			RETURNING id
		)
		INSERT INTO trip_route_points (trip_id, lat, lng, recorded_at)
		SELECT id, $3, $4, $5 FROM target
	`

	result, err := r.q.ExecContext(ctx, query, tripID, driverID, point.Lat, point.Lng, point.RecordedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotWritable
	}
	return nil
}

// RouteHistory returns the recorded points in insertion order.
func (r *TripRepository) RouteHistory(ctx context.Context, tripID string) ([]domain.RoutePoint, error) {
	query := `SELECT lat, lng, recorded_at FROM trip_route_points WHERE trip_id = $1 ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []domain.RoutePoint{}
	for rows.Next() {
		var p domain.RoutePoint
		if err := rows.Scan(&p.Lat, &p.Lng, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
