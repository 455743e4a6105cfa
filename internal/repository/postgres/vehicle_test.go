package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

func TestVehicleRepository_Claim(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVehicleRepository(db)

	mock.ExpectExec("UPDATE vehicles").
		WithArgs("vehicle-1", "in_use", "available").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Claim(context.Background(), "vehicle-1"))

	mock.ExpectExec("UPDATE vehicles").
		WithArgs("vehicle-1", "in_use", "available").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Claim(context.Background(), "vehicle-1"), repository.ErrVehicleNotAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_ReleaseIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVehicleRepository(db)

	mock.ExpectExec("UPDATE vehicles").
		WithArgs("vehicle-1", "available", "in_use").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, repo.Release(context.Background(), "vehicle-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVehicleRepository(db)

	mock.ExpectQuery("FROM vehicles WHERE id").
		WithArgs("vehicle-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "plate_number", "status", "updated_at"}).
			AddRow("vehicle-1", "company-1", "B 1234 XY", "maintenance", fixedNow))

	v, err := repo.GetByID(context.Background(), "vehicle-1")
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusMaintenance, v.Status)
	assert.Equal(t, "B 1234 XY", v.PlateNumber)
}

func TestUserRepository_ManagerIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE company_id").
		WithArgs("company-1", "manager").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1").AddRow("m2"))

	ids, err := repo.ManagerIDs(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE id").
		WithArgs("n1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkRead(context.Background(), "user-1", "n1"), repository.ErrNotFound)

	mock.ExpectExec("UPDATE notifications SET read = TRUE WHERE recipient_id").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := repo.MarkAllRead(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
