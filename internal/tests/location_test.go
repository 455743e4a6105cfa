package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// DRIVER LOCATION EDGE CASES
// ──────────────────────────────────────────────

func TestRecordLocation_UpdatesRouteLiveIndexAndRooms(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	trip := createInProgress(t, env)

	point, err := env.Service.RecordLocation(ctx, DriverActor(DriverOne), trip.ID, 1.3521, 103.8198)
	require.NoError(t, err)
	assert.Equal(t, 1.3521, point.Lat)
	assert.False(t, point.RecordedAt.IsZero())

	assert.Equal(t, 1, env.Trips.RouteLen(trip.ID))
	assert.Equal(t, int32(1), env.Live.UpdateLocationCallCount)
	assert.True(t, env.Live.HasLocation(trip.ID))
	assert.Len(t, env.Channel.Find(realtime.TripTarget(trip.ID), realtime.EventTripLocationUpdate), 1)
	assert.Len(t, env.Channel.Find(realtime.CompanyTarget(CompanyID), realtime.EventTripLocationUpdate), 1)

	last, err := env.Service.LastLocation(ctx, Customer, trip.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 103.8198, last.Lng)
}

func TestRecordLocation_InvalidCoordinatesRejected(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createInProgress(t, env)

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude too high", 90.1, 0},
		{"latitude too low", -90.1, 0},
		{"longitude too high", 0, 180.5},
		{"longitude too low", 0, -181},
	}
	for _, tc := range cases {
		_, err := env.Service.RecordLocation(context.Background(), DriverActor(DriverOne), trip.ID, tc.lat, tc.lng)
		assert.ErrorIs(t, err, service.ErrValidation, tc.name)
	}
	assert.Equal(t, 0, env.Trips.RouteLen(trip.ID))
	assert.Equal(t, int32(0), env.Trips.AppendCallCount)
}

func TestRecordLocation_OnlyAssignedDriver(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	trip := createInProgress(t, env)

	_, err := env.Service.RecordLocation(ctx, DriverActor(DriverTwo), trip.ID, 1, 1)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = env.Service.RecordLocation(ctx, Company, trip.ID, 1, 1)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = env.Service.RecordLocation(ctx, DriverActor(DriverOther), trip.ID, 1, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, 0, env.Trips.RouteLen(trip.ID))
}

func TestRecordLocation_LiveIndexFailureStillRecords(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	env.Live.UpdateLocationError = ErrMockTimeout
	trip := createInProgress(t, env)

	_, err := env.Service.RecordLocation(context.Background(), DriverActor(DriverOne), trip.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Trips.RouteLen(trip.ID))
}

func TestRecordLocation_ConcurrentWritersAllAppend(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	trip := createInProgress(t, env)

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.Service.RecordLocation(ctx, DriverActor(DriverOne), trip.ID, float64(i)/100, 103)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, writers, env.Trips.RouteLen(trip.ID))

	route, err := env.Service.RouteHistory(ctx, Manager, trip.ID)
	require.NoError(t, err)
	assert.Len(t, route, writers)
}

func TestRouteHistory_RequiresVisibility(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createInProgress(t, env)

	_, err := env.Service.RouteHistory(context.Background(), domain.Actor{ID: "customer-2", Role: domain.RoleCustomer, CompanyID: CompanyID}, trip.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
