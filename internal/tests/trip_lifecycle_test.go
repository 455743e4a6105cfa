package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// TRIP LIFECYCLE SCENARIOS
// ──────────────────────────────────────────────

func createPending(t *testing.T, env *Env) *domain.Trip {
	t.Helper()
	trip, err := env.Service.CreateTrip(context.Background(), Company, NewTripRequest())
	require.NoError(t, err)
	require.Equal(t, domain.TripStatusPending, trip.Status)
	return trip
}

func createAssigned(t *testing.T, env *Env) *domain.Trip {
	t.Helper()
	trip := createPending(t, env)
	trip, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{
		DriverID:  DriverOne,
		VehicleID: VehicleOne,
	})
	require.NoError(t, err)
	return trip
}

func createInProgress(t *testing.T, env *Env) *domain.Trip {
	t.Helper()
	trip := createAssigned(t, env)
	trip, err := env.Service.UpdateStatus(context.Background(), DriverActor(DriverOne), trip.ID, service.UpdateStatusRequest{
		Status: domain.TripStatusInProgress,
	})
	require.NoError(t, err)
	return trip
}

func notificationTypes(ns []domain.Notification) []domain.NotificationType {
	out := make([]domain.NotificationType, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Type)
	}
	return out
}

func TestScenario_AssignThenReassign(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createAssigned(t, env)
	assert.Equal(t, domain.TripStatusAssigned, trip.Status)
	assert.Equal(t, DriverOne, trip.Driver())
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))
	assert.NotNil(t, trip.AssignedAt)

	trip, err := env.Service.AssignDriver(ctx, Company, trip.ID, service.AssignRequest{DriverID: DriverTwo})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusAssigned, trip.Status)
	assert.Equal(t, DriverTwo, trip.Driver())
	assert.Equal(t, VehicleOne, trip.Vehicle())
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))

	assert.Contains(t, notificationTypes(env.Notifications.ForRecipient(DriverOne)), domain.NotificationTripUnassigned)
	assert.Equal(t, []domain.NotificationType{domain.NotificationTripReassigned},
		notificationTypes(env.Notifications.ForRecipient(DriverTwo)))

	changes := env.Channel.Find(realtime.TripTarget(trip.ID), realtime.EventDriverStatusChanged)
	require.Len(t, changes, 2)
	last := changes[1].Payload.(realtime.DriverChangePayload)
	assert.Equal(t, DriverTwo, last.DriverID)
	assert.Equal(t, DriverOne, last.PreviousDriverID)
	assert.False(t, env.Locks.IsLocked(trip.ID))
}

func TestScenario_ConfirmBeforeStartFails(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createAssigned(t, env)
	qr, err := env.Service.IssueCode(ctx, Customer, trip.ID)
	require.NoError(t, err)

	_, err = env.Service.ConfirmByCode(ctx, DriverActor(DriverOne), qr.Code)
	assert.ErrorIs(t, err, domain.ErrTripNotInProgress)
	assert.False(t, env.Trips.GetTrip(trip.ID).CustomerConfirmed)
}

func TestScenario_ConfirmInProgressThenRepeat(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createInProgress(t, env)
	qr, err := env.Service.IssueCode(ctx, Customer, trip.ID)
	require.NoError(t, err)

	confirmed, err := env.Service.ConfirmByCode(ctx, DriverActor(DriverOne), qr.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDelivered, confirmed.Status)
	assert.True(t, confirmed.CustomerConfirmed)
	assert.NotNil(t, confirmed.ConfirmedAt)
	assert.NotNil(t, confirmed.EndTime)
	assert.Equal(t, domain.PaymentStatusPending, confirmed.PaymentStatus)
	assert.Equal(t, domain.LiveStatusConfirmed, confirmed.LiveStatus)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))

	_, err = env.Service.ConfirmByCode(ctx, DriverActor(DriverOne), qr.Code)
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
	assert.Contains(t, env.Audit.Actions(), domain.AuditTripConfirmed)
	assert.Contains(t, env.Publisher.Kinds(), domain.TripEventDeliveryConfirmed)
}

func TestScenario_RecordAfterDeliveryRejected(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	driver := DriverActor(DriverOne)

	trip := createInProgress(t, env)
	_, err := env.Service.RecordLocation(ctx, driver, trip.ID, 1.30, 103.80)
	require.NoError(t, err)
	require.Equal(t, 1, env.Trips.RouteLen(trip.ID))

	_, err = env.Service.UpdateStatus(ctx, driver, trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusDelivered})
	require.NoError(t, err)
	assert.False(t, env.Live.HasLocation(trip.ID))

	_, err = env.Service.RecordLocation(ctx, driver, trip.ID, 1.31, 103.81)
	assert.ErrorIs(t, err, domain.ErrTripTerminal)
	assert.Equal(t, 1, env.Trips.RouteLen(trip.ID))
}

func TestScenario_ConcurrentDeliveredOnlyOneWins(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	trip := createInProgress(t, env)

	actors := []domain.Actor{DriverActor(DriverOne), Company}
	results := make([]*domain.Trip, len(actors))
	errs := make([]error, len(actors))

	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor domain.Actor) {
			defer wg.Done()
			results[i], errs[i] = env.Service.UpdateStatus(ctx, actor, trip.ID, service.UpdateStatusRequest{
				Status: domain.TripStatusDelivered,
			})
		}(i, actor)
	}
	wg.Wait()

	wins := 0
	var winner *domain.Trip
	for i, err := range errs {
		if err == nil {
			wins++
			winner = results[i]
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
	require.Equal(t, 1, wins)

	stored := env.Trips.GetTrip(trip.ID)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, *winner.EndTime, *stored.EndTime)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
}

func TestTrip_TerminalIsImmutable(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createAssigned(t, env)
	_, err := env.Service.UpdateStatus(ctx, Manager, trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusCancelled})
	require.NoError(t, err)
	before := env.Trips.GetTrip(trip.ID)
	assert.Equal(t, domain.LiveStatusCancelled, before.LiveStatus)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))

	for _, to := range []domain.TripStatus{
		domain.TripStatusPending, domain.TripStatusAssigned, domain.TripStatusInProgress,
		domain.TripStatusDelivered, domain.TripStatusCancelled, domain.TripStatusDeclined,
	} {
		_, err := env.Service.UpdateStatus(ctx, Company, trip.ID, service.UpdateStatusRequest{Status: to})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "to %s", to)
	}
	_, err = env.Service.AssignDriver(ctx, Company, trip.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleTwo})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleTwo))
	assert.Equal(t, before, env.Trips.GetTrip(trip.ID))
}

func TestTrip_SkippingStatesRejected(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createAssigned(t, env)
	_, err := env.Service.UpdateStatus(ctx, DriverActor(DriverOne), trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusDelivered})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.TripStatusAssigned, env.Trips.GetTrip(trip.ID).Status)
}

func TestTrip_OnlyAssignedDriverStarts(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createAssigned(t, env)
	_, err := env.Service.UpdateStatus(ctx, Company, trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusInProgress})
	assert.ErrorIs(t, err, domain.ErrActorNotPermitted)

	// Another driver cannot even see the trip.
	_, err = env.Service.UpdateStatus(ctx, DriverActor(DriverTwo), trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusInProgress})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTrip_DeclineThenReassign(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	req := NewTripRequest()
	req.DriverID = DriverOne
	offered, err := env.Service.CreateTrip(ctx, Company, req)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPending, offered.Status)
	assert.Equal(t, DriverOne, offered.Driver())

	declined, err := env.Service.UpdateStatus(ctx, DriverActor(DriverOne), offered.ID, service.UpdateStatusRequest{Status: domain.TripStatusDeclined})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDeclined, declined.Status)
	assert.Empty(t, declined.Driver())
	assert.Equal(t, []string{DriverOne}, declined.DeclinedBy)
	assert.Equal(t, domain.LiveStatusDeclined, declined.LiveStatus)

	assigned, err := env.Service.AssignDriver(ctx, Manager, offered.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleTwo})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusAssigned, assigned.Status)
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleTwo))
}

func TestTrip_ReassignWithNewVehicleReleasesOld(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	trip := createInProgress(t, env)
	trip, err := env.Service.AssignDriver(ctx, Company, trip.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleTwo})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusInProgress, trip.Status)
	assert.Equal(t, VehicleTwo, trip.Vehicle())
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleTwo))
}

func TestTrip_AssignSameDriverTwiceRejected(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createAssigned(t, env)

	_, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{DriverID: DriverOne})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTrip_AssignRejectsUnusableVehicles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cases := []struct {
		name    string
		driver  string
		vehicle string
		want    error
	}{
		{"maintenance vehicle", DriverOne, VehicleRepair, service.ErrConflict},
		{"vehicle of another company", DriverOne, VehicleOther, service.ErrForbidden},
		{"driver of another company", DriverOther, VehicleOne, service.ErrForbidden},
		{"offline driver", DriverOffline, VehicleOne, service.ErrDriverUnavailable},
		{"unknown vehicle", DriverOne, "vehicle-404", service.ErrNotFound},
		{"no vehicle at all", DriverOne, "", domain.ErrVehicleRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := NewEnv()
			trip := createPending(t, env)
			_, err := env.Service.AssignDriver(ctx, Company, trip.ID, service.AssignRequest{DriverID: tc.driver, VehicleID: tc.vehicle})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, domain.TripStatusPending, env.Trips.GetTrip(trip.ID).Status)
			assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
		})
	}
}

func TestTrip_VehicleInUseByAnotherTrip(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	createAssigned(t, env)
	second := createPending(t, env)
	_, err := env.Service.AssignDriver(ctx, Company, second.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleOne})
	assert.ErrorIs(t, err, service.ErrVehicleUnavailable)
}

func TestTrip_FailedWriteReleasesClaimedVehicle(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createPending(t, env)

	env.Trips.MutateError = ErrMockTimeout
	_, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{DriverID: DriverOne, VehicleID: VehicleOne})
	assert.ErrorIs(t, err, ErrMockTimeout)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
	assert.False(t, env.Locks.IsLocked(trip.ID))
}

func TestTrip_AssignLockHeld(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createPending(t, env)

	env.Locks.ForceAcquireFailure = true
	_, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{DriverID: DriverOne, VehicleID: VehicleOne})
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, int32(0), env.Vehicles.ClaimCallCount)
}

func TestTrip_AssignProceedsWhenLockStoreDown(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createPending(t, env)

	env.Locks.AcquireError = ErrMockTimeout
	_, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{DriverID: DriverOne, VehicleID: VehicleOne})
	require.NoError(t, err)
}

func TestTrip_ConcurrentAssignmentsClaimVehicleOnce(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()

	first := createPending(t, env)
	second := createPending(t, env)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tripID := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, tripID string) {
			defer wg.Done()
			driver := DriverOne
			if i == 1 {
				driver = DriverTwo
			}
			_, errs[i] = env.Service.AssignDriver(ctx, Company, tripID, service.AssignRequest{DriverID: driver, VehicleID: VehicleOne})
		}(i, tripID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, service.ErrVehicleUnavailable), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))
}

func TestTrip_SideEffectFailuresDoNotFailRequest(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	env.Audit.CreateError = ErrMockDBConstraint
	env.Notifications.CreateError = ErrMockDBConstraint
	env.Publisher.PublishError = ErrMockTimeout

	trip, err := env.Service.CreateTrip(context.Background(), Company, NewTripRequest())
	require.NoError(t, err)
	assert.NotNil(t, env.Trips.GetTrip(trip.ID))
	assert.NotEmpty(t, env.LogHook.AllEntries())
}

func TestTrip_FailedReleaseLeavesTripAndVehicleUnchanged(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	trip := createAssigned(t, env)

	env.Vehicles.ReleaseError = ErrMockTimeout
	_, err := env.Service.UpdateStatus(ctx, Manager, trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusCancelled})
	require.ErrorIs(t, err, ErrMockTimeout)
	assert.Equal(t, domain.TripStatusAssigned, env.Trips.GetTrip(trip.ID).Status)
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))
	assert.NotContains(t, env.Publisher.Kinds(), domain.TripEventStatusChanged)

	// The cancel can be retried once the vehicle store recovers.
	env.Vehicles.ReleaseError = nil
	cancelled, err := env.Service.UpdateStatus(ctx, Manager, trip.ID, service.UpdateStatusRequest{Status: domain.TripStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))

	next := createPending(t, env)
	_, err = env.Service.AssignDriver(ctx, Company, next.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleOne})
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))
}

func TestTrip_FailedReleaseOnReassignKeepsBothVehicles(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	trip := createInProgress(t, env)

	env.Vehicles.ReleaseError = ErrMockTimeout
	_, err := env.Service.AssignDriver(context.Background(), Company, trip.ID, service.AssignRequest{DriverID: DriverTwo, VehicleID: VehicleTwo})
	require.ErrorIs(t, err, ErrMockTimeout)

	stored := env.Trips.GetTrip(trip.ID)
	assert.Equal(t, DriverOne, stored.Driver())
	assert.Equal(t, VehicleOne, stored.Vehicle())
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleTwo))
	assert.Equal(t, int32(1), env.Tx.RollbackCount)
}

func TestTrip_FailedReleaseOnConfirmKeepsCodeRedeemable(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	driver := DriverActor(DriverOne)
	trip := createInProgress(t, env)

	qr, err := env.Service.IssueCode(ctx, Customer, trip.ID)
	require.NoError(t, err)

	env.Vehicles.ReleaseError = ErrMockTimeout
	_, err = env.Service.ConfirmByCode(ctx, driver, qr.Code)
	require.ErrorIs(t, err, ErrMockTimeout)
	stored := env.Trips.GetTrip(trip.ID)
	assert.False(t, stored.CustomerConfirmed)
	assert.Equal(t, domain.TripStatusInProgress, stored.Status)
	assert.Equal(t, domain.VehicleStatusInUse, env.Vehicles.Status(VehicleOne))

	env.Vehicles.ReleaseError = nil
	confirmed, err := env.Service.ConfirmByCode(ctx, driver, qr.Code)
	require.NoError(t, err)
	assert.True(t, confirmed.CustomerConfirmed)
	assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
}

func TestTrip_AssignRequiresAvailableDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("busy status", func(t *testing.T) {
		env := NewEnv()
		trip := createPending(t, env)
		_, err := env.Service.AssignDriver(ctx, Company, trip.ID, service.AssignRequest{DriverID: DriverBusy, VehicleID: VehicleOne})
		assert.ErrorIs(t, err, service.ErrDriverUnavailable)
		assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleOne))
	})

	t.Run("active on another trip", func(t *testing.T) {
		env := NewEnv()
		first := createAssigned(t, env)
		second := createPending(t, env)

		_, err := env.Service.AssignDriver(ctx, Company, second.ID, service.AssignRequest{DriverID: DriverOne, VehicleID: VehicleTwo})
		assert.ErrorIs(t, err, service.ErrDriverUnavailable)
		assert.Equal(t, domain.TripStatusPending, env.Trips.GetTrip(second.ID).Status)
		assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleTwo))

		req := NewTripRequest()
		req.DriverID = DriverOne
		req.VehicleID = VehicleTwo
		_, err = env.Service.CreateTrip(ctx, Company, req)
		assert.ErrorIs(t, err, service.ErrDriverUnavailable)
		assert.Equal(t, domain.VehicleStatusAvailable, env.Vehicles.Status(VehicleTwo))

		// Finishing the first trip frees the driver.
		_, err = env.Service.UpdateStatus(ctx, Manager, first.ID, service.UpdateStatusRequest{Status: domain.TripStatusCancelled})
		require.NoError(t, err)
		_, err = env.Service.AssignDriver(ctx, Company, second.ID, service.AssignRequest{DriverID: DriverOne, VehicleID: VehicleTwo})
		require.NoError(t, err)
	})

	t.Run("offers ignore active trips", func(t *testing.T) {
		env := NewEnv()
		createAssigned(t, env)

		req := NewTripRequest()
		req.DriverID = DriverOne
		offered, err := env.Service.CreateTrip(ctx, Company, req)
		require.NoError(t, err)
		assert.Equal(t, domain.TripStatusPending, offered.Status)
	})
}
