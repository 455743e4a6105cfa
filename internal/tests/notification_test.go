package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// NOTIFICATION FAN-OUT & INBOX
// ──────────────────────────────────────────────

func TestFanOut_ManagersResolvedThroughCache(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	env.Directory.SetManagers(CompanyID, ManagerID, "manager-2")

	createPending(t, env)
	createPending(t, env)

	assert.Equal(t, int32(1), env.Directory.ManagerIDsCallCount)
	assert.Len(t, env.Notifications.ForRecipient(ManagerID), 2)
	assert.Len(t, env.Notifications.ForRecipient("manager-2"), 2)
	assert.Empty(t, env.Notifications.ForRecipient(CompanyID))
}

func TestFanOut_NoManagersFallsBackToOwner(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	env.Directory.SetManagers(CompanyID)

	createPending(t, env)
	owner := env.Notifications.ForRecipient(CompanyID)
	require.Len(t, owner, 1)
	assert.Equal(t, domain.CategoryCompany, owner[0].Category)
}

func TestFanOut_DirectoryFailureFallsBackToOwner(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	env.Directory.ManagerIDsError = ErrMockTimeout

	createPending(t, env)
	assert.Len(t, env.Notifications.ForRecipient(CustomerID), 1)
	assert.Len(t, env.Notifications.ForRecipient(CompanyID), 1)
}

func TestFanOut_PushesToRecipientChannel(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	createPending(t, env)

	pushed := env.Channel.Find(realtime.UserTarget(CustomerID), realtime.EventNotificationNew)
	require.Len(t, pushed, 1)
	payload := pushed[0].Payload.(realtime.NotificationPayload)
	assert.Equal(t, string(domain.CategoryCustomer), payload.Category)
	assert.Equal(t, string(domain.NotificationTripCreated), payload.Type)
}

func TestFanOut_CustomerFollowsProgress(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	createInProgress(t, env)

	types := notificationTypes(env.Notifications.ForRecipient(CustomerID))
	assert.Equal(t, []domain.NotificationType{domain.NotificationTripCreated, domain.NotificationTripStatusChanged}, types)
}

func TestInbox_ListCountAndMarkRead(t *testing.T) {
	t.Parallel()
	env := NewEnv()
	ctx := context.Background()
	driver := DriverActor(DriverOne)
	createInProgress(t, env)
	offer := NewTripRequest()
	offer.DriverID = DriverOne
	_, err := env.Service.CreateTrip(ctx, Company, offer)
	require.NoError(t, err)

	count, err := env.Inbox.UnreadCount(ctx, driver)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	list, err := env.Inbox.List(ctx, driver, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, env.Inbox.MarkRead(ctx, driver, list[0].ID))
	count, err = env.Inbox.UnreadCount(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = env.Inbox.MarkRead(ctx, DriverActor(DriverTwo), list[1].ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	changed, err := env.Inbox.MarkAllRead(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	unread, err := env.Inbox.List(ctx, driver, true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := env.Inbox.List(ctx, driver, false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInbox_RequiresActor(t *testing.T) {
	t.Parallel()
	env := NewEnv()

	_, err := env.Inbox.List(context.Background(), domain.Actor{}, false, 10)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}
