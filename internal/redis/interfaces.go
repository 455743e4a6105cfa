package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for live trip location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, p LivePoint) error
	GetLocation(ctx context.Context, tripID string) (*LivePoint, error)
	RemoveLocation(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseTripLock(ctx context.Context, tripID, token string) (released bool, err error)
}

// ManagerCacheInterface defines the interface for cached company managers.
type ManagerCacheInterface interface {
	GetManagerIDs(ctx context.Context, companyID string) ([]string, bool, error)
	SetManagerIDs(ctx context.Context, companyID string, ids []string) error
}

// MaintenanceFlagInterface defines the interface for the platform write freeze.
type MaintenanceFlagInterface interface {
	Enabled(ctx context.Context) (bool, error)
	Set(ctx context.Context, enabled bool) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface   = (*LocationStore)(nil)
	_ LockStoreInterface       = (*LockStore)(nil)
	_ ManagerCacheInterface    = (*CacheStore)(nil)
	_ MaintenanceFlagInterface = (*MaintenanceFlag)(nil)
)
