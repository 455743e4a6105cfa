package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const maintenanceKey = "platform:maintenance"

// MaintenanceFlag stores the platform-wide write freeze in Redis.
type MaintenanceFlag struct {
	client   *redis.Client
	fallback bool
}

// NewMaintenanceFlag creates a MaintenanceFlag. fallback is reported while
// the key has never been set.
func NewMaintenanceFlag(client *redis.Client, fallback bool) *MaintenanceFlag {
	return &MaintenanceFlag{client: client, fallback: fallback}
}

// Enabled reports whether maintenance mode is on.
func (f *MaintenanceFlag) Enabled(ctx context.Context) (bool, error) {
	v, err := f.client.Get(ctx, maintenanceKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return f.fallback, nil
		}
		return false, err
	}
	return v == "1", nil
}

// Set switches maintenance mode on or off.
func (f *MaintenanceFlag) Set(ctx context.Context, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return f.client.Set(ctx, maintenanceKey, v, 0).Err()
}
