package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only while it still holds the
// caller's token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles the per-trip assignment locks in Redis.
type LockStore struct {
	client redis.Cmdable
}

// NewLockStore creates a new LockStore.
func NewLockStore(client redis.Cmdable) *LockStore {
	return &LockStore{client: client}
}

func tripLockKey(tripID string) string {
	return "lock:trip:" + tripID
}

// AcquireTripLock attempts to take the assignment lock of a trip. On
// success it returns the token that identifies this holder; ok is false
// while someone else holds the lock.
func (s *LockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()
	ok, err = s.client.SetNX(ctx, tripLockKey(tripID), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseTripLock drops the lock if token still holds it. A lock that
// expired and was taken by another caller is left in place; released
// reports whether the caller's lock was deleted.
func (s *LockStore) ReleaseTripLock(ctx context.Context, tripID, token string) (released bool, err error) {
	n, err := releaseLockScript.Run(ctx, s.client, []string{tripLockKey(tripID)}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
