package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	ManagersCacheTTL = 60 * time.Second // Company membership rarely changes
)

const managersCachePrefix = "cache:company:"

func managersKey(companyID string) string {
	return managersCachePrefix + companyID + ":managers"
}

// GetManagerIDs returns the cached manager ids of a company. ok is false
// on a cache miss.
func (s *CacheStore) GetManagerIDs(ctx context.Context, companyID string) (ids []string, ok bool, err error) {
	data, err := s.client.Get(ctx, managersKey(companyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// SetManagerIDs caches the manager ids of a company. An empty list is
// cached too, so companies without managers do not hit the database.
func (s *CacheStore) SetManagerIDs(ctx context.Context, companyID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, managersKey(companyID), data, ManagersCacheTTL).Err()
}
