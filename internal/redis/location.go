package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	liveTripsKey    = "trips:live"
	livePointPrefix = "trip:live:"
	livePointTTL    = 6 * time.Hour
)

// LivePoint is the latest known position of a trip.
type LivePoint struct {
	TripID     string
	DriverID   string
	Lat        float64
	Lng        float64
	RecordedAt time.Time
}

// LocationStore keeps the live position of active trips in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation indexes the trip with GEOADD and stores the point details.
func (s *LocationStore) UpdateLocation(ctx context.Context, p LivePoint) error {
	key := livePointPrefix + p.TripID

	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, liveTripsKey, &redis.GeoLocation{
		Name:      p.TripID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	})
	pipe.HSet(ctx, key,
		"driver_id", p.DriverID,
		"lat", strconv.FormatFloat(p.Lat, 'f', -1, 64),
		"lng", strconv.FormatFloat(p.Lng, 'f', -1, 64),
		"recorded_at", p.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, livePointTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetLocation returns the live point of a trip, or nil if none is cached.
func (s *LocationStore) GetLocation(ctx context.Context, tripID string) (*LivePoint, error) {
	fields, err := s.client.HGetAll(ctx, livePointPrefix+tripID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil // Cache miss
	}

	p := &LivePoint{TripID: tripID, DriverID: fields["driver_id"]}
	if p.Lat, err = strconv.ParseFloat(fields["lat"], 64); err != nil {
		return nil, nil
	}
	if p.Lng, err = strconv.ParseFloat(fields["lng"], 64); err != nil {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["recorded_at"]); err == nil {
		p.RecordedAt = ts
	}
	return p, nil
}

// RemoveLocation drops a trip from the live index.
func (s *LocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, liveTripsKey, tripID)
	pipe.Del(ctx, livePointPrefix+tripID)
	_, err := pipe.Exec(ctx)
	return err
}
