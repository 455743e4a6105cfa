package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// LocationService records GPS points for trips and republishes them.
// Points are appended as they arrive; ordering is not enforced.
type LocationService struct {
	trips   repository.TripRepository
	live    redis.LocationStoreInterface
	channel realtime.Channel
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewLocationService creates a new LocationService. live may be nil.
func NewLocationService(
	trips repository.TripRepository,
	live redis.LocationStoreInterface,
	channel realtime.Channel,
	logger logrus.FieldLogger,
) *LocationService {
	return &LocationService{
		trips:   trips,
		live:    live,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// RecordPoint appends a point to the route of a trip. Only the assigned
// driver of a non-terminal trip may record.
func (s *LocationService) RecordPoint(ctx context.Context, actor domain.Actor, tripID string, lat, lng float64) (domain.RoutePoint, error) {
	if !ValidCoordinates(lat, lng) {
		return domain.RoutePoint{}, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}

	trip, err := loadInCompany(ctx, s.trips, actor, tripID)
	if err != nil {
		return domain.RoutePoint{}, err
	}
	if trip.IsTerminal() {
		return domain.RoutePoint{}, domain.ErrTripTerminal
	}
	if actor.Role != domain.RoleDriver || trip.Driver() != actor.ID {
		return domain.RoutePoint{}, fmt.Errorf("%w: only the assigned driver may record locations", ErrForbidden)
	}

	point := domain.RoutePoint{Lat: lat, Lng: lng, RecordedAt: s.now().UTC()}
	if err := s.trips.AppendRoutePoint(ctx, tripID, actor.ID, point); err != nil {
		if errors.Is(err, repository.ErrNotWritable) {
			return domain.RoutePoint{}, s.classifyRejected(ctx, tripID)
		}
		return domain.RoutePoint{}, err
	}

	if s.live != nil {
		lp := redis.LivePoint{TripID: tripID, DriverID: actor.ID, Lat: lat, Lng: lng, RecordedAt: point.RecordedAt}
		if err := s.live.UpdateLocation(ctx, lp); err != nil {
			s.logger.WithError(err).WithField("trip_id", tripID).Warn("live location update failed")
		}
	}

	payload := realtime.LocationPayload{TripID: tripID, DriverID: actor.ID, Lat: lat, Lng: lng, RecordedAt: point.RecordedAt}
	for _, target := range []realtime.Target{realtime.TripTarget(tripID), realtime.CompanyTarget(trip.CompanyID)} {
		if err := s.channel.Publish(ctx, target, realtime.EventTripLocationUpdate, payload); err != nil {
			s.logger.WithError(err).WithField("target", target).Debug("location push dropped")
		}
	}
	return point, nil
}

// classifyRejected explains why the conditional append matched nothing:
// the trip finished or was reassigned between the check and the write.
func (s *LocationService) classifyRejected(ctx context.Context, tripID string) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.IsTerminal() {
		return domain.ErrTripTerminal
	}
	return fmt.Errorf("%w: only the assigned driver may record locations", ErrForbidden)
}

// LastLocation returns the latest known point of a trip, or nil.
func (s *LocationService) LastLocation(ctx context.Context, actor domain.Actor, tripID string) (*domain.RoutePoint, error) {
	trip, err := loadVisible(ctx, s.trips, actor, tripID)
	if err != nil {
		return nil, err
	}
	if s.live != nil && !trip.IsTerminal() {
		lp, err := s.live.GetLocation(ctx, tripID)
		if err != nil {
			s.logger.WithError(err).WithField("trip_id", tripID).Warn("live location read failed")
		} else if lp != nil {
			return &domain.RoutePoint{Lat: lp.Lat, Lng: lp.Lng, RecordedAt: lp.RecordedAt}, nil
		}
	}
	return trip.LastLocation, nil
}

// RouteHistory returns every recorded point of a trip.
func (s *LocationService) RouteHistory(ctx context.Context, actor domain.Actor, tripID string) ([]domain.RoutePoint, error) {
	if _, err := loadVisible(ctx, s.trips, actor, tripID); err != nil {
		return nil, err
	}
	return s.trips.RouteHistory(ctx, tripID)
}

// Forget drops a finished trip from the live index.
func (s *LocationService) Forget(ctx context.Context, tripID string) {
	if s.live == nil {
		return
	}
	if err := s.live.RemoveLocation(ctx, tripID); err != nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Warn("live location cleanup failed")
	}
}
