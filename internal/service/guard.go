package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// Guard enforces the platform maintenance freeze.
type Guard struct {
	flag   redis.MaintenanceFlagInterface
	audit  *AuditService
	logger logrus.FieldLogger
}

// NewGuard creates a new Guard. A nil flag disables the freeze; audit may
// be nil.
func NewGuard(flag redis.MaintenanceFlagInterface, audit *AuditService, logger logrus.FieldLogger) *Guard {
	return &Guard{flag: flag, audit: audit, logger: logger}
}

// CheckWrite rejects mutating calls by non-admins during maintenance. If the
// flag cannot be read the write is allowed and the failure is logged.
func (g *Guard) CheckWrite(ctx context.Context, actor domain.Actor) error {
	if g == nil || g.flag == nil || actor.IsAdmin() {
		return nil
	}
	on, err := g.flag.Enabled(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("maintenance flag unreadable, allowing write")
		return nil
	}
	if on {
		return ErrMaintenanceMode
	}
	return nil
}

// Maintenance reports the current state of the freeze.
func (g *Guard) Maintenance(ctx context.Context) (bool, error) {
	if g == nil || g.flag == nil {
		return false, nil
	}
	return g.flag.Enabled(ctx)
}

// SetMaintenance switches the freeze. Admin only.
func (g *Guard) SetMaintenance(ctx context.Context, actor domain.Actor, enabled bool) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if g == nil || g.flag == nil {
		return fmt.Errorf("%w: maintenance flag not configured", ErrConflict)
	}
	if err := g.flag.Set(ctx, enabled); err != nil {
		return err
	}
	g.logger.WithField("enabled", enabled).WithField("actor_id", actor.ID).Info("maintenance mode switched")
	if g.audit != nil {
		g.audit.Record(ctx, actor, domain.AuditMaintenanceToggle, "", map[string]any{"enabled": enabled})
	}
	return nil
}

func requireActor(actor domain.Actor) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

// loadInCompany fetches a trip and hides it unless it belongs to the
// actor's company scope.
func loadInCompany(ctx context.Context, trips repository.TripRepository, actor domain.Actor, id string) (*domain.Trip, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: trip id is required", ErrValidation)
	}
	trip, err := trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: trip %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !actor.InCompany(trip) {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, id)
	}
	return trip, nil
}

// loadVisible fetches a trip the actor may read.
func loadVisible(ctx context.Context, trips repository.TripRepository, actor domain.Actor, id string) (*domain.Trip, error) {
	trip, err := loadInCompany(ctx, trips, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(trip) {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, id)
	}
	return trip, nil
}
