package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/events"
	"dispatch/internal/realtime"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	assignLockTTL    = 10 * time.Second
	defaultListLimit = 50
)

// TripService coordinates every trip mutation. Each state change and its
// vehicle bookkeeping commit in one transaction; notifications, audit and
// events follow the commit.
type TripService struct {
	tx            repository.Transactor
	trips         repository.TripRepository
	drivers       repository.DriverRepository
	locks         redis.LockStoreInterface
	guard         *Guard
	audit         *AuditService
	notifications *NotificationService
	locations     *LocationService
	confirmations *ConfirmationService
	publisher     events.Publisher
	channel       realtime.Channel
	validate      *validator.Validate
	logger        logrus.FieldLogger
	now           func() time.Time
}

// TripServiceDeps groups the collaborators of a TripService.
type TripServiceDeps struct {
	Tx            repository.Transactor
	Trips         repository.TripRepository
	Drivers       repository.DriverRepository
	Locks         redis.LockStoreInterface
	Guard         *Guard
	Audit         *AuditService
	Notifications *NotificationService
	Locations     *LocationService
	Confirmations *ConfirmationService
	Publisher     events.Publisher
	Channel       realtime.Channel
	Logger        logrus.FieldLogger
}

// NewTripService creates a new TripService. Locks may be nil, in which case
// assignments are serialised by the store alone.
func NewTripService(deps TripServiceDeps) *TripService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	channel := deps.Channel
	if channel == nil {
		channel = realtime.NopChannel{}
	}
	return &TripService{
		tx:            deps.Tx,
		trips:         deps.Trips,
		drivers:       deps.Drivers,
		locks:         deps.Locks,
		guard:         deps.Guard,
		audit:         deps.Audit,
		notifications: deps.Notifications,
		locations:     deps.Locations,
		confirmations: deps.Confirmations,
		publisher:     publisher,
		channel:       channel,
		validate:      validator.New(),
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	CompanyID   string
	CustomerID  string `validate:"required"`
	DriverID    string
	VehicleID   string
	Pickup      domain.Location
	Dropoff     domain.Location
	Items       []domain.LineItem `validate:"dive"`
	DeliveryFee float64           `validate:"gte=0"`
}

// CreateTrip creates a trip. With a driver and a vehicle it starts out
// assigned; with a driver only it is offered to that driver.
func (s *TripService) CreateTrip(ctx context.Context, actor domain.Actor, req CreateTripRequest) (*domain.Trip, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return nil, err
	}

	switch {
	case actor.Role == domain.RoleCustomer:
		if req.DriverID != "" || req.VehicleID != "" {
			return nil, fmt.Errorf("%w: customers cannot choose a driver or vehicle", ErrForbidden)
		}
		if req.CustomerID != "" && req.CustomerID != actor.ID {
			return nil, fmt.Errorf("%w: customers order for themselves", ErrForbidden)
		}
		req.CustomerID = actor.ID
	case !actor.IsStaff():
		return nil, fmt.Errorf("%w: %s may not create trips", ErrForbidden, actor.Role)
	}

	companyID, err := s.targetCompany(actor, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.VehicleID != "" && req.DriverID == "" {
		return nil, fmt.Errorf("%w: a vehicle needs a driver", ErrValidation)
	}

	now := s.now().UTC()
	trip := &domain.Trip{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		CustomerID:    req.CustomerID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		Items:         req.Items,
		DeliveryFee:   req.DeliveryFee,
		TotalAmount:   domain.ComputeTotal(req.Items, req.DeliveryFee),
		PaymentStatus: domain.PaymentStatusUnpaid,
		Status:        domain.TripStatusPending,
		LiveStatus:    domain.LiveStatusWaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.DriverID != "" {
		if err := s.checkDriver(ctx, companyID, req.DriverID); err != nil {
			return nil, err
		}
		if req.VehicleID != "" {
			if _, err := domain.Assign(trip, req.DriverID, req.VehicleID, actor, now); err != nil {
				return nil, err
			}
		} else if err := domain.Offer(trip, req.DriverID, now); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if trip.Status == domain.TripStatusAssigned {
			if err := checkDriverFree(ctx, st.Trips, companyID, req.DriverID, trip.ID); err != nil {
				return err
			}
			if err := claimVehicle(ctx, st.Vehicles, companyID, req.VehicleID); err != nil {
				return err
			}
		}
		return st.Trips.Create(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, domain.TripEvent{
		Kind:  domain.TripEventCreated,
		Trip:  trip,
		From:  domain.TripStatusPending,
		Actor: actor,
		At:    now,
	}, domain.AuditTripCreated, map[string]any{
		"status":       string(trip.Status),
		"driver_id":    trip.Driver(),
		"vehicle_id":   trip.Vehicle(),
		"total_amount": trip.TotalAmount,
	})
	return trip, nil
}

// AssignRequest contains the parameters for assigning a driver.
type AssignRequest struct {
	DriverID  string `validate:"required"`
	VehicleID string
}

// AssignDriver attaches a driver, and optionally a new vehicle, to a trip.
// Reassigning an active trip keeps its status.
func (s *TripService) AssignDriver(ctx context.Context, actor domain.Actor, tripID string, req AssignRequest) (*domain.Trip, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: %s may not assign drivers", ErrForbidden, actor.Role)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	trip, err := loadInCompany(ctx, s.trips, actor, tripID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if trip.IsTerminal() {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrInvalidTransition, trip.Status)
	}
	if err := s.checkDriver(ctx, trip.CompanyID, req.DriverID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		updated *domain.Trip
		eff     domain.Effect
	)
	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := checkDriverFree(ctx, st.Trips, trip.CompanyID, req.DriverID, tripID); err != nil {
			return err
		}
		claimed := ""
		if req.VehicleID != "" && req.VehicleID != trip.Vehicle() {
			if err := claimVehicle(ctx, st.Vehicles, trip.CompanyID, req.VehicleID); err != nil {
				return err
			}
			claimed = req.VehicleID
		}

		var err error
		updated, err = st.Trips.Mutate(ctx, tripID, func(t *domain.Trip) error {
			e, err := domain.Assign(t, req.DriverID, req.VehicleID, actor, now)
			if err != nil {
				return err
			}
			if e.ClaimVehicleID != claimed {
				return fmt.Errorf("%w: trip vehicle changed concurrently", ErrConflict)
			}
			eff = e
			return nil
		})
		if err != nil {
			return mapStoreError(err, tripID)
		}
		return releaseVehicle(ctx, st.Vehicles, eff.ReleaseVehicleID)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, domain.TripEvent{
		Kind:             domain.TripEventDriverAssigned,
		Trip:             updated,
		PreviousDriverID: eff.PreviousDriverID,
		From:             eff.From,
		Actor:            actor,
		At:               now,
	}, domain.AuditTripAssigned, map[string]any{
		"driver_id":          updated.Driver(),
		"vehicle_id":         updated.Vehicle(),
		"previous_driver_id": eff.PreviousDriverID,
		"reassigned":         eff.Reassigned,
	})
	return updated, nil
}

// UpdateStatusRequest contains the parameters for a status change.
type UpdateStatusRequest struct {
	Status     domain.TripStatus
	LiveStatus string
}

// UpdateStatus moves a trip along the status flow.
func (s *TripService) UpdateStatus(ctx context.Context, actor domain.Actor, tripID string, req UpdateStatusRequest) (*domain.Trip, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if _, err := loadVisible(ctx, s.trips, actor, tripID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		updated *domain.Trip
		eff     domain.Effect
	)
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		var err error
		updated, err = st.Trips.Mutate(ctx, tripID, func(t *domain.Trip) error {
			e, err := domain.ApplyTransition(t, req.Status, actor, req.LiveStatus, now)
			if err != nil {
				return err
			}
			eff = e
			return nil
		})
		if err != nil {
			return mapStoreError(err, tripID)
		}
		return releaseVehicle(ctx, st.Vehicles, eff.ReleaseVehicleID)
	})
	if err != nil {
		return nil, err
	}

	if updated.IsTerminal() {
		s.locations.Forget(ctx, tripID)
	}
	s.afterChange(ctx, domain.TripEvent{
		Kind:             domain.TripEventStatusChanged,
		Trip:             updated,
		PreviousDriverID: eff.PreviousDriverID,
		From:             eff.From,
		Actor:            actor,
		At:               now,
	}, domain.AuditTripStatusChanged, map[string]any{
		"from":        string(eff.From),
		"to":          string(eff.To),
		"live_status": updated.LiveStatus,
	})
	return updated, nil
}

// ConfirmByCode completes a delivery with the customer's code.
func (s *TripService) ConfirmByCode(ctx context.Context, actor domain.Actor, code string) (*domain.Trip, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return nil, err
	}
	updated, eff, err := s.confirmations.ConfirmByCode(ctx, actor, code)
	if err != nil {
		return nil, err
	}

	s.locations.Forget(ctx, updated.ID)
	s.afterChange(ctx, domain.TripEvent{
		Kind:             domain.TripEventDeliveryConfirmed,
		Trip:             updated,
		PreviousDriverID: eff.PreviousDriverID,
		From:             eff.From,
		Actor:            actor,
		At:               s.now().UTC(),
	}, domain.AuditTripConfirmed, map[string]any{
		"from":           string(eff.From),
		"payment_status": string(updated.PaymentStatus),
	})
	return updated, nil
}

// IssueCode returns the confirmation QR code of a trip.
func (s *TripService) IssueCode(ctx context.Context, actor domain.Actor, tripID string) (*QRCode, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return nil, err
	}
	return s.confirmations.IssueCode(ctx, actor, tripID)
}

// RecordLocation appends a GPS point reported by the assigned driver.
func (s *TripService) RecordLocation(ctx context.Context, actor domain.Actor, tripID string, lat, lng float64) (domain.RoutePoint, error) {
	if err := s.checkWrite(ctx, actor); err != nil {
		return domain.RoutePoint{}, err
	}
	return s.locations.RecordPoint(ctx, actor, tripID, lat, lng)
}

// LastLocation returns the latest known position of a trip.
func (s *TripService) LastLocation(ctx context.Context, actor domain.Actor, tripID string) (*domain.RoutePoint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.locations.LastLocation(ctx, actor, tripID)
}

// RouteHistory returns the recorded route of a trip.
func (s *TripService) RouteHistory(ctx context.Context, actor domain.Actor, tripID string) ([]domain.RoutePoint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.locations.RouteHistory(ctx, actor, tripID)
}

// GetTrip returns a trip the actor may see.
func (s *TripService) GetTrip(ctx context.Context, actor domain.Actor, tripID string) (*domain.Trip, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return loadVisible(ctx, s.trips, actor, tripID)
}

// ListTrips lists trips in the actor's scope. Drivers only see their own
// trips and customers their own orders.
func (s *TripService) ListTrips(ctx context.Context, actor domain.Actor, filter repository.TripFilter) ([]*domain.Trip, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}

	if !actor.IsAdmin() {
		scope := domain.CompanyScopeOf(actor)
		if scope == "" {
			return nil, fmt.Errorf("%w: no company affiliation", ErrForbidden)
		}
		if filter.CompanyID != "" && filter.CompanyID != scope {
			return nil, fmt.Errorf("%w: company %s is out of scope", ErrForbidden, filter.CompanyID)
		}
		filter.CompanyID = scope
	}
	switch actor.Role {
	case domain.RoleDriver:
		if filter.DriverID != "" && filter.DriverID != actor.ID {
			return nil, fmt.Errorf("%w: drivers list their own trips", ErrForbidden)
		}
		filter.DriverID = actor.ID
	case domain.RoleCustomer:
		if filter.CustomerID != "" && filter.CustomerID != actor.ID {
			return nil, fmt.Errorf("%w: customers list their own orders", ErrForbidden)
		}
		filter.CustomerID = actor.ID
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.trips.List(ctx, filter)
}

func (s *TripService) checkWrite(ctx context.Context, actor domain.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.guard.CheckWrite(ctx, actor)
}

// targetCompany resolves the company a new trip belongs to.
func (s *TripService) targetCompany(actor domain.Actor, requested string) (string, error) {
	if actor.IsAdmin() {
		if requested == "" {
			return "", fmt.Errorf("%w: company is required", ErrValidation)
		}
		return requested, nil
	}
	scope := domain.CompanyScopeOf(actor)
	if scope == "" {
		return "", fmt.Errorf("%w: no company affiliation", ErrForbidden)
	}
	if requested != "" && requested != scope {
		return "", fmt.Errorf("%w: company %s is out of scope", ErrForbidden, requested)
	}
	return scope, nil
}

func (s *TripService) checkDriver(ctx context.Context, companyID, driverID string) error {
	d, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: driver %s", ErrNotFound, driverID)
		}
		return err
	}
	if d.CompanyID != companyID {
		return fmt.Errorf("%w: driver %s belongs to another company", ErrForbidden, driverID)
	}
	if d.Status != domain.DriverStatusAvailable {
		return fmt.Errorf("%w: driver %s is %s", ErrDriverUnavailable, driverID, d.Status)
	}
	return nil
}

// checkDriverFree rejects a driver who is already working another trip.
func checkDriverFree(ctx context.Context, trips repository.TripRepository, companyID, driverID, tripID string) error {
	active, err := trips.List(ctx, repository.TripFilter{
		CompanyID: companyID,
		DriverID:  driverID,
		Active:    true,
		Limit:     2,
	})
	if err != nil {
		return err
	}
	for _, t := range active {
		if t.ID != tripID {
			return fmt.Errorf("%w: driver %s is on trip %s", ErrDriverUnavailable, driverID, t.ID)
		}
	}
	return nil
}

// claimVehicle checks the vehicle and marks it in use. The claim is
// conditional, so of two racing assignments only one wins.
func claimVehicle(ctx context.Context, vehicles repository.VehicleRepository, companyID, vehicleID string) error {
	v, err := vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
		}
		return err
	}
	if v.CompanyID != companyID {
		return fmt.Errorf("%w: vehicle %s belongs to another company", ErrForbidden, vehicleID)
	}
	switch v.Status {
	case domain.VehicleStatusMaintenance:
		return fmt.Errorf("%w: vehicle %s is under maintenance", ErrConflict, vehicleID)
	case domain.VehicleStatusInUse:
		return fmt.Errorf("%w: vehicle %s is in use", ErrVehicleUnavailable, vehicleID)
	}
	if err := vehicles.Claim(ctx, vehicleID); err != nil {
		if errors.Is(err, repository.ErrVehicleNotAvailable) {
			return fmt.Errorf("%w: vehicle %s is in use", ErrVehicleUnavailable, vehicleID)
		}
		return err
	}
	return nil
}

// releaseVehicle puts a vehicle back to available. It runs inside the
// trip's transaction, so a failed release also undoes the trip write.
func releaseVehicle(ctx context.Context, vehicles repository.VehicleRepository, vehicleID string) error {
	if vehicleID == "" {
		return nil
	}
	if err := vehicles.Release(ctx, vehicleID); err != nil {
		return fmt.Errorf("release vehicle %s: %w", vehicleID, err)
	}
	return nil
}

// lockTrip takes the assignment lock. An unreachable lock store does not
// block assignments; Mutate still serialises the write.
func (s *TripService) lockTrip(ctx context.Context, tripID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	token, ok, err := s.locks.AcquireTripLock(ctx, tripID, assignLockTTL)
	if err != nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Warn("trip lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: trip %s is being assigned", ErrConflict, tripID)
	}
	return func() {
		released, err := s.locks.ReleaseTripLock(context.WithoutCancel(ctx), tripID, token)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("trip_id", tripID).Warn("trip lock release failed")
		case !released:
			s.logger.WithField("trip_id", tripID).Warn("trip lock expired before the assignment finished")
		}
	}, nil
}

// afterChange runs the side effects of a committed change. None of them
// can fail the request.
func (s *TripService) afterChange(ctx context.Context, ev domain.TripEvent, action string, details map[string]any) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.WithField("trip_id", ev.Trip.ID).WithField("event", ev.Kind)

	s.audit.Record(ctx, ev.Actor, action, ev.Trip.ID, details)
	sent := s.notifications.FanOut(ctx, ev)
	s.broadcast(ctx, ev)
	if err := s.publisher.PublishTripEvent(ctx, ev); err != nil {
		log.WithError(err).Warn("trip event publish failed")
	}
	log.WithField("notified", sent).Debug("trip change committed")
}

func (s *TripService) broadcast(ctx context.Context, ev domain.TripEvent) {
	t := ev.Trip
	rooms := []realtime.Target{realtime.TripTarget(t.ID), realtime.CompanyTarget(t.CompanyID)}
	publish := func(event string, payload any) {
		for _, target := range rooms {
			if err := s.channel.Publish(ctx, target, event, payload); err != nil {
				s.logger.WithError(err).WithField("target", target).WithField("event", event).Debug("realtime push dropped")
			}
		}
	}

	if ev.Kind == domain.TripEventDriverAssigned || t.Status == domain.TripStatusDeclined {
		publish(realtime.EventDriverStatusChanged, realtime.DriverChangePayload{
			TripID:           t.ID,
			DriverID:         t.Driver(),
			PreviousDriverID: ev.PreviousDriverID,
			VehicleID:        t.Vehicle(),
			Status:           string(t.Status),
		})
	}
	if ev.Kind != domain.TripEventDriverAssigned || ev.From != t.Status {
		publish(realtime.EventTripStatusUpdate, realtime.NewTripStatusPayload(t))
	}
}

func mapStoreError(err error, tripID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	}
	return err
}
