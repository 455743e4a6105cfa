package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const maxCodeAttempts = 5

// QRCode is an issued confirmation code with its scannable payload.
type QRCode struct {
	Code    string
	Payload domain.ConfirmationPayload
	Encoded string
}

// ConfirmationService issues and redeems single-use delivery codes.
type ConfirmationService struct {
	tx       repository.Transactor
	trips    repository.TripRepository
	drivers  repository.DriverRepository
	vehicles repository.VehicleRepository
	logger   logrus.FieldLogger
	random   io.Reader
	now      func() time.Time
}

// NewConfirmationService creates a new ConfirmationService.
func NewConfirmationService(
	tx repository.Transactor,
	trips repository.TripRepository,
	drivers repository.DriverRepository,
	vehicles repository.VehicleRepository,
	logger logrus.FieldLogger,
) *ConfirmationService {
	return &ConfirmationService{
		tx:       tx,
		trips:    trips,
		drivers:  drivers,
		vehicles: vehicles,
		logger:   logger,
		random:   rand.Reader,
		now:      time.Now,
	}
}

// GenerateCode draws a code from the unambiguous alphabet.
func (s *ConfirmationService) GenerateCode() (string, error) {
	return generateCode(s.random)
}

func generateCode(r io.Reader) (string, error) {
	buf := make([]byte, domain.CodeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	n := byte(len(domain.CodeAlphabet))
	out := make([]byte, domain.CodeLength)
	for i, b := range buf {
		// 256 is a multiple of the alphabet size, so the modulo is unbiased.
		out[i] = domain.CodeAlphabet[b%n]
	}
	return string(out), nil
}

// IssueCode returns the trip's confirmation code, generating and storing
// one on first use. Repeated calls return the same code.
func (s *ConfirmationService) IssueCode(ctx context.Context, actor domain.Actor, tripID string) (*QRCode, error) {
	trip, err := loadVisible(ctx, s.trips, actor, tripID)
	if err != nil {
		return nil, err
	}

	code := trip.Code()
	if code == "" {
		if trip.Status == domain.TripStatusCancelled {
			return nil, fmt.Errorf("%w: trip is cancelled", domain.ErrInvalidTransition)
		}
		if trip.CustomerConfirmed {
			return nil, domain.ErrAlreadyConfirmed
		}
		code, err = s.store(ctx, tripID)
		if err != nil {
			return nil, err
		}
	}

	payload := s.payload(ctx, trip, code)
	encoded, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	return &QRCode{Code: code, Payload: payload, Encoded: encoded}, nil
}

func (s *ConfirmationService) store(ctx context.Context, tripID string) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate, err := s.GenerateCode()
		if err != nil {
			return "", err
		}
		stored, err := s.trips.SetConfirmationCode(ctx, tripID, candidate)
		switch {
		case err == nil:
			return stored, nil
		case errors.Is(err, repository.ErrCodeTaken):
			continue
		case errors.Is(err, repository.ErrNotFound):
			return "", fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique confirmation code", ErrConflict)
}

func (s *ConfirmationService) payload(ctx context.Context, trip *domain.Trip, code string) domain.ConfirmationPayload {
	amount := trip.TotalAmount
	p := domain.ConfirmationPayload{
		Type:      domain.ConfirmationPayloadType,
		Code:      code,
		TripID:    trip.ID,
		CompanyID: trip.CompanyID,
		Amount:    &amount,
	}
	if id := trip.Driver(); id != "" {
		if d, err := s.drivers.GetByID(ctx, id); err == nil {
			p.DriverName = d.Name
		} else {
			s.logger.WithError(err).WithField("driver_id", id).Debug("driver lookup for payload failed")
		}
	}
	if id := trip.Vehicle(); id != "" {
		if v, err := s.vehicles.GetByID(ctx, id); err == nil {
			p.VehiclePlate = v.PlateNumber
		} else {
			s.logger.WithError(err).WithField("vehicle_id", id).Debug("vehicle lookup for payload failed")
		}
	}
	return p
}

// ResolveCode accepts a typed code or a scanned JSON payload and returns
// the code plus the trip id the payload names, if any.
func ResolveCode(input string) (code, tripID string, err error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "{") {
		p, err := domain.ParsePayload([]byte(input))
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return p.Code, p.TripID, nil
	}
	code = domain.NormalizeCode(input)
	if !domain.ValidCode(code) {
		return "", "", fmt.Errorf("%w: malformed confirmation code", ErrValidation)
	}
	return code, "", nil
}

// ConfirmByCode redeems a code on behalf of the acting driver. Only trips
// assigned to that driver are searched. The trip write and the vehicle
// release commit together.
func (s *ConfirmationService) ConfirmByCode(ctx context.Context, actor domain.Actor, input string) (*domain.Trip, domain.Effect, error) {
	if actor.Role != domain.RoleDriver {
		return nil, domain.Effect{}, fmt.Errorf("%w: only drivers confirm deliveries", ErrForbidden)
	}
	code, payloadTrip, err := ResolveCode(input)
	if err != nil {
		return nil, domain.Effect{}, err
	}

	found, err := s.trips.GetByConfirmationCode(ctx, code, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Effect{}, fmt.Errorf("%w: no trip for this code", ErrNotFound)
		}
		return nil, domain.Effect{}, err
	}
	if (payloadTrip != "" && payloadTrip != found.ID) || !actor.InCompany(found) {
		return nil, domain.Effect{}, fmt.Errorf("%w: no trip for this code", ErrNotFound)
	}

	var (
		updated *domain.Trip
		eff     domain.Effect
	)
	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		var err error
		updated, err = st.Trips.Mutate(ctx, found.ID, func(t *domain.Trip) error {
			if t.Code() != code || t.Driver() != actor.ID {
				return fmt.Errorf("%w: no trip for this code", ErrNotFound)
			}
			e, err := domain.Confirm(t, s.now().UTC())
			if err != nil {
				return err
			}
			eff = e
			return nil
		})
		if err != nil {
			return err
		}
		return releaseVehicle(ctx, st.Vehicles, eff.ReleaseVehicleID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Effect{}, fmt.Errorf("%w: no trip for this code", ErrNotFound)
		}
		return nil, domain.Effect{}, err
	}
	return updated, eff, nil
}
