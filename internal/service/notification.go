package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const defaultInboxLimit = 50

// NotificationService persists notifications and pushes them to recipients.
// The record is the durable copy; the push may be lost.
type NotificationService struct {
	repo      repository.NotificationRepository
	directory repository.UserDirectory
	cache     redis.ManagerCacheInterface
	channel   realtime.Channel
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService. cache may be nil.
func NewNotificationService(
	repo repository.NotificationRepository,
	directory repository.UserDirectory,
	cache redis.ManagerCacheInterface,
	channel realtime.Channel,
	logger logrus.FieldLogger,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		directory: directory,
		cache:     cache,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify persists one notification for recipientID and pushes it to the
// recipient's private channel.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, msg domain.NotificationMessage) (*domain.Notification, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}

	n := &domain.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Category:    msg.Category,
		Type:        msg.Type,
		Message:     msg.Message,
		CreatedAt:   s.now().UTC(),
	}
	if msg.TripID != "" {
		n.TripID = domain.StringPtr(msg.TripID)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if err := s.channel.Publish(ctx, realtime.UserTarget(recipientID), realtime.EventNotificationNew, realtime.NewNotificationPayload(n)); err != nil {
		s.logger.WithError(err).WithField("recipient_id", recipientID).Warn("notification push dropped")
	}
	return n, nil
}

// FanOut notifies everyone interested in ev. Individual failures are
// logged and skipped.
func (s *NotificationService) FanOut(ctx context.Context, ev domain.TripEvent) int {
	seen := make(map[string]struct{})
	sent := 0
	for _, r := range domain.RecipientsFor(ev) {
		msg := domain.MessageFor(ev, r)
		for _, id := range s.resolve(ctx, r) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, err := s.Notify(ctx, id, msg); err != nil {
				s.logger.WithError(err).
					WithField("recipient_id", id).
					WithField("trip_id", ev.Trip.ID).
					WithField("type", msg.Type).
					Error("notification write failed")
				continue
			}
			sent++
		}
	}
	return sent
}

func (s *NotificationService) resolve(ctx context.Context, r domain.Recipient) []string {
	if r.Kind != domain.RecipientCompanyManagers {
		return []string{r.ID}
	}
	ids := s.managerIDs(ctx, r.ID)
	if len(ids) == 0 {
		// The company owner account shares the company id.
		return []string{r.ID}
	}
	return ids
}

func (s *NotificationService) managerIDs(ctx context.Context, companyID string) []string {
	log := s.logger.WithField("company_id", companyID)
	if s.cache != nil {
		ids, ok, err := s.cache.GetManagerIDs(ctx, companyID)
		if err != nil {
			log.WithError(err).Warn("manager cache read failed")
		} else if ok {
			return ids
		}
	}

	ids, err := s.directory.ManagerIDs(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("manager lookup failed")
		return nil
	}
	if s.cache != nil {
		if err := s.cache.SetManagerIDs(ctx, companyID, ids); err != nil {
			log.WithError(err).Warn("manager cache write failed")
		}
	}
	return ids
}

// List returns the actor's own notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return s.repo.ListByRecipient(ctx, actor.ID, unreadOnly, limit)
}

// UnreadCount returns the number of unread notifications of the actor.
func (s *NotificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, actor.ID)
}

// MarkAllRead flags all of the actor's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, actor.ID)
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, actor.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: notification %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}
