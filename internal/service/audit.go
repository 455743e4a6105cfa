package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// AuditService writes the audit log. Failures never fail the caller.
type AuditService struct {
	repo   repository.AuditRepository
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repository.AuditRepository, logger logrus.FieldLogger) *AuditService {
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

// Record appends an entry for a successful action.
func (s *AuditService) Record(ctx context.Context, actor domain.Actor, action, tripID string, details map[string]any) {
	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		TripID:    tripID,
		Details:   details,
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.WithError(err).
			WithField("action", action).
			WithField("trip_id", tripID).
			Error("audit write failed")
	}
}
