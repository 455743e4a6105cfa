package repository

import (
	"context"

	"dispatch/internal/domain"
)

// NotificationRepository defines the persistence operations for notifications.
type NotificationRepository interface {
	// Create persists a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByRecipient retrieves a recipient's notifications, newest first.
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error)

	// CountUnread returns the number of unread notifications for a recipient.
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// MarkAllRead flags every notification of a recipient as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)

	// MarkRead flags one notification of a recipient as read.
	MarkRead(ctx context.Context, recipientID, id string) error
}

// AuditRepository defines the persistence operations for the audit log.
type AuditRepository interface {
	// Create appends an audit entry.
	Create(ctx context.Context, entry *domain.AuditEntry) error
}
