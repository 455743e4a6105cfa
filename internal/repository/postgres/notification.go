package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// NotificationRepository is a PostgreSQL implementation of repository.NotificationRepository.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{q: db}
}

// Create persists a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, category, type, message, trip_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		n.ID,
		n.RecipientID,
		n.Category,
		n.Type,
		n.Message,
		nullString(n.TripID),
		n.Read,
		n.CreatedAt,
	)
	return err
}

// ListByRecipient retrieves a recipient's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	query := `
		SELECT id, recipient_id, category, type, message, trip_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.q.QueryContext(ctx, query, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var (
			n      domain.Notification
			tripID sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Category, &n.Type, &n.Message, &tripID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.TripID = stringPtr(tripID)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`

	var n int
	if err := r.q.QueryRowContext(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkAllRead flags every unread notification of a recipient as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`

	result, err := r.q.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// MarkRead flags one notification as read. The recipient must own it.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`

	result, err := r.q.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AuditRepository is a PostgreSQL implementation of repository.AuditRepository.
type AuditRepository struct {
	q Querier
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{q: db}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, e *domain.AuditEntry) error {
	details := []byte("{}")
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}

	query := `
		INSERT INTO audit_log (id, actor_id, actor_role, action, trip_id, details, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.ActorID,
		e.ActorRole,
		e.Action,
		nullString(&e.TripID),
		details,
		e.IP,
		e.UserAgent,
		e.CreatedAt,
	)
	return err
}

// Ensure interfaces are satisfied.
var (
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
	_ repository.AuditRepository        = (*AuditRepository)(nil)
)
