package repository

import (
	"context"
	"database/sql"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// NotificationRepository persists the durable notification rows. Inserts are
// idempotent on (user_id, kind, related_entity_id) so a redelivered intent
// never creates a duplicate.
type NotificationRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewNotificationRepository(db *sql.DB, log logger.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "notification-repository"}),
	}
}

// InsertIdempotent writes a notification row unless the idempotency key
// already exists. It reports whether a new row was created.
func (r *NotificationRepository) InsertIdempotent(ctx context.Context, n *placement.Notification) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, title, message, kind, is_read,
			related_entity_id, related_entity_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, kind, related_entity_id) DO NOTHING`,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		string(n.Kind),
		n.IsRead,
		n.RelatedEntityID,
		n.RelatedEntityType,
		n.CreatedAt,
	)
	if err != nil {
		return false, apperrors.NewDatabaseError("insert notification", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewDatabaseError("insert notification", err)
	}
	return affected > 0, nil
}

// ListByUser returns the owner's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*placement.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, kind, is_read,
		       related_entity_id, related_entity_type, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}
	defer rows.Close()

	var notifications []*placement.Notification
	for rows.Next() {
		var (
			n    placement.Notification
			kind string
		)
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.IsRead,
			&n.RelatedEntityID, &n.RelatedEntityType, &n.CreatedAt,
		); err != nil {
			return nil, apperrors.NewDatabaseError("scan notification", err)
		}
		n.Kind = placement.NotificationKind(kind)
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list notifications", err)
	}
	return notifications, nil
}

// UnreadCount returns the owner's number of unread notifications.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count unread notifications", err)
	}
	return count, nil
}

// MarkRead flags one notification as read. Owner-scoped: a mismatched user
// sees NOT_FOUND rather than another owner's row.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return apperrors.NewDatabaseError("mark notification read", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("mark notification read", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("notification", id)
	}
	return nil
}

// MarkAllRead flags every unread notification of the owner as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID)
	if err != nil {
		return apperrors.NewDatabaseError("mark all notifications read", err)
	}
	return nil
}

// Delete removes one notification. Owner-scoped like MarkRead.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperrors.NewDatabaseError("delete notification", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("delete notification", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("notification", id)
	}
	return nil
}
