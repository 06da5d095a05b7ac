package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

type notificationRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewNotificationRepository(db SQLExecutor, logger *slog.Logger) domain.NotificationRepository {
	return &notificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, user_id, message, read, created_at) VALUES ($1, $2, $3, $4, $5)`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Message, n.Read, n.CreatedAt); err != nil {
		r.logger.Error("Failed to create notification", "user_id", n.UserID, "error", err)
		return errors.Persistence("failed to create notification", err)
	}
	return nil
}

func (r *notificationRepository) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	query := `SELECT id, user_id, message, read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list notifications", "user_id", userID, "error", err)
		return nil, errors.Persistence("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, errors.Persistence("failed to scan notification", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list notifications", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, read bool) error {
	query := `UPDATE notifications SET read = $1 WHERE id = $2 AND user_id = $3`

	result, err := r.db.ExecContext(ctx, query, read, id, userID)
	if err != nil {
		r.logger.Error("Failed to update notification", "notification_id", id, "error", err)
		return errors.Persistence("failed to update notification", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Persistence("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.ErrNotificationNotFound
	}
	return nil
}
