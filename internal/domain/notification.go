package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, read bool) error
}

// Notifier delivers a message to a user. Delivery is best-effort; callers log
// failures and never undo the financial change that triggered the message.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string) error
}
