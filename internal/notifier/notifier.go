package notifier

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"wallet-service/internal/domain"
)

// Persisted writes notifications to the user's in-app inbox.
type Persisted struct {
	repo domain.NotificationRepository
}

func NewPersisted(repo domain.NotificationRepository) *Persisted {
	return &Persisted{repo: repo}
}

func (p *Persisted) Notify(ctx context.Context, userID uuid.UUID, message string) error {
	return p.repo.CreateNotification(ctx, &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// Multi delivers to every notifier and joins their errors.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, userID uuid.UUID, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, userID, message); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, string) error { return nil }
