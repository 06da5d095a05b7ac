package notifier

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wallet-service/internal/domain"
)

var (
	ErrQueueFull = stderrors.New("notification queue is full")
	ErrClosed    = stderrors.New("notifier is closed")
)

const deliveryTimeout = 5 * time.Second

type job struct {
	userID  uuid.UUID
	message string
}

// Async queues messages and delivers them from a single worker so callers
// never wait on the downstream notifier.
type Async struct {
	next   domain.Notifier
	logger *slog.Logger
	queue  chan job

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(next domain.Notifier, bufferSize int, logger *slog.Logger) *Async {
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan job, bufferSize),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, userID uuid.UUID, message string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- job{userID: userID, message: message}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for j := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := a.next.Notify(ctx, j.userID, j.message); err != nil {
			a.logger.Warn("Notification delivery failed", "user_id", j.userID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
