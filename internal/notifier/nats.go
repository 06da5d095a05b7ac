package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Event struct {
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NATS publishes every notification as a JSON Event on one subject.
type NATS struct {
	conn    Publisher
	subject string
}

func NewNATS(conn Publisher, subject string) *NATS {
	return &NATS{conn: conn, subject: subject}
}

func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("wallet-service"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %w", err)
	}
	return nc, nil
}

func (n *NATS) Notify(_ context.Context, userID uuid.UUID, message string) error {
	data, err := json.Marshal(Event{UserID: userID, Message: message, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
