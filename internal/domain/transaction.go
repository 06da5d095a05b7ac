package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeTransfer   Type = "TRANSFER"
)

func ParseType(s string) (Type, bool) {
	switch t := Type(s); t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return t, true
	}
	return "", false
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusSuccess, StatusRejected, StatusCancelled, StatusFailed:
		return st, true
	}
	return "", false
}

// Transaction is an append-and-patch record: everything except Status,
// UpdatedBy and UpdatedAt is fixed at creation.
type Transaction struct {
	ID     uuid.UUID       `json:"id"`
	UserID uuid.UUID       `json:"user_id"`
	Type   Type            `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Status Status          `json:"status"`
	Method string          `json:"method,omitempty"`

	// Withdrawal destination.
	DestinationName          string `json:"destination_name,omitempty"`
	DestinationAccountNumber string `json:"destination_account_number,omitempty"`
	DestinationHolderName    string `json:"destination_holder_name,omitempty"`

	// Transfer recipient.
	CounterpartyUserID *uuid.UUID `json:"counterparty_user_id,omitempty"`
	RecipientKey       string     `json:"recipient_key,omitempty"`

	IdempotencyKey *uuid.UUID `json:"idempotency_key,omitempty"`
	UpdatedBy      string     `json:"updated_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// GetTransactionForUpdate locks the row until the surrounding unit of work ends.
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// GetTransactionByIdempotencyKey returns nil, nil when no record carries the key.
	GetTransactionByIdempotencyKey(ctx context.Context, userID, key uuid.UUID) (*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status Status, actor string) error
	// ListByUser returns the user's records newest first; a nil txType means all types.
	ListByUser(ctx context.Context, userID uuid.UUID, txType *Type) ([]*Transaction, error)
	ListAll(ctx context.Context) ([]*Transaction, error)
}
