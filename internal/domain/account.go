package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID        uuid.UUID       `json:"account_id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	// GetAccountForUpdate locks the row until the surrounding unit of work ends.
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error
	// CompareAndSwapBalance writes newBalance only if the stored balance still
	// equals expected, returning ErrConcurrentModification otherwise.
	CompareAndSwapBalance(ctx context.Context, id uuid.UUID, expected, newBalance decimal.Decimal) error
}
