package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AdjustMode string

const (
	AdjustAdd AdjustMode = "add"
	AdjustSet AdjustMode = "set"
)

func ParseAdjustMode(s string) (AdjustMode, bool) {
	switch m := AdjustMode(s); m {
	case AdjustAdd, AdjustSet:
		return m, true
	}
	return "", false
}

// BalanceAdjustment records an administrative override that bypassed the
// status transition table.
type BalanceAdjustment struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Mode            AdjustMode      `json:"mode"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Actor           string          `json:"actor"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AdjustmentRepository interface {
	CreateAdjustment(ctx context.Context, adj *BalanceAdjustment) error
	ListAdjustments(ctx context.Context, userID uuid.UUID) ([]*BalanceAdjustment, error)
}
