package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

type adjustmentRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAdjustmentRepository(db SQLExecutor, logger *slog.Logger) domain.AdjustmentRepository {
	return &adjustmentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *adjustmentRepository) CreateAdjustment(ctx context.Context, adj *domain.BalanceAdjustment) error {
	query := `
		INSERT INTO balance_adjustments (id, user_id, mode, amount, previous_balance, new_balance, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	adj.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		adj.ID,
		adj.UserID,
		string(adj.Mode),
		adj.Amount.String(),
		adj.PreviousBalance.String(),
		adj.NewBalance.String(),
		adj.Actor,
		adj.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record balance adjustment", "user_id", adj.UserID, "error", err)
		return errors.Persistence("failed to record balance adjustment", err)
	}

	r.logger.Info("Balance adjustment recorded",
		"user_id", adj.UserID,
		"mode", adj.Mode,
		"previous_balance", adj.PreviousBalance,
		"new_balance", adj.NewBalance,
		"actor", adj.Actor)
	return nil
}

func (r *adjustmentRepository) ListAdjustments(ctx context.Context, userID uuid.UUID) ([]*domain.BalanceAdjustment, error) {
	query := `
		SELECT id, user_id, mode, amount, previous_balance, new_balance, actor, created_at
		FROM balance_adjustments WHERE user_id = $1 ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list balance adjustments", "user_id", userID, "error", err)
		return nil, errors.Persistence("failed to list balance adjustments", err)
	}
	defer rows.Close()

	adjustments := make([]*domain.BalanceAdjustment, 0)
	for rows.Next() {
		var adj domain.BalanceAdjustment
		var mode, amount, previous, next string
		if err := rows.Scan(&adj.ID, &adj.UserID, &mode, &amount, &previous, &next, &adj.Actor, &adj.CreatedAt); err != nil {
			return nil, errors.Persistence("failed to scan balance adjustment", err)
		}
		adj.Mode = domain.AdjustMode(mode)
		if adj.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Persistence("failed to parse amount", err)
		}
		if adj.PreviousBalance, err = decimal.NewFromString(previous); err != nil {
			return nil, errors.Persistence("failed to parse previous balance", err)
		}
		if adj.NewBalance, err = decimal.NewFromString(next); err != nil {
			return nil, errors.Persistence("failed to parse new balance", err)
		}
		adjustments = append(adjustments, &adj)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list balance adjustments", err)
	}
	return adjustments, nil
}
