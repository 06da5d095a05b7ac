package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/metrics"
)

const defaultActor = "admin"

// amountScale matches the NUMERIC(20,2) columns; finer amounts would be
// rounded on write and drift from what the balance was charged.
const amountScale = 2

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	return validateScale(amount)
}

func validateScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(amountScale)) {
		return errors.ErrAmountPrecision
	}
	return nil
}

// storeError maps failures that did not come from our own taxonomy to
// persistence_error so callers know the operation can be retried.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Persistence("store operation failed", err)
}

// messenger wraps the best-effort delivery shared by every service.
type messenger struct {
	next    domain.Notifier
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func (n messenger) send(ctx context.Context, userID uuid.UUID, message string) {
	if n.next == nil {
		return
	}
	if err := n.next.Notify(ctx, userID, message); err != nil {
		n.metrics.NotifyFailure()
		n.logger.Warn("Failed to send notification", "user_id", userID, "error", err)
	}
}
