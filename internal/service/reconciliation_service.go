package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/metrics"
)

// ReconciliationService applies administrator status changes and keeps the
// owner's balance consistent with the transaction's status.
type ReconciliationService struct {
	store    domain.Store
	notifier messenger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewReconciliationService(
	store domain.Store,
	n domain.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		store:    store,
		notifier: messenger{next: n, metrics: m, logger: logger},
		metrics:  m,
		logger:   logger,
	}
}

type StatusChange struct {
	Transaction *domain.Transaction `json:"transaction"`
	Previous    domain.Status       `json:"previous_status"`
	// Applied is false when the transaction already had the requested status.
	Applied bool            `json:"applied"`
	Delta   decimal.Decimal `json:"balance_delta"`
}

// SetStatus moves a deposit or withdrawal to status. The status write and any
// balance delta commit together; the owner is notified after commit.
func (s *ReconciliationService) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, actor string) (*StatusChange, error) {
	s.logger.Info("Setting transaction status", "transaction_id", id, "status", status, "actor", actor)

	if _, ok := domain.ParseStatus(string(status)); !ok {
		return nil, errors.ErrInvalidStatus
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = defaultActor
	}

	var change *StatusChange
	var transition domain.Transition

	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		current, err := tx.Transaction().GetTransactionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Type == domain.TypeTransfer {
			return errors.ErrImmutableTransaction
		}

		change = &StatusChange{Transaction: current, Previous: current.Status, Delta: decimal.Zero}
		if current.Status == status {
			return nil
		}

		transition = domain.Transition{Type: current.Type, From: current.Status, To: status}
		delta, err := transition.Delta(current.Amount)
		if err != nil {
			return errors.NewAppError(errors.InvalidStatus, err.Error())
		}

		if !delta.IsZero() {
			account, err := tx.Account().GetAccountForUpdate(ctx, current.UserID)
			if err != nil {
				return err
			}
			newBalance := account.Balance.Add(delta)
			if newBalance.IsNegative() {
				return errors.ErrInsufficientFunds.WithDetails("balance cannot cover the reversal")
			}
			if err := tx.Account().UpdateAccountBalance(ctx, current.UserID, newBalance); err != nil {
				return err
			}
		}

		if err := tx.Transaction().UpdateTransactionStatus(ctx, id, status, actor); err != nil {
			return err
		}

		current.Status = status
		current.UpdatedBy = actor
		change.Applied = true
		change.Delta = delta
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to set transaction status", "transaction_id", id, "status", status, "error", err)
		return nil, storeError(err)
	}

	if !change.Applied {
		s.logger.Info("Transaction already in requested status", "transaction_id", id, "status", status)
		return change, nil
	}

	effect, _ := transition.Effect()
	s.metrics.Transition(string(transition.Type), string(status), effect.String())
	s.notifier.send(ctx, change.Transaction.UserID, transition.Message(change.Transaction))

	s.logger.Info("Transaction status updated",
		"transaction_id", id,
		"from", change.Previous,
		"to", status,
		"delta", change.Delta)
	return change, nil
}
