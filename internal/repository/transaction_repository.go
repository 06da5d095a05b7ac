package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

const transactionColumns = `id, user_id, type, amount, status, method,
	destination_name, destination_account_number, destination_holder_name,
	counterparty_user_id, recipient_key, idempotency_key, updated_by, created_at, updated_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	now := time.Now().UTC()

	var counterparty interface{}
	if tx.CounterpartyUserID != nil {
		counterparty = *tx.CounterpartyUserID
	}

	// Handle optional idempotency key
	var idempotencyKey interface{}
	if tx.IdempotencyKey != nil {
		idempotencyKey = *tx.IdempotencyKey
	}

	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.UserID,
		string(tx.Type),
		tx.Amount.String(),
		string(tx.Status),
		tx.Method,
		tx.DestinationName,
		tx.DestinationAccountNumber,
		tx.DestinationHolderName,
		counterparty,
		tx.RecipientKey,
		idempotencyKey,
		tx.UpdatedBy,
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "idx_transactions_idempotency_key" {
				r.logger.Warn("Duplicate idempotency key", "idempotency_key", tx.IdempotencyKey)
				return errors.NewAppError(errors.ConcurrentModification, "transaction with this idempotency key already exists")
			}
		}
		r.logger.Error("Failed to create transaction",
			"user_id", tx.UserID,
			"type", tx.Type,
			"amount", tx.Amount,
			"error", err)
		return errors.Persistence("failed to create transaction", err)
	}

	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "type", tx.Type)
	return nil
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *transactionRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Persistence("failed to get transaction", err)
	}
	return tx, nil
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(ctx context.Context, userID, key uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND idempotency_key = $2`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, userID, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "idempotency_key", key, "error", err)
		return nil, errors.Persistence("failed to get transaction", err)
	}
	return tx, nil
}

func (r *transactionRepository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.Status, actor string) error {
	query := `UPDATE transactions SET status = $1, updated_by = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, string(status), actor, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"transaction_id", id, "status", status, "error", err)
		return errors.Persistence("failed to update transaction status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Persistence("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}

	r.logger.Info("Transaction status updated", "transaction_id", id, "status", status, "actor", actor)
	return nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, txType *domain.Type) ([]*domain.Transaction, error) {
	if txType == nil {
		query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`
		return r.list(ctx, query, userID)
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND type = $2 ORDER BY created_at DESC`
	return r.list(ctx, query, userID, string(*txType))
}

func (r *transactionRepository) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, errors.Persistence("failed to list transactions", err)
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Persistence("failed to scan transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list transactions", err)
	}
	return txs, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, status, amountStr string
	var counterparty, idempotencyKey uuid.NullUUID

	if err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&txType,
		&amountStr,
		&status,
		&tx.Method,
		&tx.DestinationName,
		&tx.DestinationAccountNumber,
		&tx.DestinationHolderName,
		&counterparty,
		&tx.RecipientKey,
		&idempotencyKey,
		&tx.UpdatedBy,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	tx.Amount = amount
	tx.Type = domain.Type(txType)
	tx.Status = domain.Status(status)

	if counterparty.Valid {
		id := counterparty.UUID
		tx.CounterpartyUserID = &id
	}
	if idempotencyKey.Valid {
		key := idempotencyKey.UUID
		tx.IdempotencyKey = &key
	}
	return &tx, nil
}
