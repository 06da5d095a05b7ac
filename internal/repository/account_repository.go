package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, full_name, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		query,
		account.ID,
		account.Email,
		account.FullName,
		account.Balance.String(),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID, "email", account.Email)
			return errors.ErrDuplicateAccount
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.Persistence("failed to create account", err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *accountRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = $1`
	return r.getOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "lookup", arg)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "lookup", arg, "error", err)
		return nil, errors.Persistence("failed to get account", err)
	}
	return account, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, errors.Persistence("failed to list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, errors.Persistence("failed to scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list accounts", err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}
	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, newBalance.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.Persistence("failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Persistence("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", newBalance)
	return nil
}

func (r *accountRepository) CompareAndSwapBalance(ctx context.Context, id uuid.UUID, expected, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3 AND balance = $4
	`

	result, err := r.db.ExecContext(ctx, query, newBalance.String(), time.Now().UTC(), id, expected.String())
	if err != nil {
		r.logger.Error("Failed to swap account balance", "account_id", id, "error", err)
		return errors.Persistence("failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Persistence("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = $1`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			r.logger.Warn("No account found to swap", "account_id", id)
			return errors.ErrAccountNotFound
		}
		if err != nil {
			return errors.Persistence("failed to check account", err)
		}
		r.logger.Warn("Balance changed since read", "account_id", id, "expected", expected)
		return errors.ErrConcurrentModification
	}

	r.logger.Info("Account balance swapped", "account_id", id, "new_balance", newBalance)
	return nil
}
