package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

type bankAccountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewBankAccountRepository(db SQLExecutor, logger *slog.Logger) domain.BankAccountRepository {
	return &bankAccountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *bankAccountRepository) ListBankAccounts(ctx context.Context) ([]*domain.CompanyBankAccount, error) {
	query := `SELECT id, bank_name, account_number, account_holder_name FROM company_bank_accounts ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list company bank accounts", "error", err)
		return nil, errors.Persistence("failed to list company bank accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.CompanyBankAccount, 0)
	for rows.Next() {
		var a domain.CompanyBankAccount
		if err := rows.Scan(&a.ID, &a.BankName, &a.AccountNumber, &a.AccountHolderName); err != nil {
			return nil, errors.Persistence("failed to scan company bank account", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to list company bank accounts", err)
	}
	return accounts, nil
}

// ReplaceBankAccounts must run inside a unit of work for the delete and the
// inserts to be observed together.
func (r *bankAccountRepository) ReplaceBankAccounts(ctx context.Context, accounts []*domain.CompanyBankAccount) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM company_bank_accounts`); err != nil {
		r.logger.Error("Failed to clear company bank accounts", "error", err)
		return errors.Persistence("failed to clear company bank accounts", err)
	}

	query := `
		INSERT INTO company_bank_accounts (id, bank_name, account_number, account_holder_name, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, a := range accounts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if _, err := r.db.ExecContext(ctx, query, a.ID, a.BankName, a.AccountNumber, a.AccountHolderName, i); err != nil {
			r.logger.Error("Failed to insert company bank account", "bank_name", a.BankName, "error", err)
			return errors.Persistence("failed to insert company bank account", err)
		}
	}

	r.logger.Info("Company bank accounts replaced", "count", len(accounts))
	return nil
}
