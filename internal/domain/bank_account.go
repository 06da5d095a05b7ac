package domain

import (
	"context"

	"github.com/google/uuid"
)

// CompanyBankAccount is a destination users fund deposits into.
type CompanyBankAccount struct {
	ID                uuid.UUID `json:"id"`
	BankName          string    `json:"bank_name"`
	AccountNumber     string    `json:"account_number"`
	AccountHolderName string    `json:"account_holder_name"`
}

type BankAccountRepository interface {
	ListBankAccounts(ctx context.Context) ([]*CompanyBankAccount, error)
	ReplaceBankAccounts(ctx context.Context, accounts []*CompanyBankAccount) error
}
