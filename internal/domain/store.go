package domain

import "context"

// Store groups the repositories behind one unit of work. Repositories obtained
// from the Store passed to WithTransaction's callback share its transaction;
// the work commits only when the callback returns nil.
type Store interface {
	Account() AccountRepository
	Transaction() TransactionRepository
	Notification() NotificationRepository
	Adjustment() AdjustmentRepository
	BankAccount() BankAccountRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
