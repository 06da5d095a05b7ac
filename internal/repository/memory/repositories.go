package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

type accountRepository struct{ s *Store }

func (r *accountRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.accounts[account.ID]; ok {
			return errors.ErrDuplicateAccount
		}
		email := normalizeEmail(account.Email)
		for _, a := range st.accounts {
			if normalizeEmail(a.Email) == email {
				return errors.ErrDuplicateAccount
			}
		}
		now := r.s.db.now()
		account.CreatedAt, account.UpdatedAt = now, now
		st.accounts[account.ID] = *account
		return nil
	})
}

func (r *accountRepository) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

// GetAccountForUpdate needs no row lock: units of work are already serialized.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.GetAccount(ctx, id)
}

func (r *accountRepository) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.do(func(st *state) error {
		key := normalizeEmail(email)
		for _, a := range st.accounts {
			if normalizeEmail(a.Email) == key {
				a := a
				out = &a
				return nil
			}
		}
		return errors.ErrAccountNotFound
	})
	return out, err
}

func (r *accountRepository) ListAccounts(_ context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0)
	err := r.s.do(func(st *state) error {
		for _, a := range st.accounts {
			a := a
			out = append(out, &a)
		}
		return nil
	})
	sortAccounts(out)
	return out, err
}

func (r *accountRepository) UpdateAccountBalance(_ context.Context, id uuid.UUID, newBalance decimal.Decimal) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpUpdateBalance); err != nil {
			return err
		}
		a, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		a.Balance = newBalance
		a.UpdatedAt = r.s.db.now()
		st.accounts[id] = a
		return nil
	})
}

func (r *accountRepository) CompareAndSwapBalance(_ context.Context, id uuid.UUID, expected, newBalance decimal.Decimal) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpUpdateBalance); err != nil {
			return err
		}
		a, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if !a.Balance.Equal(expected) {
			return errors.ErrConcurrentModification
		}
		a.Balance = newBalance
		a.UpdatedAt = r.s.db.now()
		st.accounts[id] = a
		return nil
	})
}

type transactionRepository struct{ s *Store }

func (r *transactionRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpCreateTransaction); err != nil {
			return err
		}
		if _, ok := st.transactions[tx.ID]; ok {
			return errors.Persistence("failed to create transaction", nil).WithDetails("duplicate id")
		}
		if tx.IdempotencyKey != nil {
			for _, existing := range st.transactions {
				if existing.UserID == tx.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
					return errors.NewAppError(errors.ConcurrentModification, "transaction with this idempotency key already exists")
				}
			}
		}
		now := r.s.db.now()
		tx.CreatedAt, tx.UpdatedAt = now, now
		st.transactions[tx.ID] = *tx
		st.txOrder = append(st.txOrder, tx.ID)
		return nil
	})
}

func (r *transactionRepository) GetTransactionByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.do(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetTransactionByID(ctx, id)
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(_ context.Context, userID, key uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.do(func(st *state) error {
		for _, tx := range st.transactions {
			if tx.UserID == userID && tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
				tx := tx
				out = &tx
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepository) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status domain.Status, actor string) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpUpdateStatus); err != nil {
			return err
		}
		tx, ok := st.transactions[id]
		if !ok {
			return errors.ErrTransactionNotFound
		}
		tx.Status = status
		tx.UpdatedBy = actor
		tx.UpdatedAt = r.s.db.now()
		st.transactions[id] = tx
		return nil
	})
}

func (r *transactionRepository) ListByUser(_ context.Context, userID uuid.UUID, txType *domain.Type) ([]*domain.Transaction, error) {
	return r.list(func(tx domain.Transaction) bool {
		return tx.UserID == userID && (txType == nil || tx.Type == *txType)
	})
}

func (r *transactionRepository) ListAll(_ context.Context) ([]*domain.Transaction, error) {
	return r.list(func(domain.Transaction) bool { return true })
}

// list returns matches newest first.
func (r *transactionRepository) list(match func(domain.Transaction) bool) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	err := r.s.do(func(st *state) error {
		for i := len(st.txOrder) - 1; i >= 0; i-- {
			tx := st.transactions[st.txOrder[i]]
			if match(tx) {
				out = append(out, &tx)
			}
		}
		return nil
	})
	return out, err
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) CreateNotification(_ context.Context, n *domain.Notification) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpCreateNotification); err != nil {
			return err
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.s.db.now()
		}
		st.notifications[n.ID] = *n
		st.notifOrder = append(st.notifOrder, n.ID)
		return nil
	})
}

func (r *notificationRepository) ListNotifications(_ context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0)
	err := r.s.do(func(st *state) error {
		for i := len(st.notifOrder) - 1; i >= 0; i-- {
			n := st.notifications[st.notifOrder[i]]
			if n.UserID == userID {
				out = append(out, &n)
			}
		}
		return nil
	})
	return out, err
}

func (r *notificationRepository) MarkNotificationRead(_ context.Context, userID, id uuid.UUID, read bool) error {
	return r.s.do(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok || n.UserID != userID {
			return errors.ErrNotificationNotFound
		}
		n.Read = read
		st.notifications[id] = n
		return nil
	})
}

type adjustmentRepository struct{ s *Store }

func (r *adjustmentRepository) CreateAdjustment(_ context.Context, adj *domain.BalanceAdjustment) error {
	return r.s.do(func(st *state) error {
		if err := r.s.fault(OpCreateAdjustment); err != nil {
			return err
		}
		adj.CreatedAt = r.s.db.now()
		st.adjustments = append(st.adjustments, *adj)
		return nil
	})
}

func (r *adjustmentRepository) ListAdjustments(_ context.Context, userID uuid.UUID) ([]*domain.BalanceAdjustment, error) {
	out := make([]*domain.BalanceAdjustment, 0)
	err := r.s.do(func(st *state) error {
		for i := len(st.adjustments) - 1; i >= 0; i-- {
			adj := st.adjustments[i]
			if adj.UserID == userID {
				out = append(out, &adj)
			}
		}
		return nil
	})
	return out, err
}

type bankAccountRepository struct{ s *Store }

func (r *bankAccountRepository) ListBankAccounts(_ context.Context) ([]*domain.CompanyBankAccount, error) {
	out := make([]*domain.CompanyBankAccount, 0)
	err := r.s.do(func(st *state) error {
		for _, a := range st.bankAccounts {
			a := a
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

func (r *bankAccountRepository) ReplaceBankAccounts(_ context.Context, accounts []*domain.CompanyBankAccount) error {
	return r.s.do(func(st *state) error {
		st.bankAccounts = st.bankAccounts[:0:0]
		for _, a := range accounts {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			st.bankAccounts = append(st.bankAccounts, *a)
		}
		return nil
	})
}
