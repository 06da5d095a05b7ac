// Package memory is a process-local domain.Store. Every unit of work runs
// under one mutex against a staged copy of the data which replaces the
// committed copy only when the work succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wallet-service/internal/domain"
)

// Op names a store operation that can be made to fail.
type Op string

const (
	OpCreateTransaction  Op = "create_transaction"
	OpUpdateStatus       Op = "update_status"
	OpUpdateBalance      Op = "update_balance"
	OpCreateNotification Op = "create_notification"
	OpCreateAdjustment   Op = "create_adjustment"
)

type state struct {
	accounts map[uuid.UUID]domain.Account

	transactions map[uuid.UUID]domain.Transaction
	txOrder      []uuid.UUID

	notifications map[uuid.UUID]domain.Notification
	notifOrder    []uuid.UUID

	adjustments  []domain.BalanceAdjustment
	bankAccounts []domain.CompanyBankAccount
}

func newState() *state {
	return &state{
		accounts:      make(map[uuid.UUID]domain.Account),
		transactions:  make(map[uuid.UUID]domain.Transaction),
		notifications: make(map[uuid.UUID]domain.Notification),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:      make(map[uuid.UUID]domain.Account, len(s.accounts)),
		transactions:  make(map[uuid.UUID]domain.Transaction, len(s.transactions)),
		txOrder:       append([]uuid.UUID(nil), s.txOrder...),
		notifications: make(map[uuid.UUID]domain.Notification, len(s.notifications)),
		notifOrder:    append([]uuid.UUID(nil), s.notifOrder...),
		adjustments:   append([]domain.BalanceAdjustment(nil), s.adjustments...),
		bankAccounts:  append([]domain.CompanyBankAccount(nil), s.bankAccounts...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

type db struct {
	mu        sync.Mutex
	committed *state
	faults    map[Op]error
	now       func() time.Time
}

type Store struct {
	db *db
	// staged is non-nil inside WithTransaction.
	staged *state
}

var _ domain.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{db: &db{
		committed: newState(),
		faults:    make(map[Op]error),
		now:       func() time.Time { return time.Now().UTC() },
	}}
}

// FailOn makes every later call of op return err until cleared with a nil err.
func (s *Store) FailOn(op Op, err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err == nil {
		delete(s.db.faults, op)
		return
	}
	s.db.faults[op] = err
}

func (s *Store) Account() domain.AccountRepository           { return &accountRepository{s} }
func (s *Store) Transaction() domain.TransactionRepository   { return &transactionRepository{s} }
func (s *Store) Notification() domain.NotificationRepository { return &notificationRepository{s} }
func (s *Store) Adjustment() domain.AdjustmentRepository     { return &adjustmentRepository{s} }
func (s *Store) BankAccount() domain.BankAccountRepository   { return &bankAccountRepository{s} }

func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.staged != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	txStore := &Store{db: s.db, staged: s.db.committed.clone()}
	if err := fn(txStore); err != nil {
		return err
	}
	s.db.committed = txStore.staged
	return nil
}

// do runs fn against the staged state inside a unit of work, otherwise
// against the committed state under the lock.
func (s *Store) do(fn func(*state) error) error {
	if s.staged != nil {
		return fn(s.staged)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.committed)
}

// fault must be called from within do.
func (s *Store) fault(op Op) error {
	return s.db.faults[op]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sortAccounts orders newest first, matching the Postgres listing.
func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
		}
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
}
