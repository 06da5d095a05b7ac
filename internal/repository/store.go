package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	db       DB
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		db:       db,
		logger:   logger,
	}
}

func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) Notification() domain.NotificationRepository {
	return NewNotificationRepository(s.executor, s.logger)
}

func (s *Store) Adjustment() domain.AdjustmentRepository {
	return NewAdjustmentRepository(s.executor, s.logger)
}

func (s *Store) BankAccount() domain.BankAccountRepository {
	return NewBankAccountRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. A Store that is
// already bound to a transaction runs fn inline so nested units of work join
// the outer one.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.db == nil {
		if _, inTx := s.executor.(*sql.Tx); inTx {
			return fn(s)
		}
		return errors.ErrCannotBeginTransaction
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.Persistence("failed to begin transaction", err)
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.Persistence("failed to commit transaction", err)
	}
	return nil
}
