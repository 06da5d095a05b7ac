package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/metrics"
)

const defaultAdjustRetries = 5

// AdminService holds the administrative overrides and account management.
type AdminService struct {
	store      domain.Store
	notifier   messenger
	metrics    *metrics.Metrics
	maxRetries uint64
	logger     *slog.Logger
}

func NewAdminService(
	store domain.Store,
	n domain.Notifier,
	m *metrics.Metrics,
	maxRetries int,
	logger *slog.Logger,
) *AdminService {
	if maxRetries <= 0 {
		maxRetries = defaultAdjustRetries
	}
	return &AdminService{
		store:      store,
		notifier:   messenger{next: n, metrics: m, logger: logger},
		metrics:    m,
		maxRetries: uint64(maxRetries),
		logger:     logger,
	}
}

func (s *AdminService) CreateAccount(ctx context.Context, email, fullName string, initialBalance decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Creating account", "email", email, "initial_balance", initialBalance)

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.NewAppError(errors.InvalidInput, "a valid email is required")
	}
	if initialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}
	if err := validateScale(initialBalance); err != nil {
		return nil, err
	}

	// Validate reasonable limits
	maxInitialBalance := decimal.NewFromInt(10_000_000_000)
	if initialBalance.GreaterThan(maxInitialBalance) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance exceeds maximum limit")
	}

	account := &domain.Account{
		ID:       uuid.New(),
		Email:    email,
		FullName: strings.TrimSpace(fullName),
		Balance:  initialBalance,
	}

	if err := s.store.Account().CreateAccount(ctx, account); err != nil {
		return nil, storeError(err)
	}

	s.notifier.send(ctx, account.ID, "Welcome! Your wallet account has been created by an administrator.")

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

func (s *AdminService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.store.Account().ListAccounts(ctx)
	return accounts, storeError(err)
}

func (s *AdminService) ListAdjustments(ctx context.Context, userID uuid.UUID) ([]*domain.BalanceAdjustment, error) {
	if _, err := s.store.Account().GetAccount(ctx, userID); err != nil {
		return nil, storeError(err)
	}
	adjustments, err := s.store.Adjustment().ListAdjustments(ctx, userID)
	return adjustments, storeError(err)
}

// AdjustUserBalance overrides the balance directly, bypassing the transition
// table. In add mode amount is a signed delta; in set mode it is the new
// balance. The write is a compare-and-swap retried while other writers win.
func (s *AdminService) AdjustUserBalance(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	mode domain.AdjustMode,
	actor string,
) (*domain.BalanceAdjustment, error) {
	s.logger.Info("Adjusting user balance", "user_id", userID, "amount", amount, "mode", mode)

	if err := validateScale(amount); err != nil {
		return nil, err
	}

	switch mode {
	case domain.AdjustAdd:
		if amount.IsZero() {
			return nil, errors.NewAppError(errors.InvalidAmount, "adjustment amount must not be zero")
		}
	case domain.AdjustSet:
		if amount.IsNegative() {
			return nil, errors.NewAppError(errors.InvalidAmount, "balance cannot be set below zero")
		}
	default:
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown adjustment mode %q", mode)
	}

	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = defaultActor
	}

	var adjustment *domain.BalanceAdjustment
	attempt := func() error {
		adjustment = nil
		err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
			account, err := tx.Account().GetAccount(ctx, userID)
			if err != nil {
				return err
			}

			newBalance := amount
			if mode == domain.AdjustAdd {
				newBalance = account.Balance.Add(amount)
			}
			if newBalance.IsNegative() {
				return errors.ErrInsufficientFunds.WithDetails("adjustment would make the balance negative")
			}

			if err := tx.Account().CompareAndSwapBalance(ctx, userID, account.Balance, newBalance); err != nil {
				return err
			}

			adjustment = &domain.BalanceAdjustment{
				ID:              uuid.New(),
				UserID:          userID,
				Mode:            mode,
				Amount:          amount,
				PreviousBalance: account.Balance,
				NewBalance:      newBalance,
				Actor:           actor,
			}
			return tx.Adjustment().CreateAdjustment(ctx, adjustment)
		})
		if errors.HasCode(err, errors.ConcurrentModification) {
			s.metrics.AdjustConflict()
			s.logger.Warn("Balance changed during adjustment, retrying", "user_id", userID)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(attempt, s.retryPolicy(ctx)); err != nil {
		s.logger.Error("Failed to adjust user balance", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	s.logger.Info("User balance adjusted",
		"user_id", userID,
		"previous_balance", adjustment.PreviousBalance,
		"new_balance", adjustment.NewBalance)
	return adjustment, nil
}

func (s *AdminService) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx)
}

// ReplaceCompanyBankAccounts swaps the full list of deposit destinations.
func (s *AdminService) ReplaceCompanyBankAccounts(ctx context.Context, accounts []*domain.CompanyBankAccount) ([]*domain.CompanyBankAccount, error) {
	for _, a := range accounts {
		a.BankName = strings.TrimSpace(a.BankName)
		a.AccountNumber = strings.TrimSpace(a.AccountNumber)
		a.AccountHolderName = strings.TrimSpace(a.AccountHolderName)
		if a.BankName == "" || a.AccountNumber == "" || a.AccountHolderName == "" {
			return nil, errors.NewAppError(errors.InvalidInput, "bank name, account number and holder name are required")
		}
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
	}

	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		return tx.BankAccount().ReplaceBankAccounts(ctx, accounts)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("Company bank accounts replaced", "count", len(accounts))
	return accounts, nil
}
