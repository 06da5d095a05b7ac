package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/metrics"
)

const (
	defaultDepositMethod = "Bank Transfer"
	transferMethod       = "Internal Transfer"
)

// WalletService owns the user-initiated entry points: deposit and
// withdrawal requests and internal transfers.
type WalletService struct {
	store    domain.Store
	notifier messenger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewWalletService(
	store domain.Store,
	n domain.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		store:    store,
		notifier: messenger{next: n, metrics: m, logger: logger},
		metrics:  m,
		logger:   logger,
	}
}

type DepositRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Method         string
	IdempotencyKey *uuid.UUID
}

// RequestDeposit files a PENDING deposit. The balance is untouched until an
// administrator moves the deposit to SUCCESS.
func (s *WalletService) RequestDeposit(ctx context.Context, req *DepositRequest) (*domain.Transaction, error) {
	s.logger.Info("Processing deposit request", "user_id", req.UserID, "amount", req.Amount)

	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = defaultDepositMethod
	}

	transaction := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         req.UserID,
		Type:           domain.TypeDeposit,
		Amount:         req.Amount,
		Status:         domain.StatusPending,
		Method:         method,
		IdempotencyKey: req.IdempotencyKey,
	}

	created := true
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if existing, err := findExisting(ctx, tx, req.UserID, req.IdempotencyKey, domain.TypeDeposit, req.Amount); err != nil || existing != nil {
			transaction, created = existing, false
			return err
		}
		if _, err := tx.Account().GetAccount(ctx, req.UserID); err != nil {
			return err
		}
		return tx.Transaction().CreateTransaction(ctx, transaction)
	})
	if err != nil {
		s.metrics.Request(string(domain.TypeDeposit), outcome(err))
		s.logger.Error("Deposit request failed", "user_id", req.UserID, "error", err)
		return nil, storeError(err)
	}
	if !created {
		s.logger.Info("Returning existing deposit for idempotency key", "transaction_id", transaction.ID)
		return transaction, nil
	}

	s.metrics.Request(string(domain.TypeDeposit), "ok")
	s.notifier.send(ctx, req.UserID, fmt.Sprintf(
		"Deposit request of %s has been filed and is awaiting administrator confirmation.",
		req.Amount.StringFixed(2)))

	s.logger.Info("Deposit request created", "transaction_id", transaction.ID)
	return transaction, nil
}

type Destination struct {
	Name          string
	AccountNumber string
	HolderName    string
}

func (d Destination) validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.AccountNumber) == "" || strings.TrimSpace(d.HolderName) == "" {
		return errors.NewAppError(errors.InvalidInput, "destination name, account number and holder name are required")
	}
	return nil
}

type WithdrawalRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Method         string
	Destination    Destination
	IdempotencyKey *uuid.UUID
}

// RequestWithdrawal reserves the amount by debiting it immediately and files
// a PENDING withdrawal. The debit and the record commit together.
func (s *WalletService) RequestWithdrawal(ctx context.Context, req *WithdrawalRequest) (*domain.Transaction, error) {
	s.logger.Info("Processing withdrawal request", "user_id", req.UserID, "amount", req.Amount)

	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := req.Destination.validate(); err != nil {
		return nil, err
	}

	transaction := &domain.Transaction{
		ID:                       uuid.New(),
		UserID:                   req.UserID,
		Type:                     domain.TypeWithdrawal,
		Amount:                   req.Amount,
		Status:                   domain.StatusPending,
		Method:                   strings.TrimSpace(req.Method),
		DestinationName:          strings.TrimSpace(req.Destination.Name),
		DestinationAccountNumber: strings.TrimSpace(req.Destination.AccountNumber),
		DestinationHolderName:    strings.TrimSpace(req.Destination.HolderName),
		IdempotencyKey:           req.IdempotencyKey,
	}

	created := true
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if existing, err := findExisting(ctx, tx, req.UserID, req.IdempotencyKey, domain.TypeWithdrawal, req.Amount); err != nil || existing != nil {
			transaction, created = existing, false
			return err
		}

		account, err := tx.Account().GetAccountForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		if err := tx.Account().UpdateAccountBalance(ctx, req.UserID, account.Balance.Sub(req.Amount)); err != nil {
			return err
		}
		// A failed insert aborts the unit of work, which also undoes the debit.
		return tx.Transaction().CreateTransaction(ctx, transaction)
	})
	if err != nil {
		s.metrics.Request(string(domain.TypeWithdrawal), outcome(err))
		s.logger.Error("Withdrawal request failed", "user_id", req.UserID, "error", err)
		return nil, storeError(err)
	}
	if !created {
		s.logger.Info("Returning existing withdrawal for idempotency key", "transaction_id", transaction.ID)
		return transaction, nil
	}

	s.metrics.Request(string(domain.TypeWithdrawal), "ok")
	s.notifier.send(ctx, req.UserID, fmt.Sprintf(
		"Withdrawal request of %s is being processed. The amount has been provisionally deducted from your balance.",
		req.Amount.StringFixed(2)))

	s.logger.Info("Withdrawal request created", "transaction_id", transaction.ID)
	return transaction, nil
}

type TransferRequest struct {
	SenderID       uuid.UUID
	RecipientKey   string
	Amount         decimal.Decimal
	IdempotencyKey *uuid.UUID
}

// TransferResult reports a user-facing outcome. Rejections such as
// insufficient funds are results, not errors.
type TransferResult struct {
	Success     bool                `json:"success"`
	Code        errors.ErrorCode    `json:"code,omitempty"`
	Message     string              `json:"message"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

func rejected(err *errors.AppError) *TransferResult {
	return &TransferResult{Success: false, Code: err.Code, Message: err.Message}
}

// transferOutcomes are returned as unsuccessful results rather than errors.
var transferOutcomes = map[errors.ErrorCode]bool{
	errors.InvalidAmount:       true,
	errors.InsufficientFunds:   true,
	errors.RecipientNotFound:   true,
	errors.SameAccountTransfer: true,
}

// RequestTransfer moves funds between two accounts and records a terminal
// TRANSFER owned by the sender. Both balances and the record commit together.
func (s *WalletService) RequestTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	s.logger.Info("Processing transfer",
		"sender_id", req.SenderID,
		"recipient", req.RecipientKey,
		"amount", req.Amount)

	if err := validateAmount(req.Amount); err != nil {
		return rejected(errors.AsAppError(err)), nil
	}
	recipientKey := strings.TrimSpace(req.RecipientKey)
	if recipientKey == "" {
		return rejected(errors.ErrRecipientNotFound), nil
	}

	var sender, recipient *domain.Account
	transaction := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         req.SenderID,
		Type:           domain.TypeTransfer,
		Amount:         req.Amount,
		Status:         domain.StatusSuccess,
		Method:         transferMethod,
		RecipientKey:   recipientKey,
		IdempotencyKey: req.IdempotencyKey,
	}

	created := true
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if existing, err := findExisting(ctx, tx, req.SenderID, req.IdempotencyKey, domain.TypeTransfer, req.Amount); err != nil || existing != nil {
			transaction, created = existing, false
			return err
		}

		found, err := tx.Account().GetAccountByEmail(ctx, recipientKey)
		if err != nil {
			if errors.HasCode(err, errors.AccountNotFound) {
				return errors.ErrRecipientNotFound
			}
			return err
		}
		if found.ID == req.SenderID {
			return errors.ErrSameAccountTransfer
		}

		sender, recipient, err = lockPair(ctx, tx.Account(), req.SenderID, found.ID)
		if err != nil {
			return err
		}
		if sender.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		if err := tx.Account().UpdateAccountBalance(ctx, sender.ID, sender.Balance.Sub(req.Amount)); err != nil {
			return err
		}
		if err := tx.Account().UpdateAccountBalance(ctx, recipient.ID, recipient.Balance.Add(req.Amount)); err != nil {
			return err
		}

		recipientID := recipient.ID
		transaction.CounterpartyUserID = &recipientID
		return tx.Transaction().CreateTransaction(ctx, transaction)
	})
	if err != nil {
		appErr := errors.AsAppError(storeError(err))
		s.metrics.Request(string(domain.TypeTransfer), outcome(appErr))
		if transferOutcomes[appErr.Code] {
			s.logger.Info("Transfer rejected", "sender_id", req.SenderID, "reason", appErr.Code)
			return rejected(appErr), nil
		}
		s.logger.Error("Transfer failed", "sender_id", req.SenderID, "error", err)
		return nil, appErr
	}
	if !created {
		s.logger.Info("Returning existing transfer for idempotency key", "transaction_id", transaction.ID)
		return &TransferResult{Success: true, Message: "Transfer successful.", Transaction: transaction}, nil
	}

	s.metrics.Request(string(domain.TypeTransfer), "ok")
	amount := req.Amount.StringFixed(2)
	s.notifier.send(ctx, sender.ID, fmt.Sprintf("Transfer successful: sent %s to %s.", amount, recipient.Email))
	s.notifier.send(ctx, recipient.ID, fmt.Sprintf("Funds received: %s from %s.", amount, sender.Email))

	s.logger.Info("Transfer completed successfully", "transaction_id", transaction.ID)
	return &TransferResult{Success: true, Message: "Transfer successful.", Transaction: transaction}, nil
}

// lockPair locks both accounts in ascending id order so two opposite
// transfers cannot deadlock, and returns them as (first, second).
func lockPair(ctx context.Context, repo domain.AccountRepository, first, second uuid.UUID) (*domain.Account, *domain.Account, error) {
	lo, hi := first, second
	if bytes.Compare(hi[:], lo[:]) < 0 {
		lo, hi = hi, lo
	}

	loAccount, err := repo.GetAccountForUpdate(ctx, lo)
	if err != nil {
		return nil, nil, err
	}
	hiAccount, err := repo.GetAccountForUpdate(ctx, hi)
	if err != nil {
		return nil, nil, err
	}

	if lo == first {
		return loAccount, hiAccount, nil
	}
	return hiAccount, loAccount, nil
}

// findExisting returns the record already filed under key. A key reused for a
// different kind of request or amount is rejected rather than replayed.
func findExisting(
	ctx context.Context,
	tx domain.Store,
	userID uuid.UUID,
	key *uuid.UUID,
	txType domain.Type,
	amount decimal.Decimal,
) (*domain.Transaction, error) {
	if key == nil {
		return nil, nil
	}
	existing, err := tx.Transaction().GetTransactionByIdempotencyKey(ctx, userID, *key)
	if err != nil || existing == nil {
		return existing, err
	}
	if existing.Type != txType || !existing.Amount.Equal(amount) {
		return nil, errors.ErrIdempotencyKeyReused.WithDetails(
			fmt.Sprintf("key %s belongs to %s transaction %s", key, existing.Type, existing.ID))
	}
	return existing, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(errors.AsAppError(err).Code)
}

func (s *WalletService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.store.Transaction().GetTransactionByID(ctx, id)
	return tx, storeError(err)
}

func (s *WalletService) ListDeposits(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	t := domain.TypeDeposit
	return s.ListTransactions(ctx, userID, &t)
}

func (s *WalletService) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	t := domain.TypeWithdrawal
	return s.ListTransactions(ctx, userID, &t)
}

// ListTransactions returns the user's records newest first, all types when txType is nil.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, txType *domain.Type) ([]*domain.Transaction, error) {
	txs, err := s.store.Transaction().ListByUser(ctx, userID, txType)
	return txs, storeError(err)
}

func (s *WalletService) ListAllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	txs, err := s.store.Transaction().ListAll(ctx)
	return txs, storeError(err)
}

func (s *WalletService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	account, err := s.store.Account().GetAccount(ctx, userID)
	return account, storeError(err)
}

func (s *WalletService) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	notifications, err := s.store.Notification().ListNotifications(ctx, userID)
	return notifications, storeError(err)
}

func (s *WalletService) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, read bool) error {
	return storeError(s.store.Notification().MarkNotificationRead(ctx, userID, id, read))
}

func (s *WalletService) ListCompanyBankAccounts(ctx context.Context) ([]*domain.CompanyBankAccount, error) {
	accounts, err := s.store.BankAccount().ListBankAccounts(ctx)
	return accounts, storeError(err)
}
