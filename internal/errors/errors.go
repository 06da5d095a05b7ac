package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InvalidStatus          ErrorCode = "invalid_status"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	RecipientNotFound      ErrorCode = "recipient_not_found"
	SameAccountTransfer    ErrorCode = "same_account_transfer"
	AccountNotFound        ErrorCode = "account_not_found"
	TransactionNotFound    ErrorCode = "transaction_not_found"
	NotificationNotFound   ErrorCode = "notification_not_found"
	DuplicateAccount       ErrorCode = "duplicate_account"
	ImmutableTransaction   ErrorCode = "immutable_transaction"
	ConcurrentModification ErrorCode = "concurrent_modification"
	PersistenceError       ErrorCode = "persistence_error"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on code so wrapped copies carrying different details still
// compare equal to the predefined values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the shared Err* values are never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Persistence wraps a driver failure.
func Persistence(message string, err error) *AppError {
	appErr := NewAppError(PersistenceError, message)
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// AsAppError unwraps err into an *AppError, falling back to internal_error.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidStatus, SameAccountTransfer:
		return http.StatusBadRequest
	case AccountNotFound, TransactionNotFound, NotificationNotFound, RecipientNotFound:
		return http.StatusNotFound
	case DuplicateAccount, ConcurrentModification, ImmutableTransaction:
		return http.StatusConflict
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	case PersistenceError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be greater than zero")
	ErrAmountPrecision        = NewAppError(InvalidAmount, "amount must have at most two decimal places")
	ErrIdempotencyKeyReused   = NewAppError(InvalidInput, "idempotency key already used for another request")
	ErrInvalidStatus          = NewAppError(InvalidStatus, "unknown transaction status")
	ErrInvalidAccountID       = NewAppError(InvalidInput, "invalid account id")
	ErrInvalidTransactionID   = NewAppError(InvalidInput, "invalid transaction id")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient balance")
	ErrRecipientNotFound      = NewAppError(RecipientNotFound, "recipient not found")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrTransactionNotFound    = NewAppError(TransactionNotFound, "transaction not found")
	ErrNotificationNotFound   = NewAppError(NotificationNotFound, "notification not found")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrImmutableTransaction   = NewAppError(ImmutableTransaction, "transfer transactions cannot change status")
	ErrConcurrentModification = NewAppError(ConcurrentModification, "balance changed concurrently, retry")
	ErrCannotBeginTransaction = NewAppError(InternalError, "store cannot begin a transaction")
)
