package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders err, treating anything outside the AppError taxonomy as internal.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Code == errors.InternalError {
		errResponse.Details = ""
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string, invalid *errors.AppError) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error())
	}
	return amount, nil
}

// Parse optional idempotency key
func parseIdempotencyKey(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	key, err := uuid.Parse(s)
	if err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "invalid idempotency_key format").WithDetails(err.Error())
	}
	return &key, nil
}

type TransactionResponse struct {
	TransactionID      string  `json:"transaction_id"`
	UserID             string  `json:"user_id"`
	Type               string  `json:"type"`
	Amount             string  `json:"amount"`
	Status             string  `json:"status"`
	Method             string  `json:"method,omitempty"`
	DestinationName    string  `json:"destination_name,omitempty"`
	DestinationAccount string  `json:"destination_account_number,omitempty"`
	DestinationHolder  string  `json:"destination_holder_name,omitempty"`
	CounterpartyUserID *string `json:"counterparty_user_id,omitempty"`
	RecipientKey       string  `json:"recipient,omitempty"`
	IdempotencyKey     *string `json:"idempotency_key,omitempty"`
	UpdatedBy          string  `json:"updated_by,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:      tx.ID.String(),
		UserID:             tx.UserID.String(),
		Type:               string(tx.Type),
		Amount:             tx.Amount.StringFixed(2),
		Status:             string(tx.Status),
		Method:             tx.Method,
		DestinationName:    tx.DestinationName,
		DestinationAccount: tx.DestinationAccountNumber,
		DestinationHolder:  tx.DestinationHolderName,
		RecipientKey:       tx.RecipientKey,
		UpdatedBy:          tx.UpdatedBy,
		CreatedAt:          tx.CreatedAt.Format(timeLayout),
		UpdatedAt:          tx.UpdatedAt.Format(timeLayout),
	}
	if tx.CounterpartyUserID != nil {
		id := tx.CounterpartyUserID.String()
		resp.CounterpartyUserID = &id
	}
	if tx.IdempotencyKey != nil {
		keyStr := tx.IdempotencyKey.String()
		resp.IdempotencyKey = &keyStr
	}
	return resp
}

func toTransactionResponses(txs []*domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

type AccountResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	Balance   string `json:"balance"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: a.ID.String(),
		Email:     a.Email,
		FullName:  a.FullName,
		Balance:   a.Balance.StringFixed(2),
	}
}
