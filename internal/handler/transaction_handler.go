package handler

import (
	"net/http"
	"strings"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/service"
)

type TransactionHandler struct {
	walletService         *service.WalletService
	reconciliationService *service.ReconciliationService
}

func NewTransactionHandler(walletService *service.WalletService, reconciliationService *service.ReconciliationService) *TransactionHandler {
	return &TransactionHandler{
		walletService:         walletService,
		reconciliationService: reconciliationService,
	}
}

type DepositRequest struct {
	Amount         string `json:"amount"`
	Method         string `json:"method,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (h *TransactionHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.walletService.RequestDeposit(r.Context(), &service.DepositRequest{
		UserID:         userID,
		Amount:         amount,
		Method:         req.Method,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(transaction))
}

type WithdrawalRequest struct {
	Amount                   string `json:"amount"`
	Method                   string `json:"method,omitempty"`
	DestinationName          string `json:"destination_name"`
	DestinationAccountNumber string `json:"destination_account_number"`
	DestinationHolderName    string `json:"destination_holder_name"`
	IdempotencyKey           string `json:"idempotency_key,omitempty"`
}

func (h *TransactionHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req WithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.walletService.RequestWithdrawal(r.Context(), &service.WithdrawalRequest{
		UserID: userID,
		Amount: amount,
		Method: req.Method,
		Destination: service.Destination{
			Name:          req.DestinationName,
			AccountNumber: req.DestinationAccountNumber,
			HolderName:    req.DestinationHolderName,
		},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(transaction))
}

type TransferRequest struct {
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type TransferResponse struct {
	Success     bool                 `json:"success"`
	Code        string               `json:"code,omitempty"`
	Message     string               `json:"message"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// Transfer reports rejections inside the data envelope with the status code
// their error code maps to.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	idempotencyKey, err := parseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.walletService.RequestTransfer(r.Context(), &service.TransferRequest{
		SenderID:       userID,
		RecipientKey:   req.Recipient,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response := TransferResponse{
		Success: result.Success,
		Code:    string(result.Code),
		Message: result.Message,
	}
	if !result.Success {
		writeJSON(w, errors.NewAppError(result.Code, result.Message).HTTPStatus(), response)
		return
	}

	tx := toTransactionResponse(result.Transaction)
	response.Transaction = &tx
	writeJSON(w, http.StatusCreated, response)
}

func (h *TransactionHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	h.listByType(w, r, domain.TypeDeposit)
}

func (h *TransactionHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	h.listByType(w, r, domain.TypeWithdrawal)
}

// ListTransactions accepts an optional ?type= filter.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type")))
	if raw == "" {
		h.list(w, r, nil)
		return
	}

	txType, ok := domain.ParseType(raw)
	if !ok {
		writeError(w, errors.NewAppErrorf(errors.InvalidInput, "unknown transaction type %q", raw))
		return
	}
	h.list(w, r, &txType)
}

func (h *TransactionHandler) listByType(w http.ResponseWriter, r *http.Request, txType domain.Type) {
	h.list(w, r, &txType)
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, txType *domain.Type) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.walletService.GetAccount(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	txs, err := h.walletService.ListTransactions(r.Context(), userID, txType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (h *TransactionHandler) ListAllTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.walletService.ListAllTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

type SetStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor,omitempty"`
}

type StatusChangeResponse struct {
	Transaction    TransactionResponse `json:"transaction"`
	PreviousStatus string              `json:"previous_status"`
	Applied        bool                `json:"applied"`
	BalanceDelta   string              `json:"balance_delta"`
}

func (h *TransactionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	transactionID, err := pathUUID(r, "transaction_id", errors.ErrInvalidTransactionID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, ok := domain.ParseStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		writeError(w, errors.ErrInvalidStatus.WithDetails(req.Status))
		return
	}

	change, err := h.reconciliationService.SetStatus(r.Context(), transactionID, status, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusChangeResponse{
		Transaction:    toTransactionResponse(change.Transaction),
		PreviousStatus: string(change.Previous),
		Applied:        change.Applied,
		BalanceDelta:   change.Delta.StringFixed(2),
	})
}
