package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"wallet-service/internal/domain"
	"wallet-service/internal/errors"
	"wallet-service/internal/service"
)

type AccountHandler struct {
	walletService *service.WalletService
	adminService  *service.AdminService
}

func NewAccountHandler(walletService *service.WalletService, adminService *service.AdminService) *AccountHandler {
	return &AccountHandler{
		walletService: walletService,
		adminService:  adminService,
	}
}

type CreateAccountRequest struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	InitialBalance string `json:"initial_balance"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		if initialBalance, err = parseAmount(req.InitialBalance); err != nil {
			writeError(w, err)
			return
		}
	}

	account, err := h.adminService.CreateAccount(r.Context(), req.Email, req.FullName, initialBalance)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.walletService.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.adminService.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, response)
}

type AdjustBalanceRequest struct {
	Amount string `json:"amount"`
	Mode   string `json:"mode"`
	Actor  string `json:"actor,omitempty"`
}

type AdjustmentResponse struct {
	AdjustmentID    string `json:"adjustment_id"`
	UserID          string `json:"user_id"`
	Mode            string `json:"mode"`
	Amount          string `json:"amount"`
	PreviousBalance string `json:"previous_balance"`
	NewBalance      string `json:"new_balance"`
	Actor           string `json:"actor"`
	CreatedAt       string `json:"created_at"`
}

func toAdjustmentResponse(adj *domain.BalanceAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		AdjustmentID:    adj.ID.String(),
		UserID:          adj.UserID.String(),
		Mode:            string(adj.Mode),
		Amount:          adj.Amount.StringFixed(2),
		PreviousBalance: adj.PreviousBalance.StringFixed(2),
		NewBalance:      adj.NewBalance.StringFixed(2),
		Actor:           adj.Actor,
		CreatedAt:       adj.CreatedAt.Format(timeLayout),
	}
}

func (h *AccountHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req AdjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	mode, ok := domain.ParseAdjustMode(req.Mode)
	if !ok {
		writeError(w, errors.NewAppError(errors.InvalidInput, "mode must be 'add' or 'set'"))
		return
	}

	adjustment, err := h.adminService.AdjustUserBalance(r.Context(), userID, amount, mode, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdjustmentResponse(adjustment))
}

func (h *AccountHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	adjustments, err := h.adminService.ListAdjustments(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]AdjustmentResponse, 0, len(adjustments))
	for _, adj := range adjustments {
		response = append(response, toAdjustmentResponse(adj))
	}
	writeJSON(w, http.StatusOK, response)
}
