package handler

import (
	"net/http"
	"strings"

	"wallet-service/internal/domain"
	"wallet-service/internal/service"
)

type BankAccountHandler struct {
	walletService *service.WalletService
	adminService  *service.AdminService
}

func NewBankAccountHandler(walletService *service.WalletService, adminService *service.AdminService) *BankAccountHandler {
	return &BankAccountHandler{
		walletService: walletService,
		adminService:  adminService,
	}
}

type BankAccountPayload struct {
	BankAccountID     string `json:"bank_account_id,omitempty"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

func toBankAccountPayloads(accounts []*domain.CompanyBankAccount) []BankAccountPayload {
	out := make([]BankAccountPayload, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, BankAccountPayload{
			BankAccountID:     a.ID.String(),
			BankName:          a.BankName,
			AccountNumber:     a.AccountNumber,
			AccountHolderName: a.AccountHolderName,
		})
	}
	return out
}

// ListBankAccounts returns the company accounts users send deposits to.
func (h *BankAccountHandler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.walletService.ListCompanyBankAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBankAccountPayloads(accounts))
}

type ReplaceBankAccountsRequest struct {
	Accounts []BankAccountPayload `json:"accounts"`
}

func (h *BankAccountHandler) ReplaceBankAccounts(w http.ResponseWriter, r *http.Request) {
	var req ReplaceBankAccountsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	accounts := make([]*domain.CompanyBankAccount, 0, len(req.Accounts))
	for _, p := range req.Accounts {
		accounts = append(accounts, &domain.CompanyBankAccount{
			BankName:          strings.TrimSpace(p.BankName),
			AccountNumber:     strings.TrimSpace(p.AccountNumber),
			AccountHolderName: strings.TrimSpace(p.AccountHolderName),
		})
	}

	saved, err := h.adminService.ReplaceCompanyBankAccounts(r.Context(), accounts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBankAccountPayloads(saved))
}
