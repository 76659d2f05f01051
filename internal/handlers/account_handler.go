package handlers

import (
	"net/http"

	"campusbank/internal/service"
	"campusbank/models"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

func (h *AccountHandler) IssueAccount(w http.ResponseWriter, r *http.Request) {
	var req models.IssueAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	issued, err := h.accountService.IssueAccount(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, "Account issued", issued)
}

func (h *AccountHandler) IssueAdmin(w http.ResponseWriter, r *http.Request) {
	var req models.IssueAdminRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	issued, err := h.accountService.IssueAdmin(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, "Admin issued", issued)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Account found", account)
}

func (h *AccountHandler) AccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	postings, err := h.accountService.AccountTransactions(r.Context(), accountID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Account transactions", postings)
}

func (h *AccountHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}

	var req models.UpdateUsernameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.UpdateUsername(r.Context(), userID, &req); err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Username updated", nil)
}

func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}

	var req models.UpdatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.UpdatePassword(r.Context(), userID, &req); err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Password updated", nil)
}

func (h *AccountHandler) RegenerateCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	account, err := h.accountService.RegenerateCard(r.Context(), accountID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Card regenerated", account)
}

func (h *AccountHandler) SetFrozen(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	var req models.SetFrozenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.SetFrozen(r.Context(), accountID, *req.Frozen); err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Freeze setting updated", nil)
}

func (h *AccountHandler) SetPurchaseLimit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	var req models.SetPurchaseLimitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.SetPurchaseLimit(r.Context(), accountID, req.Limit); err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Purchase limit updated", nil)
}

func (h *AccountHandler) SetBarcodeDisabled(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	var req models.SetBarcodeDisabledRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.SetBarcodeDisabled(r.Context(), accountID, *req.Disabled); err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Barcode setting updated", nil)
}
