package handlers

import (
	"net/http"

	"campusbank/internal/service"
	"campusbank/models"
)

type SettlementHandler struct {
	settlementService service.SettlementService
}

func NewSettlementHandler(settlementService service.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

func (h *SettlementHandler) CardPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CardPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	receipt, err := h.settlementService.CardPayment(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Payment settled", receipt)
}

func (h *SettlementHandler) BarcodePayment(w http.ResponseWriter, r *http.Request) {
	var req models.BarcodePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	receipt, err := h.settlementService.BarcodePayment(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Payment settled", receipt)
}

func (h *SettlementHandler) ManageFunds(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "account_id")
	if !ok {
		return
	}

	var req models.ManageFundsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.settlementService.ManageFunds(r.Context(), accountID, &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Funds updated", account)
}

func (h *SettlementHandler) FeeQuote(w http.ResponseWriter, r *http.Request) {
	amount := r.URL.Query().Get("amount")
	if amount == "" {
		sendJSONError(w, http.StatusBadRequest, "amount parameter is required")
		return
	}

	quote, err := h.settlementService.QuoteFee(amount)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Fee quote", quote)
}

func (h *SettlementHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	postings, err := h.settlementService.Ledger(r.Context())
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Global ledger", postings)
}
