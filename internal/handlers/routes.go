package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func SetupRoutes(accountHandler *AccountHandler, settlementHandler *SettlementHandler, transferHandler *TransferHandler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/accounts", accountHandler.IssueAccount).Methods("POST")
	router.HandleFunc("/admins", accountHandler.IssueAdmin).Methods("POST")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/transactions", accountHandler.AccountTransactions).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/funds", settlementHandler.ManageFunds).Methods("POST")
	router.HandleFunc("/accounts/{account_id}/card", accountHandler.RegenerateCard).Methods("POST")
	router.HandleFunc("/accounts/{account_id}/freeze", accountHandler.SetFrozen).Methods("PUT")
	router.HandleFunc("/accounts/{account_id}/purchase-limit", accountHandler.SetPurchaseLimit).Methods("PUT")
	router.HandleFunc("/accounts/{account_id}/barcode", accountHandler.SetBarcodeDisabled).Methods("PUT")

	router.HandleFunc("/users/{user_id}/username", accountHandler.UpdateUsername).Methods("PUT")
	router.HandleFunc("/users/{user_id}/password", accountHandler.UpdatePassword).Methods("PUT")

	router.HandleFunc("/payments/card", settlementHandler.CardPayment).Methods("POST")
	router.HandleFunc("/payments/barcode", settlementHandler.BarcodePayment).Methods("POST")
	router.HandleFunc("/payments/fee", settlementHandler.FeeQuote).Methods("GET")

	router.HandleFunc("/transfers", transferHandler.InitiateTransfer).Methods("POST")
	router.HandleFunc("/transfers", transferHandler.ListPending).Methods("GET")
	router.HandleFunc("/transfers/requests", transferHandler.InitiateRequest).Methods("POST")
	router.HandleFunc("/transfers/{transfer_id}/approve", transferHandler.Approve).Methods("POST")
	router.HandleFunc("/transfers/{transfer_id}/reject", transferHandler.Reject).Methods("POST")
	router.HandleFunc("/transfers/{transfer_id}/cancel", transferHandler.Cancel).Methods("POST")

	router.HandleFunc("/ledger", settlementHandler.Ledger).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"OK"}`))
	}).Methods("GET")

	return router
}
