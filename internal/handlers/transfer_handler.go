package handlers

import (
	"context"
	"net/http"

	"campusbank/internal/service"
	"campusbank/models"

	"github.com/google/uuid"
)

type TransferHandler struct {
	transferService service.TransferService
}

func NewTransferHandler(transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

func (h *TransferHandler) InitiateTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.InitiateTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	transfer, err := h.transferService.InitiateTransfer(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, "Transfer initiated", transfer)
}

func (h *TransferHandler) InitiateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.InitiateRequestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	transfer, err := h.transferService.InitiateRequest(r.Context(), &req)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, "Money request initiated", transfer)
}

func (h *TransferHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "Transfer approved", h.transferService.Approve)
}

func (h *TransferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "Transfer rejected", h.transferService.Reject)
}

func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "Item cancelled", h.transferService.Cancel)
}

type transferAction func(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error)

func (h *TransferHandler) act(w http.ResponseWriter, r *http.Request, message string, action transferAction) {
	transferID, ok := pathID(w, r, "transfer_id")
	if !ok {
		return
	}

	var req models.TransferActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actorUserID, err := uuid.Parse(req.ActorUserID)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "Invalid actor_user_id format")
		return
	}

	transfer, err := action(r.Context(), transferID, actorUserID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, message, transfer)
}

func (h *TransferHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		sendJSONError(w, http.StatusBadRequest, "user_id parameter is required")
		return
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	transfers, err := h.transferService.ListPending(r.Context(), userID)
	if err != nil {
		sendDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Pending items", transfers)
}
