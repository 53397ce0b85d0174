package handlers

import (
	"errors"
	"net/http"

	"pokerbank/internal/middleware"
	"pokerbank/internal/money"
	"pokerbank/internal/payments"
	"pokerbank/internal/services"
)

type createTransferRequest struct {
	SenderBankID        string        `json:"senderBankId" validate:"required"`
	ReceiverShareableID string        `json:"receiverShareableId" validate:"required"`
	Amount              *money.Amount `json:"amount"`
	Name                string        `json:"name" validate:"max=100"`
	Email               string        `json:"email" validate:"omitempty,email,max=254"`
}

// CreateTransfer sends money from one of the caller's banks to the bank
// behind a shareable id.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, errInvalidAmount.Error())
		return
	}
	transaction, err := h.transfers.Transfer(r.Context(), services.TransferRequest{
		UserID:              userID,
		SenderBankID:        req.SenderBankID,
		ReceiverShareableID: req.ReceiverShareableID,
		Amount:              *req.Amount,
		Name:                req.Name,
		Email:               req.Email,
	})
	if err != nil {
		h.respondTransferError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, transaction)
}

func (h *Handler) respondTransferError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrSameBankTransfer):
		respondError(w, http.StatusBadRequest, "same_bank_transfer")
	case errors.Is(err, services.ErrBankNotFound):
		respondError(w, http.StatusNotFound, "bank_not_found")
	case errors.Is(err, services.ErrReceiverBankNotFound):
		respondError(w, http.StatusNotFound, "receiver_bank_not_found")
	case errors.Is(err, services.ErrUnauthorizedBank):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, payments.ErrRailDisabled):
		respondError(w, http.StatusServiceUnavailable, "payment_rail_unavailable")
	case errors.Is(err, services.ErrTransferFailed):
		respondError(w, http.StatusBadGateway, "transfer_failed")
	default:
		h.log.Error(r.Context(), "create transfer failed", err)
		respondError(w, http.StatusInternalServerError, "transfer_failed")
	}
}
