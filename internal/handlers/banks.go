package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pokerbank/internal/middleware"
	"pokerbank/internal/models"
	"pokerbank/internal/validator"
)

type createBankRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	FundingSourceURL string `json:"funding_source_url" validate:"required"`
}

// CreateBank links a funding source to the caller. The first funded bank is
// the one settlements pay from and into.
func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createBankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateFundingSourceURL(strings.TrimSpace(req.FundingSourceURL)); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	bank := models.Bank{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		FundingSourceURL: strings.TrimSpace(req.FundingSourceURL),
		ShareableID:      strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.banks.Create(r.Context(), tx, bank); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "bank.linked", "bank", bank.ID, map[string]string{
			"name": bank.Name,
		})
	})
	if err != nil {
		h.log.Error(r.Context(), "link bank failed", err)
		respondError(w, http.StatusInternalServerError, "unable to link bank")
		return
	}
	respondJSON(w, http.StatusCreated, bank)
}

func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	banks, err := h.banks.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load banks")
		return
	}
	if banks == nil {
		banks = []models.Bank{}
	}
	respondJSON(w, http.StatusOK, banks)
}
