package handlers

import (
	"net/http"

	"pokerbank/internal/middleware"
	"pokerbank/internal/store"
)

const maxPageSize = 100

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit
	transactions, err := h.transactions.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	if transactions == nil {
		transactions = []store.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"page":         page,
		"limit":        limit,
		"transactions": transactions,
	})
}
