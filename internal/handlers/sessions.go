package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pokerbank/internal/middleware"
	"pokerbank/internal/models"
	"pokerbank/internal/money"
	"pokerbank/internal/services"
	"pokerbank/internal/settlement"
	"pokerbank/internal/stream"
	"pokerbank/internal/validator"
)

const (
	actionJoin       = "join"
	actionCashOut    = "cash_out"
	actionEndSession = "end_session"
)

type createSessionRequest struct {
	Name string `json:"name" validate:"max=100"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.sessions.CreateSession(r.Context(), userID, req.Name)
	if err != nil {
		h.respondSessionError(w, r, err, "unable_to_create_session")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

type joinSessionRequest struct {
	ReferralCode string `json:"referral_code" validate:"required"`
}

// JoinSession resolves a referral code to its session. It does not buy the
// caller in; that happens through the participants route.
func (h *Handler) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.sessions.JoinByReferral(r.Context(), req.ReferralCode)
	if err != nil {
		h.respondSessionError(w, r, err, "unable_to_join_session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.GetView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondSessionError(w, r, err, "unable_to_load_session")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type participantRequest struct {
	Action        string        `json:"action" validate:"required,oneof=join cash_out"`
	UserID        string        `json:"userId" validate:"required"`
	UserName      string        `json:"userName"`
	BuyInAmount   *money.Amount `json:"buyInAmount"`
	CashOutAmount *money.Amount `json:"cashOutAmount"`
}

// UpdateParticipant records a buy-in or cash-out for the caller.
func (h *Handler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req participantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID != userID {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := validator.ValidateDisplayName(req.UserName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	groupID := chi.URLParam(r, "id")
	ctx := h.log.WithSession(r.Context(), groupID)

	var err error
	switch req.Action {
	case actionJoin:
		if req.BuyInAmount == nil {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		err = h.sessions.JoinOrRebuy(ctx, services.JoinRequest{
			GroupID:  groupID,
			UserID:   userID,
			UserName: req.UserName,
			Amount:   *req.BuyInAmount,
		})
	case actionCashOut:
		if req.CashOutAmount == nil {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		err = h.sessions.CashOut(ctx, services.CashOutRequest{
			GroupID: groupID,
			UserID:  userID,
			Amount:  *req.CashOutAmount,
		})
	}
	if err != nil {
		h.respondSessionError(w, r.WithContext(ctx), err, "unable_to_update_participant")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type updateSessionRequest struct {
	Action     string `json:"action" validate:"required,oneof=end_session"`
	HostUserID string `json:"hostUserId"`
}

type endSessionResponse struct {
	Success   bool                    `json:"success"`
	Transfers []models.TransferRecord `json:"transfers"`
	Unsettled []settlement.Balance    `json:"unsettled"`
	Imbalance money.Amount            `json:"imbalance"`
}

// UpdateSession ends the session and settles it. Only the host may do so.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.HostUserID != "" && req.HostUserID != userID {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	groupID := chi.URLParam(r, "id")
	ctx := h.log.WithSession(r.Context(), groupID)
	result, err := h.sessions.EndSession(ctx, groupID, userID)
	if err != nil {
		h.respondSessionError(w, r.WithContext(ctx), err, "settlement_failed")
		return
	}
	resp := endSessionResponse{
		Success:   true,
		Transfers: result.Transfers,
		Unsettled: result.Unsettled,
		Imbalance: result.Imbalance,
	}
	if resp.Transfers == nil {
		resp.Transfers = []models.TransferRecord{}
	}
	if resp.Unsettled == nil {
		resp.Unsettled = []settlement.Balance{}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	records, err := h.sessions.ListTransfers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondSessionError(w, r, err, "unable_to_load_transfers")
		return
	}
	if records == nil {
		records = []models.TransferRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"transfers": records})
}

func (h *Handler) StreamSession(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.streamTarget(w, r)
	if !ok {
		return
	}
	stream.ServeSSE(w, r, h.broadcaster, groupID)
}

func (h *Handler) WSSession(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.streamTarget(w, r)
	if !ok {
		return
	}
	stream.ServeWS(w, r, h.broadcaster, groupID)
}

// streamTarget rejects unknown sessions before the response is committed to a
// stream.
func (h *Handler) streamTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	groupID := chi.URLParam(r, "id")
	if _, err := h.sessions.GetView(r.Context(), groupID); err != nil {
		h.respondSessionError(w, r, err, "unable_to_load_session")
		return "", false
	}
	return groupID, true
}

func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, services.ErrParticipantNotFound):
		respondError(w, http.StatusNotFound, "participant_not_found")
	case errors.Is(err, services.ErrNotHost):
		respondError(w, http.StatusForbidden, "not_host")
	case errors.Is(err, services.ErrSessionEnded):
		respondError(w, http.StatusBadRequest, "session_ended")
	case errors.Is(err, services.ErrSettlementInProgress):
		respondError(w, http.StatusConflict, "settlement_in_progress")
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrMissingUser):
		respondError(w, http.StatusBadRequest, "user_id_required")
	default:
		h.log.Error(r.Context(), fallback, err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
