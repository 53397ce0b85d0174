package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pokerbank/internal/payments"
	"pokerbank/internal/services"
	"pokerbank/internal/store"
)

func TestCreateTransfer(t *testing.T) {
	var got services.TransferRequest
	handler := newTestHandler(Deps{
		Transfers: stubTransferService{transferFn: func(_ context.Context, req services.TransferRequest) (store.Transaction, error) {
			got = req
			return store.Transaction{ID: "tx-1", Amount: req.Amount, Reference: "https://rail/transfers/1"}, nil
		}},
	})
	body := `{"senderBankId":"bank-a","receiverShareableId":"share-b","amount":"25.50","name":"Rent"}`
	rr := serveAs(t, handler, http.MethodPost, "/transfers", body, "user-1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "user-1" || got.SenderBankID != "bank-a" || got.ReceiverShareableID != "share-b" || got.Amount != 2550 || got.Name != "Rent" {
		t.Fatalf("unexpected request %+v", got)
	}
	var payload store.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ID != "tx-1" || payload.Amount != 2550 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCreateTransferValidation(t *testing.T) {
	handler := newTestHandler(Deps{
		Transfers: stubTransferService{transferFn: func(context.Context, services.TransferRequest) (store.Transaction, error) {
			t.Fatalf("service must not be called for an invalid body")
			return store.Transaction{}, nil
		}},
	})
	cases := map[string]string{
		`{"receiverShareableId":"share-b","amount":"1.00"}`:                                   "senderBankId is required",
		`{"senderBankId":"bank-a","amount":"1.00"}`:                                           "receiverShareableId is required",
		`{"senderBankId":"bank-a","receiverShareableId":"share-b"}`:                           "invalid_amount",
		`{"senderBankId":"bank-a","receiverShareableId":"share-b","amount":"1.005"}`:          "invalid_amount",
		`{"senderBankId":"bank-a","receiverShareableId":"share-b","amount":"1","email":"x"}`: "email is invalid",
	}
	for body, want := range cases {
		rr := serveAs(t, handler, http.MethodPost, "/transfers", body, "user-1")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rr.Code)
		}
		if msg := errorBody(t, rr); msg != want {
			t.Fatalf("expected %q for %s, got %q", want, body, msg)
		}
	}
}

func TestCreateTransferRequiresAuth(t *testing.T) {
	handler := newTestHandler(Deps{})
	rr := serveAs(t, handler, http.MethodPost, "/transfers", `{}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateTransferErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrSameBankTransfer, http.StatusBadRequest, "same_bank_transfer"},
		{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{services.ErrBankNotFound, http.StatusNotFound, "bank_not_found"},
		{services.ErrReceiverBankNotFound, http.StatusNotFound, "receiver_bank_not_found"},
		{services.ErrUnauthorizedBank, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: %w", services.ErrTransferFailed, payments.ErrRailDisabled), http.StatusServiceUnavailable, "payment_rail_unavailable"},
		{fmt.Errorf("%w: %w", services.ErrTransferFailed, payments.ErrTransferRejected), http.StatusBadGateway, "transfer_failed"},
		{errors.New("db down"), http.StatusInternalServerError, "transfer_failed"},
	}
	for _, tc := range cases {
		handler := newTestHandler(Deps{
			Transfers: stubTransferService{transferFn: func(context.Context, services.TransferRequest) (store.Transaction, error) {
				return store.Transaction{}, tc.err
			}},
		})
		body := `{"senderBankId":"bank-a","receiverShareableId":"share-b","amount":"5.00"}`
		rr := serveAs(t, handler, http.MethodPost, "/transfers", body, "user-1")
		if rr.Code != tc.status {
			t.Fatalf("expected %d for %v, got %d", tc.status, tc.err, rr.Code)
		}
		if msg := errorBody(t, rr); msg != tc.code {
			t.Fatalf("expected %q for %v, got %q", tc.code, tc.err, msg)
		}
	}
}
