package settlement

import (
	"context"
	"time"

	"pokerbank/internal/models"
	"pokerbank/internal/money"
	"pokerbank/internal/payments"
	"pokerbank/internal/store"
)

type stubResolver struct {
	resolveFn func(ctx context.Context, userID string) (*payments.Endpoint, error)
}

func (s stubResolver) ResolveFundedEndpoint(ctx context.Context, userID string) (*payments.Endpoint, error) {
	return s.resolveFn(ctx, userID)
}

// fundedResolver gives every user an endpoint except the ones listed.
func fundedResolver(unfunded ...string) stubResolver {
	missing := make(map[string]bool, len(unfunded))
	for _, userID := range unfunded {
		missing[userID] = true
	}
	return stubResolver{resolveFn: func(_ context.Context, userID string) (*payments.Endpoint, error) {
		if missing[userID] {
			return nil, nil
		}
		return &payments.Endpoint{BankID: "bank-" + userID, UserID: userID, FundingSourceURL: "https://rail/fs/" + userID}, nil
	}}
}

type stubRail struct {
	createFn func(ctx context.Context, source, destination string, amount money.Amount) (string, error)
}

func (s stubRail) CreateTransfer(ctx context.Context, source, destination string, amount money.Amount) (string, error) {
	return s.createFn(ctx, source, destination, amount)
}

type stubTransactionStore struct {
	createFn func(ctx context.Context, input store.TransactionInput) error
}

func (s stubTransactionStore) Create(ctx context.Context, input store.TransactionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, input)
}

func participant(userID string, buyIns, cashOuts []money.Amount) models.Participant {
	p := models.Participant{UserID: userID, UserName: userID, Status: models.ParticipantActive}
	at := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	for _, amount := range buyIns {
		p.BuyIns = append(p.BuyIns, models.Event{Amount: amount, Timestamp: at})
	}
	for _, amount := range cashOuts {
		p.CashOuts = append(p.CashOuts, models.Event{Amount: amount, Timestamp: at})
	}
	return p
}

// withNet builds a participant whose net position is exactly net.
func withNet(userID string, net money.Amount) models.Participant {
	if net < 0 {
		return participant(userID, []money.Amount{-net}, nil)
	}
	return participant(userID, []money.Amount{10000}, []money.Amount{10000 + net})
}
