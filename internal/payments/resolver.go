package payments

import (
	"context"

	"pokerbank/internal/models"
)

// Endpoint is a user's funded bank connection on the payment rail.
type Endpoint struct {
	BankID           string
	UserID           string
	FundingSourceURL string
}

type bankLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.Bank, error)
}

type BankResolver struct {
	banks bankLister
}

func NewBankResolver(banks bankLister) *BankResolver {
	return &BankResolver{banks: banks}
}

// ResolveFundedEndpoint returns the user's oldest bank with a funding source,
// or nil when there is none.
func (r *BankResolver) ResolveFundedEndpoint(ctx context.Context, userID string) (*Endpoint, error) {
	banks, err := r.banks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, bank := range banks {
		if bank.FundingSourceURL == "" {
			continue
		}
		return &Endpoint{BankID: bank.ID, UserID: userID, FundingSourceURL: bank.FundingSourceURL}, nil
	}
	return nil, nil
}
