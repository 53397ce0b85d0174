package settlement

import (
	"pokerbank/internal/models"
	"pokerbank/internal/money"
)

// NetPosition is cash-outs minus buy-ins. Positive means the participant is
// owed money.
func NetPosition(p models.Participant) money.Amount {
	return TotalCashOuts(p) - TotalBuyIns(p)
}

func TotalBuyIns(p models.Participant) money.Amount {
	return sumEvents(p.BuyIns)
}

func TotalCashOuts(p models.Participant) money.Amount {
	return sumEvents(p.CashOuts)
}

func sumEvents(events []models.Event) money.Amount {
	var total money.Amount
	for _, event := range events {
		total += event.Amount
	}
	return total
}
