package settlement

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pokerbank/internal/logger"
	"pokerbank/internal/models"
	"pokerbank/internal/money"
	"pokerbank/internal/payments"
)

const ReasonMissingEndpoint = "missing linked funding source"

type Party struct {
	UserID   string
	Endpoint payments.Endpoint
}

type Instruction struct {
	Payer  Party
	Payee  Party
	Amount money.Amount
}

// Balance is a signed remainder left after matching. Negative amounts are
// still owed by the user.
type Balance struct {
	UserID string       `json:"userId"`
	Amount money.Amount `json:"amount"`
}

// Plan is the outcome of matching payers against payees. Imbalance is the sum
// of every net position and is zero when buy-ins equal cash-outs.
type Plan struct {
	Instructions []Instruction
	Skipped      []models.TransferRecord
	Unsettled    []Balance
	Imbalance    money.Amount
}

type Planner struct {
	resolver EndpointResolver
	workers  int
	logger   *logger.Logger
}

func NewPlanner(resolver EndpointResolver, workers int, log *logger.Logger) *Planner {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Planner{resolver: resolver, workers: workers, logger: log}
}

type position struct {
	userID    string
	net       money.Amount
	remaining money.Amount
	endpoint  *payments.Endpoint
}

func (p *Planner) Plan(ctx context.Context, participants []models.Participant) (Plan, error) {
	var plan Plan
	positions := make([]*position, 0, len(participants))
	for _, participant := range participants {
		net := NetPosition(participant)
		plan.Imbalance += net
		if net == 0 {
			continue
		}
		positions = append(positions, &position{userID: participant.UserID, net: net, remaining: net.Abs()})
	}

	cache := NewEndpointCache(p.resolver, p.logger)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)
	for _, pos := range positions {
		pos := pos
		group.Go(func() error {
			pos.endpoint = cache.Resolve(groupCtx, pos.userID)
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}

	var payers, payees []*position
	for _, pos := range positions {
		if pos.endpoint == nil {
			record := models.TransferRecord{Status: models.TransferSkipped, Reason: ReasonMissingEndpoint}
			if pos.net < 0 {
				record.From = pos.userID
			} else {
				record.To = pos.userID
			}
			plan.Skipped = append(plan.Skipped, record)
			continue
		}
		if pos.net < 0 {
			payers = append(payers, pos)
		} else {
			payees = append(payees, pos)
		}
	}

	i, j := 0, 0
	for i < len(payers) && j < len(payees) {
		payer, payee := payers[i], payees[j]
		amount := money.Min(payer.remaining, payee.remaining)
		if amount <= 0 {
			if payer.remaining <= 0 {
				i++
			}
			if payee.remaining <= 0 {
				j++
			}
			continue
		}
		plan.Instructions = append(plan.Instructions, Instruction{
			Payer:  Party{UserID: payer.userID, Endpoint: *payer.endpoint},
			Payee:  Party{UserID: payee.userID, Endpoint: *payee.endpoint},
			Amount: amount,
		})
		payer.remaining -= amount
		payee.remaining -= amount
		if payer.remaining <= 0 {
			i++
		}
		if payee.remaining <= 0 {
			j++
		}
	}

	for _, payer := range payers[i:] {
		if payer.remaining > 0 {
			plan.Unsettled = append(plan.Unsettled, Balance{UserID: payer.userID, Amount: -payer.remaining})
		}
	}
	for _, payee := range payees[j:] {
		if payee.remaining > 0 {
			plan.Unsettled = append(plan.Unsettled, Balance{UserID: payee.userID, Amount: payee.remaining})
		}
	}

	if plan.Imbalance != 0 || len(plan.Unsettled) > 0 {
		p.logger.Warn(p.logger.WithFields(ctx, map[string]any{
			"imbalance": plan.Imbalance.String(),
			"unsettled": len(plan.Unsettled),
		}), "settlement plan leaves balances unmatched")
	}
	return plan, nil
}
