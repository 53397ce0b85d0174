package settlement

import (
	"context"

	"github.com/google/uuid"

	"pokerbank/internal/logger"
	"pokerbank/internal/metrics"
	"pokerbank/internal/models"
	"pokerbank/internal/payments"
	"pokerbank/internal/store"
)

const (
	TransactionName     = "Group session settlement"
	SettlementEmail     = "settlements@pokerbank.app"
	TransactionChannel  = "online"
	TransactionCategory = "Transfer"

	ReasonRailFailed = "payment rail transfer failed"
)

type transactionRecorder interface {
	Create(ctx context.Context, input store.TransactionInput) error
}

// Executor runs a plan against the payment rail one instruction at a time.
type Executor struct {
	rail         payments.Rail
	transactions transactionRecorder
	metrics      *metrics.SettlementMetrics
	logger       *logger.Logger
}

func NewExecutor(rail payments.Rail, transactions transactionRecorder, m *metrics.SettlementMetrics, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{rail: rail, transactions: transactions, metrics: m, logger: log}
}

// Execute returns the plan's skipped records followed by one record per
// instruction, in plan order. A failed transfer never stops the batch.
func (e *Executor) Execute(ctx context.Context, plan Plan) []models.TransferRecord {
	records := make([]models.TransferRecord, 0, len(plan.Skipped)+len(plan.Instructions))
	for _, skipped := range plan.Skipped {
		records = append(records, skipped)
		e.metrics.IncTransfer(models.TransferSkipped)
	}
	for _, instruction := range plan.Instructions {
		record := e.execute(ctx, instruction)
		e.metrics.IncTransfer(record.Status)
		records = append(records, record)
	}
	return records
}

func (e *Executor) execute(ctx context.Context, in Instruction) models.TransferRecord {
	record := models.TransferRecord{From: in.Payer.UserID, To: in.Payee.UserID, Amount: in.Amount}
	logCtx := e.logger.WithFields(ctx, map[string]any{
		"from":   in.Payer.UserID,
		"to":     in.Payee.UserID,
		"amount": in.Amount.String(),
	})

	source, destination := in.Payer.Endpoint.FundingSourceURL, in.Payee.Endpoint.FundingSourceURL
	if source == "" || destination == "" {
		record.Status = models.TransferFailed
		record.Reason = ReasonMissingEndpoint
		return record
	}

	reference, err := e.rail.CreateTransfer(ctx, source, destination, in.Amount)
	if err != nil || reference == "" {
		e.logger.Error(logCtx, "settlement transfer failed", err)
		record.Status = models.TransferFailed
		record.Reason = ReasonRailFailed
		return record
	}

	record.Status = models.TransferSuccess
	record.Reference = reference
	err = e.transactions.Create(ctx, store.TransactionInput{
		ID:             uuid.NewString(),
		Name:           TransactionName,
		Amount:         in.Amount,
		SenderID:       in.Payer.UserID,
		SenderBankID:   in.Payer.Endpoint.BankID,
		ReceiverID:     in.Payee.UserID,
		ReceiverBankID: in.Payee.Endpoint.BankID,
		Email:          SettlementEmail,
		Channel:        TransactionChannel,
		Category:       TransactionCategory,
		Reference:      reference,
	})
	if err != nil {
		e.logger.Error(logCtx, "transfer succeeded but transaction record was not saved", err)
	}
	return record
}
