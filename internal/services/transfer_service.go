package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pokerbank/internal/db"
	"pokerbank/internal/logger"
	"pokerbank/internal/models"
	"pokerbank/internal/money"
	"pokerbank/internal/payments"
	"pokerbank/internal/settlement"
	"pokerbank/internal/store"
)

var (
	ErrBankNotFound         = errors.New("bank not found")
	ErrReceiverBankNotFound = errors.New("receiver bank not found")
	ErrUnauthorizedBank     = errors.New("bank does not belong to user")
	ErrSameBankTransfer     = errors.New("cannot transfer to the same bank")
	ErrTransferFailed       = errors.New("transfer failed")
)

const DefaultTransferName = "Transfer"

type BankStore interface {
	GetByID(ctx context.Context, bankID string) (models.Bank, error)
	GetByShareableID(ctx context.Context, shareableID string) (models.Bank, error)
}

type TransactionWriter interface {
	Insert(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

type TransferDeps struct {
	TxRunner     db.TxRunner
	Banks        BankStore
	Transactions TransactionWriter
	Audit        AuditStore
	Rail         payments.Rail
	Logger       *logger.Logger
}

// TransferService moves money between two users' linked banks outside any
// session.
type TransferService struct {
	txRunner     db.TxRunner
	banks        BankStore
	transactions TransactionWriter
	audit        AuditStore
	rail         payments.Rail
	logger       *logger.Logger
	now          func() time.Time
}

func NewTransferService(deps TransferDeps) *TransferService {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &TransferService{
		txRunner:     deps.TxRunner,
		banks:        deps.Banks,
		transactions: deps.Transactions,
		audit:        deps.Audit,
		rail:         deps.Rail,
		logger:       log,
		now:          time.Now,
	}
}

type TransferRequest struct {
	UserID              string
	SenderBankID        string
	ReceiverShareableID string
	Amount              money.Amount
	Name                string
	Email               string
}

// Transfer pays from one of the caller's banks into the bank behind a
// shareable id. The transaction row is written only after the rail accepts
// the transfer.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (store.Transaction, error) {
	if req.UserID == "" {
		return store.Transaction{}, ErrMissingUser
	}
	if req.Amount <= 0 {
		return store.Transaction{}, ErrInvalidAmount
	}
	sender, err := s.banks.GetByID(ctx, req.SenderBankID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Transaction{}, ErrBankNotFound
	}
	if err != nil {
		return store.Transaction{}, fmt.Errorf("load sender bank: %w", err)
	}
	if sender.UserID != req.UserID {
		return store.Transaction{}, ErrUnauthorizedBank
	}
	receiver, err := s.banks.GetByShareableID(ctx, strings.TrimSpace(req.ReceiverShareableID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Transaction{}, ErrReceiverBankNotFound
	}
	if err != nil {
		return store.Transaction{}, fmt.Errorf("load receiver bank: %w", err)
	}
	if sender.ID == receiver.ID {
		return store.Transaction{}, ErrSameBankTransfer
	}

	logCtx := s.logger.WithFields(ctx, map[string]any{
		"sender_bank_id":   sender.ID,
		"receiver_bank_id": receiver.ID,
		"amount":           req.Amount.String(),
	})
	reference, err := s.rail.CreateTransfer(ctx, sender.FundingSourceURL, receiver.FundingSourceURL, req.Amount)
	if err != nil {
		s.logger.Error(logCtx, "direct transfer failed", err)
		return store.Transaction{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultTransferName
	}
	transaction := store.Transaction{
		ID:             uuid.NewString(),
		Name:           name,
		Amount:         req.Amount,
		SenderID:       sender.UserID,
		SenderBankID:   sender.ID,
		ReceiverID:     receiver.UserID,
		ReceiverBankID: receiver.ID,
		Channel:        settlement.TransactionChannel,
		Category:       settlement.TransactionCategory,
		Reference:      reference,
		CreatedAt:      s.now().UTC(),
	}
	// The rail already moved the money; the record must not be lost to a
	// cancelled request.
	ctx = context.WithoutCancel(ctx)
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.transactions.Insert(ctx, tx, store.TransactionInput{
			ID:             transaction.ID,
			Name:           transaction.Name,
			Amount:         transaction.Amount,
			SenderID:       transaction.SenderID,
			SenderBankID:   transaction.SenderBankID,
			ReceiverID:     transaction.ReceiverID,
			ReceiverBankID: transaction.ReceiverBankID,
			Email:          strings.TrimSpace(req.Email),
			Channel:        transaction.Channel,
			Category:       transaction.Category,
			Reference:      transaction.Reference,
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.UserID, "transfer.created", "transaction", transaction.ID, map[string]string{
			"reference": reference,
			"amount":    req.Amount.String(),
		})
	})
	if err != nil {
		s.logger.Error(s.logger.WithField(logCtx, "reference", reference), "transfer succeeded but transaction record was not saved", err)
		return store.Transaction{}, err
	}
	s.logger.Info(s.logger.WithField(logCtx, "transaction_id", transaction.ID), "direct transfer completed")
	return transaction, nil
}
