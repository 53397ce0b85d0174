package store

import (
	"context"
	"time"

	"pokerbank/internal/money"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Transaction is a completed rail transfer, seen from either side.
type Transaction struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Amount         money.Amount `db:"amount" json:"amount"`
	SenderID       string       `db:"sender_id" json:"sender_id"`
	SenderBankID   string       `db:"sender_bank_id" json:"sender_bank_id"`
	ReceiverID     string       `db:"receiver_id" json:"receiver_id"`
	ReceiverBankID string       `db:"receiver_bank_id" json:"receiver_bank_id"`
	Channel        string       `db:"channel" json:"channel"`
	Category       string       `db:"category" json:"category"`
	Reference      string       `db:"reference" json:"reference"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

type TransactionInput struct {
	ID             string
	Name           string
	Amount         money.Amount
	SenderID       string
	SenderBankID   string
	ReceiverID     string
	ReceiverBankID string
	Email          string
	Channel        string
	Category       string
	Reference      string
}

// Create records a transaction outside any caller transaction.
func (s *TransactionStore) Create(ctx context.Context, input TransactionInput) error {
	return s.Insert(ctx, s.db, input)
}

func (s *TransactionStore) Insert(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, name, amount, sender_id, sender_bank_id, receiver_id, receiver_bank_id, email, channel, category, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, input.ID, input.Name, int64(input.Amount), input.SenderID, input.SenderBankID,
		input.ReceiverID, input.ReceiverBankID, input.Email, input.Channel, input.Category, input.Reference)
	return err
}

// ListByUser returns transactions the user sent or received, newest first.
func (s *TransactionStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	var rows []Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, amount, sender_id, sender_bank_id, receiver_id, receiver_bank_id, channel, category, reference, created_at
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
