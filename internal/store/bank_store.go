package store

import (
	"context"

	"pokerbank/internal/models"
)

type BankStore struct {
	db DB
}

func NewBankStore(db DB) *BankStore {
	return &BankStore{db: db}
}

const bankColumns = `id, user_id, name, funding_source_url, shareable_id, created_at`

func (s *BankStore) Create(ctx context.Context, tx Execer, bank models.Bank) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO banks (id, user_id, name, funding_source_url, shareable_id)
		VALUES ($1, $2, $3, $4, $5)
	`, bank.ID, bank.UserID, bank.Name, bank.FundingSourceURL, bank.ShareableID)
	return err
}

func (s *BankStore) GetByID(ctx context.Context, bankID string) (models.Bank, error) {
	var bank models.Bank
	err := s.db.GetContext(ctx, &bank, `SELECT `+bankColumns+` FROM banks WHERE id = $1`, bankID)
	return bank, err
}

// GetByShareableID finds the bank a sender addresses by its public id.
func (s *BankStore) GetByShareableID(ctx context.Context, shareableID string) (models.Bank, error) {
	var bank models.Bank
	err := s.db.GetContext(ctx, &bank, `SELECT `+bankColumns+` FROM banks WHERE shareable_id = $1`, shareableID)
	return bank, err
}

// ListByUser returns the user's banks oldest first.
func (s *BankStore) ListByUser(ctx context.Context, userID string) ([]models.Bank, error) {
	var banks []models.Bank
	err := s.db.SelectContext(ctx, &banks, `
		SELECT `+bankColumns+`
		FROM banks
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	return banks, nil
}
