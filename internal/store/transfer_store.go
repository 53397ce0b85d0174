package store

import (
	"context"

	"pokerbank/internal/models"
	"pokerbank/internal/money"
)

// TransferStore keeps the per-instruction outcome of each settlement run.
type TransferStore struct {
	db DB
}

func NewTransferStore(db DB) *TransferStore {
	return &TransferStore{db: db}
}

type transferRow struct {
	FromUserID string `db:"from_user_id"`
	ToUserID   string `db:"to_user_id"`
	Amount     int64  `db:"amount"`
	Status     string `db:"status"`
	Reason     string `db:"reason"`
	Reference  string `db:"reference"`
}

func (s *TransferStore) InsertRecords(ctx context.Context, tx Execer, sessionID string, records []models.TransferRecord) error {
	for i, record := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settlement_transfers (id, session_id, position, from_user_id, to_user_id, amount, status, reason, reference)
			VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, $6, $7, $8)
		`, sessionID, i, record.From, record.To, int64(record.Amount), record.Status, record.Reason, record.Reference)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *TransferStore) ListBySession(ctx context.Context, sessionID string) ([]models.TransferRecord, error) {
	var rows []transferRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT from_user_id, to_user_id, amount, status, reason, reference
		FROM settlement_transfers
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	records := make([]models.TransferRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.TransferRecord{
			From:      row.FromUserID,
			To:        row.ToUserID,
			Amount:    money.Amount(row.Amount),
			Status:    row.Status,
			Reason:    row.Reason,
			Reference: row.Reference,
		})
	}
	return records, nil
}
