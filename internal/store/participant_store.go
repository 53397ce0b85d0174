package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pokerbank/internal/models"
)

type ParticipantStore struct {
	db DB
}

func NewParticipantStore(db DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

type participantRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	BuyIns    []byte    `db:"buy_ins"`
	CashOuts  []byte    `db:"cash_outs"`
	Status    string    `db:"status"`
	JoinedAt  time.Time `db:"joined_at"`
}

type ParticipantInput struct {
	ID        string
	SessionID string
	UserID    string
	UserName  string
}

const participantColumns = `id, session_id, user_id, user_name, buy_ins, cash_outs, status, joined_at`

// ListBySession returns participants in join order. A row whose event history
// cannot be decoded fails the whole read.
func (s *ParticipantStore) ListBySession(ctx context.Context, sessionID string) ([]models.Participant, error) {
	var rows []participantRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE session_id = $1
		ORDER BY joined_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	participants := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		participant, err := row.toModel()
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

// UpsertBuyIn inserts the participant on first join and appends the buy-in on
// rebuy, reactivating a cashed-out participant.
func (s *ParticipantStore) UpsertBuyIn(ctx context.Context, tx Execer, input ParticipantInput, event models.Event) error {
	payload, err := json.Marshal([]models.Event{event})
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (id, session_id, user_id, user_name, buy_ins, cash_outs, status)
		VALUES ($1, $2, $3, $4, $5::jsonb, '[]'::jsonb, 'active')
		ON CONFLICT (session_id, user_id) DO UPDATE
		SET buy_ins = participants.buy_ins || EXCLUDED.buy_ins,
		    user_name = COALESCE(NULLIF(EXCLUDED.user_name, ''), participants.user_name),
		    status = 'active'
	`, input.ID, input.SessionID, input.UserID, input.UserName, string(payload))
	return err
}

// AppendCashOut records a cash-out and returns the number of rows touched.
func (s *ParticipantStore) AppendCashOut(ctx context.Context, tx Execer, sessionID, userID string, event models.Event) (int64, error) {
	payload, err := json.Marshal([]models.Event{event})
	if err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE participants
		SET cash_outs = cash_outs || $3::jsonb, status = 'cashed_out'
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID, string(payload))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r participantRow) toModel() (models.Participant, error) {
	buyIns, err := decodeEvents(r.BuyIns)
	if err != nil {
		return models.Participant{}, fmt.Errorf("participant %s buy_ins: %w", r.ID, err)
	}
	cashOuts, err := decodeEvents(r.CashOuts)
	if err != nil {
		return models.Participant{}, fmt.Errorf("participant %s cash_outs: %w", r.ID, err)
	}
	return models.Participant{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		BuyIns:    buyIns,
		CashOuts:  cashOuts,
		Status:    r.Status,
		JoinedAt:  r.JoinedAt,
	}, nil
}

func decodeEvents(raw []byte) ([]models.Event, error) {
	events := []models.Event{}
	if len(raw) == 0 {
		return events, nil
	}
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, err
	}
	return events, nil
}
