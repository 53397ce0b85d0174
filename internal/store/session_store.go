package store

import (
	"context"

	"pokerbank/internal/models"
)

type SessionStore struct {
	db DB
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, group_id, name, host_user_id, status, created_at, ended_at`

func (s *SessionStore) Create(ctx context.Context, tx Execer, session models.Session) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, group_id, name, host_user_id, status)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.GroupID, session.Name, session.HostUserID, session.Status)
	return err
}

func (s *SessionStore) GetByGroupID(ctx context.Context, groupID string) (models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM sessions WHERE group_id = $1`, groupID)
	return session, err
}

// GetForUpdate locks the session row for the rest of the transaction.
func (s *SessionStore) GetForUpdate(ctx context.Context, tx Getter, groupID string) (models.Session, error) {
	var session models.Session
	err := tx.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM sessions WHERE group_id = $1 FOR UPDATE`, groupID)
	return session, err
}

// MarkEnded flips an active session to ended. Zero rows affected means the
// session was already ended by someone else.
func (s *SessionStore) MarkEnded(ctx context.Context, tx Execer, sessionID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'ended', ended_at = now()
		WHERE id = $1 AND status = 'active'
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
