package models

import (
	"time"

	"pokerbank/internal/money"
)

const (
	SessionActive = "active"
	SessionEnded  = "ended"

	ParticipantActive    = "active"
	ParticipantCashedOut = "cashed_out"

	TransferSuccess = "success"
	TransferFailed  = "failed"
	TransferSkipped = "skipped"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Bank struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	Name             string    `db:"name" json:"name"`
	FundingSourceURL string    `db:"funding_source_url" json:"funding_source_url"`
	ShareableID      string    `db:"shareable_id" json:"shareable_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type Session struct {
	ID         string     `db:"id" json:"id"`
	GroupID    string     `db:"group_id" json:"groupId"`
	Name       string     `db:"name" json:"name"`
	HostUserID string     `db:"host_user_id" json:"hostUserId"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	EndedAt    *time.Time `db:"ended_at" json:"endedAt,omitempty"`
}

func (s Session) IsActive() bool {
	return s.Status == SessionActive
}

// Event is a single buy-in or cash-out.
type Event struct {
	Amount    money.Amount `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type Participant struct {
	ID        string    `json:"id"`
	SessionID string    `json:"gameId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	BuyIns    []Event   `json:"buyIns"`
	CashOuts  []Event   `json:"cashOuts"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// SessionView is the full state pushed to viewers.
type SessionView struct {
	ID         string        `json:"id"`
	GroupID    string        `json:"groupId"`
	Name       string        `json:"name"`
	HostUserID string        `json:"hostUserId"`
	Status     string        `json:"status"`
	Players    []Participant `json:"players"`
	TotalPool  money.Amount  `json:"totalPool"`
}

type TransferRecord struct {
	From      string       `json:"from,omitempty"`
	To        string       `json:"to,omitempty"`
	Amount    money.Amount `json:"amount,omitempty"`
	Status    string       `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Reference string       `json:"-"`
}
