package handlers

import (
	"context"

	"pokerbank/internal/models"
	"pokerbank/internal/services"
	"pokerbank/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type BankStore interface {
	Create(ctx context.Context, tx store.Execer, bank models.Bank) error
	ListByUser(ctx context.Context, userID string) ([]models.Bank, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

type SessionService interface {
	CreateSession(ctx context.Context, hostUserID, name string) (models.Session, error)
	JoinByReferral(ctx context.Context, code string) (models.Session, error)
	GetView(ctx context.Context, groupID string) (models.SessionView, error)
	JoinOrRebuy(ctx context.Context, req services.JoinRequest) error
	CashOut(ctx context.Context, req services.CashOutRequest) error
	EndSession(ctx context.Context, groupID, actingUserID string) (services.Settlement, error)
	ListTransfers(ctx context.Context, groupID string) ([]models.TransferRecord, error)
}

type TransferService interface {
	Transfer(ctx context.Context, req services.TransferRequest) (store.Transaction, error)
}
