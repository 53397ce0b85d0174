package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"pokerbank/internal/auth"
	"pokerbank/internal/config"
	"pokerbank/internal/models"
	"pokerbank/internal/services"
	"pokerbank/internal/store"
	"pokerbank/internal/stream"
)

const testSecret = "secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, user models.User) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubBankStore struct {
	createFn     func(ctx context.Context, tx store.Execer, bank models.Bank) error
	listByUserFn func(ctx context.Context, userID string) ([]models.Bank, error)
}

func (s stubBankStore) Create(ctx context.Context, tx store.Execer, bank models.Bank) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, bank)
}

func (s stubBankStore) ListByUser(ctx context.Context, userID string) ([]models.Bank, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubTransactionStore struct {
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]store.Transaction, error)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.Transaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubSessionService struct {
	createFn         func(ctx context.Context, hostUserID, name string) (models.Session, error)
	joinByReferralFn func(ctx context.Context, code string) (models.Session, error)
	getViewFn        func(ctx context.Context, groupID string) (models.SessionView, error)
	joinOrRebuyFn    func(ctx context.Context, req services.JoinRequest) error
	cashOutFn        func(ctx context.Context, req services.CashOutRequest) error
	endSessionFn     func(ctx context.Context, groupID, actingUserID string) (services.Settlement, error)
	listTransfersFn  func(ctx context.Context, groupID string) ([]models.TransferRecord, error)
}

func (s stubSessionService) CreateSession(ctx context.Context, hostUserID, name string) (models.Session, error) {
	if s.createFn == nil {
		return models.Session{}, nil
	}
	return s.createFn(ctx, hostUserID, name)
}

func (s stubSessionService) JoinByReferral(ctx context.Context, code string) (models.Session, error) {
	if s.joinByReferralFn == nil {
		return models.Session{}, nil
	}
	return s.joinByReferralFn(ctx, code)
}

func (s stubSessionService) GetView(ctx context.Context, groupID string) (models.SessionView, error) {
	if s.getViewFn == nil {
		return models.SessionView{GroupID: groupID, Players: []models.Participant{}}, nil
	}
	return s.getViewFn(ctx, groupID)
}

func (s stubSessionService) JoinOrRebuy(ctx context.Context, req services.JoinRequest) error {
	if s.joinOrRebuyFn == nil {
		return nil
	}
	return s.joinOrRebuyFn(ctx, req)
}

func (s stubSessionService) CashOut(ctx context.Context, req services.CashOutRequest) error {
	if s.cashOutFn == nil {
		return nil
	}
	return s.cashOutFn(ctx, req)
}

func (s stubSessionService) EndSession(ctx context.Context, groupID, actingUserID string) (services.Settlement, error) {
	if s.endSessionFn == nil {
		return services.Settlement{}, nil
	}
	return s.endSessionFn(ctx, groupID, actingUserID)
}

func (s stubSessionService) ListTransfers(ctx context.Context, groupID string) ([]models.TransferRecord, error) {
	if s.listTransfersFn == nil {
		return nil, nil
	}
	return s.listTransfersFn(ctx, groupID)
}

type stubTransferService struct {
	transferFn func(ctx context.Context, req services.TransferRequest) (store.Transaction, error)
}

func (s stubTransferService) Transfer(ctx context.Context, req services.TransferRequest) (store.Transaction, error) {
	if s.transferFn == nil {
		return store.Transaction{}, nil
	}
	return s.transferFn(ctx, req)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      testSecret,
		TokenTTLMins:   1,
		AllowedOrigins: "*",
	}
}

func newTestHandler(deps Deps) *Handler {
	deps.Config = testConfig()
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Banks == nil {
		deps.Banks = stubBankStore{}
	}
	if deps.Transactions == nil {
		deps.Transactions = stubTransactionStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Sessions == nil {
		deps.Sessions = stubSessionService{}
	}
	if deps.Transfers == nil {
		deps.Transfers = stubTransferService{}
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = stream.NewBroadcaster(deps.Sessions, stream.NewHub(), 20*time.Millisecond, nil, nil)
	}
	return New(deps)
}

// serveAs sends the request through the full router with a token for userID.
// An empty userID sends no token.
func serveAs(t *testing.T, handler *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := auth.GenerateToken(testSecret, userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rr.Body.String(), err)
	}
	return payload["error"]
}
