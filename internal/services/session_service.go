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
	"pokerbank/internal/lock"
	"pokerbank/internal/logger"
	"pokerbank/internal/metrics"
	"pokerbank/internal/models"
	"pokerbank/internal/money"
	"pokerbank/internal/settlement"
	"pokerbank/internal/store"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrNotHost              = errors.New("only the host can end the session")
	ErrSessionEnded         = errors.New("session has ended")
	ErrSettlementInProgress = errors.New("settlement in progress")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingUser          = errors.New("user id is required")
)

const (
	DefaultSessionName = "Poker Game"
	groupIDLength      = 8
	groupIDAttempts    = 3
	releaseTimeout     = 5 * time.Second
)

type SessionStore interface {
	Create(ctx context.Context, tx store.Execer, session models.Session) error
	GetByGroupID(ctx context.Context, groupID string) (models.Session, error)
	GetForUpdate(ctx context.Context, tx store.Getter, groupID string) (models.Session, error)
	MarkEnded(ctx context.Context, tx store.Execer, sessionID string) (int64, error)
}

type ParticipantStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Participant, error)
	UpsertBuyIn(ctx context.Context, tx store.Execer, input store.ParticipantInput, event models.Event) error
	AppendCashOut(ctx context.Context, tx store.Execer, sessionID, userID string, event models.Event) (int64, error)
}

type TransferStore interface {
	InsertRecords(ctx context.Context, tx store.Execer, sessionID string, records []models.TransferRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]models.TransferRecord, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

type SettlementPlanner interface {
	Plan(ctx context.Context, participants []models.Participant) (settlement.Plan, error)
}

type SettlementExecutor interface {
	Execute(ctx context.Context, plan settlement.Plan) []models.TransferRecord
}

// Notifier wakes live viewers of a session.
type Notifier interface {
	Notify(groupID string)
}

type SessionDeps struct {
	TxRunner     db.TxRunner
	Sessions     SessionStore
	Participants ParticipantStore
	Transfers    TransferStore
	Audit        AuditStore
	Planner      SettlementPlanner
	Executor     SettlementExecutor
	Locker       lock.Locker
	Hub          Notifier
	Metrics      *metrics.SettlementMetrics
	Logger       *logger.Logger
}

type SessionService struct {
	txRunner     db.TxRunner
	sessions     SessionStore
	participants ParticipantStore
	transfers    TransferStore
	audit        AuditStore
	planner      SettlementPlanner
	executor     SettlementExecutor
	locker       lock.Locker
	hub          Notifier
	metrics      *metrics.SettlementMetrics
	logger       *logger.Logger
	now          func() time.Time
	newGroupID   func() string
}

func NewSessionService(deps SessionDeps) *SessionService {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &SessionService{
		txRunner:     deps.TxRunner,
		sessions:     deps.Sessions,
		participants: deps.Participants,
		transfers:    deps.Transfers,
		audit:        deps.Audit,
		planner:      deps.Planner,
		executor:     deps.Executor,
		locker:       deps.Locker,
		hub:          deps.Hub,
		metrics:      deps.Metrics,
		logger:       log,
		now:          time.Now,
		newGroupID:   newGroupID,
	}
}

func newGroupID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:groupIDLength]
}

func (s *SessionService) CreateSession(ctx context.Context, hostUserID, name string) (models.Session, error) {
	if hostUserID == "" {
		return models.Session{}, ErrMissingUser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSessionName
	}
	var session models.Session
	for attempt := 1; attempt <= groupIDAttempts; attempt++ {
		session = models.Session{
			ID:         uuid.NewString(),
			GroupID:    s.newGroupID(),
			Name:       name,
			HostUserID: hostUserID,
			Status:     models.SessionActive,
			CreatedAt:  s.now().UTC(),
		}
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.sessions.Create(ctx, tx, session); err != nil {
				return err
			}
			return s.audit.Log(ctx, tx, hostUserID, "session.created", "session", session.ID, map[string]string{"group_id": session.GroupID})
		})
		if err == nil {
			return session, nil
		}
		if !db.IsUniqueViolation(err) || attempt == groupIDAttempts {
			return models.Session{}, err
		}
	}
	return session, nil
}

// JoinByReferral resolves a referral code to an active session.
func (s *SessionService) JoinByReferral(ctx context.Context, code string) (models.Session, error) {
	session, err := s.getSession(ctx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return models.Session{}, err
	}
	if !session.IsActive() {
		return models.Session{}, ErrSessionEnded
	}
	return session, nil
}

func (s *SessionService) GetView(ctx context.Context, groupID string) (models.SessionView, error) {
	session, err := s.getSession(ctx, groupID)
	if err != nil {
		return models.SessionView{}, err
	}
	participants, err := s.participants.ListBySession(ctx, session.ID)
	if err != nil {
		return models.SessionView{}, err
	}
	if participants == nil {
		participants = []models.Participant{}
	}
	var pool money.Amount
	for _, participant := range participants {
		if participant.Status == models.ParticipantActive {
			pool += settlement.TotalBuyIns(participant)
		}
	}
	return models.SessionView{
		ID:         session.ID,
		GroupID:    session.GroupID,
		Name:       session.Name,
		HostUserID: session.HostUserID,
		Status:     session.Status,
		Players:    participants,
		TotalPool:  pool,
	}, nil
}

type JoinRequest struct {
	GroupID  string
	UserID   string
	UserName string
	Amount   money.Amount
}

// JoinOrRebuy appends a buy-in, creating the participant on first join.
func (s *SessionService) JoinOrRebuy(ctx context.Context, req JoinRequest) error {
	if req.UserID == "" {
		return ErrMissingUser
	}
	if req.Amount < 0 {
		return ErrInvalidAmount
	}
	event := models.Event{Amount: req.Amount, Timestamp: s.now().UTC()}
	err := s.mutateActive(ctx, req.GroupID, func(tx *sqlx.Tx, session models.Session) error {
		return s.participants.UpsertBuyIn(ctx, tx, store.ParticipantInput{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			UserID:    req.UserID,
			UserName:  strings.TrimSpace(req.UserName),
		}, event)
	})
	if err != nil {
		return err
	}
	s.notify(req.GroupID)
	return nil
}

type CashOutRequest struct {
	GroupID string
	UserID  string
	Amount  money.Amount
}

func (s *SessionService) CashOut(ctx context.Context, req CashOutRequest) error {
	if req.UserID == "" {
		return ErrMissingUser
	}
	if req.Amount < 0 {
		return ErrInvalidAmount
	}
	event := models.Event{Amount: req.Amount, Timestamp: s.now().UTC()}
	err := s.mutateActive(ctx, req.GroupID, func(tx *sqlx.Tx, session models.Session) error {
		rows, err := s.participants.AppendCashOut(ctx, tx, session.ID, req.UserID, event)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrParticipantNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(req.GroupID)
	return nil
}

// mutateActive runs fn with the session row locked, refusing ended sessions
// and sessions that are being settled.
func (s *SessionService) mutateActive(ctx context.Context, groupID string, fn func(tx *sqlx.Tx, session models.Session) error) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		session, err := s.sessions.GetForUpdate(ctx, tx, groupID)
		if err != nil {
			return mapNotFound(err)
		}
		if !session.IsActive() {
			return ErrSessionEnded
		}
		held, err := s.locker.Held(ctx, lock.SettleKey(session.ID))
		if err != nil {
			return fmt.Errorf("check settlement lock: %w", err)
		}
		if held {
			return ErrSettlementInProgress
		}
		return fn(tx, session)
	})
}

// Settlement is the audit result of ending a session.
type Settlement struct {
	Transfers []models.TransferRecord
	Unsettled []settlement.Balance
	Imbalance money.Amount
}

// EndSession settles and closes a session. Only the persisted host may end it,
// and settlement runs at most once: transfers are attempted before the status
// flips, so a crash mid-run leaves the session active.
func (s *SessionService) EndSession(ctx context.Context, groupID, actingUserID string) (Settlement, error) {
	started := s.now()
	ctx = s.logger.WithSession(ctx, groupID)

	session, err := s.getSession(ctx, groupID)
	if err != nil {
		return Settlement{}, err
	}
	if actingUserID == "" || session.HostUserID != actingUserID {
		return Settlement{}, ErrNotHost
	}
	if !session.IsActive() {
		return Settlement{}, ErrSessionEnded
	}

	lease, err := s.locker.Acquire(ctx, lock.SettleKey(session.ID))
	if errors.Is(err, lock.ErrHeld) {
		return Settlement{}, ErrSettlementInProgress
	}
	if err != nil {
		return Settlement{}, fmt.Errorf("acquire settlement lock: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			s.logger.Error(ctx, "release settlement lock", err)
		}
	}()
	stopRenew := lease.KeepAlive(context.WithoutCancel(ctx), func(err error) {
		s.logger.Error(ctx, "renew settlement lock", err)
	})
	defer stopRenew()

	// Wait out in-flight buy-ins and cash-outs; later ones see the lock.
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.sessions.GetForUpdate(ctx, tx, groupID)
		if err != nil {
			return mapNotFound(err)
		}
		if !locked.IsActive() {
			return ErrSessionEnded
		}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	participants, err := s.participants.ListBySession(ctx, session.ID)
	if err != nil {
		s.metrics.ObserveRun("error", s.now().Sub(started))
		return Settlement{}, fmt.Errorf("load participants: %w", err)
	}
	plan, err := s.planner.Plan(ctx, participants)
	if err != nil {
		s.metrics.ObserveRun("error", s.now().Sub(started))
		return Settlement{}, fmt.Errorf("plan settlement: %w", err)
	}
	// Money may move from here on, so the run finishes even if the caller
	// goes away.
	ctx = context.WithoutCancel(ctx)
	if err := lease.Refresh(ctx); err != nil {
		s.metrics.ObserveRun("error", s.now().Sub(started))
		if errors.Is(err, lock.ErrLost) {
			return Settlement{}, ErrSettlementInProgress
		}
		return Settlement{}, fmt.Errorf("confirm settlement lock: %w", err)
	}
	records := s.executor.Execute(ctx, plan)

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.transfers.InsertRecords(ctx, tx, session.ID, records); err != nil {
			return err
		}
		summary := map[string]any{
			"transfers": len(records),
			"unsettled": len(plan.Unsettled),
			"imbalance": plan.Imbalance.String(),
		}
		if err := s.audit.Log(ctx, tx, actingUserID, "session.ended", "session", session.ID, summary); err != nil {
			return err
		}
		rows, err := s.sessions.MarkEnded(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrSessionEnded
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveRun("error", s.now().Sub(started))
		s.logger.Error(s.logger.WithField(ctx, "transfers", len(records)), "settlement attempted but session not closed", err)
		return Settlement{}, err
	}

	s.metrics.ObserveRun("completed", s.now().Sub(started))
	s.logger.Info(s.logger.WithField(ctx, "transfers", len(records)), "session settled")
	s.notify(groupID)

	if records == nil {
		records = []models.TransferRecord{}
	}
	return Settlement{Transfers: records, Unsettled: plan.Unsettled, Imbalance: plan.Imbalance}, nil
}

func (s *SessionService) ListTransfers(ctx context.Context, groupID string) ([]models.TransferRecord, error) {
	session, err := s.getSession(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.transfers.ListBySession(ctx, session.ID)
}

func (s *SessionService) getSession(ctx context.Context, groupID string) (models.Session, error) {
	if groupID == "" {
		return models.Session{}, ErrSessionNotFound
	}
	session, err := s.sessions.GetByGroupID(ctx, groupID)
	if err != nil {
		return models.Session{}, mapNotFound(err)
	}
	return session, nil
}

func (s *SessionService) notify(groupID string) {
	if s.hub != nil {
		s.hub.Notify(groupID)
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	return err
}
