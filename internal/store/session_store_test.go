package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"pokerbank/internal/models"
)

func TestSessionStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO sessions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "sess-1" || args[1] != "abcd1234" || args[4] != models.SessionActive {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	err := store.Create(ctx, execer, models.Session{
		ID: "sess-1", GroupID: "abcd1234", Name: "Friday", HostUserID: "host", Status: models.SessionActive,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionStoreGetByGroupID(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE group_id = $1") || strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.Session) = models.Session{ID: "sess-1", GroupID: args[0].(string)}
			return nil
		},
	})
	session, err := store.GetByGroupID(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "sess-1" || session.GroupID != "abcd1234" {
		t.Fatalf("unexpected session: %#v", session)
	}
}

func TestSessionStoreGetForUpdateLocksRow(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("expected row lock, got %s", query)
			}
			return sql.ErrNoRows
		},
	}
	_, err := NewSessionStore(stubDB{}).GetForUpdate(ctx, getter, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSessionStoreMarkEndedIsConditional(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "status = 'active'") {
				t.Fatalf("expected compare-and-set on status, got %s", query)
			}
			return stubResult{rows: 0}, nil
		},
	}
	rows, err := NewSessionStore(stubDB{}).MarkEnded(ctx, execer, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows, got %d", rows)
	}
}
