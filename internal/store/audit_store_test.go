package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestAuditStoreLog(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO audit_logs") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "actor-1" || args[1] != "session.ended" {
				t.Fatalf("unexpected args: %#v", args)
			}
			if args[4] != `{"transfers":2}` {
				t.Fatalf("unexpected data: %#v", args[4])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAuditStore(stubDB{})
	if err := store.Log(ctx, execer, "actor-1", "session.ended", "session", "sess-1", map[string]int{"transfers": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
