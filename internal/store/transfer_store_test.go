package store

import (
	"context"
	"strings"
	"testing"

	"pokerbank/internal/models"
)

func TestTransferStoreInsertRecordsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	execer := &recordingExecer{}
	records := []models.TransferRecord{
		{From: "a", Status: models.TransferSkipped, Reason: "missing linked funding source"},
		{From: "b", To: "c", Amount: 500, Status: models.TransferSuccess, Reference: "ref"},
	}
	if err := NewTransferStore(stubDB{}).InsertRecords(ctx, execer, "sess-1", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(execer.calls) != 2 {
		t.Fatalf("expected one insert per record, got %d", len(execer.calls))
	}
	for i, call := range execer.calls {
		if !strings.Contains(call.query, "INSERT INTO settlement_transfers") || call.args[0] != "sess-1" {
			t.Fatalf("unexpected query: %s %#v", call.query, call.args)
		}
		if call.args[1] != i {
			t.Fatalf("expected position %d, got %#v", i, call.args[1])
		}
	}
	if execer.calls[1].args[4] != int64(500) || execer.calls[1].args[7] != "ref" {
		t.Fatalf("unexpected args for successful transfer: %#v", execer.calls[1].args)
	}
}

func TestTransferStoreListBySession(t *testing.T) {
	ctx := context.Background()
	store := NewTransferStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "ORDER BY position") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]transferRow) = []transferRow{{FromUserID: "b", ToUserID: "c", Amount: 500, Status: models.TransferFailed}}
			return nil
		},
	})
	records, err := store.ListBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Amount != 500 || records[0].Status != models.TransferFailed {
		t.Fatalf("unexpected records: %#v", records)
	}
}
