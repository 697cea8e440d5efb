package journal

import (
	"context"
	"encoding/json"
	"testing"
)

func openMem(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSessionLifecycle(t *testing.T) {
	j := openMem(t)
	ctx := context.Background()

	id, err := j.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a non-zero session id")
	}
	if err := j.EndSession(ctx, id, StatusSuccess); err != nil {
		t.Fatalf("end session: %v", err)
	}
}

func TestRecordTransactionNoopWithoutUndo(t *testing.T) {
	j := openMem(t)
	ctx := context.Background()
	id, _ := j.StartSession(ctx)

	if err := j.RecordTransaction(ctx, id, "move", json.RawMessage(`{}`), json.RawMessage(`{}`), 0); err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	pending, err := j.GetPendingTransactionsForSession(ctx, id)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no transactions recorded, got %d", len(pending))
	}
}

func TestPendingTransactionsOrderedNewestFirst(t *testing.T) {
	j := openMem(t)
	ctx := context.Background()
	id, _ := j.StartSession(ctx)

	for i := 0; i < 3; i++ {
		if err := j.RecordTransaction(ctx, id, "move", json.RawMessage(`{}`), json.RawMessage(`{}`), 1); err != nil {
			t.Fatalf("record transaction %d: %v", i, err)
		}
	}

	pending, err := j.GetPendingTransactionsForSession(ctx, id)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending transactions, got %d", len(pending))
	}
	if pending[0].ID <= pending[1].ID || pending[1].ID <= pending[2].ID {
		t.Fatalf("expected newest-first ordering, got ids %v", []int64{pending[0].ID, pending[1].ID, pending[2].ID})
	}
}

func TestMarkUndoneIsIdempotentlyRejectedTwice(t *testing.T) {
	j := openMem(t)
	ctx := context.Background()
	id, _ := j.StartSession(ctx)
	_ = j.RecordTransaction(ctx, id, "move", json.RawMessage(`{}`), json.RawMessage(`{}`), 1)

	pending, _ := j.GetPendingTransactionsForSession(ctx, id)
	txID := pending[0].ID

	if err := j.MarkUndone(ctx, txID); err != nil {
		t.Fatalf("mark undone: %v", err)
	}
	if err := j.MarkUndone(ctx, txID); err == nil {
		t.Fatalf("expected second MarkUndone to fail")
	}
}
