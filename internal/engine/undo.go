package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/organize/organize/internal/journal"
	"github.com/organize/organize/internal/undo"
)

// UndoSession reverses every pending transaction of sessionID, newest
// first, matching GetPendingTransactionsForSession's ordering (spec.md
// §4.4). A transaction whose Undo.Verify fails is reported and skipped
// rather than aborting the whole session, so one stale entry doesn't
// block undoing the rest of a run.
func (e *Engine) UndoSession(ctx context.Context, sessionID int64) error {
	pending, err := e.journal.GetPendingTransactionsForSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("engine: load pending transactions: %w", err)
	}

	for _, tx := range pending {
		if err := e.undoOne(ctx, tx); err != nil {
			e.reporter.Error(fmt.Errorf("undo transaction %d: %w", tx.ID, err))
			continue
		}
	}
	return nil
}

func (e *Engine) undoOne(ctx context.Context, tx journal.Transaction) error {
	var wrapper struct {
		Undo json.RawMessage `json:"undo"`
	}
	if err := json.Unmarshal(tx.ReceiptBlob, &wrapper); err != nil {
		return fmt.Errorf("decode receipt blob: %w", err)
	}
	entries, err := undo.UnmarshalEntries(wrapper.Undo)
	if err != nil {
		return err
	}

	for _, u := range entries {
		if err := u.Verify(ctx, e.services.FS); err != nil {
			return err
		}
	}
	for _, u := range entries {
		if err := u.Apply(ctx, e.services.FS, e.services.Undo, e.services.FS.Locker()); err != nil {
			return err
		}
	}
	return e.journal.MarkUndone(ctx, tx.ID)
}
