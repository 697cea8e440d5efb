// Package journal persists every mutating Action's Receipt so a run can
// be undone later (spec.md §4.4). It is SQLite-backed via
// modernc.org/sqlite, grounded on internal/db's store pattern: WAL mode,
// a schema embedded with go:embed, and a file: URI connection string that
// tolerates spaces in the path.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Status values for sessions.status.
const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Status string

// UndoStatus values for transactions.undo_status.
const (
	UndoPending UndoStatus = "PENDING"
	UndoDone    UndoStatus = "DONE"
)

type UndoStatus string

// Transaction is one recorded mutation: a tagged action plus the receipt
// it produced, both JSON-encoded so new action/undo types never require a
// schema migration (spec.md §4.4 invariant iii).
type Transaction struct {
	ID          int64
	SessionID   int64
	Type        string
	ActionBlob  json.RawMessage
	ReceiptBlob json.RawMessage
	Timestamp   time.Time
	UndoStatus  UndoStatus
}

// Journal wraps the SQLite-backed session/transaction log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at dbPath. dbPath == ":memory:"
// opens an in-memory database, used for dry runs whose journal is
// discarded at process end (spec.md §4.4).
func Open(dbPath string) (*Journal, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	connStr := dbPath
	if dbPath != ":memory:" {
		escaped := strings.ReplaceAll(dbPath, " ", "%20")
		connStr = "file:" + escaped + "?_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// StartSession inserts a running session row and returns its id.
func (j *Journal) StartSession(ctx context.Context) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (start_time, status) VALUES (?, ?)`,
		nowNano(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	return res.LastInsertId()
}

// EndSession sets end_time and the final status (spec.md §4.4).
func (j *Journal) EndSession(ctx context.Context, sessionID int64, status Status) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ?, status = ? WHERE id = ?`,
		nowNano(), status, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// RecordTransaction inserts a PENDING transaction row. It is a no-op when
// receiptUndoCount is zero, per spec.md §4.1 Action stage semantics
// ("provided the receipt contains at least one undo entry").
func (j *Journal) RecordTransaction(ctx context.Context, sessionID int64, actionType string, action, receipt json.RawMessage, receiptUndoCount int) error {
	if receiptUndoCount == 0 {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transactions (session_id, type, action_blob, receipt_blob, timestamp, undo_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, actionType, string(action), string(receipt), nowNano(), UndoPending)
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

// GetPendingTransactionsForSession returns PENDING rows ordered newest
// first, the reverse of execution order, so undo walks back through the
// run in the order that doesn't strand a later mutation on top of an
// earlier one it depends on (spec.md §4.4).
func (j *Journal) GetPendingTransactionsForSession(ctx context.Context, sessionID int64) ([]Transaction, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, type, action_blob, receipt_blob, timestamp, undo_status
		 FROM transactions WHERE session_id = ? AND undo_status = ? ORDER BY timestamp DESC, id DESC`,
		sessionID, UndoPending)
	if err != nil {
		return nil, fmt.Errorf("query pending transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var ts int64
		var action, receipt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Type, &action, &receipt, &ts, &t.UndoStatus); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.ActionBlob = json.RawMessage(action)
		t.ReceiptBlob = json.RawMessage(receipt)
		t.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkUndone transitions a transaction from PENDING to DONE, exactly once
// per successful undo (spec.md §4.4 invariant ii).
func (j *Journal) MarkUndone(ctx context.Context, transactionID int64) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE transactions SET undo_status = ? WHERE id = ? AND undo_status = ?`,
		UndoDone, transactionID, UndoPending)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d was not PENDING", transactionID)
	}
	return nil
}

// nowNano returns the current time as a UTC Unix nanosecond count, the
// INTEGER representation spec.md's External Interfaces section binds
// start_time/end_time/timestamp to.
func nowNano() int64 {
	return time.Now().UTC().UnixNano()
}
