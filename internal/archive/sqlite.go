// Package archive persists transfer history and conversation logs.
//
// The in-memory registry and ledger stay authoritative for live
// coordination; the archive is a write-behind journal used for the
// history endpoint and post-call review.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/switchboard/internal/domain"
)

// SQLiteArchive implements the archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (and migrates) an archive database.
func NewSQLiteArchive(dsn string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	a := &SQLiteArchive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return a, nil
}

// migrate runs database migrations.
func (a *SQLiteArchive) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS transfers (
			transfer_id TEXT PRIMARY KEY,
			call_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL,
			operator TEXT,
			created_at DATETIME NOT NULL,
			accepted_at DATETIME,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_call ON transfers(call_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS transfer_events (
			event_id TEXT PRIMARY KEY,
			transfer_id TEXT NOT NULL,
			status TEXT NOT NULL,
			ts INTEGER NOT NULL,
			FOREIGN KEY (transfer_id) REFERENCES transfers(transfer_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_events ON transfer_events(transfer_id, ts)`,
		`CREATE TABLE IF NOT EXISTS call_logs (
			log_id TEXT PRIMARY KEY,
			call_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_logs ON call_logs(call_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := a.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// RecordTransfer upserts the transfer's current state and appends a
// journal row for the transition. Implements ledger.Sink.
func (a *SQLiteArchive) RecordTransfer(req *domain.TransferRequest) error {
	ctx := context.Background()

	var operator sql.NullString
	if req.Operator != "" {
		operator = sql.NullString{String: req.Operator, Valid: true}
	}
	var acceptedAt, completedAt sql.NullTime
	if req.AcceptedAt != nil {
		acceptedAt = sql.NullTime{Time: *req.AcceptedAt, Valid: true}
	}
	if req.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *req.CompletedAt, Valid: true}
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO transfers (transfer_id, call_id, reason, status, operator, created_at, accepted_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(transfer_id) DO UPDATE SET
		   status = excluded.status,
		   operator = excluded.operator,
		   accepted_at = excluded.accepted_at,
		   completed_at = excluded.completed_at`,
		req.ID, req.CallID, req.Reason, req.Status, operator, req.CreatedAt, acceptedAt, completedAt)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO transfer_events (event_id, transfer_id, status, ts) VALUES (?, ?, ?, ?)`,
		"evt_"+uuid.New().String()[:8], req.ID, req.Status, time.Now().UnixMilli())
	return err
}

// ListTransfers returns archived transfers, newest first.
func (a *SQLiteArchive) ListTransfers(ctx context.Context, limit int) ([]domain.TransferRequest, error) {
	query := `SELECT transfer_id, call_id, reason, status, operator, created_at, accepted_at, completed_at
	          FROM transfers ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.TransferRequest
	for rows.Next() {
		var req domain.TransferRequest
		var operator sql.NullString
		var acceptedAt, completedAt sql.NullTime
		if err := rows.Scan(&req.ID, &req.CallID, &req.Reason, &req.Status, &operator, &req.CreatedAt, &acceptedAt, &completedAt); err != nil {
			return nil, err
		}
		if operator.Valid {
			req.Operator = operator.String
		}
		if acceptedAt.Valid {
			t := acceptedAt.Time
			req.AcceptedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			req.CompletedAt = &t
		}
		transfers = append(transfers, req)
	}
	return transfers, rows.Err()
}

// SaveCallLog persists a call's conversation log when the call ends.
func (a *SQLiteArchive) SaveCallLog(ctx context.Context, callID string, entries []domain.LogEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO call_logs (log_id, call_id, seq, role, content, ts) VALUES (?, ?, ?, ?, ?, ?)`,
			"log_"+uuid.New().String()[:8], callID, i, entry.Role, entry.Content, entry.Ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCallLog returns a call's conversation log in order.
func (a *SQLiteArchive) GetCallLog(ctx context.Context, callID string) ([]domain.LogEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT role, content, ts FROM call_logs WHERE call_id = ? ORDER BY seq ASC`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		if err := rows.Scan(&entry.Role, &entry.Content, &entry.Ts); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
