package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const emailColumns = `id, gmail_id, thread_id, subject, sender, received_at, processed_at,
	raw_html, status`

func scanEmail(row rowScanner) (*Email, error) {
	var (
		e      Email
		raw    *string
		status string
	)
	if err := row.Scan(&e.ID, &e.GmailID, &e.ThreadID, &e.Subject, &e.Sender,
		&e.ReceivedAt, &e.ProcessedAt, &raw, &status); err != nil {
		return nil, err
	}
	if raw != nil {
		e.RawHTML = *raw
	}
	e.Status = EmailStatus(status)
	return &e, nil
}

// RecordEmail stores an ingested email in the raw state. An email whose Gmail
// ID is already known is left untouched. It returns the stored row and
// whether it was inserted.
func (d *DB) RecordEmail(ctx context.Context, e *Email) (*Email, bool, error) {
	if e.GmailID == "" {
		return nil, false, fmt.Errorf("failed to record email: gmail id is required")
	}
	receivedAt := e.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	res, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO emails (id, gmail_id, thread_id, subject, sender, received_at, raw_html, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (gmail_id) DO NOTHING`),
		uuid.New(), e.GmailID, e.ThreadID, e.Subject, e.Sender, receivedAt,
		StringPtr(e.RawHTML), string(EmailRaw))
	if err != nil {
		return nil, false, fmt.Errorf("failed to record email %s: %w", e.GmailID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stored, err := scanEmail(d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT `+emailColumns+` FROM emails WHERE gmail_id = ?`), e.GmailID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read email %s: %w", e.GmailID, err)
	}
	return stored, n == 1, nil
}

// SeenEmailIDs returns the Gmail IDs of every recorded email.
func (d *DB) SeenEmailIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT gmail_id FROM emails`)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan email id: %w", err)
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// MarkEmail sets the processing status of an email and stamps processed_at.
func (d *DB) MarkEmail(ctx context.Context, id uuid.UUID, status EmailStatus) error {
	res, err := d.conn.ExecContext(ctx, d.rebind(
		`UPDATE emails SET status = ?, processed_at = ? WHERE id = ?`),
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark email %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("email %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetEmail returns an email by ID, or nil when it does not exist.
func (d *DB) GetEmail(ctx context.Context, id uuid.UUID) (*Email, error) {
	e, err := scanEmail(d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT `+emailColumns+` FROM emails WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email %s: %w", id, err)
	}
	return e, nil
}
