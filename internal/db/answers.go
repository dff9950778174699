package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobly/internal/ats"
)

// NormalizeLabel is the cache key form of a form question label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// FindCachedAnswer returns the remembered answer for a question on the given
// ATS, or nil when none is stored.
func (d *DB) FindCachedAnswer(ctx context.Context, label string, atsType ats.Type) (*QuestionAnswer, error) {
	var (
		qa  QuestionAnswer
		typ string
	)
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT id, question_label, ats_type, answer, created_at, updated_at
		 FROM question_answers WHERE question_label = ? AND ats_type = ?`),
		NormalizeLabel(label), string(atsType),
	).Scan(&qa.ID, &qa.QuestionLabel, &typ, &qa.Answer, &qa.CreatedAt, &qa.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cached answer: %w", err)
	}
	qa.ATSType = ats.Parse(typ)
	return &qa, nil
}

// UpsertAnswer stores the answer for a question, replacing any previous one.
func (d *DB) UpsertAnswer(ctx context.Context, label string, atsType ats.Type, answer string) error {
	now := time.Now().UTC()
	_, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO question_answers (id, question_label, ats_type, answer, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (question_label, ats_type)
		 DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`),
		uuid.New(), NormalizeLabel(label), string(atsType), answer, now, now)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}
