package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageStore = (*MessageRepo)(nil)

// MessageRepo is the SQLite implementation of the MessageStore port.
type MessageRepo struct {
	db  *DB
	now func() time.Time
}

// NewMessageRepo creates a MessageRepo backed by the given DB.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db, now: time.Now}
}

const messageColumns = `id, account_id, sender, subject, body, priority, source, confidence, timestamp, created_at, updated_at`

// Insert stores a classified message. The unique index on
// (account_id, sender, subject, timestamp) backs the dedup window query as a
// second line of defense.
func (r *MessageRepo) Insert(ctx context.Context, msg model.Message) (model.Message, error) {
	const query = `
		INSERT INTO messages (account_id, sender, subject, body, priority, source, confidence, timestamp, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Source == "" {
		msg.Source = model.MessageSourceGmail
	}

	var confidence any
	if msg.Confidence != nil {
		confidence = *msg.Confidence
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		msg.AccountID, msg.Sender, msg.Subject, msg.Body, msg.Priority.String(), msg.Source,
		confidence, formatTime(msg.Timestamp), formatTime(msg.CreatedAt), formatTime(msg.UpdatedAt),
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message for account %d: %w", msg.AccountID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message for account %d: %w", msg.AccountID, err)
	}
	msg.ID = id

	return msg, nil
}

// FindDuplicate returns an existing message for the account with the same
// sender and subject whose timestamp lies inside [from, to], or nil.
func (r *MessageRepo) FindDuplicate(ctx context.Context, accountID int64, sender, subject string, from, to time.Time) (*model.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = ? AND sender = ? AND subject = ? AND timestamp BETWEEN ? AND ?
		LIMIT 1
	`

	msg, err := scanMessage(r.db.Reader.QueryRowContext(ctx, query,
		accountID, sender, subject, formatTime(from), formatTime(to)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate message for account %d: %w", accountID, err)
	}

	return msg, nil
}

// ListByAccount returns up to limit messages ordered by message timestamp
// descending.
func (r *MessageRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	return r.queryMessages(ctx, query, accountID, limit)
}

// ListByAccountAndPriority is ListByAccount restricted to one tier.
func (r *MessageRepo) ListByAccountAndPriority(ctx context.Context, accountID int64, priority model.Priority, limit int) ([]model.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = ? AND priority = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	return r.queryMessages(ctx, query, accountID, priority.String(), limit)
}

// CountByPriority returns per-tier message counts for the account.
func (r *MessageRepo) CountByPriority(ctx context.Context, accountID int64) (map[model.Priority]int64, error) {
	const query = `SELECT priority, COUNT(*) FROM messages WHERE account_id = ? GROUP BY priority`

	rows, err := r.db.Reader.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("count messages for account %d: %w", accountID, err)
	}
	defer rows.Close()

	counts := make(map[model.Priority]int64)
	for rows.Next() {
		var raw string
		var n int64
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}

		priority, err := model.ParsePriority(raw)
		if err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		counts[priority] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message counts: %w", err)
	}

	return counts, nil
}

// DeleteAll removes every message for the account.
func (r *MessageRepo) DeleteAll(ctx context.Context, accountID int64) (int64, error) {
	const query = `DELETE FROM messages WHERE account_id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete messages for account %d: %w", accountID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete messages for account %d: %w", accountID, err)
	}

	return n, nil
}

func (r *MessageRepo) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if msgs == nil {
		msgs = []model.Message{}
	}

	return msgs, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row *sql.Row) (*model.Message, error) {
	return scanMessageRow(row)
}

func scanMessageRow(row rowScanner) (*model.Message, error) {
	var msg model.Message
	var priority, timestamp, createdAt, updatedAt string
	var confidence sql.NullFloat64

	if err := row.Scan(
		&msg.ID, &msg.AccountID, &msg.Sender, &msg.Subject, &msg.Body,
		&priority, &msg.Source, &confidence, &timestamp, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if msg.Priority, err = model.ParsePriority(priority); err != nil {
		return nil, err
	}
	if confidence.Valid {
		msg.Confidence = &confidence.Float64
	}
	if msg.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if msg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &msg, nil
}
