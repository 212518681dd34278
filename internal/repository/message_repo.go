package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// MaxHistory bounds how many messages one Recent call may return.
const MaxHistory = 50

type MessageSQLite struct {
	db *sql.DB
}

func NewMessageSQLite(db *sql.DB) *MessageSQLite { return &MessageSQLite{db: db} }

var _ MessageRepo = (*MessageSQLite)(nil)

// Append inserts a new message. If ID or Timestamp are empty, they’re set.
// Username is stored only when non-empty (guest authors).
func (r *MessageSQLite) Append(ctx context.Context, m models.Message) (models.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	} else {
		m.Timestamp = m.Timestamp.UTC()
	}

	var username sql.NullString
	if name := strings.TrimSpace(m.Username); name != "" {
		username = sql.NullString{String: name, Valid: true}
	}

	query, args, err := sq.Insert("messages").
		Columns("id", "user_id", "username", "text", "timestamp").
		Values(m.ID, m.UserID, username, m.Text, m.Timestamp).
		ToSql()
	if err != nil {
		return models.Message{}, fmt.Errorf("build insert message: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return models.Message{}, fmt.Errorf("insert message %s: %w", m.ID, err)
	}
	return m, nil
}

// Recent returns the newest messages older than before, newest first.
func (r *MessageSQLite) Recent(ctx context.Context, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	q := sq.Select(
		"m.id",
		"m.user_id",
		"COALESCE(m.username, u.username, '')",
		"m.text",
		"m.timestamp",
	).
		From("messages m").
		LeftJoin("users u ON u.id = m.user_id").
		OrderBy("m.timestamp DESC", "m.rowid DESC").
		Limit(uint64(limit))
	if !before.IsZero() {
		q = q.Where(sq.Lt{"m.timestamp": before.UTC()})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent messages query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0, limit)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}
