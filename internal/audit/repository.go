// Package audit records the history of device actions taken on behalf of
// a household, whether by the scheduler or by the user.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sources of an automation log entry.
const (
	SourceUser     = "user"
	SourceTimer    = "timer"
	SourceCalendar = "calendar"
	SourceAlert    = "alert"
	SourceMQTT     = "mqtt"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one row of automation history.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Source     string    `json:"source"`
	DeviceKind string    `json:"device_kind,omitempty"`
	Room       string    `json:"room,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Repository defines the interface for automation history.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// SQLiteRepository stores history in the automation_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. The ID and OccurredAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "log-" + uuid.NewString()[:8]
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO automation_log (id, user_id, action, source, device_kind, room, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, e.Source,
		nullableString(e.DeviceKind), nullableString(e.Room), nullableString(e.Detail),
		e.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting automation log: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings so optional TEXT columns
// stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns a user's most recent entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, source, device_kind, room, detail, occurred_at
		 FROM automation_log WHERE user_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying automation log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind, room, detail sql.NullString
		var occurredAt string

		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Source, &kind, &room, &detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning automation log: %w", err)
		}
		e.DeviceKind = kind.String
		e.Room = room.String
		e.Detail = detail.String

		t, err := time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing automation log timestamp %q: %w", occurredAt, err)
		}
		e.OccurredAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automation log: %w", err)
	}
	return entries, nil
}
