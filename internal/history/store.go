// Package history persists every honored voice command to SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

// ErrNoSessions is returned when no session has recorded commands.
var ErrNoSessions = errors.New("no recorded sessions")

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Entry is one row of the command log.
type Entry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	Command      string    `json:"command"`
	Text         string    `json:"text"`
	Payload      string    `json:"payload,omitempty"`
	EventTS      int64     `json:"event_ts"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// Store reads and writes the command_log table. It also implements
// dispatch.Observer so it can be attached to the dispatcher directly.
type Store struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger

	mu        sync.Mutex
	sessionID string
}

// NewStore returns a store over db. maxEntries <= 0 keeps everything.
func NewStore(db *sql.DB, maxEntries int) *Store {
	return &Store{
		db:         db,
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     log.WithComponent("history"),
	}
}

// SetSession tags subsequent entries with a listening-session ID.
func (s *Store) SetSession(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *Store) currentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Record appends an entry and trims the log to maxEntries.
func (s *Store) Record(ctx context.Context, d dispatch.Detection) (Entry, error) {
	e := Entry{
		ID:           uuid.NewString(),
		SessionID:    s.currentSession(),
		Command:      d.Command,
		Text:         d.Text,
		Payload:      d.Payload,
		EventTS:      d.Timestamp,
		DispatchedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO command_log(id, session_id, command, text, payload, event_ts, dispatched_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, e.ID, nullable(e.SessionID), e.Command, e.Text, nullable(e.Payload), e.EventTS, e.DispatchedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert command log: %w", err)
	}

	if s.maxEntries > 0 {
		if _, err := s.db.ExecContext(ctx, `
DELETE FROM command_log WHERE id NOT IN (
  SELECT id FROM command_log ORDER BY rowid DESC LIMIT ?
);`, s.maxEntries); err != nil {
			return Entry{}, fmt.Errorf("trim command log: %w", err)
		}
	}
	return e, nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, command, text, payload, event_ts, dispatched_at
FROM command_log
ORDER BY rowid DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query command log: %w", err)
	}
	return scanEntries(rows, limit)
}

// Session returns the entries recorded under sessionID, oldest first.
func (s *Store) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, command, text, payload, event_ts, dispatched_at
FROM command_log
WHERE session_id = ?
ORDER BY rowid ASC;`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", sessionID, err)
	}
	return scanEntries(rows, 0)
}

// LatestSession returns the ID of the most recent session with recorded
// commands, or ErrNoSessions.
func (s *Store) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
SELECT session_id FROM command_log
WHERE session_id IS NOT NULL
ORDER BY rowid DESC
LIMIT 1;`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	if err != nil {
		return "", fmt.Errorf("query latest session: %w", err)
	}
	return id, nil
}

func scanEntries(rows *sql.Rows, sizeHint int) ([]Entry, error) {
	defer rows.Close()

	out := make([]Entry, 0, sizeHint)
	for rows.Next() {
		var (
			e                  Entry
			sessionID, payload sql.NullString
			dispatchedAt       string
		)
		if err := rows.Scan(&e.ID, &sessionID, &e.Command, &e.Text, &payload, &e.EventTS, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("scan command log: %w", err)
		}
		e.SessionID = sessionID.String
		e.Payload = payload.String
		var err error
		if e.DispatchedAt, err = time.Parse(time.RFC3339Nano, dispatchedAt); err != nil {
			return nil, fmt.Errorf("parse dispatched_at %q: %w", dispatchedAt, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command log: %w", err)
	}
	return out, nil
}

// Interim is ignored; only honored commands are persisted.
func (s *Store) Interim(dispatch.Event) {}

// CommandDetected records d. Failures are logged and never reach the
// dispatcher.
func (s *Store) CommandDetected(d dispatch.Detection) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.Record(ctx, d); err != nil {
		s.logger.Warn("failed to record command", "command", d.Command, "error", err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
