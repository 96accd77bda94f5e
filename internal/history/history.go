// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite log of sync passes and the per-source
// decisions each pass made.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jkudo/slideview/pkg/types"
)

// ErrNotFound is returned when a pass id is not in the history.
var ErrNotFound = errors.New("pass not found")

// DefaultLimit is the number of passes Recent returns when limit is not positive.
const DefaultLimit = 20

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and ensures its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passes (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			duration_ms INTEGER,
			new INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			unchanged INTEGER NOT NULL DEFAULT 0,
			orphaned INTEGER NOT NULL DEFAULT 0,
			repaired INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			tracked INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passes_started_at ON passes(started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			pass_id TEXT NOT NULL REFERENCES passes(id) ON DELETE CASCADE,
			source TEXT NOT NULL,
			action TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_pass_id ON events(pass_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source ON events(source)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a pass summary and its events. Recording the same pass id
// again replaces the earlier entry.
func (s *Store) Record(ctx context.Context, summary types.PassSummary) error {
	if summary.ID == "" {
		return errors.New("pass summary has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE pass_id = ?`, summary.ID); err != nil {
		return fmt.Errorf("deleting old events: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO passes (id, state, started_at, finished_at, duration_ms,
			new, updated, unchanged, orphaned, repaired, failed, tracked, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			state=excluded.state, started_at=excluded.started_at,
			finished_at=excluded.finished_at, duration_ms=excluded.duration_ms,
			new=excluded.new, updated=excluded.updated, unchanged=excluded.unchanged,
			orphaned=excluded.orphaned, repaired=excluded.repaired,
			failed=excluded.failed, tracked=excluded.tracked, error=excluded.error`,
		summary.ID, string(summary.State),
		formatTime(summary.StartedAt), formatTime(summary.FinishedAt),
		summary.Duration.Milliseconds(),
		summary.New, summary.Updated, summary.Unchanged, summary.Orphaned,
		summary.Repaired, summary.Failed, summary.Tracked, summary.Error,
	)
	if err != nil {
		return fmt.Errorf("upserting pass: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (pass_id, source, action, error) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range summary.Events {
		if _, err := stmt.ExecContext(ctx, summary.ID, ev.Source, string(ev.Action), ev.Error); err != nil {
			return fmt.Errorf("inserting event for %s: %w", ev.Source, err)
		}
	}

	return tx.Commit()
}

const passColumns = `id, state, started_at, finished_at, duration_ms,
	new, updated, unchanged, orphaned, repaired, failed, tracked, error`

// Recent returns up to limit passes, newest first, without their events.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.PassSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+passColumns+` FROM passes ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer rows.Close()

	var passes []types.PassSummary
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// Get returns one pass with its events.
func (s *Store) Get(ctx context.Context, passID string) (types.PassSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, passID)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PassSummary{}, fmt.Errorf("%w: %s", ErrNotFound, passID)
	}
	if err != nil {
		return types.PassSummary{}, err
	}

	p.Events, err = s.Events(ctx, passID)
	if err != nil {
		return types.PassSummary{}, err
	}
	return p, nil
}

// Events returns the recorded events of a pass in the order they were recorded.
func (s *Store) Events(ctx context.Context, passID string) ([]types.SourceEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, action, error FROM events WHERE pass_id = ? ORDER BY rowid`, passID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []types.SourceEvent
	for rows.Next() {
		var (
			ev     types.SourceEvent
			action string
			errMsg sql.NullString
		)
		if err := rows.Scan(&ev.Source, &action, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Action = types.Action(action)
		ev.Error = errMsg.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(row scanner) (types.PassSummary, error) {
	var (
		p                types.PassSummary
		state, started   string
		finished, errMsg sql.NullString
		durationMS       sql.NullInt64
	)
	err := row.Scan(&p.ID, &state, &started, &finished, &durationMS,
		&p.New, &p.Updated, &p.Unchanged, &p.Orphaned, &p.Repaired, &p.Failed,
		&p.Tracked, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, fmt.Errorf("scanning pass: %w", err)
	}

	p.State = types.PassState(state)
	p.StartedAt = parseTime(started)
	p.FinishedAt = parseTime(finished.String)
	p.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	p.Error = errMsg.String
	return p, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
