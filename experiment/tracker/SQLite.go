package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLite tracks scenario episodes in an SQLite database. Each
// experiment is one run, identified by a random UUID, and every
// finished scenario episode is one row of the episodes table.
// Episodes are buffered in memory and written on Save.
type SQLite struct {
	db      *sql.DB
	runID   string
	mode    string
	started time.Time

	pending   []Episode
	runStored bool
}

// NewSQLite opens or creates the database at path and starts a new run
// of the given mode
func NewSQLite(ctx context.Context, path, mode string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("newSQLite: sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("newSQLite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("newSQLite: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("newSQLite: could not create tables: %w", err)
	}

	return &SQLite{
		db:      db,
		runID:   uuid.NewString(),
		mode:    mode,
		started: time.Now().UTC(),
	}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			episode INTEGER NOT NULL,
			scenario INTEGER NOT NULL,
			episode_return REAL NOT NULL,
			cost REAL NOT NULL,
			length INTEGER NOT NULL,
			collision INTEGER NOT NULL,
			off_road INTEGER NOT NULL
		);
	`)
	return err
}

// RunID returns the identifier of the run
func (s *SQLite) RunID() string {
	return s.runID
}

// Track buffers a finished scenario episode
func (s *SQLite) Track(e Episode) {
	s.pending = append(s.pending, e)
}

// Save writes the run and all buffered episodes in one transaction
func (s *SQLite) Save() error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer tx.Rollback()

	if !s.runStored {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, mode, started_at) VALUES (?, ?, ?)
		`, s.runID, s.mode, s.started.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("save: could not store run: %w", err)
		}
	}

	for _, e := range s.pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO episodes (run_id, episode, scenario, episode_return, cost,
				length, collision, off_road)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, s.runID, e.Episode, e.Scenario, e.Return, e.Cost, e.Length,
			flag(e.Collision), flag(e.OffRoad)); err != nil {
			return fmt.Errorf("save: could not store episode: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.runStored = true
	s.pending = nil
	return nil
}

// Episodes returns the stored episodes of the run in insertion order
func (s *SQLite) Episodes(ctx context.Context) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT episode, scenario, episode_return, cost, length, collision,
			off_road
		FROM episodes WHERE run_id = ? ORDER BY rowid
	`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.Episode, &e.Scenario, &e.Return, &e.Cost,
			&e.Length, &e.Collision, &e.OffRoad); err != nil {
			return nil, fmt.Errorf("episodes: %w", err)
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("episodes: %w", err)
	}
	return episodes, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
