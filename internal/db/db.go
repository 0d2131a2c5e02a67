// Package db is the durable-but-out-of-core sink for finished game
// sessions: the in-memory session store (internal/session) is the
// source of truth for an active game, and writes one row here the
// moment a session ends. Nothing reads this table back into a live
// game - it exists purely so a finished session survives a restart of
// the in-memory store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var schemaStmts = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA foreign_keys=ON;`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		variant TEXT NOT NULL,
		subvariant TEXT NOT NULL DEFAULT '',
		white_user_id TEXT NOT NULL,
		black_user_id TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		result_reason TEXT NOT NULL DEFAULT '',
		winner_color TEXT NOT NULL DEFAULT '',
		move_count INTEGER NOT NULL DEFAULT 0,
		ended_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_white_user_id ON sessions(white_user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_black_user_id ON sessions(black_user_id);`,
}

// Store is the sqlx-backed handle to the sessions database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the sqlite file at path and applies
// the schema. Single-instance service, so the connection pool is capped at
// one connection the same way the engine-tournament store caps its games
// database.
func Open(path string) (*Store, error) {
	sqlDB, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range schemaStmts {
		if _, err := sqlDB.Exec(stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{db: sqlDB}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FinishedSession is one row of the durable summary, written once per
// session at EndSession time.
type FinishedSession struct {
	ID           int64  `db:"id"`
	SessionID    string `db:"session_id"`
	Variant      string `db:"variant"`
	Subvariant   string `db:"subvariant"`
	WhiteUserID  string `db:"white_user_id"`
	BlackUserID  string `db:"black_user_id"`
	Result       string `db:"result"`
	ResultReason string `db:"result_reason"`
	WinnerColor  string `db:"winner_color"`
	MoveCount    int    `db:"move_count"`
	EndedAt      string `db:"ended_at"`
}

// InsertFinishedSession records one finished session. Called at most once
// per session id; a duplicate insert (the caller retrying EndSession after
// a crash) is not an error, just a no-op, since session_id is unique.
func (s *Store) InsertFinishedSession(ctx context.Context, row FinishedSession) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO sessions
			(session_id, variant, subvariant, white_user_id, black_user_id,
			 result, result_reason, winner_color, move_count)
		VALUES
			(:session_id, :variant, :subvariant, :white_user_id, :black_user_id,
			 :result, :result_reason, :winner_color, :move_count)
	`, row)
	if err != nil {
		return fmt.Errorf("insert finished session: %w", err)
	}
	return nil
}

// RecentFinishedSessions returns the most recently ended sessions, newest
// first - e.g. for an operator inspecting recent activity.
func (s *Store) RecentFinishedSessions(ctx context.Context, limit int) ([]FinishedSession, error) {
	rows := []FinishedSession{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, variant, subvariant, white_user_id, black_user_id,
		       result, result_reason, winner_color, move_count, ended_at
		FROM sessions
		ORDER BY ended_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent finished sessions: %w", err)
	}
	return rows, nil
}

// SessionsForUser returns every finished session a user id played in,
// white or black, most recent first.
func (s *Store) SessionsForUser(ctx context.Context, userID string) ([]FinishedSession, error) {
	rows := []FinishedSession{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, variant, subvariant, white_user_id, black_user_id,
		       result, result_reason, winner_color, move_count, ended_at
		FROM sessions
		WHERE white_user_id = ? OR black_user_id = ?
		ORDER BY ended_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for user: %w", err)
	}
	return rows, nil
}
