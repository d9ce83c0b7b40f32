// Package sqlite provides the default local audit trail backed by an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"solana-survival-agent/internal/observability"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS cycle_outcomes (
	cycle_id        TEXT PRIMARY KEY,
	success         INTEGER NOT NULL,
	tier            TEXT NOT NULL,
	action_taken    TEXT NOT NULL,
	transaction_ref TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	ambiguous       INTEGER NOT NULL DEFAULT 0,
	target          TEXT NOT NULL DEFAULT '',
	amount          TEXT NOT NULL DEFAULT '',
	tribute_ref     TEXT NOT NULL DEFAULT '',
	tribute_error   TEXT NOT NULL DEFAULT '',
	native_balance  TEXT,
	stable_balance  TEXT,
	snapshot_at     INTEGER NOT NULL DEFAULT 0,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_finished ON cycle_outcomes(finished_at);

CREATE TABLE IF NOT EXISTS tributes (
	id         TEXT PRIMARY KEY,
	cycle_id   TEXT NOT NULL DEFAULT '',
	recipient  TEXT NOT NULL,
	mint       TEXT NOT NULL,
	amount     TEXT NOT NULL,
	signature  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tributes_created ON tributes(created_at);
`

// NewDB opens the SQLite database at path with WAL journaling, creating the
// parent directory (0700) if needed, and applies the schema.
func NewDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func isDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func observe(op string, start time.Time, err error) {
	observability.RecordDBQuery("sqlite", op, time.Since(start).Seconds(), err)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
