// Package journal keeps an optional append-only SQLite record of sync runs.
// It exists purely for diagnosing unattended schedules after the fact; the
// planner never reads it, so sync behavior stays a pure function of the
// filesystem and the device listing.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/dashsync/internal/events"
)

// Journal is an open run journal.
type Journal struct {
	db     *sql.DB
	logger *events.Logger
}

// RunRecord summarizes one sync invocation.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Downloaded int
	Skipped    int
	Pruned     int
	Bytes      int64
	Error      string
}

// Open creates or opens the journal database.
func Open(path string, logger *events.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: logger.WithField("component", "journal"),
	}

	if err := j.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal: %w", err)
	}

	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        started_at TIMESTAMP NOT NULL,
        finished_at TIMESTAMP NOT NULL,
        outcome TEXT NOT NULL,
        downloaded INTEGER NOT NULL DEFAULT 0,
        skipped INTEGER NOT NULL DEFAULT 0,
        pruned INTEGER NOT NULL DEFAULT 0,
        bytes INTEGER NOT NULL DEFAULT 0,
        error TEXT
    );

    CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
    `

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// RecordRun appends one run summary.
func (j *Journal) RecordRun(rec RunRecord) error {
	_, err := j.db.Exec(
		`INSERT INTO runs (started_at, finished_at, outcome, downloaded, skipped, pruned, bytes, error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt, rec.FinishedAt, rec.Outcome,
		rec.Downloaded, rec.Skipped, rec.Pruned, rec.Bytes, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	j.logger.WithField("outcome", rec.Outcome).Debug("Recorded run")
	return nil
}

// LastRuns returns the most recent run summaries, newest first.
func (j *Journal) LastRuns(limit int) ([]RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT started_at, finished_at, outcome, downloaded, skipped, pruned, bytes, COALESCE(error, '')
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.StartedAt, &rec.FinishedAt, &rec.Outcome,
			&rec.Downloaded, &rec.Skipped, &rec.Pruned, &rec.Bytes, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
