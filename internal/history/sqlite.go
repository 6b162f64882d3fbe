package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	job_id       TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	requester_id INTEGER NOT NULL,
	url          TEXT NOT NULL,
	kind         TEXT NOT NULL,
	state        TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	bytes        INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL
)`

const requesterIndex = `CREATE INDEX IF NOT EXISTS idx_jobs_requester ON jobs(requester_id)`

// SQLite is a ledger in a local database file
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger at path
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL and a busy timeout let job workers write while /stats reads
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	for _, stmt := range []string{schema, requesterIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate history db: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

// Record implements Recorder
func (s *SQLite) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs
		(job_id, session_id, requester_id, url, kind, state, error_kind, bytes, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.SessionID, rec.RequesterID, rec.URL, rec.Kind, rec.State, rec.ErrorKind,
		rec.Bytes, rec.CreatedAt.Unix(), rec.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", rec.JobID, err)
	}
	return nil
}

// Stats implements Recorder
func (s *SQLite) Stats(ctx context.Context, requesterID int64) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN state = 'Completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = 'Failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(bytes), 0)
		FROM jobs WHERE requester_id = ?`,
		requesterID,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return stats, nil
}

// Close implements Recorder
func (s *SQLite) Close() error {
	return s.db.Close()
}
