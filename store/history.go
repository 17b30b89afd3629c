package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"roomsync/reconcile"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	created     INTEGER NOT NULL,
	deleted     INTEGER NOT NULL,
	unchanged   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	buckets     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);
`

// History records one row per sync run in SQLite.
type History struct {
	db *sql.DB
}

// OpenHistory opens (and if needed initializes) the run history at
// path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts a finished run. Re-recording the same run ID replaces
// the previous row.
func (h *History) Record(ctx context.Context, report reconcile.Report) error {
	buckets, err := json.Marshal(report.Buckets)
	if err != nil {
		return fmt.Errorf("history: marshal buckets: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_runs
			(run_id, started_at, finished_at, rows, created, deleted, unchanged, failed, buckets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.Rows,
		report.Created,
		report.Deleted,
		report.Unchanged,
		report.Failed,
		string(buckets),
	)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", report.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]reconcile.Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, rows, created, deleted, unchanged, failed, buckets
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var reports []reconcile.Report
	for rows.Next() {
		var report reconcile.Report
		var startedAt, finished, bucketsJSON string
		if err := rows.Scan(&report.RunID, &startedAt, &finished, &report.Rows,
			&report.Created, &report.Deleted, &report.Unchanged, &report.Failed, &bucketsJSON); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		if report.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("history: parse started_at: %w", err)
		}
		if report.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("history: parse finished_at: %w", err)
		}
		if err := json.Unmarshal([]byte(bucketsJSON), &report.Buckets); err != nil {
			return nil, fmt.Errorf("history: parse buckets: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
