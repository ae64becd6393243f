package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

var ErrRunNotFound = errors.New("run not found")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY,
  kind        TEXT NOT NULL CHECK (kind IN ('snippets','approvals')),
  target      TEXT NOT NULL,
  started_at  DATETIME NOT NULL,
  finished_at DATETIME,
  succeeded   INTEGER NOT NULL DEFAULT 0,
  unchanged   INTEGER NOT NULL DEFAULT 0,
  failed      INTEGER NOT NULL DEFAULT 0,
  skipped     INTEGER NOT NULL DEFAULT 0,
  unresolved  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
CREATE TABLE IF NOT EXISTS outcomes (
  id       INTEGER PRIMARY KEY,
  run_id   INTEGER NOT NULL REFERENCES runs(id),
  item_key TEXT NOT NULL,
  outcome  TEXT NOT NULL,
  detail   TEXT
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// StartRun inserts an unfinished run and returns its id.
func (d *DB) StartRun(ctx context.Context, kind, target string) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO runs(kind, target, started_at) VALUES(?,?,?)`, kind, target, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("starting %s run: %w", kind, err)
	}
	return res.LastInsertId()
}

// RecordOutcomes appends item outcomes to a run in a single transaction.
func (d *DB) RecordOutcomes(ctx context.Context, runID int64, outcomes []Outcome) (err error) {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes(run_id, item_key, outcome, detail) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err = stmt.ExecContext(ctx, runID, o.Key, o.Outcome, nullIfEmpty(o.Detail)); err != nil {
			return fmt.Errorf("recording outcome for %s: %w", o.Key, err)
		}
	}
	return tx.Commit()
}

// FinishRun stores the final counters of a run.
func (d *DB) FinishRun(ctx context.Context, runID int64, c Counts) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE runs SET finished_at = ?, succeeded = ?, unchanged = ?, failed = ?, skipped = ?, unresolved = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), c.Succeeded, c.Unchanged, c.Failed, c.Skipped, c.Unresolved, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, kind, target, started_at, finished_at, succeeded, unchanged, failed, skipped, unresolved FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Target, &started, &finished, &r.Succeeded, &r.Unchanged, &r.Failed, &r.Skipped, &r.Unresolved); err != nil {
			return nil, err
		}
		r.StartedAt = parseTimestamp(started)
		if finished.Valid {
			r.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListOutcomes returns the item outcomes of one run in insertion order.
func (d *DB) ListOutcomes(ctx context.Context, runID int64) ([]Outcome, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT run_id, item_key, outcome, detail FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o      Outcome
			detail sql.NullString
		)
		if err := rows.Scan(&o.RunID, &o.Key, &o.Outcome, &detail); err != nil {
			return nil, err
		}
		o.Detail = detail.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetStats sums the counters of finished runs per kind.
func (d *DB) GetStats(ctx context.Context) ([]KindStats, error) {
	query := `
		SELECT
			kind,
			COUNT(*),
			SUM(succeeded),
			SUM(unchanged),
			SUM(failed),
			SUM(skipped),
			SUM(unresolved)
		FROM
			runs
		WHERE
			finished_at IS NOT NULL
		GROUP BY
			kind
		ORDER BY
			kind;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []KindStats
	for rows.Next() {
		var s KindStats
		if err := rows.Scan(&s.Kind, &s.Runs, &s.Succeeded, &s.Unchanged, &s.Failed, &s.Skipped, &s.Unresolved); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// parseTimestamp accepts our own layout and RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
