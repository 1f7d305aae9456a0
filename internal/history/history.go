// Package history records completed runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Score is one model score of a predictive run.
type Score struct {
	Model string
	Train float64
	Test  float64
}

// Run is one completed run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Dataset    string
	Mode       string
	Rows       int
	Columns    int
	OutputDir  string
	ReportPath string
	Target     string
	Task       string
	Scores     []Score
	Charts     []string
}

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			dataset TEXT NOT NULL,
			mode TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			column_count INTEGER NOT NULL,
			output_dir TEXT NOT NULL,
			report_path TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			task TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS run_scores (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			model TEXT NOT NULL,
			train_score REAL NOT NULL,
			test_score REAL NOT NULL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS run_charts (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a run with its scores and charts in one transaction.
func (s *Store) InsertRun(ctx context.Context, r Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dataset, mode, row_count, column_count, output_dir, report_path, target, task)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
		r.Dataset, r.Mode, r.Rows, r.Columns, r.OutputDir, r.ReportPath, r.Target, r.Task,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, sc := range r.Scores {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_scores (run_id, position, model, train_score, test_score) VALUES (?, ?, ?, ?, ?)`,
			r.ID, i, sc.Model, sc.Train, sc.Test); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	for i, c := range r.Charts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_charts (run_id, position, path) VALUES (?, ?, ?)`, r.ID, i, c); err != nil {
			return fmt.Errorf("insert chart: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, without scores or charts.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dataset, mode, row_count, column_count, output_dir, report_path, target, task
		 FROM runs ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads a run with its scores and charts.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dataset, mode, row_count, column_count, output_dir, report_path, target, task
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	scores, err := s.db.QueryContext(ctx,
		`SELECT model, train_score, test_score FROM run_scores WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return Run{}, err
	}
	defer func() { _ = scores.Close() }()
	for scores.Next() {
		var sc Score
		if err := scores.Scan(&sc.Model, &sc.Train, &sc.Test); err != nil {
			return Run{}, err
		}
		r.Scores = append(r.Scores, sc)
	}
	if err := scores.Err(); err != nil {
		return Run{}, err
	}

	charts, err := s.db.QueryContext(ctx,
		`SELECT path FROM run_charts WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return Run{}, err
	}
	defer func() { _ = charts.Close() }()
	for charts.Next() {
		var p string
		if err := charts.Scan(&p); err != nil {
			return Run{}, err
		}
		r.Charts = append(r.Charts, p)
	}
	return r, charts.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := sc.Scan(&r.ID, &started, &finished, &r.Dataset, &r.Mode, &r.Rows, &r.Columns,
		&r.OutputDir, &r.ReportPath, &r.Target, &r.Task); err != nil {
		return Run{}, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}
