// Package store persists simulation reports in SQLite.
package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"optimal_execution/internal/report"
	apperrors "optimal_execution/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	n_scenarios  INTEGER NOT NULL,
	succeeded    INTEGER NOT NULL,
	attempted    INTEGER NOT NULL,
	data         TEXT NOT NULL,
	checksum     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS scenarios (
	run_id       TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	ticker       TEXT NOT NULL,
	scenario_id  INTEGER NOT NULL,
	seed         INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	cost         TEXT NOT NULL,
	solve_time   REAL NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, ticker, scenario_id)
);
CREATE INDEX IF NOT EXISTS idx_scenarios_ticker ON scenarios(ticker);
`

// RunInfo is the index row of a stored run.
type RunInfo struct {
	RunID     string
	CreatedAt time.Time
	Scenarios int
	Succeeded int
	Attempted int
}

// SQLiteStore keeps batch reports with a checksum of their JSON body plus one
// queryable row per scenario.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveBatchReport stores rep and its scenario rows in one transaction.
// Saving a run id twice replaces the earlier copy.
func (s *SQLiteStore) SaveBatchReport(ctx context.Context, rep *report.BatchReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	checksum := sha256.Sum256(data)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	m := rep.Metadata
	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE run_id = ?`, m.RunID); err != nil {
		return fmt.Errorf("failed to clear scenarios: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, created_at, n_scenarios, succeeded, attempted, data, checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.GeneratedAt.UnixNano(), m.Scenarios, m.Succeeded, m.Attempted, string(data), checksum[:])
	if err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scenarios (run_id, ticker, scenario_id, seed, success, cost, solve_time, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare scenario insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range rep.Scenarios {
		// seeds stay below 2^63 for any realistic scenario id
		_, err := stmt.ExecContext(ctx, m.RunID, sc.Ticker, sc.ScenarioID, int64(sc.Seed), sc.Success, sc.Cost.String(), sc.SolveTimeSec, sc.Error)
		if err != nil {
			return fmt.Errorf("failed to write scenario %s/%d: %w", sc.Ticker, sc.ScenarioID, err)
		}
	}

	return tx.Commit()
}

// LoadBatchReport reads a stored report back, verifying its checksum.
// An unknown run id is a data-unavailable error.
func (s *SQLiteStore) LoadBatchReport(ctx context.Context, runID string) (*report.BatchReport, error) {
	var data string
	var stored []byte
	err := s.db.QueryRowContext(ctx, `SELECT data, checksum FROM runs WHERE run_id = ?`, runID).Scan(&data, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.DataUnavailable("run "+runID, nil)
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	computed := sha256.Sum256([]byte(data))
	if !bytes.Equal(stored, computed[:]) {
		return nil, fmt.Errorf("checksum verification failed for run %s: data corruption detected", runID)
	}

	var rep report.BatchReport
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &rep, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 lists all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, n_scenarios, succeeded, attempted FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var created int64
		if err := rows.Scan(&info.RunID, &created, &info.Scenarios, &info.Succeeded, &info.Attempted); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// TickerCosts returns the successful scenario costs of ticker across all runs,
// as stored (rounded to cents).
func (s *SQLiteStore) TickerCosts(ctx context.Context, ticker string) ([]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cost FROM scenarios WHERE ticker = ? AND success = 1 ORDER BY run_id, scenario_id`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs: %w", err)
	}
	defer rows.Close()

	var costs []decimal.Decimal
	for rows.Next() {
		var c decimal.Decimal
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan cost: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
