// Package store persists benchmark runs and per-row predictions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bwilder0/folktexts/internal/benchmark"
)

const (
	// DefaultPath is where the CLI keeps its results database.
	DefaultPath = "data/folktexts.db"

	defaultListLimit = 50
)

// Store wraps the SQLite results database.
type Store struct {
	db *sql.DB

	insertRunStmt  *sql.Stmt
	insertPredStmt *sql.Stmt
	getRunStmt     *sql.Stmt
	listRunsStmt   *sql.Stmt
	predsByRunStmt *sql.Stmt
}

// RunSummary is one persisted benchmark run without its predictions.
type RunSummary struct {
	ID          string            `json:"id"`
	Model       string            `json:"model"`
	Task        string            `json:"task"`
	Accuracy    float64           `json:"accuracy"`
	BrierScore  float64           `json:"brier_score"`
	ECE         float64           `json:"ece"`
	TotalTokens int               `json:"total_tokens"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Metrics     benchmark.Metrics `json:"metrics"`
}

// Open opens or creates the results store at path. ":memory:" opens an
// in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &Store{db: db}
	if err := st.prepareStatements(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			task TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			metrics_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			run_id TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			label INTEGER NOT NULL,
			score REAL NOT NULL,
			answer TEXT,
			error TEXT,
			PRIMARY KEY(run_id, row_index),
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertRunStmt, err = s.db.Prepare(`INSERT INTO runs
		(id, model, task, started_at, finished_at, total_tokens, config_json, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert run: %w", err)
	}

	s.insertPredStmt, err = s.db.Prepare(`INSERT INTO predictions
		(run_id, row_index, label, score, answer, error)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert prediction: %w", err)
	}

	s.getRunStmt, err = s.db.Prepare(`SELECT
		id, model, task, started_at, finished_at, total_tokens, metrics_json
		FROM runs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare get run: %w", err)
	}

	s.listRunsStmt, err = s.db.Prepare(`SELECT
		id, model, task, started_at, finished_at, total_tokens, metrics_json
		FROM runs ORDER BY started_at DESC LIMIT ?`)
	if err != nil {
		return fmt.Errorf("store: prepare list runs: %w", err)
	}

	s.predsByRunStmt, err = s.db.Prepare(`SELECT
		row_index, label, score, answer, error
		FROM predictions WHERE run_id = ? ORDER BY row_index`)
	if err != nil {
		return fmt.Errorf("store: prepare predictions by run: %w", err)
	}

	return nil
}

// SaveResult persists a benchmark result and its predictions in one
// transaction.
func (s *Store) SaveResult(ctx context.Context, res *benchmark.Result) error {
	if s == nil || s.db == nil {
		return errors.New("store: nil store")
	}
	if res == nil {
		return errors.New("store: nil result")
	}
	if strings.TrimSpace(res.RunID) == "" {
		return errors.New("store: result missing run id")
	}

	configJSON, err := json.Marshal(res.Config)
	if err != nil {
		return fmt.Errorf("store: encode config: %w", err)
	}
	metricsJSON, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("store: encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.StmtContext(ctx, s.insertRunStmt).ExecContext(ctx,
		res.RunID,
		res.Model,
		res.Task,
		res.StartedAt.Unix(),
		res.FinishedAt.Unix(),
		res.TotalTokens,
		string(configJSON),
		string(metricsJSON),
	); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	for _, p := range res.Predictions {
		if _, err := tx.StmtContext(ctx, s.insertPredStmt).ExecContext(ctx,
			res.RunID, p.Index, p.Label, p.Score, p.Answer, p.Error,
		); err != nil {
			return fmt.Errorf("store: insert prediction %d: %w", p.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ErrNotFound marks a lookup for an unknown run ID.
var ErrNotFound = errors.New("store: run not found")

// GetRun fetches one run summary by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}

	row := s.getRunStmt.QueryRowContext(ctx, strings.TrimSpace(id))
	out, err := scanRunSummary(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return out, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.listRunsStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		summary, err := scanRunSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, rows.Err()
}

// Predictions returns a run's per-row predictions, in row order.
func (s *Store) Predictions(ctx context.Context, runID string) ([]benchmark.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}

	rows, err := s.predsByRunStmt.QueryContext(ctx, strings.TrimSpace(runID))
	if err != nil {
		return nil, fmt.Errorf("store: predictions: %w", err)
	}
	defer rows.Close()

	var out []benchmark.Prediction
	for rows.Next() {
		var p benchmark.Prediction
		var answer, errText sql.NullString
		if err := rows.Scan(&p.Index, &p.Label, &p.Score, &answer, &errText); err != nil {
			return nil, fmt.Errorf("store: scan prediction: %w", err)
		}
		p.Answer = answer.String
		p.Error = errText.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	for _, stmt := range []*sql.Stmt{
		s.insertRunStmt, s.insertPredStmt, s.getRunStmt, s.listRunsStmt, s.predsByRunStmt,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanRunSummary(scan func(dest ...any) error) (*RunSummary, error) {
	var (
		out         RunSummary
		startedAt   int64
		finishedAt  int64
		metricsJSON string
	)
	if err := scan(&out.ID, &out.Model, &out.Task, &startedAt, &finishedAt, &out.TotalTokens, &metricsJSON); err != nil {
		return nil, err
	}

	out.StartedAt = time.Unix(startedAt, 0).UTC()
	out.FinishedAt = time.Unix(finishedAt, 0).UTC()
	if err := json.Unmarshal([]byte(metricsJSON), &out.Metrics); err != nil {
		return nil, fmt.Errorf("store: decode metrics: %w", err)
	}
	out.Accuracy = out.Metrics.Accuracy
	out.BrierScore = out.Metrics.BrierScore
	out.ECE = out.Metrics.ECE
	return &out, nil
}
