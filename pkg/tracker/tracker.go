package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/apicost/pkg/models"
)

// Tracker records and queries annotation runs.
type Tracker interface {
	// Record stores a run and its per-model totals. An empty ID is filled in.
	Record(ctx context.Context, rec models.RunRecord) (string, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
	// RunModels returns the per-model totals of one run, highest cost first.
	RunModels(ctx context.Context, runID string) ([]models.ModelCost, error)
	// TotalsByModel sums cost per model across runs since a given time.
	TotalsByModel(ctx context.Context, since time.Time) ([]models.ModelCost, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

var _ Tracker = (*SQLiteTracker)(nil)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	file TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	total REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(created_at);
`

const createRunModelsTable = `
CREATE TABLE IF NOT EXISTS run_models (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	cost REAL NOT NULL,
	PRIMARY KEY (run_id, model)
);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}

	if _, err := db.Exec(createRunModelsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run_models table: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a run and its per-model totals in one transaction.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, file, row_count, total, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.File, rec.Rows, rec.Total, rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for _, m := range rec.Models {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_models (run_id, model, row_count, cost) VALUES (?, ?, ?, ?)`,
			rec.ID, m.Model, m.Rows, m.Cost,
		)
		if err != nil {
			return "", fmt.Errorf("record run model %s: %w", m.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit record: %w", err)
	}
	return rec.ID, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run. Models are not populated; use RunModels.
func (t *SQLiteTracker) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT id, file, row_count, total, created_at FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.File, &r.Rows, &r.Total, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunModels returns the per-model totals of one run, highest cost first.
func (t *SQLiteTracker) RunModels(ctx context.Context, runID string) ([]models.ModelCost, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT model, row_count, cost FROM run_models WHERE run_id = ? ORDER BY cost DESC, model ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run models: %w", err)
	}
	defer rows.Close()

	return scanModelCosts(rows)
}

// TotalsByModel sums cost and rows per model across runs since a given time.
func (t *SQLiteTracker) TotalsByModel(ctx context.Context, since time.Time) ([]models.ModelCost, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT m.model, SUM(m.row_count), SUM(m.cost)
		 FROM run_models m JOIN runs r ON r.id = m.run_id
		 WHERE r.created_at >= ?
		 GROUP BY m.model ORDER BY SUM(m.cost) DESC, m.model ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("totals by model: %w", err)
	}
	defer rows.Close()

	return scanModelCosts(rows)
}

func scanModelCosts(rows *sql.Rows) ([]models.ModelCost, error) {
	var out []models.ModelCost
	for rows.Next() {
		var m models.ModelCost
		if err := rows.Scan(&m.Model, &m.Rows, &m.Cost); err != nil {
			return nil, fmt.Errorf("scan model cost: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
