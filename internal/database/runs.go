package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

const runColumns = `id, kind, period, requested, succeeded, compiled_rows, dataset_rows, positives, negatives,
	seed, COALESCE(export_path, ''), started_at, finished_at`

// CreateRunReport stores a run report and its symbol failures in one transaction
func (db *DB) CreateRunReport(r *models.RunReport) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO compile_runs (id, kind, period, requested, succeeded, compiled_rows, dataset_rows,
			positives, negatives, seed, export_path, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
	`,
		r.ID, r.Kind, r.Period, r.Requested, r.Succeeded, r.CompiledRows, r.Rows,
		r.Positives, r.Negatives, r.Seed, r.ExportPath, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run report: %w", err)
	}

	if len(r.Failures) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO symbol_failures (run_id, symbol, kind, message, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, f := range r.Failures {
			if _, err := stmt.Exec(r.ID, f.Symbol, f.Kind, f.Message, now); err != nil {
				return fmt.Errorf("failed to insert failure for %s: %w", f.Symbol, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanRun(row interface{ Scan(...any) error }) (*models.RunReport, error) {
	var r models.RunReport
	err := row.Scan(
		&r.ID, &r.Kind, &r.Period, &r.Requested, &r.Succeeded, &r.CompiledRows, &r.Rows,
		&r.Positives, &r.Negatives, &r.Seed, &r.ExportPath, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunReport retrieves a run report with its failures
func (db *DB) GetRunReport(id string) (*models.RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM compile_runs WHERE id = $1`
	r, err := scanRun(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	failures, err := db.GetFailuresByRun(id)
	if err != nil {
		return nil, err
	}
	r.Failures = failures
	return r, nil
}

// ListRunReports retrieves the most recent run reports, newest first. Failures are
// not loaded.
func (db *DB) ListRunReports(limit int) ([]*models.RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM compile_runs ORDER BY started_at DESC LIMIT $1`
	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteRunsOlderThan removes run reports started before t, with their failures
func (db *DB) DeleteRunsOlderThan(t time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM compile_runs WHERE started_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old run reports: %w", err)
	}
	return result.RowsAffected()
}
