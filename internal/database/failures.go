package database

import (
	"fmt"

	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// GetFailuresByRun retrieves the symbol failures of a run in insertion order
func (db *DB) GetFailuresByRun(runID string) ([]models.SymbolFailure, error) {
	query := `
		SELECT symbol, kind, message
		FROM symbol_failures
		WHERE run_id = $1
		ORDER BY id
	`
	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	failures := []models.SymbolFailure{}
	for rows.Next() {
		var f models.SymbolFailure
		if err := rows.Scan(&f.Symbol, &f.Kind, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// GetFailingSymbols retrieves the symbols skipped in at least minFailures runs,
// most frequent first
func (db *DB) GetFailingSymbols(minFailures int) ([]*models.SymbolFailureCount, error) {
	query := `
		SELECT symbol, failures, kind, created_at FROM (
			SELECT DISTINCT ON (f.symbol)
				f.symbol, c.failures, f.kind, f.created_at
			FROM symbol_failures f
			JOIN (
				SELECT symbol, COUNT(DISTINCT run_id) AS failures
				FROM symbol_failures
				GROUP BY symbol
				HAVING COUNT(DISTINCT run_id) >= $1
			) c ON c.symbol = f.symbol
			ORDER BY f.symbol, f.created_at DESC, f.id DESC
		) latest
		ORDER BY failures DESC, symbol
	`
	rows, err := db.conn.Query(query, minFailures)
	if err != nil {
		return nil, fmt.Errorf("failed to get failing symbols: %w", err)
	}
	defer rows.Close()

	var counts []*models.SymbolFailureCount
	for rows.Next() {
		var c models.SymbolFailureCount
		if err := rows.Scan(&c.Symbol, &c.Failures, &c.LastKind, &c.LastFailed); err != nil {
			return nil, fmt.Errorf("failed to scan failing symbol: %w", err)
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}
