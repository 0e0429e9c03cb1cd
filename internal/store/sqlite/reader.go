package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"screener-core/internal/analysis"
)

// Reader queries stored analysis results. Safe to share one Reader across
// goroutines; it only reads.
type Reader struct {
	db *sql.DB
}

// NewReader wraps an open database, typically Writer.DB().
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// GetRecent returns up to limit results for a symbol, newest first.
func (r *Reader) GetRecent(ctx context.Context, symbol string, limit int) ([]*analysis.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM analysis_results
		WHERE symbol = ?
		ORDER BY analyzed_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query recent: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetBySignalID returns every stored analysis of one signal, oldest first,
// so the monitoring history reads in order.
func (r *Reader) GetBySignalID(ctx context.Context, signalID string) ([]*analysis.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM analysis_results
		WHERE signal_id = ?
		ORDER BY analyzed_at ASC
	`, signalID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signal: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// CountByDecision returns how many stored results carry each decision.
func (r *Reader) CountByDecision(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT decision, COUNT(*) FROM analysis_results GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("sqlite count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, err
		}
		counts[decision] = n
	}
	return counts, rows.Err()
}

func scanResults(rows *sql.Rows) ([]*analysis.Result, error) {
	var results []*analysis.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var res analysis.Result
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, fmt.Errorf("decode stored result: %w", err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}
