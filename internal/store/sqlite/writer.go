// Package sqlite keeps a durable local history of analysis results. Single
// writer connection, WAL mode, batched transactions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"screener-core/internal/analysis"
)

const (
	defaultBatchSize  = 50
	defaultFlushDelay = 500 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // e.g. "data/screener.db"
}

// Writer batches analysis results into SQLite. Implements
// analysis.ResultSink; results are durable after the next flush, not after
// Persist returns.
type Writer struct {
	db *sql.DB

	mu    sync.Mutex
	batch []*analysis.Result

	flushDone chan struct{}
	closeOnce sync.Once
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database, applies WAL mode and the schema, and starts the
// background flusher.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps SQLite happy under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	w := &Writer{
		db:        db,
		batch:     make([]*analysis.Result, 0, defaultBatchSize),
		flushDone: make(chan struct{}),
	}
	go w.flushLoop()

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return w, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_results (
			signal_id    TEXT    NOT NULL,
			trader_id    TEXT    NOT NULL,
			user_id      TEXT,
			symbol       TEXT    NOT NULL,
			interval     TEXT    NOT NULL,
			decision     TEXT    NOT NULL,
			confidence   REAL    NOT NULL,
			model_used   TEXT,
			tokens_used  INTEGER,
			latency_ms   INTEGER,
			payload      TEXT    NOT NULL,
			analyzed_at  INTEGER NOT NULL,
			PRIMARY KEY (signal_id, analyzed_at)
		);

		CREATE INDEX IF NOT EXISTS idx_results_symbol
			ON analysis_results (symbol, analyzed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_results_trader
			ON analysis_results (trader_id, analyzed_at DESC);
	`)
	return err
}

// Name identifies this sink in logs and metrics.
func (w *Writer) Name() string { return "sqlite" }

// Persist enqueues one result for the next batched transaction.
func (w *Writer) Persist(ctx context.Context, res *analysis.Result) error {
	w.mu.Lock()
	w.batch = append(w.batch, res)
	full := len(w.batch) >= defaultBatchSize
	w.mu.Unlock()

	if full {
		return w.Flush()
	}
	return nil
}

// Flush commits any pending results in one transaction.
func (w *Writer) Flush() error {
	w.mu.Lock()
	batch := w.batch
	w.batch = make([]*analysis.Result, 0, defaultBatchSize)
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := w.insertBatch(batch); err != nil {
		return fmt.Errorf("sqlite batch insert: %w", err)
	}
	log.Printf("[sqlite] committed %d results in %v", len(batch), time.Since(start))
	return nil
}

func (w *Writer) flushLoop() {
	ticker := time.NewTicker(defaultFlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-w.flushDone:
			return
		case <-ticker.C:
			if err := w.Flush(); err != nil {
				log.Printf("[sqlite] flush: %v", err)
			}
		}
	}
}

func (w *Writer) insertBatch(batch []*analysis.Result) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO analysis_results
			(signal_id, trader_id, user_id, symbol, interval, decision,
			 confidence, model_used, tokens_used, latency_ms, payload, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, res := range batch {
		payload, err := json.Marshal(res)
		if err != nil {
			log.Printf("[sqlite] marshal result %s: %v", res.SignalID, err)
			continue
		}
		_, err = stmt.Exec(
			res.SignalID, res.TraderID, res.UserID, res.Symbol, res.Interval,
			res.Decision, res.Confidence, res.ModelUsed, res.TokensUsed,
			res.LatencyMs, string(payload), res.AnalyzedAt.UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Close flushes pending results and closes the database.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() { close(w.flushDone) })
	if err := w.Flush(); err != nil {
		log.Printf("[sqlite] final flush: %v", err)
	}
	return w.db.Close()
}
