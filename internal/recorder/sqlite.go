package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the scanner writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[RECORDER] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			ticker           TEXT NOT NULL,
			price            REAL,
			score            INTEGER,
			weighted_score   REAL,
			score_pct        REAL,
			strategies       TEXT,
			sentiment_score  REAL,
			sentiment_reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_results(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ticker ON scan_results(ticker)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordScan appends one scan pass in a single transaction
func (r *SQLiteRecorder) RecordScan(ts time.Time, records []ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO scan_results
		(timestamp, ticker, price, score, weighted_score, score_pct, strategies, sentiment_score, sentiment_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(ts.Unix(), rec.Ticker, rec.Price, rec.Score,
			rec.WeightedScore, rec.ScorePct, rec.Strategies,
			rec.SentimentScore, rec.SentimentReason); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Ticker, err)
		}
	}
	return tx.Commit()
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
