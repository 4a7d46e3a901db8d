package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"marketdash/internal/model"
)

// ErrDuplicateTimestamp rejects a series with two bars in the same
// millisecond.
var ErrDuplicateTimestamp = errors.New("bars share a millisecond timestamp")

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer loads bars into SQLite with transaction batching.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	// Single writer connection
	db, err := open(cfg.DBPath, 1)
	if err != nil {
		return nil, err
	}
	slog.Info("sqlite writer opened", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

// UpsertSeries inserts or replaces every bar of s in a single transaction
// and returns the number of bars written. Timestamps are stored at
// millisecond precision; two bars of s that fall in the same millisecond
// are rejected rather than collapsed into one row.
func (w *Writer) UpsertSeries(ctx context.Context, s model.Series) (int, error) {
	if len(s.Bars) == 0 {
		return 0, nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, interval, ts_ms, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite prepare upsert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[int64]bool, len(s.Bars))
	for _, b := range s.Bars {
		ts := b.TS.UnixMilli()
		if seen[ts] {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite upsert bar %s: %w", b.TS, ErrDuplicateTimestamp)
		}
		seen[ts] = true
		high, low := nullable(b.High, s.HasHighLow), nullable(b.Low, s.HasHighLow)
		volume := nullable(b.Volume, s.HasVolume)
		if _, err := stmt.ExecContext(ctx, s.Symbol, s.Interval, ts, b.Open, high, low, b.Close, volume); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite upsert bar %s: %w", b.TS, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return len(s.Bars), nil
}

func nullable(v float64, present bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: present}
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
