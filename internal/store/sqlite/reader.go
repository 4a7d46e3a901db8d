package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketdash/internal/model"
)

// Reader serves bar series from SQLite.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath, 2)
	if err != nil {
		return nil, err
	}
	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars returns bars for symbol/interval with from <= ts <= to in
// ascending order. A zero from or to leaves that side open; limit > 0 keeps
// the most recent limit bars. A NULL high/low or volume on any bar clears
// the corresponding presence flag for the whole series.
func (r *Reader) ReadBars(ctx context.Context, symbol, interval string, from, to time.Time, limit int) (model.Series, error) {
	var (
		where = []string{"symbol = ?", "interval = ?"}
		args  = []any{symbol, interval}
	)
	if !from.IsZero() {
		where = append(where, "ts_ms >= ?")
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		where = append(where, "ts_ms <= ?")
		args = append(args, to.UnixMilli())
	}
	query := `SELECT ts_ms, open, high, low, close, volume FROM bars WHERE ` + strings.Join(where, " AND ")
	if limit > 0 {
		// newest first, reversed below
		query += ` ORDER BY ts_ms DESC LIMIT ?`
		args = append(args, limit)
	} else {
		query += ` ORDER BY ts_ms ASC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Series{}, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	s := model.NewSeries(symbol, interval, nil)
	for rows.Next() {
		var (
			b              model.Bar
			tsMilli        int64
			high, low, vol sql.NullFloat64
		)
		if err := rows.Scan(&tsMilli, &b.Open, &high, &low, &b.Close, &vol); err != nil {
			return model.Series{}, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.UnixMilli(tsMilli).UTC()
		if high.Valid && low.Valid {
			b.High, b.Low = high.Float64, low.Float64
		} else {
			s.HasHighLow = false
			b.High, b.Low = b.Close, b.Close
		}
		if vol.Valid {
			b.Volume = vol.Float64
		} else {
			s.HasVolume = false
		}
		s.Bars = append(s.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return model.Series{}, fmt.Errorf("sqlite iterate bars: %w", err)
	}

	if limit > 0 {
		for i, j := 0, len(s.Bars)-1; i < j; i, j = i+1, j-1 {
			s.Bars[i], s.Bars[j] = s.Bars[j], s.Bars[i]
		}
	}
	return s, nil
}

// ListSeries returns every stored symbol/interval pair.
func (r *Reader) ListSeries(ctx context.Context) ([]model.SeriesInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, interval, COUNT(*), MIN(ts_ms), MAX(ts_ms)
		FROM bars
		GROUP BY symbol, interval
		ORDER BY symbol, interval
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	var out []model.SeriesInfo
	for rows.Next() {
		var (
			si          model.SeriesInfo
			first, last int64
		)
		if err := rows.Scan(&si.Symbol, &si.Interval, &si.Bars, &first, &last); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		si.First = time.UnixMilli(first).UTC()
		si.Last = time.UnixMilli(last).UTC()
		out = append(out, si)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
