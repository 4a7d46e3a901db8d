package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"marketdash/internal/model"
)

// readBarsCSV parses bars from CSV with a header row. ts, open and close
// are required; high and low must appear together; volume is optional.
// Timestamps are RFC3339 or Unix seconds. Rows are returned in file order.
func readBarsCSV(r io.Reader, symbol, interval string) (model.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return model.Series{}, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"ts", "open", "close"} {
		if _, ok := col[req]; !ok {
			return model.Series{}, fmt.Errorf("csv: missing %q column", req)
		}
	}
	_, hasHigh := col["high"]
	_, hasLow := col["low"]
	if hasHigh != hasLow {
		return model.Series{}, errors.New("csv: high and low must both be present or both absent")
	}
	_, hasVolume := col["volume"]

	s := model.Series{
		Symbol:     symbol,
		Interval:   interval,
		HasHighLow: hasHigh,
		HasVolume:  hasVolume,
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Series{}, fmt.Errorf("csv line %d: %w", line, err)
		}

		var b model.Bar
		if b.TS, err = parseTS(rec[col["ts"]]); err != nil {
			return model.Series{}, fmt.Errorf("csv line %d: ts: %w", line, err)
		}
		fields := []struct {
			name string
			dst  *float64
			ok   bool
		}{
			{"open", &b.Open, true},
			{"high", &b.High, hasHigh},
			{"low", &b.Low, hasLow},
			{"close", &b.Close, true},
			{"volume", &b.Volume, hasVolume},
		}
		for _, f := range fields {
			if !f.ok {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col[f.name]]), 64)
			if err != nil {
				return model.Series{}, fmt.Errorf("csv line %d: %s: %w", line, f.name, err)
			}
			*f.dst = v
		}
		if !hasHigh {
			b.High, b.Low = b.Close, b.Close
		}
		s.Bars = append(s.Bars, b)
	}
	return s, nil
}

func parseTS(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
