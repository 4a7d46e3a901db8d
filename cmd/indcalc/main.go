// cmd/indcalc loads bar history into SQLite and prints aligned indicator
// values computed over it, without running the HTTP service.
//
// Usage:
//
//	go run ./cmd/indcalc -db=data/bars.db -import=nifty_1m.csv -symbol=NSE:NIFTY -interval=1m
//	go run ./cmd/indcalc -symbol=NSE:NIFTY -interval=1m -indicators=SMA:20,MACD,BOLLINGER:20:2.5 -tail=5
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"marketdash/internal/indicator"
	"marketdash/internal/logger"
	sqlitestore "marketdash/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	importPath := flag.String("import", "", "CSV file of bars to load before computing")
	symbol := flag.String("symbol", "", "Series symbol, e.g. NSE:NIFTY")
	interval := flag.String("interval", "1m", "Series interval label")
	indicators := flag.String("indicators", "SMA:20,EMA:9,RSI:14", "Indicator specs: ID[:param...],...")
	limit := flag.Int("limit", 5000, "Most recent bars to compute over")
	tail := flag.Int("tail", 10, "Aligned points to print per indicator")
	workers := flag.Int("workers", 4, "Parallel indicator computations")
	level := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	log := logger.Init("indcalc", logger.ParseLevel(*level))
	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "indcalc: -symbol is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout, options{
		dbPath:     *dbPath,
		importPath: *importPath,
		symbol:     *symbol,
		interval:   *interval,
		indicators: *indicators,
		limit:      *limit,
		tail:       *tail,
		workers:    *workers,
		log:        log,
	}); err != nil {
		log.Error("indcalc failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath     string
	importPath string
	symbol     string
	interval   string
	indicators string
	limit      int
	tail       int
	workers    int
	log        *slog.Logger
}

func run(ctx context.Context, w io.Writer, opt options) error {
	if dir := filepath.Dir(opt.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if opt.importPath != "" {
		if err := importCSV(ctx, w, opt); err != nil {
			return err
		}
	}

	engine := indicator.NewEngine(indicator.WithWorkers(opt.workers), indicator.WithLogger(opt.log))
	reqs, err := indicator.ParseRequests(opt.indicators, engine.Registry())
	if err != nil {
		return err
	}

	reader, err := sqlitestore.NewReader(opt.dbPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	series, err := reader.ReadBars(ctx, opt.symbol, opt.interval, time.Time{}, time.Time{}, opt.limit)
	if err != nil {
		return err
	}
	results, err := engine.Compute(series, reqs)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  %d bars\n\n", series.Key(), series.Len())
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		res := results[k]
		if res.Err != nil {
			fmt.Fprintf(w, "%s: error: %v\n\n", k, res.Err)
			continue
		}
		printTail(w, res, opt.tail)
	}
	return nil
}

func importCSV(ctx context.Context, w io.Writer, opt options) error {
	f, err := os.Open(opt.importPath)
	if err != nil {
		return err
	}
	defer f.Close()

	series, err := readBarsCSV(f, opt.symbol, opt.interval)
	if err != nil {
		return fmt.Errorf("%s: %w", opt.importPath, err)
	}
	if err := indicator.ValidateSeries(series); err != nil {
		return fmt.Errorf("%s: %w", opt.importPath, err)
	}

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: opt.dbPath})
	if err != nil {
		return err
	}
	defer writer.Close()

	n, err := writer.UpsertSeries(ctx, series)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "imported %d bars into %s\n", n, series.Key())
	return nil
}

func printTail(w io.Writer, res indicator.Result, n int) {
	out := res.Output
	fmt.Fprintf(w, "%s (offset %d, %d points)\n", res.Key, out.Offset, out.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "ts\t%s\t\n", strings.Join(out.Lines, "\t"))
	start := out.Len() - n
	if start < 0 || n <= 0 {
		start = 0
	}
	for _, p := range out.Points[start:] {
		cells := make([]string, len(p.Values))
		for i, v := range p.Values {
			cells[i] = strconv.FormatFloat(v, 'f', 4, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", p.TS.Format("2006-01-02 15:04"), strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(w)
}
