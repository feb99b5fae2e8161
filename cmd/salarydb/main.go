package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/citydata/salarydb/internal/config"
	"github.com/citydata/salarydb/internal/ingest"
	"github.com/citydata/salarydb/internal/logging"
	"github.com/citydata/salarydb/internal/pgload"
	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/storage"
	"github.com/citydata/salarydb/internal/store"
)

func main() {
	loadCSV := flag.String("load", "", "CSV file to bulk-load (empty skips loading)")
	export := flag.Bool("export", false, "Export the store to Postgres after loading")
	year := flag.Int("year", 0, "Print all rows for the given year")
	fromYear := flag.Int("from", 0, "Range scan: first year (use with -to)")
	toYear := flag.Int("to", 0, "Range scan: last year (use with -from)")
	stats := flag.Bool("stats", false, "Print row count and distinct years")
	flag.Parse()

	cfg := config.Load()

	logger, closeFn := logging.Setup(cfg.SeqURL)
	defer closeFn()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *loadCSV, *export, *year, *fromYear, *toYear, *stats); err != nil {
		logger.Error("salarydb failed", "error", err)
		closeFn()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	loadCSV string, export bool, year, fromYear, toYear int, stats bool) error {

	s, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if w := s.WAL(); w != nil {
			w.Close()
		}
	}()

	s.AddObserver(store.NewLoggingObserver(logger))

	if loadCSV != "" {
		result, err := ingest.LoadCSV(ctx, loadCSV, s, logger)
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d rows (%d skipped, %d duplicates), batch %s\n",
			result.Loaded, result.Skipped, result.Duplicates, result.BatchID)
	}

	// Persist whatever the load added before any export or query output
	if err := storage.Checkpoint(s, cfg.DataDir, logger); err != nil {
		return err
	}

	if export {
		db, err := pgload.Connect(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := pgload.Export(ctx, db, s, logger)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d rows to %s/%s\n", count, cfg.Postgres.Host, cfg.Postgres.DBName)
	}

	if year != 0 {
		for rec := range s.ScanYear(year) {
			printRecord(rec)
		}
	}

	if fromYear != 0 && toYear != 0 {
		for rec := range s.ScanYearRange(fromYear, toYear) {
			printRecord(rec)
		}
	}

	if stats {
		fmt.Printf("rows: %d\n", s.Count())
		fmt.Printf("years: %v\n", s.Years())
	}

	return nil
}

func printRecord(rec salaries.Record) {
	fmt.Printf("%d\t%d\t%s\t%s\t%.2f\t%.2f\t%s\n",
		rec.ID, rec.Year, rec.EmployeeName, rec.JobTitle,
		rec.TotalPay, rec.TotalPayBenefits, rec.Agency)
}
