// Package pgload exports the salaries store to a Postgres database using the
// COPY protocol, the same shape as the bulk pipeline the table was originally
// populated with.
package pgload

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/citydata/salarydb/internal/config"
	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
)

// createTableSQL creates the salaries table. Identifiers are quoted so they
// match the quoting pq.CopyIn applies to column names.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS "Salaries" (
    "Id"               INT PRIMARY KEY,
    "EmployeeName"     TEXT,
    "JobTitle"         TEXT,
    "BasePay"          FLOAT,
    "OvertimePay"      FLOAT,
    "OtherPay"         FLOAT,
    "Benefits"         FLOAT,
    "TotalPay"         FLOAT,
    "TotalPayBenefits" FLOAT,
    "Year"             INT,
    "Notes"            TEXT,
    "Agency"           TEXT,
    "Status"           TEXT
)`

// createYearIndexSQL creates the secondary index on Year
const createYearIndexSQL = `CREATE INDEX IF NOT EXISTS idx_salaries_year ON "Salaries" ("Year")`

// Connect opens and pings a Postgres connection from config
func Connect(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", describeError(err))
	}

	return db, nil
}

// EnsureSchema creates the salaries table and its year index if absent
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create salaries table: %w", describeError(err))
	}
	if _, err := db.ExecContext(ctx, createYearIndexSQL); err != nil {
		return fmt.Errorf("failed to create year index: %w", describeError(err))
	}
	return nil
}

// Export bulk-copies every row of the store into Postgres inside a single
// transaction. Returns the number of rows copied.
//
// The target table is truncated first so the export always mirrors the store
// exactly; re-running it does not hit the primary key constraint.
func Export(ctx context.Context, db *sql.DB, s *store.Store, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := EnsureSchema(ctx, db); err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE "Salaries"`); err != nil {
		return 0, fmt.Errorf("failed to truncate salaries table: %w", describeError(err))
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("Salaries", salaries.Columns()...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare COPY: %w", describeError(err))
	}

	count := 0
	for _, rec := range s.Rows() {
		if _, err := stmt.ExecContext(ctx, CopyArgs(rec)...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("COPY failed at row id=%d: %w", rec.ID, describeError(err))
		}
		count++
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush COPY: %w", describeError(err))
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close COPY statement: %w", describeError(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", describeError(err))
	}

	logger.Info("postgres export finished",
		slog.Int("rows", count),
		slog.String("table", salaries.TableName),
	)

	return count, nil
}

// CopyArgs flattens a record into COPY arguments in schema column order
func CopyArgs(rec salaries.Record) []interface{} {
	return []interface{}{
		rec.ID,
		rec.EmployeeName,
		rec.JobTitle,
		rec.BasePay,
		rec.OvertimePay,
		rec.OtherPay,
		rec.Benefits,
		rec.TotalPay,
		rec.TotalPayBenefits,
		rec.Year,
		rec.Notes,
		rec.Agency,
		rec.Status,
	}
}

// describeError surfaces the Postgres error detail when available
func describeError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		return fmt.Errorf("%s (code %s): %s", pqErr.Severity, pqErr.Code, pqErr.Message)
	}
	return err
}
