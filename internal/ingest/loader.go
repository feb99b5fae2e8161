package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
)

// Result summarizes one bulk load
type Result struct {
	BatchID    string // uuid identifying this load in logs
	Loaded     int    // rows inserted
	Skipped    int    // malformed rows dropped
	Duplicates int    // rows rejected by the unique Id constraint
}

// LoadCSV bulk-loads salary records from a CSV file into the store.
//
// Malformed rows and duplicate Ids are logged and counted, not fatal: the
// source data is known to contain both. The context is checked between rows
// so long loads can be cancelled.
func LoadCSV(ctx context.Context, path string, s *store.Store, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	result := &Result{BatchID: uuid.New().String()}

	logger.Info("bulk load started",
		slog.String("batch_id", result.BatchID),
		slog.String("path", path),
	)
	s.Notify(store.Event{Type: store.EventBulkLoadStart, Data: map[string]interface{}{
		"batch_id": result.BatchID,
		"path":     path,
	}})

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are handled per record

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("bulk load cancelled after %d rows: %w", result.Loaded, err)
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read CSV at line %d: %w", line+1, err)
		}
		line++

		if line == 1 && IsHeaderRow(row) {
			continue
		}

		rec, err := ParseRecord(row)
		if err != nil {
			result.Skipped++
			logger.Warn("skipping malformed row",
				slog.String("batch_id", result.BatchID),
				slog.Int("line", line),
				slog.Any("error", err),
			)
			continue
		}

		if err := s.Insert(rec); err != nil {
			var cerr *salaries.ConstraintError
			if errors.As(err, &cerr) && cerr.Constraint == "unique" {
				result.Duplicates++
				logger.Warn("skipping duplicate id",
					slog.String("batch_id", result.BatchID),
					slog.Int("line", line),
					slog.Int64("id", rec.ID),
				)
				continue
			}
			return result, fmt.Errorf("insert failed at line %d: %w", line, err)
		}
		result.Loaded++
	}

	logger.Info("bulk load finished",
		slog.String("batch_id", result.BatchID),
		slog.Int("loaded", result.Loaded),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", result.Duplicates),
	)
	s.Notify(store.Event{Type: store.EventBulkLoadEnd, Data: map[string]interface{}{
		"batch_id":   result.BatchID,
		"loaded":     result.Loaded,
		"skipped":    result.Skipped,
		"duplicates": result.Duplicates,
	}})

	return result, nil
}
