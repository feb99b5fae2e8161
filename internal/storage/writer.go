package storage

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
)

// SaveSnapshot persists meta.json and data.json atomically (temp file +
// rename) and returns the CRC32 checksums of both files, which the caller
// records in a WAL checkpoint.
func SaveSnapshot(s *store.Store, dir string, logger *slog.Logger) (dataCRC, metaCRC uint32, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows := s.Rows()

	meta := TableMeta{
		Name:     salaries.TableName,
		Version:  MetaVersion,
		RowCount: int64(len(rows)),
		Columns:  salaries.Columns(),
		SavedAt:  time.Now().Unix(),
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal table meta: %w", err)
	}

	dataBytes, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal rows: %w", err)
	}

	files := []struct {
		path string
		data []byte
		name string
	}{
		{filepath.Join(dir, MetaFileName), metaBytes, MetaFileName},
		{filepath.Join(dir, DataFileName), dataBytes, DataFileName},
	}

	for _, f := range files {
		tmpPath := f.path + ".tmp"

		if err := os.WriteFile(tmpPath, f.data, 0644); err != nil {
			return 0, 0, fmt.Errorf("failed to write temp file %s: %w", f.name, err)
		}

		if err := os.Rename(tmpPath, f.path); err != nil {
			return 0, 0, fmt.Errorf("failed to rename temp → %s: %w", f.name, err)
		}
	}

	logger.Info("snapshot saved",
		slog.String("table", salaries.TableName),
		slog.String("dir", dir),
		slog.Int("row_count", len(rows)),
	)

	return crc32.ChecksumIEEE(dataBytes), crc32.ChecksumIEEE(metaBytes), nil
}

// Checkpoint saves a snapshot and records it in the store's WAL.
// Skipped entirely when the store has no unsaved changes.
func Checkpoint(s *store.Store, dir string, logger *slog.Logger) error {
	if !s.Dirty() {
		return nil
	}

	dataCRC, metaCRC, err := SaveSnapshot(s, dir, logger)
	if err != nil {
		return err
	}

	if w := s.WAL(); w != nil {
		if _, err := w.WriteCheckpoint(uint64(s.Count()), dataCRC, metaCRC); err != nil {
			return fmt.Errorf("failed to write WAL checkpoint: %w", err)
		}
	}

	s.ClearDirty()
	s.Notify(store.Event{Type: store.EventSnapshotSaved, Data: map[string]interface{}{
		"row_count": s.Count(),
		"dir":       dir,
	}})

	return nil
}
