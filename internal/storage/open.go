package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
	"github.com/citydata/salarydb/internal/wal"
)

// Open builds a ready-to-use store from the data directory.
//
// Startup sequence:
//  1. Run WAL recovery (if a WAL exists) to learn whether the snapshot is
//     trustworthy and which inserts must be replayed.
//  2. Load snapshot rows when the snapshot passed checksum verification;
//     when it failed or no checkpoint exists, the WAL replay rebuilds
//     everything from scratch.
//  3. Replay the insert tail idempotently.
//  4. Open the WAL for appending and attach it to the store.
func Open(dir string, logger *slog.Logger) (*store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := store.New(logger)
	walPath := filepath.Join(dir, WALFileName)

	var recovery *wal.RecoveryResult
	if _, err := os.Stat(walPath); err == nil {
		rm, err := wal.NewRecoveryManager(walPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open WAL for recovery: %w", err)
		}
		recovery, err = rm.Recover(SnapshotVerifier(dir))
		rm.Close()
		if err != nil {
			return nil, fmt.Errorf("WAL recovery failed: %w", err)
		}
	}

	snapshotLoaded := false
	if recovery == nil || recovery.SnapshotValid {
		rows, meta, err := LoadSnapshot(dir, logger)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			for _, rec := range rows {
				if err := s.Replay(rec); err != nil {
					return nil, fmt.Errorf("failed to load snapshot row %d: %w", rec.ID, err)
				}
			}
			snapshotLoaded = true
		}
	} else if _, statErr := os.Stat(filepath.Join(dir, DataFileName)); statErr == nil {
		logger.Warn("snapshot failed checksum verification, rebuilding from WAL",
			slog.String("dir", dir))
	}

	replayed := 0
	if recovery != nil {
		for _, insert := range recovery.Inserts {
			var rec salaries.Record
			if err := json.Unmarshal(insert.Value, &rec); err != nil {
				return nil, fmt.Errorf("failed to decode WAL insert (LSN %d): %w",
					insert.Header.LSN, err)
			}
			if err := s.Replay(rec); err != nil {
				return nil, fmt.Errorf("failed to replay WAL insert (LSN %d): %w",
					insert.Header.LSN, err)
			}
			replayed++
		}
	}

	w, err := wal.NewWAL(walPath, salaries.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL: %w", err)
	}
	s.AttachWAL(w)

	// The store matches the snapshot exactly only when nothing was replayed
	if snapshotLoaded && replayed == 0 {
		s.ClearDirty()
	}

	s.Notify(store.Event{Type: store.EventRecoveryDone, Data: map[string]interface{}{
		"row_count":       s.Count(),
		"replayed":        replayed,
		"snapshot_loaded": snapshotLoaded,
	}})

	logger.Info("store opened",
		slog.String("dir", dir),
		slog.Int("row_count", s.Count()),
		slog.Int("wal_replayed", replayed),
	)

	return s, nil
}
