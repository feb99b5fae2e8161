package storage

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/wal"
)

// LoadSnapshot reads meta.json and data.json from the data directory.
// Returns the rows in snapshot order. A missing snapshot is not an error;
// it returns nil rows and nil meta.
func LoadSnapshot(dir string, logger *slog.Logger) ([]salaries.Record, *TableMeta, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metaPath := filepath.Join(dir, MetaFileName)
	dataPath := filepath.Join(dir, DataFileName)

	metaBytes, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table meta: %w", err)
	}

	var meta TableMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to parse table meta: %w", err)
	}

	if meta.Version != MetaVersion {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", meta.Version)
	}

	rows := []salaries.Record{}
	if _, err := os.Stat(dataPath); err == nil {
		dataBytes, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read table data: %w", err)
		}

		if err := json.Unmarshal(dataBytes, &rows); err != nil {
			return nil, nil, fmt.Errorf("failed to parse table data: %w", err)
		}
	}

	logger.Info("snapshot loaded",
		slog.String("table", meta.Name),
		slog.Int("rows", len(rows)),
	)

	return rows, &meta, nil
}

// SnapshotVerifier returns a wal.SnapshotVerifier that compares the snapshot
// files in dir against the checksums recorded in a checkpoint. Detects
// external modification of the JSON files between runs.
func SnapshotVerifier(dir string) wal.SnapshotVerifier {
	return func(cp *wal.CheckpointRecord) bool {
		dataCRC, err := fileCRC32(filepath.Join(dir, DataFileName))
		if err != nil {
			return false
		}
		metaCRC, err := fileCRC32(filepath.Join(dir, MetaFileName))
		if err != nil {
			return false
		}
		return dataCRC == cp.DataCRC32 && metaCRC == cp.MetaCRC32
	}
}

// fileCRC32 computes the CRC32 checksum of a file's contents
func fileCRC32(path string) (uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return crc32.ChecksumIEEE(data), nil
}
