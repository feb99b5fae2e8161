package wal

import (
	"fmt"
	"io"
	"os"
)

// ===========================================================================
// WAL RECOVERY SYSTEM
// ===========================================================================
//
// Recovery is responsible for:
// 1. Finding the last valid checkpoint
// 2. Verifying the snapshot files against the checkpoint checksums
// 3. Replaying inserts logged after the checkpoint
// 4. Rebuilding the full row set from the WAL if the snapshot is missing
//    or was modified externally
//
// Recovery Strategy: REDO-only. The table is insert-only, so replay is a
// forward scan; a torn tail record ends the scan without failing recovery.
//
// ===========================================================================

// RecoveryResult contains the outcome of WAL recovery
type RecoveryResult struct {
	LastCheckpoint *CheckpointRecord // Last valid checkpoint found (nil if none)
	SnapshotValid  bool              // Whether the snapshot passed checksum verification

	RecordsScanned int             // Total records scanned
	Inserts        []*InsertRecord // Insert operations to replay, in log order

	NextLSN uint64 // Next LSN to use after recovery
}

// SnapshotVerifier checks whether the on-disk snapshot matches the checksums
// recorded in a checkpoint. Supplied by the storage layer so the WAL stays
// ignorant of snapshot file layout.
type SnapshotVerifier func(cp *CheckpointRecord) bool

// RecoveryManager handles WAL recovery operations
type RecoveryManager struct {
	walPath string
	reader  *Reader
}

// NewRecoveryManager creates a new recovery manager.
// Returns os.ErrNotExist (wrapped) when no WAL file is present; callers treat
// that as an empty log.
func NewRecoveryManager(walPath string) (*RecoveryManager, error) {
	if _, err := os.Stat(walPath); err != nil {
		return nil, fmt.Errorf("WAL file not found: %w", err)
	}

	reader, err := NewReader(walPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAL reader: %w", err)
	}

	return &RecoveryManager{
		walPath: walPath,
		reader:  reader,
	}, nil
}

// Close closes the recovery manager
func (rm *RecoveryManager) Close() error {
	if rm.reader != nil {
		return rm.reader.Close()
	}
	return nil
}

// Recover performs full WAL recovery.
// Returns the insert operations that need to be replayed to restore state.
func (rm *RecoveryManager) Recover(verify SnapshotVerifier) (*RecoveryResult, error) {
	lastCheckpoint, err := rm.reader.FindLastCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("failed to find last checkpoint: %w", err)
	}

	if lastCheckpoint != nil && verify != nil && verify(lastCheckpoint) {
		return rm.recoverFromCheckpoint(lastCheckpoint)
	}

	// No checkpoint, or the snapshot failed verification
	return rm.recoverFromScratch()
}

// recoverFromCheckpoint replays only the inserts logged after the checkpoint
func (rm *RecoveryManager) recoverFromCheckpoint(checkpoint *CheckpointRecord) (*RecoveryResult, error) {
	result := &RecoveryResult{
		LastCheckpoint: checkpoint,
		SnapshotValid:  true,
		Inserts:        []*InsertRecord{},
		NextLSN:        checkpoint.Header.LSN + 1,
	}

	// Seek past the checkpoint record itself
	seekOffset := checkpoint.Header.FileOffset + uint64(checkpoint.Header.Length)
	if err := rm.reader.SeekToOffset(seekOffset); err != nil {
		return nil, fmt.Errorf("failed to seek past checkpoint: %w", err)
	}

	if err := rm.scan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// recoverFromScratch replays every insert from the beginning of the WAL.
// Used when no checkpoint exists or the snapshot files failed verification.
func (rm *RecoveryManager) recoverFromScratch() (*RecoveryResult, error) {
	result := &RecoveryResult{
		SnapshotValid: false,
		Inserts:       []*InsertRecord{},
		NextLSN:       1,
	}

	if _, err := rm.reader.ReadFileHeader(); err != nil {
		return nil, fmt.Errorf("failed to read WAL file header: %w", err)
	}

	if err := rm.scan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// scan reads records from the reader's current position until EOF or a torn
// tail, collecting inserts and tracking the highest LSN
func (rm *RecoveryManager) scan(result *RecoveryResult) error {
	for {
		record, err := rm.reader.ReadNextRecord()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Torn or corrupted tail record - everything before it is
			// already collected
			return nil
		}

		result.RecordsScanned++

		header := record.GetHeader()
		if header.LSN >= result.NextLSN {
			result.NextLSN = header.LSN + 1
		}

		if insert, ok := record.(*InsertRecord); ok {
			result.Inserts = append(result.Inserts, insert)
		}
	}
}
