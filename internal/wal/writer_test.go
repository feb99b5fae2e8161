package wal

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

// createTestWAL creates a WAL in a temp directory
func createTestWAL(t *testing.T) (*WAL, string) {
	t.Helper()
	tempDir := t.TempDir()
	walPath := filepath.Join(tempDir, "test.wal")
	w, err := NewWAL(walPath, "Salaries")
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	return w, walPath
}

// testValue builds a json.RawMessage from a map
func testValue(t *testing.T, data map[string]interface{}) json.RawMessage {
	t.Helper()
	bytes, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to create test JSON: %v", err)
	}
	return json.RawMessage(bytes)
}

func TestAppendInsertAssignsSequentialLSNs(t *testing.T) {
	w, _ := createTestWAL(t)
	defer w.Close()

	lsn1, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)
	assert.Equal(t, uint64(1), lsn1)

	lsn2, err := w.AppendInsert(2, testValue(t, map[string]interface{}{"id": 2}))
	assert.NilError(t, err)
	assert.Equal(t, uint64(2), lsn2)

	assert.Equal(t, uint64(3), w.NextLSN())
}

func TestRecordsAreAligned(t *testing.T) {
	w, _ := createTestWAL(t)
	defer w.Close()

	// Odd-length payload forces padding
	_, err := w.AppendInsert(7, json.RawMessage(`{"id":7}`))
	assert.NilError(t, err)

	assert.Equal(t, 0, int(w.CurrentOffset()%RecordAlignment))
}

func TestWriteCheckpointUpdatesState(t *testing.T) {
	w, _ := createTestWAL(t)
	defer w.Close()

	_, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)

	lsn, err := w.WriteCheckpoint(1, 0xDEADBEEF, 0xCAFEBABE)
	assert.NilError(t, err)
	assert.Equal(t, uint64(2), lsn)

	// Checkpoint fsyncs, so the flushed LSN catches up
	assert.Equal(t, lsn, w.FlushedLSN())
	assert.Equal(t, lsn, w.LastCheckpointLSN())
}

func TestSyncAdvancesFlushedLSN(t *testing.T) {
	w, _ := createTestWAL(t)
	defer w.Close()

	_, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)
	assert.Equal(t, uint64(0), w.FlushedLSN())

	assert.NilError(t, w.Sync())
	assert.Equal(t, uint64(1), w.FlushedLSN())
}

func TestReopenResumesLSNAndOffset(t *testing.T) {
	w, walPath := createTestWAL(t)

	_, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)
	_, err = w.AppendInsert(2, testValue(t, map[string]interface{}{"id": 2}))
	assert.NilError(t, err)

	offsetBefore := w.CurrentOffset()
	assert.NilError(t, w.Close())

	reopened, err := NewWAL(walPath, "Salaries")
	assert.NilError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(3), reopened.NextLSN())
	assert.Equal(t, offsetBefore, reopened.CurrentOffset())

	// Appending after reopen continues the sequence
	lsn, err := reopened.AppendInsert(3, testValue(t, map[string]interface{}{"id": 3}))
	assert.NilError(t, err)
	assert.Equal(t, uint64(3), lsn)
}
