package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
)

func testRecord(id int64, year int) salaries.Record {
	return salaries.Record{
		ID:           id,
		EmployeeName: fmt.Sprintf("employee-%d", id),
		JobTitle:     "Analyst",
		BasePay:      61000.50,
		Benefits:     12000,
		Year:         year,
		Agency:       "City",
		Status:       "FT",
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := store.New(nil)
	for i := int64(1); i <= 3; i++ {
		assert.NilError(t, s.Insert(testRecord(i, 2013)))
	}

	dataCRC, metaCRC, err := SaveSnapshot(s, dir, nil)
	assert.NilError(t, err)
	assert.Assert(t, dataCRC != 0)
	assert.Assert(t, metaCRC != 0)

	rows, meta, err := LoadSnapshot(dir, nil)
	assert.NilError(t, err)
	assert.Assert(t, meta != nil)
	assert.Equal(t, salaries.TableName, meta.Name)
	assert.Equal(t, int64(3), meta.RowCount)
	assert.DeepEqual(t, salaries.Columns(), meta.Columns)
	assert.DeepEqual(t, s.Rows(), rows)
}

func TestLoadSnapshotMissingDirectory(t *testing.T) {
	rows, meta, err := LoadSnapshot(t.TempDir(), nil)
	assert.NilError(t, err)
	assert.Assert(t, rows == nil)
	assert.Assert(t, meta == nil)
}

func TestOpenEmptyDirectory(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	assert.NilError(t, err)
	defer s.WAL().Close()

	assert.Equal(t, 0, s.Count())
	assert.Assert(t, s.WAL() != nil)
}

func TestOpenReplaysWALTail(t *testing.T) {
	dir := t.TempDir()

	// First run: insert rows, never checkpoint
	s, err := Open(dir, nil)
	assert.NilError(t, err)
	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.NilError(t, s.Insert(testRecord(2, 2014)))
	assert.NilError(t, s.WAL().Close())

	// Second run: everything comes back from the WAL alone
	reopened, err := Open(dir, nil)
	assert.NilError(t, err)
	defer reopened.WAL().Close()

	assert.Equal(t, 2, reopened.Count())
	got, err := reopened.Get(1)
	assert.NilError(t, err)
	assert.DeepEqual(t, testRecord(1, 2013), got)
}

func TestCheckpointThenReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	assert.NilError(t, err)
	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.NilError(t, s.Insert(testRecord(2, 2014)))

	assert.NilError(t, Checkpoint(s, dir, nil))
	assert.Assert(t, !s.Dirty())

	// More inserts after the checkpoint land only in the WAL
	assert.NilError(t, s.Insert(testRecord(3, 2015)))
	assert.NilError(t, s.WAL().Close())

	reopened, err := Open(dir, nil)
	assert.NilError(t, err)
	defer reopened.WAL().Close()

	assert.Equal(t, 3, reopened.Count())
	for id := int64(1); id <= 3; id++ {
		_, err := reopened.Get(id)
		assert.NilError(t, err)
	}
}

func TestCheckpointSkippedWhenClean(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	assert.NilError(t, err)
	defer s.WAL().Close()

	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.NilError(t, Checkpoint(s, dir, nil))

	info1, err := os.Stat(filepath.Join(dir, DataFileName))
	assert.NilError(t, err)

	// No changes since the checkpoint - the snapshot must not be rewritten
	assert.NilError(t, Checkpoint(s, dir, nil))
	info2, err := os.Stat(filepath.Join(dir, DataFileName))
	assert.NilError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestTamperedSnapshotRebuildsFromWAL(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	assert.NilError(t, err)
	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.NilError(t, s.Insert(testRecord(2, 2014)))
	assert.NilError(t, Checkpoint(s, dir, nil))
	assert.NilError(t, s.WAL().Close())

	// Tamper with the snapshot data behind the store's back
	dataPath := filepath.Join(dir, DataFileName)
	assert.NilError(t, os.WriteFile(dataPath, []byte("[]"), 0644))

	reopened, err := Open(dir, nil)
	assert.NilError(t, err)
	defer reopened.WAL().Close()

	// Checksum mismatch forces a full WAL replay; nothing is lost
	assert.Equal(t, 2, reopened.Count())
	got, err := reopened.Get(2)
	assert.NilError(t, err)
	assert.Equal(t, 2014, got.Year)
}
