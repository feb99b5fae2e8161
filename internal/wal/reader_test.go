package wal

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"gotest.tools/v3/assert"
)

func TestReadFileHeader(t *testing.T) {
	w, walPath := createTestWAL(t)
	assert.NilError(t, w.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	header, err := r.ReadFileHeader()
	assert.NilError(t, err)
	assert.Equal(t, WALMagic, header.Magic)
	assert.Equal(t, WALVersion, header.Version)
	assert.Equal(t, uint64(1), header.InitialLSN)
}

func TestReadFileHeaderRejectsBadMagic(t *testing.T) {
	w, walPath := createTestWAL(t)
	assert.NilError(t, w.Close())

	// Clobber the magic bytes
	f, err := os.OpenFile(walPath, os.O_WRONLY, 0644)
	assert.NilError(t, err)
	_, err = f.WriteAt([]byte("NOTAWAL!"), 0)
	assert.NilError(t, err)
	assert.NilError(t, f.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	_, err = r.ReadFileHeader()
	assert.ErrorContains(t, err, "invalid WAL magic")
}

func TestReadBackInsertRecord(t *testing.T) {
	w, walPath := createTestWAL(t)

	value := testValue(t, map[string]interface{}{"id": 42, "year": 2013})
	_, err := w.AppendInsert(42, value)
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	_, err = r.ReadFileHeader()
	assert.NilError(t, err)

	record, err := r.ReadNextRecord()
	assert.NilError(t, err)

	insert, ok := record.(*InsertRecord)
	assert.Assert(t, ok, "expected *InsertRecord, got %T", record)
	assert.Equal(t, int64(42), insert.RowID)
	assert.Equal(t, string(value), string(insert.Value))
	assert.Equal(t, RecordInsert, insert.Header.Type)

	_, err = r.ReadNextRecord()
	assert.Equal(t, io.EOF, err)
}

func TestReadBackCheckpointRecord(t *testing.T) {
	w, walPath := createTestWAL(t)

	_, err := w.WriteCheckpoint(123, 0x11111111, 0x22222222)
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	_, err = r.ReadFileHeader()
	assert.NilError(t, err)

	record, err := r.ReadNextRecord()
	assert.NilError(t, err)

	cp, ok := record.(*CheckpointRecord)
	assert.Assert(t, ok, "expected *CheckpointRecord, got %T", record)
	assert.Equal(t, uint64(123), cp.RowCount)
	assert.Equal(t, uint32(0x11111111), cp.DataCRC32)
	assert.Equal(t, uint32(0x22222222), cp.MetaCRC32)
	assert.Assert(t, cp.Timestamp > 0)
}

func TestCorruptedPayloadFailsCRC(t *testing.T) {
	w, walPath := createTestWAL(t)

	_, err := w.AppendInsert(1, json.RawMessage(`{"id":1,"year":2013}`))
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	// Flip a byte inside the payload (past the record header)
	f, err := os.OpenFile(walPath, os.O_RDWR, 0644)
	assert.NilError(t, err)
	_, err = f.WriteAt([]byte{0xFF}, FileHeaderSize+RecordHeaderSize+14)
	assert.NilError(t, err)
	assert.NilError(t, f.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	_, err = r.ReadFileHeader()
	assert.NilError(t, err)

	_, err = r.ReadNextRecord()
	assert.ErrorContains(t, err, "CRC mismatch")
}

func TestFindLastCheckpoint(t *testing.T) {
	w, walPath := createTestWAL(t)

	_, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)
	_, err = w.WriteCheckpoint(1, 1, 1)
	assert.NilError(t, err)
	_, err = w.AppendInsert(2, testValue(t, map[string]interface{}{"id": 2}))
	assert.NilError(t, err)
	lastLSN, err := w.WriteCheckpoint(2, 2, 2)
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	cp, err := r.FindLastCheckpoint()
	assert.NilError(t, err)
	assert.Assert(t, cp != nil)
	assert.Equal(t, lastLSN, cp.Header.LSN)
	assert.Equal(t, uint64(2), cp.RowCount)
}

func TestFindLastCheckpointNoneExists(t *testing.T) {
	w, walPath := createTestWAL(t)
	_, err := w.AppendInsert(1, testValue(t, map[string]interface{}{"id": 1}))
	assert.NilError(t, err)
	assert.NilError(t, w.Close())

	r, err := NewReader(walPath)
	assert.NilError(t, err)
	defer r.Close()

	cp, err := r.FindLastCheckpoint()
	assert.NilError(t, err)
	assert.Assert(t, cp == nil)
}
