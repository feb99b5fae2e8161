package wal

import (
	"encoding/binary"
	"encoding/json"
)

// ===========================================================================
// WAL FILE FORMAT
// ===========================================================================
//
// WAL File Structure:
// ┌─────────────────────────────────────────────────────────────────────────┐
// │ WAL File Header (fixed 64 bytes, padded)                                │
// ├─────────────────────────────────────────────────────────────────────────┤
// │ Record 1: [Header (32 bytes)] [Payload (variable)] [Padding to 8-byte]  │
// ├─────────────────────────────────────────────────────────────────────────┤
// │ Record 2: [Header (32 bytes)] [Payload (variable)] [Padding to 8-byte]  │
// ├─────────────────────────────────────────────────────────────────────────┤
// │ ...                                                                     │
// └─────────────────────────────────────────────────────────────────────────┘
//
// All multi-byte integers are little-endian.
// All records are aligned to 8-byte boundaries.
//
// The salaries table is insert-only, so the log carries no transaction
// records: an Insert record is durable once synced, and a Checkpoint record
// marks a point where the on-disk snapshot already covers everything logged
// before it.
//
// ===========================================================================

// ByteOrder is the byte order used for encoding WAL data
var ByteOrder = binary.LittleEndian

// RecordAlignment is the byte alignment for all WAL records
const RecordAlignment = 8

// MaxRecordSize is the maximum allowed size for a single WAL record (4MB)
// This bounds allocations when a corrupted Length field is read back
const MaxRecordSize = 4 * 1024 * 1024

// MinRecordSize is the minimum valid record size (header only, no payload)
const MinRecordSize = RecordHeaderSize

// WALMagic identifies a valid WAL file (ASCII: "SALDBWAL")
var WALMagic = [8]byte{'S', 'A', 'L', 'D', 'B', 'W', 'A', 'L'}

// WALVersion is the current WAL format version
const WALVersion uint16 = 1

// WALFileHeader is written at the beginning of every WAL file
// Fixed size: 64 bytes (padded for alignment)
type WALFileHeader struct {
	Magic      [8]byte  // Magic bytes to identify WAL file
	Version    uint16   // WAL format version
	TableName  [32]byte // Table name (null-padded)
	InitialLSN uint64   // First LSN in this WAL file
	CreatedAt  int64    // Unix timestamp when WAL was created
	_          [6]byte  // Reserved padding to reach 64 bytes
}

// FileHeaderSize is the fixed size of the WAL file header
const FileHeaderSize = 64

// RecordType represents the type of WAL record
type RecordType uint8

const (
	RecordInsert RecordType = iota + 1
	RecordCheckpoint
)

// String returns a human-readable name for the record type
func (rt RecordType) String() string {
	switch rt {
	case RecordInsert:
		return "Insert"
	case RecordCheckpoint:
		return "Checkpoint"
	default:
		return "Unknown"
	}
}

// WALRecordHeader is the common header for all WAL records
// Fixed size: 32 bytes (aligned to 8-byte boundary)
//
// Binary layout:
// ┌─────────┬─────────┬──────────┬─────────┬──────────┬────────────┬─────────┐
// │ Type(1) │ Pad(1)  │ Length(4)│ LSN(8)  │ CRC32(4) │ FileOff(8) │ Pad(6)  │
// └─────────┴─────────┴──────────┴─────────┴──────────┴────────────┴─────────┘
// Offsets: 0        1         2          6         14         18          26
type WALRecordHeader struct {
	Type       RecordType // Type of record - offset 0
	_          uint8      // Padding for alignment - offset 1
	Length     uint32     // Total record length including header and padding - offset 2
	LSN        uint64     // Log Sequence Number, monotonically increasing - offset 6
	CRC32      uint32     // CRC32 checksum of payload (before padding) - offset 14
	FileOffset uint64     // Byte offset in WAL file where this record starts - offset 18
	_          [6]byte    // Padding to reach 32 bytes - offset 26
}

// RecordHeaderSize is the fixed size of the WAL record header in bytes
const RecordHeaderSize = 32

// AlignTo8 rounds up a size to the next 8-byte boundary
func AlignTo8(size int) int {
	return (size + 7) &^ 7
}

// InsertRecord logs one applied salary-row insert (REDO only)
// Payload: RowID (8) + ValueLen (4) + Value
type InsertRecord struct {
	Header WALRecordHeader
	RowID  int64           // Primary key of the inserted row
	Value  json.RawMessage // Full row as JSON (for REDO)
}

// CheckpointRecord marks a point where the store state was persisted to a
// snapshot. Checksums of the snapshot files are recorded so that recovery can
// detect external modification and fall back to a full replay.
//
// Payload binary layout:
// ┌──────────────────┬──────────────────┬──────────────┬─────────────┬────────────┬────────────┐
// │ CheckpointLSN(8) │ CheckpointOff(8) │ Timestamp(8) │ RowCount(8) │ DataCRC(4) │ MetaCRC(4) │
// └──────────────────┴──────────────────┴──────────────┴─────────────┴────────────┴────────────┘
type CheckpointRecord struct {
	Header           WALRecordHeader
	CheckpointLSN    uint64 // LSN at which the checkpoint was taken
	CheckpointOffset uint64 // Byte offset in WAL file of this checkpoint
	Timestamp        int64  // Unix timestamp of checkpoint
	RowCount         uint64 // Rows in the snapshot at checkpoint time
	DataCRC32        uint32 // Checksum of the snapshot's data.json
	MetaCRC32        uint32 // Checksum of the snapshot's meta.json
}

// WALRecord is the interface implemented by all WAL record types
type WALRecord interface {
	GetHeader() WALRecordHeader
}

func (r InsertRecord) GetHeader() WALRecordHeader     { return r.Header }
func (r CheckpointRecord) GetHeader() WALRecordHeader { return r.Header }
