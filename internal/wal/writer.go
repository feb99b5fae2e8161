package wal

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"
)

// ===========================================================================
// WAL WRITER OPERATIONS
// ===========================================================================
//
// All write operations follow this pattern:
// 1. Acquire mutex
// 2. Allocate LSN
// 3. Encode payload
// 4. Calculate CRC32
// 5. Build header with length and offset
// 6. Write header + payload + padding
// 7. Update currentOffset
// 8. Release mutex
//
// Sync (fsync) is NOT called on every insert for performance.
// Call Sync() explicitly for a durability guarantee; WriteCheckpoint always
// syncs.
//
// ===========================================================================

// AppendInsert writes an Insert record to the WAL
// Returns the LSN assigned to this record
func (w *WAL) AppendInsert(rowID int64, value json.RawMessage) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	payload := encodeInsertPayload(rowID, value)

	lsn, err := w.writeRecord(RecordInsert, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to write Insert record: %w", err)
	}

	return lsn, nil
}

// WriteCheckpoint writes a Checkpoint record to the WAL and fsyncs.
// Call this after the snapshot files have been persisted successfully.
// Returns the LSN assigned to this record
func (w *WAL) WriteCheckpoint(rowCount uint64, dataCRC32, metaCRC32 uint32) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	payload := w.encodeCheckpointPayload(rowCount, dataCRC32, metaCRC32)

	lsn, err := w.writeRecord(RecordCheckpoint, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to write Checkpoint record: %w", err)
	}

	// Fsync to ensure the checkpoint is durable
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to fsync after checkpoint: %w", err)
	}

	w.flushedLSN = lsn
	w.lastCheckpoint = lsn

	return lsn, nil
}

// writeRecord writes a complete WAL record (header + payload + padding)
// Must be called with mutex held
func (w *WAL) writeRecord(recordType RecordType, payload []byte) (uint64, error) {
	lsn := w.allocateLSN()

	crc := crc32.ChecksumIEEE(payload)

	// Calculate total length with alignment
	payloadLen := len(payload)
	totalLen := RecordHeaderSize + payloadLen
	alignedLen := AlignTo8(totalLen)
	paddingLen := alignedLen - totalLen

	header := WALRecordHeader{
		Type:       recordType,
		Length:     uint32(alignedLen),
		LSN:        lsn,
		CRC32:      crc,
		FileOffset: w.currentOffset,
	}

	headerBytes := encodeHeader(header)

	if _, err := w.file.Write(headerBytes); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := w.file.Write(payload); err != nil {
		return 0, fmt.Errorf("failed to write payload: %w", err)
	}

	if paddingLen > 0 {
		padding := make([]byte, paddingLen)
		if _, err := w.file.Write(padding); err != nil {
			return 0, fmt.Errorf("failed to write padding: %w", err)
		}
	}

	w.currentOffset += uint64(alignedLen)

	return lsn, nil
}

// encodeHeader encodes a WALRecordHeader to bytes (32 bytes)
func encodeHeader(h WALRecordHeader) []byte {
	buf := make([]byte, RecordHeaderSize)

	// Type (1 byte)
	buf[0] = byte(h.Type)

	// Padding (1 byte) - already zero

	// Length (4 bytes) at offset 2
	ByteOrder.PutUint32(buf[2:6], h.Length)

	// LSN (8 bytes) at offset 6
	ByteOrder.PutUint64(buf[6:14], h.LSN)

	// CRC32 (4 bytes) at offset 14
	ByteOrder.PutUint32(buf[14:18], h.CRC32)

	// FileOffset (8 bytes) at offset 18
	ByteOrder.PutUint64(buf[18:26], h.FileOffset)

	// Remaining 6 bytes are padding (already zero)

	return buf
}

// encodeInsertPayload encodes the payload for an Insert record
// Format: RowID(8) + ValueLen(4) + Value
func encodeInsertPayload(rowID int64, value json.RawMessage) []byte {
	size := 8 + 4 + len(value)
	buf := make([]byte, size)
	offset := 0

	// RowID (8 bytes)
	ByteOrder.PutUint64(buf[offset:], uint64(rowID))
	offset += 8

	// Value with length prefix (4 bytes)
	ByteOrder.PutUint32(buf[offset:], uint32(len(value)))
	offset += 4
	copy(buf[offset:], value)

	return buf
}

// encodeCheckpointPayload encodes the payload for a Checkpoint record
// Format: CheckpointLSN(8) + CheckpointOffset(8) + Timestamp(8) + RowCount(8) +
// DataCRC32(4) + MetaCRC32(4)
func (w *WAL) encodeCheckpointPayload(rowCount uint64, dataCRC32, metaCRC32 uint32) []byte {
	buf := make([]byte, 8+8+8+8+4+4)
	offset := 0

	// CheckpointLSN (8 bytes) - the LSN this checkpoint record will get
	ByteOrder.PutUint64(buf[offset:], w.nextLSN)
	offset += 8

	// CheckpointOffset (8 bytes) - current file offset
	ByteOrder.PutUint64(buf[offset:], w.currentOffset)
	offset += 8

	// Timestamp (8 bytes)
	ByteOrder.PutUint64(buf[offset:], uint64(time.Now().Unix()))
	offset += 8

	// RowCount (8 bytes)
	ByteOrder.PutUint64(buf[offset:], rowCount)
	offset += 8

	// DataCRC32 (4 bytes)
	ByteOrder.PutUint32(buf[offset:], dataCRC32)
	offset += 4

	// MetaCRC32 (4 bytes)
	ByteOrder.PutUint32(buf[offset:], metaCRC32)

	return buf
}
