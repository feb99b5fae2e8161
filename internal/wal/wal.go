package wal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// WAL is the append-only write-ahead log for salary-row inserts
type WAL struct {
	file      *os.File   // WAL file handle
	mu        sync.Mutex // Protects concurrent access
	walPath   string     // Path to WAL file
	tableName string     // Table this WAL belongs to

	// LSN tracking
	nextLSN        uint64 // Next LSN to assign
	flushedLSN     uint64 // Last LSN guaranteed to be fsynced to disk
	lastCheckpoint uint64 // LSN of last checkpoint

	// File position tracking
	currentOffset uint64 // Current write position in file
}

// NewWAL creates or opens a WAL at the specified path.
// Opening an existing file scans it to the last valid record so that LSN
// allocation resumes where the previous process stopped; a torn tail record
// is truncated away.
func NewWAL(walPath string, tableName string) (*WAL, error) {
	fileExists := false
	if _, err := os.Stat(walPath); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(walPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	w := &WAL{
		file:      file,
		walPath:   walPath,
		tableName: tableName,
		nextLSN:   1,
	}

	if fileExists {
		if err := w.resume(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to resume WAL: %w", err)
		}
	} else {
		if err := w.writeFileHeader(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write WAL header: %w", err)
		}
	}

	return w, nil
}

// resume scans an existing WAL to restore nextLSN, lastCheckpoint and the
// write offset. Scanning stops at the first invalid record; anything after
// it is a torn write from a crash and gets truncated.
func (w *WAL) resume() error {
	reader, err := NewReader(w.walPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	if _, err := reader.ReadFileHeader(); err != nil {
		return err
	}

	endOffset := uint64(FileHeaderSize)
	for {
		record, err := reader.ReadNextRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Torn tail - keep everything before it
			break
		}

		header := record.GetHeader()
		if header.LSN >= w.nextLSN {
			w.nextLSN = header.LSN + 1
		}
		if header.Type == RecordCheckpoint {
			w.lastCheckpoint = header.LSN
		}
		endOffset = header.FileOffset + uint64(header.Length)
	}

	if err := w.file.Truncate(int64(endOffset)); err != nil {
		return fmt.Errorf("failed to truncate torn WAL tail: %w", err)
	}
	if _, err := w.file.Seek(int64(endOffset), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to WAL end: %w", err)
	}

	w.currentOffset = endOffset
	if w.nextLSN > 1 {
		w.flushedLSN = w.nextLSN - 1
	}
	return nil
}

// writeFileHeader writes the WAL file header
func (w *WAL) writeFileHeader() error {
	header := WALFileHeader{
		Magic:      WALMagic,
		Version:    WALVersion,
		InitialLSN: w.nextLSN,
		CreatedAt:  time.Now().Unix(),
	}

	// Copy table name (truncate if too long)
	copy(header.TableName[:], w.tableName)

	buf := make([]byte, FileHeaderSize)

	// Magic (8 bytes)
	copy(buf[0:8], header.Magic[:])

	// Version (2 bytes)
	ByteOrder.PutUint16(buf[8:10], header.Version)

	// TableName (32 bytes)
	copy(buf[10:42], header.TableName[:])

	// InitialLSN (8 bytes)
	ByteOrder.PutUint64(buf[42:50], header.InitialLSN)

	// CreatedAt (8 bytes)
	ByteOrder.PutUint64(buf[50:58], uint64(header.CreatedAt))

	// Reserved padding (6 bytes) - already zeroed

	n, err := w.file.Write(buf)
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if n != FileHeaderSize {
		return fmt.Errorf("incomplete header write: wrote %d of %d bytes", n, FileHeaderSize)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync header: %w", err)
	}

	w.currentOffset = FileHeaderSize
	return nil
}

// Close syncs and closes the WAL file
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	if err := w.file.Sync(); err != nil {
		return err
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// Sync forces an fsync on the WAL file and updates flushedLSN
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	if err := w.file.Sync(); err != nil {
		return err
	}

	if w.nextLSN > 1 {
		w.flushedLSN = w.nextLSN - 1
	}

	return nil
}

// Path returns the WAL file path
func (w *WAL) Path() string {
	return w.walPath
}

// TableName returns the table name this WAL belongs to
func (w *WAL) TableName() string {
	return w.tableName
}

// NextLSN returns the next LSN that will be assigned (thread-safe)
func (w *WAL) NextLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextLSN
}

// FlushedLSN returns the last LSN guaranteed to be fsynced (thread-safe)
func (w *WAL) FlushedLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushedLSN
}

// LastCheckpointLSN returns the LSN of the last checkpoint (thread-safe)
func (w *WAL) LastCheckpointLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastCheckpoint
}

// CurrentOffset returns the current write position in the WAL file (thread-safe)
func (w *WAL) CurrentOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentOffset
}

// allocateLSN allocates and returns the next LSN
// Must be called with mutex held
func (w *WAL) allocateLSN() uint64 {
	lsn := w.nextLSN
	w.nextLSN++
	return lsn
}
