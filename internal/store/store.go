package store

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/wal"
)

// Store holds the salaries table: all rows, the primary index on Id, and the
// secondary index on Year. Mutations maintain both indexes and, when a WAL is
// attached, log the insert before applying it.
//
// Concurrency: multi-reader / single-writer. Scans hold the read lock for the
// duration of iteration, so writers block until the consumer finishes.
type Store struct {
	mu      sync.RWMutex
	rows    []salaries.Record
	primary map[int64]int // Id → row position
	years   *yearIndex

	wal       *wal.WAL // nil when running without durability
	logger    *slog.Logger
	observers []Observer
	dirty     bool // unsaved changes since last snapshot
}

// New creates an empty salaries store
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		primary: make(map[int64]int),
		years:   newYearIndex(),
		logger:  logger,
	}
}

// AttachWAL makes the store log every insert to the given WAL before
// applying it
func (s *Store) AttachWAL(w *wal.WAL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wal = w
}

// WAL returns the attached WAL, or nil
func (s *Store) WAL() *wal.WAL {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wal
}

// AddObserver registers an observer to receive store lifecycle events
func (s *Store) AddObserver(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// RemoveObserver unregisters an observer
func (s *Store) RemoveObserver(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Insert adds a new row to the table.
// Fails with *salaries.ConstraintError when the Id is already present; the
// table is unchanged after a failed insert.
func (s *Store) Insert(rec salaries.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()

	// 1. Check the unique primary constraint using the current index
	if _, found := s.primary[rec.ID]; found {
		s.mu.Unlock()
		return salaries.NewUniqueViolation(salaries.TableName, "Id", rec.ID)
	}

	// 2. Log to WAL before the row becomes visible
	if s.wal != nil {
		value, err := json.Marshal(rec)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to encode row for WAL: %w", err)
		}
		if _, err := s.wal.AppendInsert(rec.ID, value); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("WAL append failed: %w", err)
		}
	}

	s.apply(rec)
	observers := s.observers
	s.mu.Unlock()

	// Observers run outside the lock so they may query the store
	notifyAll(observers, Event{Type: EventInsert, Data: map[string]interface{}{
		"id":   rec.ID,
		"year": rec.Year,
	}})

	return nil
}

// Replay re-applies an insert recovered from the WAL.
// A row whose Id is already present is skipped, not an error: the snapshot
// may already contain rows that are also in the log tail.
func (s *Store) Replay(rec salaries.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.primary[rec.ID]; found {
		return nil
	}

	s.apply(rec)
	return nil
}

// apply appends the row and updates both indexes.
// Must be called with the write lock held.
func (s *Store) apply(rec salaries.Record) {
	pos := len(s.rows)
	s.rows = append(s.rows, rec)
	s.primary[rec.ID] = pos
	s.years.add(rec.Year, pos)
	s.dirty = true
}

// Get retrieves a row by its Id.
// Fails with *salaries.NotFoundError when no row matches.
func (s *Store) Get(id int64) (salaries.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, found := s.primary[id]
	if !found {
		return salaries.Record{}, salaries.NewNotFound(salaries.TableName, "Id", id)
	}
	return s.rows[pos], nil
}

// ScanYear returns a lazy sequence of all rows with the given year.
// Order among rows sharing a year is insertion order, but callers must not
// rely on it. Iteration holds the store's read lock.
func (s *Store) ScanYear(year int) iter.Seq[salaries.Record] {
	return func(yield func(salaries.Record) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, pos := range s.years.positions(year) {
			if !yield(s.rows[pos]) {
				return
			}
		}
	}
}

// ScanYearRange returns a lazy sequence of all rows with from <= Year <= to,
// grouped by ascending year. Iteration holds the store's read lock.
func (s *Store) ScanYearRange(from, to int) iter.Seq[salaries.Record] {
	return func(yield func(salaries.Record) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, year := range s.years.rangeYears(from, to) {
			for _, pos := range s.years.positions(year) {
				if !yield(s.rows[pos]) {
					return
				}
			}
		}
	}
}

// All returns a lazy sequence over every row in insertion order.
// Iteration holds the store's read lock.
func (s *Store) All() iter.Seq[salaries.Record] {
	return func(yield func(salaries.Record) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, rec := range s.rows {
			if !yield(rec) {
				return
			}
		}
	}
}

// Rows returns a copy of every row in insertion order.
// Used by the snapshot writer and the Postgres exporter.
func (s *Store) Rows() []salaries.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]salaries.Record, len(s.rows))
	copy(rows, s.rows)
	return rows
}

// Count returns the number of rows in the table
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Years returns all distinct years present in the table, ascending
func (s *Store) Years() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.years.years()
}

// Dirty reports whether the store has changes not yet persisted to a snapshot
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty resets the dirty flag after a successful snapshot
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Notify sends an event to all registered observers
func (s *Store) Notify(event Event) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	notifyAll(observers, event)
}
