package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store file permission constants.
const (
	storeDirPermissions  = 0750
	storeFilePermissions = 0644 // document is meant to be externally readable
)

// Store is the durable append-only collection of notification records.
//
// The full collection lives in memory; every successful append is
// persisted by rewriting the JSON document through a temp file and an
// atomic rename, so a crash mid-write leaves either the old or the new
// document, never a torn one. This replaces the original gateway's
// unsynchronised read-modify-write of the shared file, which lost
// records under concurrent ingestion.
//
// Thread Safety:
//   - Append is serialised (single writer at a time).
//   - ReadAll may be called concurrently and observes a consistent
//     snapshot: pre- or post-append state, never a partial record.
type Store struct {
	path   string
	logger Logger

	mu      sync.RWMutex
	records []Record
	closed  bool

	// listeners are invoked synchronously after each successful append,
	// outside the store lock. Used by the live distribution layer.
	listenerMu sync.RWMutex
	listeners  []func(Record)
}

// Open loads the notification store from the given JSON document path.
//
// A missing file starts an empty collection. A malformed file ALSO
// starts an empty collection: the service stays available and logs the
// problem instead of failing hard. This mirrors the original gateway's
// recovery behaviour and is a documented tradeoff, not a bug.
//
// Parameters:
//   - path: Filesystem path of the notifications JSON document
//
// Returns:
//   - *Store: Ready store (possibly empty)
//   - error: Only if the containing directory cannot be created
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &Store{
		path:   path,
		logger: noopLogger{},
	}
	s.records = s.loadRecords()
	return s, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// loadRecords reads the persisted document, treating any failure as an
// empty collection.
func (s *Store) loadRecords() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("notification store unreadable, starting empty", "path", s.path, "error", err)
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("notification store corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}
	return records
}

// Append atomically adds a record to the collection and persists it.
//
// If persisting fails the in-memory append is rolled back and
// ErrAppendFailed is returned, keeping memory and disk consistent.
// Listeners registered via Notify observe only successful appends.
//
// Parameters:
//   - ctx: Context for cancellation (checked before the write)
//   - rec: The record to append (not modified)
//
// Returns:
//   - error: nil on success, ErrStoreClosed, or ErrAppendFailed wrapping the cause
func (s *Store) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	next := append(s.records, rec)
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}
	s.records = next
	s.mu.Unlock()

	s.notifyListeners(rec)
	return nil
}

// persist writes the collection as a JSON document via temp file + rename.
// Callers must hold the write lock.
func (s *Store) persist(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding notifications: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, storeFilePermissions); err != nil {
		return fmt.Errorf("writing notifications: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("replacing notifications document: %w", err)
	}
	return nil
}

// ReadAll returns the full ordered collection as of the call.
//
// The returned slice is a consistent snapshot. Records are immutable and
// the slice is capped, so callers may retain it freely.
func (s *Store) ReadAll() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[:len(s.records):len(s.records)]
}

// Len returns the number of records in the collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Notify registers a listener invoked after every successful append.
// Listeners run synchronously on the appending goroutine and must not block.
func (s *Store) Notify(fn func(Record)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// notifyListeners invokes all registered listeners with the new record.
func (s *Store) notifyListeners(rec Record) {
	s.listenerMu.RLock()
	listeners := s.listeners
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(rec)
	}
}

// Close marks the store closed. Subsequent appends fail with
// ErrStoreClosed; reads continue to work during shutdown drain.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Path returns the filesystem path of the persisted document.
func (s *Store) Path() string {
	return s.path
}
