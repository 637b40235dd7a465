package syncer

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// RecordStore persists tracker records across restarts.
type RecordStore interface {
	LoadAll() ([]*FileRecord, error)
	Save(record *FileRecord) error
	Close() error
}

// Tracker remembers the last successful sync of every path: the file's mtime at
// that point and the plug it was attached to. Records are never removed.
//
// Reads and writes of the map are guarded by mu. Lock serialises the
// check-sync-commit sequence per path so that two workers never sync the same
// file at once, while different paths proceed in parallel.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*FileRecord
	store   RecordStore

	pathMu    sync.Mutex
	pathLocks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewTracker creates a tracker and loads any records held by store.
// A nil store keeps records in memory only.
func NewTracker(store RecordStore) (*Tracker, error) {
	t := &Tracker{
		records:   make(map[string]*FileRecord),
		store:     store,
		pathLocks: make(map[string]*pathLock),
	}

	if store == nil {
		return t, nil
	}

	records, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load tracker records: %w", err)
	}
	for _, r := range records {
		t.records[r.Path] = r
	}

	return t, nil
}

// Check reports whether the file at path must be synced, and which remote ref
// to reuse. A path is dirty when it has no record or its mtime moved past the
// recorded one.
func (t *Tracker) Check(path string, modTime time.Time) (dirty bool, remoteRef string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record := t.records[path]
	if record == nil {
		return true, ""
	}
	return record.dirty(modTime), record.RemoteRef
}

// Commit records a successful sync. The remote ref of a path, once set, cannot change.
func (t *Tracker) Commit(path string, modTime time.Time, contentRef, remoteRef string) error {
	if remoteRef == "" {
		return fmt.Errorf("commit %s: %w", path, ErrEmptyRemoteRef)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.records[path]
	if prev != nil && prev.RemoteRef != "" && prev.RemoteRef != remoteRef {
		return fmt.Errorf("commit %s: %w: have %q, got %q", path, ErrRemoteRefChanged, prev.RemoteRef, remoteRef)
	}

	record := &FileRecord{
		Path:         path,
		LastSyncedAt: modTime,
		RemoteRef:    remoteRef,
		ContentRef:   contentRef,
		SyncedAt:     time.Now(),
	}

	// the in-memory record is kept even if the journal write fails so the
	// remote ref is never lost for the life of the process
	t.records[path] = record

	if t.store != nil {
		if err := t.store.Save(record); err != nil {
			return fmt.Errorf("commit %s: %w: %w", path, ErrJournalWrite, err)
		}
	}
	return nil
}

// Lock takes the per-path lock and returns its release func.
func (t *Tracker) Lock(path string) (unlock func()) {
	t.pathMu.Lock()
	pl := t.pathLocks[path]
	if pl == nil {
		pl = &pathLock{}
		t.pathLocks[path] = pl
	}
	pl.refs++
	t.pathMu.Unlock()

	pl.mu.Lock()

	return func() {
		pl.mu.Unlock()

		t.pathMu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(t.pathLocks, path)
		}
		t.pathMu.Unlock()
	}
}

// Get returns a copy of the record for path.
func (t *Tracker) Get(path string) (FileRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[path]
	if !ok {
		return FileRecord{}, false
	}
	return *record, true
}

// Records returns a copy of every record sorted by path.
func (t *Tracker) Records() []FileRecord {
	t.mu.RLock()
	records := make([]FileRecord, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, *r)
	}
	t.mu.RUnlock()

	slices.SortFunc(records, func(a, b FileRecord) int {
		return strings.Compare(a.Path, b.Path)
	})
	return records
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Close closes the backing store, if any.
func (t *Tracker) Close() error {
	if t.store == nil {
		return nil
	}
	return t.store.Close()
}
