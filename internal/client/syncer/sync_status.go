package syncer

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type SyncState string

const (
	SyncStateSyncing SyncState = "syncing"
	SyncStateError   SyncState = "error"
)

// PathStatus is the live state of a path that is syncing or whose last attempt failed.
type PathStatus struct {
	Path        string    `json:"path"`
	State       SyncState `json:"state"`
	Error       string    `json:"error,omitempty"`
	ErrorCount  int       `json:"errorCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SyncStatus tracks in-flight and failing paths. A path leaves the table once it syncs.
type SyncStatus struct {
	mu    sync.RWMutex
	files map[string]*PathStatus
}

func NewSyncStatus() *SyncStatus {
	return &SyncStatus{
		files: make(map[string]*PathStatus),
	}
}

func (s *SyncStatus) getOrCreate(path string) *PathStatus {
	status, ok := s.files[path]
	if !ok {
		status = &PathStatus{Path: path}
		s.files[path] = status
	}
	return status
}

// SetSyncing marks path as syncing. The error count of earlier failures is kept.
func (s *SyncStatus) SetSyncing(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.getOrCreate(path)
	status.State = SyncStateSyncing
	status.Error = ""
	status.LastUpdated = time.Now()
}

func (s *SyncStatus) SetCompleted(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
}

func (s *SyncStatus) SetError(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.getOrCreate(path)
	status.State = SyncStateError
	status.Error = err.Error()
	status.ErrorCount++
	status.LastUpdated = time.Now()
}

func (s *SyncStatus) Get(path string) (PathStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.files[path]
	if !ok {
		return PathStatus{}, false
	}
	return *status, true
}

func (s *SyncStatus) SyncingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, status := range s.files {
		if status.State == SyncStateSyncing {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of every tracked status sorted by path.
func (s *SyncStatus) Snapshot() []PathStatus {
	s.mu.RLock()
	out := make([]PathStatus, 0, len(s.files))
	for _, status := range s.files {
		out = append(out, *status)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b PathStatus) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}
