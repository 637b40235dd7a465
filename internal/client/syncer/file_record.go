package syncer

import (
	"time"
)

// FileRecord is the last successful sync of one path.
type FileRecord struct {
	Path         string    `json:"path"`
	LastSyncedAt time.Time `json:"lastSyncedAt"` // file mtime at the last sync
	RemoteRef    string    `json:"remoteRef"`
	ContentRef   string    `json:"contentRef"`
	SyncedAt     time.Time `json:"syncedAt"`
}

// dirty reports whether a file with modTime must be sent again.
func (r *FileRecord) dirty(modTime time.Time) bool {
	return r == nil || r.LastSyncedAt.Before(modTime)
}
