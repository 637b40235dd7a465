package syncer

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/openmined/plugsync/internal/plugsdk"
)

// CycleReport summarises one sync cycle. Counters are written by the workers
// through the record* helpers and must only be read once the cycle returned.
type CycleReport struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"startedAt"`
	Took      time.Duration    `json:"took"`
	Scanned   int              `json:"scanned"`
	Unchanged int              `json:"unchanged"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Bytes     int64            `json:"bytes"`
	Errors    map[string]error `json:"-"`

	mu sync.Mutex
}

func newCycleReport() *CycleReport {
	return &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Errors:    make(map[string]error),
	}
}

func (r *CycleReport) recordUnchanged() {
	r.mu.Lock()
	r.Unchanged++
	r.mu.Unlock()
}

func (r *CycleReport) recordSynced(created bool, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if created {
		r.Created++
	} else {
		r.Updated++
	}
	r.Bytes += int64(size)
}

func (r *CycleReport) recordSkipped(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
	if err != nil {
		r.Errors[path] = err
	}
}

func (r *CycleReport) recordFailed(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Errors[path] = err
}

// Attempted is the number of files that reached the remote.
func (r *CycleReport) Attempted() int {
	return r.Created + r.Updated + r.Failed
}

// Synced is the number of files created or updated remotely.
func (r *CycleReport) Synced() int {
	return r.Created + r.Updated
}

// RemoteFailures counts failures caused by the remote, as opposed to local IO.
func (r *CycleReport) RemoteFailures() int {
	n := 0
	for _, err := range r.Errors {
		var re *plugsdk.RemoteError
		if errors.As(err, &re) {
			n++
		}
	}
	return n
}

// mostFailed reports whether more than half of the attempted files failed remotely.
func (r *CycleReport) mostFailed() bool {
	attempted := r.Attempted()
	return attempted > 0 && r.RemoteFailures()*2 > attempted
}

// ErrorStrings returns the per-file errors keyed by path.
func (r *CycleReport) ErrorStrings() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, path := range slices.Sorted(maps.Keys(r.Errors)) {
		out[path] = r.Errors[path].Error()
	}
	return out
}

func (r *CycleReport) LogValue() slog.Value {
	if r == nil {
		return slog.StringValue("none")
	}
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.Int("scanned", r.Scanned),
		slog.Int("unchanged", r.Unchanged),
		slog.Int("created", r.Created),
		slog.Int("updated", r.Updated),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
		slog.String("sent", humanize.Bytes(uint64(r.Bytes))),
		slog.Duration("took", r.Took),
	)
}
