package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/openmined/plugsync/internal/credential"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

// Remote is the part of the plug API a sync cycle needs.
type Remote interface {
	UploadContent(ctx context.Context, token, name, content string) (contentRef string, err error)
	AttachReference(ctx context.Context, token, name, contentRef, existingRef string) (remoteRef string, err error)
}

type EngineOption func(*SyncEngine)

// WithWorkers bounds how many files are synced at once. 1 syncs sequentially.
func WithWorkers(n int) EngineOption {
	return func(e *SyncEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// SyncEngine runs sync cycles: scan, diff against the tracker, then upload and
// attach every dirty file.
type SyncEngine struct {
	scanner *Scanner
	tracker *Tracker
	remote  Remote
	creds   credential.Provider
	status  *SyncStatus
	workers int

	muSync sync.Mutex

	reportMu   sync.RWMutex
	lastReport *CycleReport
	lastErr    error
}

func NewSyncEngine(scanner *Scanner, tracker *Tracker, remote Remote, creds credential.Provider, opts ...EngineOption) *SyncEngine {
	e := &SyncEngine{
		scanner: scanner,
		tracker: tracker,
		remote:  remote,
		creds:   creds,
		status:  NewSyncStatus(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *SyncEngine) Tracker() *Tracker { return e.tracker }

func (e *SyncEngine) Status() *SyncStatus { return e.status }

// LastReport returns the report and error of the last finished cycle.
// The report is nil before the first cycle and after a cycle that failed before scanning.
func (e *SyncEngine) LastReport() (*CycleReport, error) {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	return e.lastReport, e.lastErr
}

// RunCycle performs one full pass. Per-file failures are recorded in the report
// and do not fail the cycle. A *CycleError is returned when the credential or the
// scan failed, or when most of the attempted files failed remotely.
func (e *SyncEngine) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !e.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	report, err := e.runCycle(ctx)
	if report != nil {
		report.Took = time.Since(report.StartedAt)
	}

	e.reportMu.Lock()
	e.lastReport, e.lastErr = report, err
	e.reportMu.Unlock()

	return report, err
}

func (e *SyncEngine) runCycle(ctx context.Context) (*CycleReport, error) {
	token, err := credential.Resolve(ctx, e.creds)
	if err != nil {
		return nil, &CycleError{Stage: StageCredential, Err: err}
	}

	report := newCycleReport()

	paths, err := e.scanner.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		return report, &CycleError{Stage: StageScan, Err: err}
	}
	report.Scanned = len(paths)

	dirty := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			report.recordSkipped(path, &IoError{Path: path, Op: "stat", Err: err})
			continue
		}
		if info.IsDir() {
			report.recordSkipped(path, nil)
			continue
		}
		if isDirty, _ := e.tracker.Check(path, info.ModTime()); !isDirty {
			report.recordUnchanged()
			continue
		}
		dirty = append(dirty, path)
	}

	slog.Debug("sync cycle", "id", report.ID, "scanned", len(paths), "dirty", len(dirty))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)
	for _, path := range dirty {
		group.Go(func() error {
			e.syncFile(gctx, token, path, report)
			return nil
		})
	}
	// workers never return errors
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if report.mostFailed() {
		return report, &CycleError{
			Stage: StageRemote,
			Err:   fmt.Errorf("%w: %d of %d", ErrMostFilesFailed, report.RemoteFailures(), report.Attempted()),
		}
	}

	return report, nil
}

// syncFile uploads one dirty path and attaches it to its plug.
// The tracker entry is only written after both remote calls succeeded.
func (e *SyncEngine) syncFile(ctx context.Context, token, path string, report *CycleReport) {
	unlock := e.tracker.Lock(path)
	defer unlock()

	info, err := os.Stat(path)
	if err != nil {
		e.skip(report, &IoError{Path: path, Op: "stat", Err: err})
		return
	}

	// the mtime is read before the content so a write racing the upload is picked up next cycle
	modTime := info.ModTime()
	dirty, remoteRef := e.tracker.Check(path, modTime)
	if !dirty {
		report.recordUnchanged()
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		e.skip(report, &IoError{Path: path, Op: "read", Err: err})
		return
	}
	if !utf8.Valid(content) {
		e.skip(report, &IoError{Path: path, Op: "read", Err: ErrNotText})
		return
	}

	e.status.SetSyncing(path)

	contentRef, err := e.remote.UploadContent(ctx, token, path, string(content))
	if err != nil {
		e.fail(report, path, err)
		return
	}

	ref, err := e.remote.AttachReference(ctx, token, path, contentRef, remoteRef)
	if err != nil {
		e.fail(report, path, err)
		return
	}
	if remoteRef != "" && ref != remoteRef {
		slog.Warn("sync remote returned a different plug, keeping the known one", "path", path, "known", remoteRef, "got", ref)
		ref = remoteRef
	}

	if err := e.tracker.Commit(path, modTime, contentRef, ref); err != nil {
		if !errors.Is(err, ErrJournalWrite) {
			e.fail(report, path, err)
			return
		}
		slog.Warn("sync journal write failed, record kept in memory", "path", path, "plug", ref, "error", err)
	}

	e.status.SetCompleted(path)
	report.recordSynced(remoteRef == "", len(content))
	slog.Info("sync", "op", syncOp(remoteRef), "path", path, "plug", ref, "size", len(content))
}

func (e *SyncEngine) skip(report *CycleReport, ioErr *IoError) {
	if errors.Is(ioErr, fs.ErrNotExist) {
		slog.Debug("sync skip vanished file", "path", ioErr.Path)
	} else {
		slog.Warn("sync skip", "path", ioErr.Path, "op", ioErr.Op, "error", ioErr.Err)
	}
	report.recordSkipped(ioErr.Path, ioErr)
}

func (e *SyncEngine) fail(report *CycleReport, path string, err error) {
	slog.Error("sync", "path", path, "error", err)
	e.status.SetError(path, err)
	report.recordFailed(path, err)
}

func syncOp(remoteRef string) string {
	if remoteRef == "" {
		return "create"
	}
	return "update"
}
