package controlplane

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/openmined/plugsync/internal/client/syncer"
	"github.com/openmined/plugsync/internal/version"
)

type Handlers struct {
	backend Backend
}

func NewHandlers(backend Backend) *Handlers {
	return &Handlers{backend: backend}
}

func (h *Handlers) Index(c *gin.Context) {
	c.PureJSON(http.StatusOK, &IndexResponse{
		App:       version.AppName,
		Version:   version.Version,
		Revision:  version.Revision,
		BuildDate: version.BuildDate,
	})
}

// Status reports the scheduler state and the outcome of the last cycle.
func (h *Handlers) Status(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	paths := h.backend.PathStatus()
	syncing := 0
	for _, p := range paths {
		if p.State == syncer.SyncStateSyncing {
			syncing++
		}
	}

	resp := &StatusResponse{
		State:      string(h.backend.SchedulerState()),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Tracked:    len(h.backend.Records()),
		Syncing:    syncing,
		PathStatus: paths,
		Runtime:    runtimeInfo(),
	}
	if next := h.backend.NextRun(); !next.IsZero() {
		resp.NextRun = next.UTC().Format(time.RFC3339)
	}

	report, err := h.backend.LastReport()
	if report != nil {
		resp.LastCycle = summarize(report)
	}
	if err != nil {
		resp.LastError = err.Error()
	}

	c.PureJSON(http.StatusOK, resp)
}

func (h *Handlers) Files(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	records := h.backend.Records()
	c.PureJSON(http.StatusOK, &FilesResponse{
		Files: records,
		Count: len(records),
	})
}

// SyncNow shortens the current wait. A cycle already running is not interrupted.
func (h *Handlers) SyncNow(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	h.backend.SyncNow()
	c.PureJSON(http.StatusAccepted, &SyncNowResponse{Code: CodeAccepted})
}

// ready answers 503 while no sync engine is attached.
func (h *Handlers) ready(c *gin.Context) bool {
	if h.backend != nil {
		return true
	}
	c.PureJSON(http.StatusServiceUnavailable, &ErrorResponse{
		Code:  ErrCodeNotReady,
		Error: "sync engine not initialized",
	})
	return false
}

func summarize(r *syncer.CycleReport) *CycleSummary {
	return &CycleSummary{
		ID:        r.ID,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
		Took:      r.Took.Round(time.Millisecond).String(),
		Scanned:   r.Scanned,
		Unchanged: r.Unchanged,
		Created:   r.Created,
		Updated:   r.Updated,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Sent:      humanize.Bytes(uint64(r.Bytes)),
		Errors:    r.ErrorStrings(),
	}
}
