package controlplane

import (
	"time"

	"github.com/openmined/plugsync/internal/client/syncer"
)

const (
	CodeOk          = "OK"
	CodeAccepted    = "ACCEPTED"
	ErrCodeNotReady = "ERR_NOT_READY"
)

// Backend is what the control plane reads from and acts on. The daemon implements it.
type Backend interface {
	SchedulerState() syncer.State
	NextRun() time.Time
	LastReport() (*syncer.CycleReport, error)
	Records() []syncer.FileRecord
	PathStatus() []syncer.PathStatus
	SyncNow()
}

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type IndexResponse struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuildDate string `json:"buildDate"`
}

type StatusResponse struct {
	State      string              `json:"state"`
	Timestamp  string              `json:"ts"`
	NextRun    string              `json:"nextRun,omitempty"`
	LastCycle  *CycleSummary       `json:"lastCycle,omitempty"`
	LastError  string              `json:"lastError,omitempty"`
	Tracked    int                 `json:"tracked"`
	Syncing    int                 `json:"syncing"`
	PathStatus []syncer.PathStatus `json:"paths"`
	Runtime    *RuntimeInfo        `json:"runtime"`
}

type CycleSummary struct {
	ID        string            `json:"id"`
	StartedAt string            `json:"startedAt"`
	Took      string            `json:"took"`
	Scanned   int               `json:"scanned"`
	Unchanged int               `json:"unchanged"`
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Sent      string            `json:"sent"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type FilesResponse struct {
	Files []syncer.FileRecord `json:"files"`
	Count int                 `json:"count"`
}

type SyncNowResponse struct {
	Code string `json:"code"`
}
