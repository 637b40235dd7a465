package syncer

import (
	"errors"
	"fmt"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
	ErrRemoteRefChanged   = errors.New("remote ref already assigned")
	ErrEmptyRemoteRef     = errors.New("remote ref is empty")
	ErrMostFilesFailed    = errors.New("most files failed to sync")
	ErrNotText            = errors.New("content is not valid utf-8 text")
	ErrJournalWrite       = errors.New("journal write failed")
)

// ScanError aborts a scan. No partial file set is returned with it.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// IoError means a single file vanished or could not be read after the scan.
// The file is skipped for the cycle.
type IoError struct {
	Path string
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Stages of a cycle that can fail as a whole.
const (
	StageCredential = "credential"
	StageScan       = "scan"
	StageRemote     = "remote"
)

// CycleError is a cycle-level failure. The scheduler retries after the short interval.
type CycleError struct {
	Stage string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
