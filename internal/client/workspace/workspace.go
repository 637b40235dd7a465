package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/plugsync/internal/utils"
)

const (
	logsDir  = "logs"
	lockFile = "plugsync.lock"
)

var ErrWorkspaceLocked = errors.New("another plugsync instance is running")

// Workspace is the local data dir of a daemon: logs, the journal and the lock
// that keeps two daemons from minting plugs for the same files.
type Workspace struct {
	Root    string
	LogsDir string

	flock *flock.Flock
}

func NewWorkspace(dataDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir %s: %w", dataDir, err)
	}

	return &Workspace{
		Root:    root,
		LogsDir: filepath.Join(root, logsDir),
		flock:   flock.New(filepath.Join(root, lockFile)),
	}, nil
}

// Setup creates the layout and takes the lock.
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.Root, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "root", w.Root)
	return nil
}

func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("create directory %s: %w", w.Root, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", ErrWorkspaceLocked, w.flock.Path())
	}
	return nil
}

// Unlock releases and removes the lock file. It is a no-op if this process does not hold the lock.
func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock workspace: %w", err)
	}
	return os.Remove(w.flock.Path())
}

func (w *Workspace) LockPath() string {
	return w.flock.Path()
}
