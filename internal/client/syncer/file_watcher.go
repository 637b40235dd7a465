package syncer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rjeczalik/notify"
)

const watchEventBuffer = 64

// FileWatcher nudges the scheduler when a file the scanner would pick up changes.
// It only shortens the wait before the next cycle. Cycles still scan everything.
type FileWatcher struct {
	scanner *Scanner
	nudge   func()

	events chan notify.EventInfo
	roots  []string
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewFileWatcher(scanner *Scanner, nudge func()) *FileWatcher {
	return &FileWatcher{
		scanner: scanner,
		nudge:   nudge,
		done:    make(chan struct{}),
	}
}

// Start watches every existing root recursively. Roots that do not exist yet
// are not watched, the periodic scan still covers them.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.events = make(chan notify.EventInfo, watchEventBuffer)

	for _, pattern := range fw.scanner.Roots() {
		roots, err := expandRoot(pattern)
		if err != nil {
			slog.Warn("file watcher skip root", "root", pattern, "error", err)
			continue
		}
		for _, root := range roots {
			info, err := os.Stat(root)
			if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
				continue
			} else if err != nil {
				slog.Warn("file watcher skip root", "root", root, "error", err)
				continue
			}

			if err := notify.Watch(filepath.Join(root, "..."), fw.events, notify.Write, notify.Create, notify.Rename); err != nil {
				notify.Stop(fw.events)
				return err
			}
			fw.roots = append(fw.roots, root)
		}
	}

	slog.Info("file watcher start", "roots", fw.roots)

	fw.wg.Add(1)
	go fw.loop(ctx)

	return nil
}

func (fw *FileWatcher) Stop() {
	close(fw.done)
	if fw.events != nil {
		notify.Stop(fw.events)
	}
	fw.wg.Wait()
	slog.Info("file watcher stopped")
}

func (fw *FileWatcher) loop(ctx context.Context) {
	defer fw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.events:
			if !ok {
				return
			}
			if fw.matches(event.Path()) {
				slog.Debug("file watcher", "event", event.Event(), "path", event.Path())
				fw.nudge()
			}
		}
	}
}

// matches applies the scanner's extension and ignore rules to an event path.
func (fw *FileWatcher) matches(path string) bool {
	if !fw.scanner.extensions.Contains(extension(filepath.Base(path))) {
		return false
	}
	for _, root := range fw.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if fw.scanner.ignoredPath(rel) {
			continue
		}
		return true
	}
	return false
}
