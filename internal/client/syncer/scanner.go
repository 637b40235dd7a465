package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/plugsync/internal/utils"
)

// symlinked trees are not followed, this only bounds pathological nesting
const maxScanDepth = 64

// Scanner lists the files under a set of roots whose extension is accepted.
type Scanner struct {
	roots      []string
	extensions mapset.Set[string]
	ignore     *IgnoreList
}

// NewScanner creates a scanner. Extensions are matched exactly and case-sensitively,
// without the leading dot. Roots may use `~` and doublestar globs.
func NewScanner(roots []string, extensions []string, ignore *IgnoreList) *Scanner {
	return &Scanner{
		roots:      roots,
		extensions: mapset.NewSet(extensions...),
		ignore:     ignore,
	}
}

func (s *Scanner) Roots() []string {
	return s.roots
}

// Scan walks every root and returns the matching files as sorted, absolute paths.
// Missing roots are skipped. Any other traversal failure aborts the whole scan.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	found := mapset.NewThreadUnsafeSet[string]()

	for _, pattern := range s.roots {
		roots, err := expandRoot(pattern)
		if err != nil {
			return nil, &ScanError{Root: pattern, Err: err}
		}

		for _, root := range roots {
			if err := s.scanRoot(ctx, root, found); err != nil {
				return nil, err
			}
		}
	}

	paths := found.ToSlice()
	slices.Sort(paths)
	return paths, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string, found mapset.Set[string]) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("scan root missing", "root", root)
		return nil
	} else if err != nil {
		return &ScanError{Root: root, Err: err}
	}
	if !info.IsDir() {
		slog.Debug("scan root is not a directory", "root", root)
		return nil
	}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// raced with a delete, the next cycle sees the new state
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if s.ignore.ShouldIgnore(relPath, true) {
				return filepath.SkipDir
			}
			if depth(relPath) > maxScanDepth {
				slog.Warn("scan depth exceeded", "dir", path, "max", maxScanDepth)
				return filepath.SkipDir
			}
			return nil
		}

		if !s.extensions.Contains(extension(d.Name())) || s.ignore.ShouldIgnore(relPath, false) {
			return nil
		}

		found.Add(path)
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ScanError{Root: root, Err: err}
	}

	return nil
}

// ignoredPath reports whether a root-relative file path, or any directory above it, is ignored.
func (s *Scanner) ignoredPath(relPath string) bool {
	if s.ignore == nil {
		return false
	}
	if s.ignore.ShouldIgnore(relPath, false) {
		return true
	}
	for dir := filepath.Dir(relPath); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if s.ignore.ShouldIgnore(dir, true) {
			return true
		}
	}
	return false
}

// expandRoot resolves `~` and expands glob patterns. A glob with no match
// yields no roots, just like a missing directory.
func expandRoot(pattern string) ([]string, error) {
	root, err := utils.ResolvePath(pattern)
	if err != nil {
		return nil, err
	}

	if !hasMeta(root) {
		return []string{root}, nil
	}

	matches, err := doublestar.FilepathGlob(root)
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	return matches, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// extension returns the extension without the dot. Dotfiles like `.env` have none.
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return ext[1:]
}

func depth(relPath string) int {
	return strings.Count(relPath, string(filepath.Separator)) + 1
}
