package syncer

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcher_Matches(t *testing.T) {
	root := t.TempDir()
	scanner := NewScanner([]string{root}, []string{"py"}, NewIgnoreList("vendor/"))
	fw := NewFileWatcher(scanner, func() {})
	fw.roots = []string{root}

	assert.True(t, fw.matches(filepath.Join(root, "a.py")))
	assert.True(t, fw.matches(filepath.Join(root, "pkg", "b.py")))
	assert.False(t, fw.matches(filepath.Join(root, "a.txt")))
	assert.False(t, fw.matches(filepath.Join(root, "vendor", "lib", "c.py")))
	assert.False(t, fw.matches(filepath.Join(filepath.Dir(root), "elsewhere.py")))
}

func TestFileWatcher_NudgesOnWrite(t *testing.T) {
	// tmp dirs may sit behind a symlink, notify reports resolved paths
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	var nudges atomic.Int32
	scanner := NewScanner([]string{root}, []string{"py"}, nil)
	fw := NewFileWatcher(scanner, func() { nudges.Add(1) })
	require.NoError(t, fw.Start(t.Context()))
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))

	assert.Eventually(t, func() bool {
		return nudges.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_MissingRoot(t *testing.T) {
	scanner := NewScanner([]string{filepath.Join(t.TempDir(), "missing")}, []string{"py"}, nil)
	fw := NewFileWatcher(scanner, func() {})
	require.NoError(t, fw.Start(t.Context()))
	assert.Empty(t, fw.roots)
	fw.Stop()
}
