package syncer

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreList matches root-relative paths against gitignore-style patterns.
// A nil list ignores nothing.
type IgnoreList struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

func NewIgnoreList(patterns ...string) *IgnoreList {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &IgnoreList{
		patterns: lines,
		ignore:   gitignore.CompileIgnoreLines(lines...),
	}
}

func (l *IgnoreList) ShouldIgnore(relPath string, isDir bool) bool {
	if l == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	if isDir && l.ignore.MatchesPath(relPath+"/") {
		return true
	}
	return l.ignore.MatchesPath(relPath)
}

func (l *IgnoreList) Patterns() []string {
	if l == nil {
		return nil
	}
	return l.patterns
}
