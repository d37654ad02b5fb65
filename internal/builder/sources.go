package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/qobs-build/glut/internal/toolchain"
)

// SourceUnit is one independently compiled source file
type SourceUnit struct {
	Path    string // absolute
	Rel     string // slash-separated, relative to the project root
	ModTime time.Time
	IsCxx   bool
}

// collectFiles globs the project root and returns the matching files sorted by relative path
func collectFiles(basedir string, patterns []string, rules *ignoreRules) ([]SourceUnit, error) {
	seen := make(map[string]bool)
	var units []SourceUnit
	fsys := os.DirFS(basedir)

	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pat), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		for _, match := range matches {
			if seen[match] || rules.ignored(match, false) {
				continue
			}
			seen[match] = true

			absPath := filepath.Join(basedir, filepath.FromSlash(match))
			stat, err := os.Stat(absPath)
			if err != nil {
				return nil, fmt.Errorf("while globbing %s: %w", match, err)
			}
			units = append(units, SourceUnit{
				Path:    absPath,
				Rel:     match,
				ModTime: stat.ModTime(),
				IsCxx:   toolchain.IsCxx(match),
			})
		}
	}

	slices.SortFunc(units, func(a, b SourceUnit) int {
		return strings.Compare(a.Rel, b.Rel)
	})
	return units, nil
}

// newestModTime returns the latest modification time among files, or the zero time
func newestModTime(files []SourceUnit, extra ...string) time.Time {
	var newest time.Time
	for _, f := range files {
		if f.ModTime.After(newest) {
			newest = f.ModTime
		}
	}
	for _, path := range extra {
		if stat, err := os.Stat(path); err == nil && stat.ModTime().After(newest) {
			newest = stat.ModTime()
		}
	}
	return newest
}
