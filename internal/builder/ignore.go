package builder

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// skippedDirs are never scanned for sources nor watched, at any depth.
// The build output directory is skipped only at the project root.
var skippedDirs = map[string]bool{
	".git":         true,
	".vscode":      true,
	"node_modules": true,
}

// ignoreRules decides which project-relative paths take no part in the build
type ignoreRules struct {
	matcher gitignore.Matcher
}

// loadIgnoreRules reads the .gitignore at the project root, if there is one
func loadIgnoreRules(basedir string) (*ignoreRules, error) {
	var patterns []gitignore.Pattern

	f, err := os.Open(filepath.Join(basedir, ".gitignore"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return &ignoreRules{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ignored reports whether a slash-separated project-relative path is excluded
func (r *ignoreRules) ignored(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	parts := strings.Split(rel, "/")
	if parts[0] == BuildDirname && (len(parts) > 1 || isDir) {
		return true
	}
	for _, part := range parts[:len(parts)-1] {
		if skippedDirs[part] {
			return true
		}
	}
	if isDir && skippedDirs[parts[len(parts)-1]] {
		return true
	}
	return r.matcher.Match(parts, isDir)
}
