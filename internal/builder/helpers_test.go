package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/qobs-build/glut/internal/msg"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	msg.Stdout = io.Discard
	os.Exit(m.Run())
}

// fakeRunner stands in for the compiler and linker: it records every invocation and
// writes the file named by -o, unless one of the arguments is a file it should fail on.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
}

func (r *fakeRunner) Run(_ context.Context, name string, args []string, _, stderr io.Writer) error {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	for _, a := range args {
		if r.fail[filepath.Base(a)] {
			fmt.Fprintf(stderr, "%s: error: expected ';'\n", a)
			return errors.New("exit status 1")
		}
	}

	i := slices.Index(args, "-o")
	if i < 0 || i+1 >= len(args) {
		return errors.New("no output given")
	}
	return os.WriteFile(args[i+1], []byte(name), 0o644)
}

func (r *fakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// compiles returns the source arguments of all compile invocations
func (r *fakeRunner) compiles() []string {
	var srcs []string
	for _, call := range r.Calls() {
		if i := slices.Index(call, "-c"); i >= 0 {
			srcs = append(srcs, filepath.Base(call[i+1]))
		}
	}
	slices.Sort(srcs)
	return srcs
}

// links returns the argument lists of all link invocations
func (r *fakeRunner) links() [][]string {
	var links [][]string
	for _, call := range r.Calls() {
		if !slices.Contains(call, "-c") {
			links = append(links, call)
		}
	}
	return links
}

var past = time.Now().Add(-time.Hour).Truncate(time.Second)

// writeFile creates a project file and backdates it so that anything built afterwards is newer
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, past, past))
	return path
}

// touch moves a file's mtime to the given time
func touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, when, when))
}
