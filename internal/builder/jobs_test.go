package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qobs-build/glut/internal/msg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJobs(dir string, names ...string) []compileJob {
	jobs := make([]compileJob, 0, len(names))
	for _, name := range names {
		src := filepath.Join(dir, name)
		obj := filepath.Join(dir, "obj", name+".o")
		jobs = append(jobs, compileJob{
			unit: SourceUnit{Path: src, Rel: name, IsCxx: true},
			obj:  obj,
			cc:   "g++",
			args: []string{"-c", src, "-o", obj},
		})
	}
	return jobs
}

func TestRunCompileJobsAllSucceed(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	jobs := makeJobs(dir, "a.cpp", "b.cpp", "c.cpp")

	err := runCompileJobs(context.Background(), r, jobs, 2, msg.NewProgress(len(jobs)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cpp", "b.cpp", "c.cpp"}, r.compiles())
	for _, job := range jobs {
		assert.FileExists(t, job.obj)
	}
}

func TestRunCompileJobsOneFails(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{fail: map[string]bool{"b.cpp": true}}
	jobs := makeJobs(dir, "a.cpp", "b.cpp", "c.cpp", "d.cpp")

	err := runCompileJobs(context.Background(), r, jobs, 4, msg.NewProgress(len(jobs)))
	require.Error(t, err)

	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"b.cpp"}, cerr.Units)

	// siblings are not cancelled
	assert.Equal(t, []string{"a.cpp", "b.cpp", "c.cpp", "d.cpp"}, r.compiles())
}

func TestRunCompileJobsReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{fail: map[string]bool{"c.cpp": true, "a.cpp": true}}
	jobs := makeJobs(dir, "a.cpp", "b.cpp", "c.cpp")

	err := runCompileJobs(context.Background(), r, jobs, 1, msg.NewProgress(len(jobs)))
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"a.cpp", "c.cpp"}, cerr.Units)
	assert.Contains(t, err.Error(), "a.cpp, c.cpp")
}

func TestRunCompileJobsEmpty(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, runCompileJobs(context.Background(), r, nil, 1, msg.NewProgress(0)))
	assert.Empty(t, r.Calls())
}

func TestRunLinkJob(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "bin", "app")

	r := &fakeRunner{}
	job := linkJob{objs: []string{"a.o"}, out: out, cc: "g++", args: []string{"-o", out, "a.o"}}
	require.NoError(t, runLinkJob(context.Background(), r, job, msg.NewProgress(1)))
	assert.FileExists(t, out)
}

func TestRunLinkJobFailureRemovesOldExecutable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "app")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0o755))

	r := &fakeRunner{fail: map[string]bool{"a.o": true}}
	job := linkJob{objs: []string{"a.o"}, out: out, cc: "g++", args: []string{"-o", out, "a.o"}}
	err := runLinkJob(context.Background(), r, job, msg.NewProgress(1))

	var lerr *LinkError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, out, lerr.Output)
	assert.NoFileExists(t, out)
}

func TestRunCompileJobsStampsObjects(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	jobs := makeJobs(dir, "a.cpp")
	jobs[0].stamp = past

	err := runCompileJobs(context.Background(), r, jobs, 1, msg.NewProgress(len(jobs)))
	require.NoError(t, err)

	stat, err := os.Stat(jobs[0].obj)
	require.NoError(t, err)
	assert.True(t, stat.ModTime().Equal(past), "object mtime %v, want %v", stat.ModTime(), past)
}
