package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/qobs-build/glut/internal/msg"
	"golang.org/x/sync/errgroup"
)

// Runner invokes an external tool and reports its exit status
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// CompileError is returned when one or more units failed to compile
type CompileError struct {
	Units []string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compilation failed for %s: %v", strings.Join(e.Units, ", "), e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError is returned when the linker exits with a non-zero status
type LinkError struct {
	Output string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("linking %s failed: %v", e.Output, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// compileJob represents a single compilation job
type compileJob struct {
	unit SourceUnit
	obj  string
	cc   string
	args []string
	// stamp becomes the object's mtime after a successful compile, zero keeps the
	// compiler's. It is the input time seen when planning, so an edit saved while the
	// compiler runs still leaves the source newer than its object.
	stamp time.Time
}

// linkJob represents the final link of all objects into the executable
type linkJob struct {
	objs []string
	out  string
	cc   string
	args []string
}

// runCompileJobs runs jobs in parallel and waits for all of them. A failing job does not
// cancel its siblings; once all are done the failed units are reported together.
func runCompileJobs(ctx context.Context, runner Runner, jobs []compileJob, limit int, progress *msg.Progress) error {
	if len(jobs) == 0 {
		return nil
	}

	var (
		eg     errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	eg.SetLimit(limit)

	for _, job := range jobs {
		eg.Go(func() error {
			err := runCompileJob(ctx, runner, job, progress)
			if err != nil {
				mu.Lock()
				failed = append(failed, job.unit.Rel)
				mu.Unlock()
			}
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		slices.Sort(failed)
		return &CompileError{Units: failed, Err: err}
	}
	return nil
}

// runCompileJob runs a single compilation job, its output is shown once it finishes
func runCompileJob(ctx context.Context, runner Runner, job compileJob, progress *msg.Progress) error {
	if err := os.MkdirAll(filepath.Dir(job.obj), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	progress.Step("CC", job.unit.Rel)

	var out bytes.Buffer
	err := runner.Run(ctx, job.cc, job.args, &out, &out)
	msg.Output(out.Bytes())
	if err != nil {
		return fmt.Errorf("%s: %w", job.unit.Rel, err)
	}
	if !job.stamp.IsZero() {
		if err := os.Chtimes(job.obj, job.stamp, job.stamp); err != nil {
			return fmt.Errorf("%s: %w", job.unit.Rel, err)
		}
	}
	return nil
}

// runLinkJob links the executable. The previous executable is removed first so that a
// failed link never leaves an outdated program that a later build would consider current.
func runLinkJob(ctx context.Context, runner Runner, job linkJob, progress *msg.Progress) error {
	if err := os.MkdirAll(filepath.Dir(job.out), 0755); err != nil {
		return &LinkError{Output: job.out, Err: err}
	}
	if err := os.Remove(job.out); err != nil && !os.IsNotExist(err) {
		return &LinkError{Output: job.out, Err: err}
	}

	progress.Step("LINK", filepath.Base(job.out))

	var out bytes.Buffer
	err := runner.Run(ctx, job.cc, job.args, &out, &out)
	msg.Output(out.Bytes())
	if err != nil {
		return &LinkError{Output: job.out, Err: err}
	}
	return nil
}
