package watch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/qobs-build/glut/internal/msg"
)

// DefaultGrace is how long a process gets to exit after being asked to
const DefaultGrace = 3 * time.Second

var errStillRunning = errors.New("process did not exit")

// Process is a launched program owned by the supervisor
type Process interface {
	Pid() int
	Path() string
	// Done is closed once the process has exited
	Done() <-chan struct{}
	// Terminate stops the process and waits for it to exit
	Terminate(grace time.Duration) error
}

// Launcher starts the freshly built executable
type Launcher interface {
	Launch(path string) (Process, error)
}

// LaunchError is returned when a successfully built executable could not be started
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExecLauncher runs executables as child processes
type ExecLauncher struct {
	Dir    string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Launch(path string) (Process, error) {
	cmd := exec.Command(path, l.Args...)
	cmd.Dir = l.Dir
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	prepareCommand(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}

	p := &osProcess{cmd: cmd, path: path, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

type osProcess struct {
	cmd      *exec.Cmd
	path     string
	done     chan struct{}
	err      error
	stopping atomic.Bool
}

func (p *osProcess) wait() {
	p.err = p.cmd.Wait()
	if !p.stopping.Load() {
		if p.err != nil {
			msg.Warn("%s exited: %v", p.path, p.err)
		} else {
			msg.Info("%s exited", p.path)
		}
	}
	close(p.done)
}

func (p *osProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *osProcess) Path() string          { return p.path }
func (p *osProcess) Done() <-chan struct{} { return p.done }

// Terminate asks the process to stop, forcefully kills it once grace has passed and
// waits for it to exit. An error means the process may still be alive.
func (p *osProcess) Terminate(grace time.Duration) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.stopping.Store(true)

	if err := terminate(p.cmd); err != nil {
		msg.Warn("could not signal pid %d: %v", p.Pid(), err)
	} else {
		select {
		case <-p.done:
			return nil
		case <-time.After(grace):
		}
	}

	select {
	case <-p.done:
		return nil
	default:
	}
	if err := kill(p.cmd); err != nil {
		return fmt.Errorf("kill pid %d: %w", p.Pid(), err)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("pid %d: %w", p.Pid(), errStillRunning)
	}
}
