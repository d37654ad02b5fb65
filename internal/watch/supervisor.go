package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qobs-build/glut/internal/msg"
)

// State is the supervisor's lifecycle state
type State int

const (
	Idle State = iota
	Building
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildFunc builds the project and returns the executable path
type BuildFunc func(ctx context.Context) (string, error)

// Supervisor keeps at most one instance of the built program alive, rebuilding and
// relaunching it for every change it receives.
type Supervisor struct {
	build    BuildFunc
	launcher Launcher
	grace    time.Duration
	onChange func(from, to State)

	mu      sync.Mutex
	state   State
	process Process

	// pending holds at most one queued rebuild
	pending chan struct{}
}

type SupervisorOption func(*Supervisor)

// WithGrace sets how long a running program may take to exit before it is killed
func WithGrace(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithTransitionHook registers a function called on every state change
func WithTransitionHook(fn func(from, to State)) SupervisorOption {
	return func(s *Supervisor) {
		s.onChange = fn
	}
}

func NewSupervisor(build BuildFunc, launcher Launcher, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		build:    build,
		launcher: launcher,
		grace:    DefaultGrace,
		state:    Idle,
		pending:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from != to && s.onChange != nil {
		s.onChange(from, to)
	}
}

// request queues a rebuild unless one is queued already
func (s *Supervisor) request() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Run performs an initial build and launch, then one rebuild per queued change, until
// ctx is cancelled. The running program is stopped before Run returns.
func (s *Supervisor) Run(ctx context.Context, changes <-chan Change) error {
	defer s.release()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if len(change.Paths) > 0 {
					msg.Status("Changed", "%s", change.Paths[0])
				}
				s.request()
			}
		}
	}()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.pending:
			s.cycle(ctx)
		}
	}
}

// release stops the supervised program, if any, and waits for it to exit
func (s *Supervisor) release() {
	s.mu.Lock()
	p := s.process
	s.process = nil
	s.mu.Unlock()

	if p == nil {
		return
	}
	if err := p.Terminate(s.grace); err != nil {
		msg.Warn("could not stop %s (pid %d): %v", p.Path(), p.Pid(), err)
	}
}

func (s *Supervisor) cycle(ctx context.Context) {
	s.release()
	s.setState(Building)

	path, err := s.build(ctx)
	if err != nil {
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			msg.Error("%v", err)
		}
		s.setState(Failed)
		return
	}
	if ctx.Err() != nil {
		s.setState(Failed)
		return
	}

	p, err := s.launcher.Launch(path)
	if err != nil {
		var launchErr *LaunchError
		if !errors.As(err, &launchErr) {
			err = &LaunchError{Path: path, Err: err}
		}
		msg.Error("%v", err)
		s.setState(Failed)
		return
	}

	s.mu.Lock()
	s.process = p
	s.mu.Unlock()
	msg.Status("Running", "%s (pid %d)", path, p.Pid())
	s.setState(Running)
}
