package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

// ConsoleName is the display name of the backend console.
const ConsoleName = "zxdb console"

var tracer = observability.Tracer("github.com/musher-dev/zxdb-adapter/internal/backend")

// Supervisor owns the lifecycle of a single zxdb console.
type Supervisor struct {
	host     Host
	notify   observability.Notifier
	signal   Signaler
	exitHook func(ExitStatus)

	// startMu serializes Start so that the stop of the old console, the
	// spawn and the swap are one step for concurrent callers.
	startMu sync.Mutex

	mu         sync.Mutex
	current    *instance
	pending    *probeState
	consoleLog string
}

type instance struct {
	terminal Terminal
	command  string
	pid      int
	cancel   context.CancelFunc
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithSignaler replaces the function used to signal the console's process
// group.
func WithSignaler(fn Signaler) Option {
	return func(s *Supervisor) {
		s.signal = fn
	}
}

// WithExitHook registers a callback run when the console ends on its own.
func WithExitHook(fn func(ExitStatus)) Option {
	return func(s *Supervisor) {
		s.exitHook = fn
	}
}

// NewSupervisor creates a supervisor spawning consoles through host.
func NewSupervisor(host Host, notify observability.Notifier, opts ...Option) *Supervisor {
	s := &Supervisor{
		host:   host,
		notify: notify,
		signal: SignalGroup,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start spawns a console running command. A console that is already live is
// stopped first. The shell pid is learned asynchronously; Start does not wait
// for it. Concurrent calls are serialized and the last one wins.
func (s *Supervisor) Start(ctx context.Context, command string) (err error) {
	ctx, span := tracer.Start(ctx, "backend.start")
	span.SetAttributes(attribute.String("backend.command", command))
	defer func() { observability.EndSpan(span, err) }()

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.Running() {
		s.notify.Debug("restarting zxdb console")
	}

	s.Stop()

	term, spawnErr := s.host.Spawn(ctx, ConsoleName, command, s)
	if spawnErr != nil {
		cliErr := clierrors.SpawnFailed(command, spawnErr)
		s.notify.Error(cliErr.UserMessage(), slog.String("error", spawnErr.Error()))

		return cliErr
	}

	pidCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	inst := &instance{terminal: term, command: command, cancel: cancel}

	s.mu.Lock()
	s.current = inst
	s.consoleLog = ""
	if tr, ok := term.(Transcript); ok {
		s.consoleLog = tr.LogPath()
	}
	s.mu.Unlock()

	go s.awaitPID(pidCtx, inst)

	return nil
}

func (s *Supervisor) awaitPID(ctx context.Context, inst *instance) {
	pid, err := inst.terminal.ProcessID(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.notify.Debug("zxdb console pid unavailable", slog.String("error", err.Error()))
		}

		return
	}

	s.mu.Lock()
	tracked := s.current == inst
	if tracked {
		inst.pid = pid
	}
	s.mu.Unlock()

	if !tracked {
		return
	}

	s.notify.Info(fmt.Sprintf("%s launched with pid %d", inst.terminal.Name(), pid), slog.Int("pid", pid))
}

// Stop terminates the console's process group and releases the console.
// A pending readiness wait is finalized as stopped. Stop is idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	inst := s.current
	s.current = nil
	pending := s.pending
	s.pending = nil

	var pid int
	if inst != nil {
		pid = inst.pid
		inst.cancel()
	}
	s.mu.Unlock()

	if pending != nil {
		pending.finalize(outcomeStopped, nil)
	}

	if inst == nil {
		return
	}

	s.notify.Info("zxdb console is destroyed.")

	if pid > 0 {
		if err := s.signal(pid, SignalTerminate); err != nil && !errors.Is(err, ErrProcessGone) {
			s.notify.Debug("signal console process group",
				slog.Int("pid", pid),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := inst.terminal.Dispose(); err != nil {
		s.notify.Debug("dispose console", slog.String("error", err.Error()))
	}
}

// OnBackendProcessEnded handles a console ending on its own. Exits of
// consoles other than the current one are ignored.
func (s *Supervisor) OnBackendProcessEnded(t Terminal, status ExitStatus) {
	s.mu.Lock()
	inst := s.current
	if inst == nil || inst.terminal != t {
		s.mu.Unlock()
		s.notify.Debug("ignoring exit of untracked console", slog.String("name", t.Name()))

		return
	}

	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.notify.Info("zxdb console exited",
		slog.Int("exit_code", status.Code),
		slog.String("signal", status.Signal),
	)

	if s.exitHook != nil {
		s.exitHook(status)
	}

	if pending != nil {
		pending.finalize(outcomeBackendEnded, fmt.Errorf("%s exited with code %d", t.Name(), status.Code))
	}

	s.Stop()
}

// PID returns the console's shell pid, or 0 if it is unknown or no console
// is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0
	}

	return s.current.pid
}

// Running reports whether a console is live.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil
}

// Command returns the command of the live console.
func (s *Supervisor) Command() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ""
	}

	return s.current.command
}

// ConsoleLog returns the capture file of the most recently started console,
// or "" when its output is not captured. It survives the console's end so a
// failed start can still point at what the console printed.
func (s *Supervisor) ConsoleLog() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.consoleLog
}

// arm registers st as the pending readiness wait, superseding any previous one.
func (s *Supervisor) arm(st *probeState) {
	s.mu.Lock()
	prev := s.pending
	s.pending = st
	s.mu.Unlock()

	if prev != nil && prev != st {
		prev.finalize(outcomeStopped, nil)
	}
}

// disarm clears st if it is still the pending readiness wait.
func (s *Supervisor) disarm(st *probeState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == st {
		s.pending = nil
	}
}
