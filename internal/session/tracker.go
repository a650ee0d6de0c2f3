// Package session tracks one debug session between a front-end and the zxdb
// console: whether teardown is a restart, whether errors are expected
// disconnect noise, and which process the front-end launched on the
// backend's behalf.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/musher-dev/zxdb-adapter/internal/backend"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

const childLookupTimeout = 2 * time.Second

// State is the tracker's lifecycle state.
type State int

// Lifecycle states.
const (
	StateIdle State = iota
	StateStarted
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// BackendController stops the zxdb console.
type BackendController interface {
	Stop()
}

// ChildLookup resolves the first child of pid.
type ChildLookup func(ctx context.Context, pid int) (int, error)

// Tracker observes one debug session. It never modifies or holds back the
// frames it sees.
type Tracker struct {
	id      string
	backend BackendController
	notify  observability.Notifier
	lookup  ChildLookup
	signal  backend.Signaler

	mu           sync.Mutex
	state        State
	ignoreErrors bool
	restart      bool
	launchedPID  int
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) TrackerOption {
	return func(t *Tracker) {
		t.id = id
	}
}

// WithChildLookup replaces the shell child lookup.
func WithChildLookup(fn ChildLookup) TrackerOption {
	return func(t *Tracker) {
		t.lookup = fn
	}
}

// WithSignaler replaces the process group signaller.
func WithSignaler(fn backend.Signaler) TrackerOption {
	return func(t *Tracker) {
		t.signal = fn
	}
}

// NewTracker creates a tracker for a new session.
func NewTracker(ctl BackendController, notify observability.Notifier, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		id:      uuid.NewString(),
		backend: ctl,
		notify:  notify,
		lookup:  backend.ChildPID,
		signal:  backend.SignalGroup,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ID returns the session id.
func (t *Tracker) ID() string {
	return t.id
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// IgnoringErrors reports whether errors are currently logged as noise.
func (t *Tracker) IgnoringErrors() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.ignoreErrors
}

// restarting reports whether the last disconnect asked for a restart.
func (t *Tracker) restarting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.restart
}

// launchedProcess returns the recorded launched process, or 0.
func (t *Tracker) launchedProcess() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.launchedPID
}

// OnWillStartSession starts the session and logs its configuration.
func (t *Tracker) OnWillStartSession(cfg any) {
	t.mu.Lock()
	t.state = StateStarted
	t.ignoreErrors = false
	t.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", cfg))
	}

	t.notify.Info(fmt.Sprintf("Starting debug session:\n%s\n", data), slog.String("session.id", t.id))
}

// protocolHeader holds the fields every DAP frame is classified by.
type protocolHeader struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// ObserveOutbound inspects a frame travelling from the front-end to the
// backend.
func (t *Tracker) ObserveOutbound(frame []byte) {
	t.mu.Lock()
	if t.state == StateStarted {
		t.state = StateRunning
	}
	t.mu.Unlock()

	var hdr protocolHeader
	if err := json.Unmarshal(frame, &hdr); err != nil {
		t.notify.Debug("unparseable frame from front-end", slog.String("error", err.Error()))
		return
	}

	switch {
	case hdr.Type == "request" && hdr.Command == "disconnect":
		t.observeDisconnect(frame)
	case hdr.Type == "response" && hdr.Command == "runInTerminal":
		t.observeRunInTerminal(frame)
	}

	t.notify.Debug("Sent:\n"+indent(frame)+"\n", slog.String("session.id", t.id))
}

func (t *Tracker) observeDisconnect(frame []byte) {
	var req dap.DisconnectRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		t.notify.Debug("malformed disconnect request", slog.String("error", err.Error()))
	}

	restart := req.Arguments != nil && req.Arguments.Restart

	t.mu.Lock()
	// Connection loss errors after this are caused by the backend closing
	// the session and must not be shown to the user.
	t.ignoreErrors = true
	t.restart = restart
	t.mu.Unlock()
}

func (t *Tracker) observeRunInTerminal(frame []byte) {
	var resp dap.RunInTerminalResponse
	if err := json.Unmarshal(frame, &resp); err != nil {
		t.notify.Debug("malformed runInTerminal response", slog.String("error", err.Error()))
		return
	}

	pid := resp.Body.ProcessId

	if shell := resp.Body.ShellProcessId; shell > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), childLookupTimeout)
		child, err := t.lookup(ctx, shell)
		cancel()

		if err == nil {
			pid = child
			t.notify.Debug(fmt.Sprintf("Child process ID: %d", child), slog.Int("shell_pid", shell))
		} else {
			t.notify.Debug("child lookup failed",
				slog.Int("shell_pid", shell),
				slog.String("error", err.Error()),
			)
		}
	}

	if pid <= 0 {
		return
	}

	t.mu.Lock()
	t.launchedPID = pid
	t.mu.Unlock()
}

// ObserveInbound logs a frame travelling from the backend to the front-end.
func (t *Tracker) ObserveInbound(frame []byte) {
	t.notify.Debug("Received:\n"+indent(frame)+"\n", slog.String("session.id", t.id))
}

// OnWillStopSession ends the session. The console is stopped unless the
// front-end asked for a restart; the launched process group is always
// interrupted.
func (t *Tracker) OnWillStopSession() {
	t.mu.Lock()
	t.state = StateStopping
	restart := t.restart
	pid := t.launchedPID
	t.launchedPID = 0
	t.mu.Unlock()

	t.notify.Info("Stopping debug Session.\n", slog.String("session.id", t.id), slog.Bool("restart", restart))

	if !restart && t.backend != nil {
		t.backend.Stop()
	}

	if pid > 0 {
		t.notify.Info(fmt.Sprintf("zxdb launch (PID:%d) is destroyed.", pid))

		if err := t.signal(pid, backend.SignalInterrupt); err != nil && !errors.Is(err, backend.ErrProcessGone) {
			t.notify.Debug("interrupt launched process", slog.Int("pid", pid), slog.String("error", err.Error()))
		}
	}

	t.mu.Lock()
	t.state = StateIdle
	t.mu.Unlock()
}

// OnError reports a session error. After a disconnect it is logged as
// expected noise.
func (t *Tracker) OnError(err error) {
	if err == nil {
		return
	}

	msg := "zxdb " + describeError(err) + "\n"

	if t.IgnoringErrors() {
		t.notify.Info(msg, slog.String("session.id", t.id))
		return
	}

	t.notify.Error(msg, slog.String("session.id", t.id))
}

// OnExit logs the end of the adapter connection.
func (t *Tracker) OnExit(code int, signal string) {
	t.notify.Info(fmt.Sprintf("Debug adapter exited! Exit code: %d, signal: %s.\n", code, signal),
		slog.String("session.id", t.id),
	)
}

// describeError prefers a detailed %+v rendering (stack traces) and falls
// back to "<type>:<message>".
func describeError(err error) string {
	if detailed := fmt.Sprintf("%+v", err); detailed != err.Error() {
		return detailed
	}

	return fmt.Sprintf("%T:%s", err, err.Error())
}

func indent(frame []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, frame, "", "  "); err != nil {
		return string(frame)
	}

	return buf.String()
}
