//go:build unix

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/musher-dev/zxdb-adapter/internal/ansi"
	"github.com/musher-dev/zxdb-adapter/internal/backend"
	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

// disposePollInterval is how often Dispose checks that a process group is gone.
const disposePollInterval = 10 * time.Millisecond

// Host spawns consoles in pseudo-terminals.
type Host struct {
	shell            string
	cols, rows       int
	mirror           io.Writer
	logDir           string
	shutdownDeadline time.Duration
	notify           observability.Notifier

	// startPTYWithSize is injectable for tests; defaults to pty.StartWithSize.
	startPTYWithSize func(*exec.Cmd, *pty.Winsize) (*os.File, error)
}

var _ backend.Host = (*Host)(nil)

// NewHost creates a console host.
func NewHost(opts ...Option) *Host {
	h := &Host{startPTYWithSize: pty.StartWithSize}

	for _, opt := range opts {
		opt(h)
	}

	if h.shell == "" {
		h.shell = os.Getenv("SHELL")
	}

	if h.shell == "" {
		h.shell = "/bin/sh"
	}

	applyDefaults(h)

	return h
}

// Spawn starts an interactive shell in a new session and types command into
// it. The shell leads the session; the command becomes a job of that shell.
func (h *Host) Spawn(ctx context.Context, name, command string, listener backend.ExitListener) (backend.Terminal, error) {
	shellPath, err := exec.LookPath(h.shell)
	if err != nil {
		return nil, clierrors.ShellNotFound(h.shell)
	}

	// The console outlives the request that started it, so ctx is not tied
	// to the process.
	cmd := exec.Command(shellPath, "-i") //nolint:gosec // shell is user configuration
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	// NOTE: cmd.Stdin/Stdout/Stderr must remain nil; pty.StartWithSize
	// assigns the tty to all three and sets Setsid and Setctty.
	ptmx, err := h.startPTYWithSize(cmd, &pty.Winsize{
		Rows: uint16(h.rows), //nolint:gosec // geometry is bounded by terminal size
		Cols: uint16(h.cols), //nolint:gosec // geometry is bounded by terminal size
	})
	if err != nil {
		return nil, fmt.Errorf("start %s in pty: %w", shellPath, err)
	}

	c := &Console{
		name:             name,
		command:          command,
		ptmx:             ptmx,
		cmd:              cmd,
		pid:              cmd.Process.Pid,
		done:             make(chan struct{}),
		shutdownDeadline: h.shutdownDeadline,
		notify:           h.notify,
	}

	out, logCapture := h.openCapture(name)
	if logCapture != nil {
		c.logPath = logCapture.file.Name()
	}

	go c.pump(out, logCapture)
	go c.wait(listener)

	if _, err := io.WriteString(ptmx, command+"\n"); err != nil {
		_ = c.Dispose()
		return nil, fmt.Errorf("send command to console: %w", err)
	}

	h.notify.Debug("console spawned",
		slog.String("component", "console"),
		slog.String("console.name", name),
		slog.String("console.shell", shellPath),
		slog.String("console.log", c.logPath),
		slog.Int("pid", c.pid),
	)

	return c, nil
}

// capture is the plain-text log of one console.
type capture struct {
	file  *os.File
	plain *ansi.Writer
}

func (c *capture) Close() error {
	flushErr := c.plain.Flush()
	if err := c.file.Close(); err != nil {
		return err
	}

	return flushErr
}

func (h *Host) openCapture(name string) (io.Writer, *capture) {
	var writers []io.Writer

	if h.mirror != nil {
		writers = append(writers, h.mirror)
	}

	var logCapture *capture

	if h.logDir != "" {
		if err := os.MkdirAll(h.logDir, 0o700); err == nil {
			slug := strings.ReplaceAll(name, " ", "-")
			path := filepath.Join(h.logDir, fmt.Sprintf("%s-%s.log", slug, uuid.NewString()))

			f, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path is built from our own dir
			if openErr == nil {
				logCapture = &capture{file: f, plain: ansi.NewWriter(f)}
				writers = append(writers, logCapture.plain)
			}
		}
	}

	switch len(writers) {
	case 0:
		return io.Discard, nil
	case 1:
		return writers[0], logCapture
	default:
		return io.MultiWriter(writers...), logCapture
	}
}

// Console is a shell running in a PTY.
type Console struct {
	name             string
	command          string
	ptmx             *os.File
	cmd              *exec.Cmd
	pid              int
	logPath          string
	shutdownDeadline time.Duration
	notify           observability.Notifier

	done      chan struct{}
	status    backend.ExitStatus
	disposing atomic.Bool
	once      sync.Once
}

var (
	_ backend.Terminal   = (*Console)(nil)
	_ backend.Transcript = (*Console)(nil)
)

// Name returns the console's display name.
func (c *Console) Name() string {
	return c.name
}

// ProcessID returns the shell pid.
func (c *Console) ProcessID(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return c.pid, nil
}

// LogPath returns the capture file, or "" when output is not captured.
func (c *Console) LogPath() string {
	return c.logPath
}

func (c *Console) pump(out io.Writer, logCapture *capture) {
	_, _ = io.Copy(out, c.ptmx)

	if logCapture != nil {
		_ = logCapture.Close()
	}
}

func (c *Console) wait(listener backend.ExitListener) {
	waitErr := c.cmd.Wait()
	c.status = exitStatus(c.cmd.ProcessState, waitErr)
	close(c.done)

	if c.disposing.Load() || listener == nil {
		return
	}

	listener.OnBackendProcessEnded(c, c.status)
}

// Dispose stops the console without notifying the exit listener.
//
// With job control on, the typed command runs as a job in its own process
// group, which the shell's group signal never reaches. That group is read
// from the PTY and terminated first, while the shell is still there to reap
// it. The shell is then hung up. Each step escalates to SIGKILL after the
// shutdown deadline.
func (c *Console) Dispose() error {
	c.once.Do(func() {
		c.disposing.Store(true)

		if job := c.foregroundJob(); job > 0 {
			c.stopJob(job)
		}

		_ = c.ptmx.Close()

		if !c.exited() {
			c.stopShell()
		}
	})

	return nil
}

// foregroundJob returns the PTY's foreground process group when it is not
// the shell's own, or 0.
func (c *Console) foregroundJob() int {
	rc, err := c.ptmx.SyscallConn()
	if err != nil {
		return 0
	}

	pgrp := 0

	_ = rc.Control(func(fd uintptr) {
		if v, ioErr := unix.IoctlGetInt(int(fd), unix.TIOCGPGRP); ioErr == nil {
			pgrp = v
		}
	})

	if pgrp == c.pid {
		return 0
	}

	return pgrp
}

func (c *Console) stopJob(job int) {
	gone := func() bool { return !backend.GroupAlive(job) }

	if errors.Is(backend.SignalGroup(job, backend.SignalTerminate), backend.ErrProcessGone) {
		return
	}

	if c.waitFor(gone) {
		return
	}

	c.notify.Debug("console job ignored SIGTERM, killing",
		slog.String("component", "console"),
		slog.Int("pgid", job),
	)

	_ = backend.SignalGroup(job, backend.SignalKill)
	c.waitFor(gone)
}

func (c *Console) stopShell() {
	if errors.Is(backend.SignalGroup(c.pid, backend.SignalHangup), backend.ErrProcessGone) {
		return
	}

	if c.waitFor(c.exited) {
		return
	}

	c.notify.Debug("console ignored SIGHUP, killing",
		slog.String("component", "console"),
		slog.Int("pid", c.pid),
	)

	_ = backend.SignalGroup(c.pid, backend.SignalKill)
	c.waitFor(c.exited)
}

func (c *Console) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// waitFor polls cond until it holds or the shutdown deadline passes.
func (c *Console) waitFor(cond func() bool) bool {
	deadline := time.Now().Add(c.shutdownDeadline)

	for !cond() {
		if time.Now().After(deadline) {
			return false
		}

		time.Sleep(disposePollInterval)
	}

	return true
}

func exitStatus(state *os.ProcessState, waitErr error) backend.ExitStatus {
	if state == nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}

		return backend.ExitStatus{Code: code}
	}

	status := backend.ExitStatus{Code: state.ExitCode()}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = unix.SignalName(ws.Signal())
	}

	return status
}
