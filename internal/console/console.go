// Package console hosts the zxdb console: an interactive shell running in a
// pseudo-terminal with the backend command typed into it.
package console

import (
	"io"
	"time"

	"github.com/musher-dev/zxdb-adapter/internal/observability"
	"github.com/musher-dev/zxdb-adapter/internal/terminal"
)

const defaultShutdownDeadline = 2 * time.Second

// Option configures a Host.
type Option func(*Host)

// WithShell sets the shell that hosts the console.
func WithShell(shell string) Option {
	return func(h *Host) {
		h.shell = shell
	}
}

// WithSize sets the PTY geometry.
func WithSize(cols, rows int) Option {
	return func(h *Host) {
		h.cols, h.rows = cols, rows
	}
}

// WithMirror copies console output to w in addition to the capture file.
func WithMirror(w io.Writer) Option {
	return func(h *Host) {
		h.mirror = w
	}
}

// WithLogDir captures console output to a file per console under dir.
func WithLogDir(dir string) Option {
	return func(h *Host) {
		h.logDir = dir
	}
}

// WithShutdownDeadline sets how long Dispose waits after SIGTERM before
// escalating to SIGKILL.
func WithShutdownDeadline(d time.Duration) Option {
	return func(h *Host) {
		h.shutdownDeadline = d
	}
}

// WithNotifier sets where console lifecycle diagnostics go.
func WithNotifier(n observability.Notifier) Option {
	return func(h *Host) {
		h.notify = n
	}
}

func applyDefaults(h *Host) {
	if h.cols <= 0 || h.rows <= 0 {
		h.cols, h.rows = terminal.DefaultWidth, terminal.DefaultHeight
	}

	if h.shutdownDeadline <= 0 {
		h.shutdownDeadline = defaultShutdownDeadline
	}

	if h.notify == nil {
		h.notify = observability.NewSink(nil, nil)
	}
}
