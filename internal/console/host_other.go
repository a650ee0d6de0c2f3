//go:build !unix

package console

import (
	"context"
	"io"
	"time"

	"github.com/musher-dev/zxdb-adapter/internal/backend"
	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

// Host is unavailable on this platform.
type Host struct {
	shell            string
	cols, rows       int
	mirror           io.Writer
	logDir           string
	shutdownDeadline time.Duration
	notify           observability.Notifier
}

// NewHost creates a console host.
func NewHost(opts ...Option) *Host {
	h := &Host{}

	for _, opt := range opts {
		opt(h)
	}

	applyDefaults(h)

	return h
}

// Spawn always fails: the console needs a pseudo-terminal.
func (h *Host) Spawn(context.Context, string, string, backend.ExitListener) (backend.Terminal, error) {
	return nil, clierrors.Unsupported("The zxdb console")
}
