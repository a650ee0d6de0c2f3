package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/musher-dev/zxdb-adapter/internal/backend"
	"github.com/musher-dev/zxdb-adapter/internal/config"
	"github.com/musher-dev/zxdb-adapter/internal/console"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
	"github.com/musher-dev/zxdb-adapter/internal/paths"
	"github.com/musher-dev/zxdb-adapter/internal/terminal"
)

// consoleRuntime is the supervisor stack shared by the commands that bring
// the console up.
type consoleRuntime struct {
	sink       *observability.Sink
	supervisor *backend.Supervisor
	prober     *backend.Prober
}

// newConsoleRuntime wires a PTY host, a supervisor and a prober from cfg.
// User-visible notifications go to surface; console output is also copied
// to mirror when it is non-nil.
func newConsoleRuntime(ctx context.Context, cfg *config.Config, surface observability.Surface, mirror io.Writer) *consoleRuntime {
	sink := observability.SinkFromContext(ctx)
	sink.SetSurface(surface)
	info := terminal.Detect()

	hostOpts := []console.Option{
		console.WithShell(cfg.Shell()),
		console.WithSize(info.Width, info.Height),
		console.WithNotifier(sink),
	}

	if dir, err := paths.ConsoleDir(); err == nil {
		hostOpts = append(hostOpts, console.WithLogDir(dir))
	} else {
		sink.Debug("console capture disabled", slog.String("error", err.Error()))
	}

	if mirror != nil {
		hostOpts = append(hostOpts, console.WithMirror(mirror))
	}

	supervisor := backend.NewSupervisor(console.NewHost(hostOpts...), sink,
		backend.WithExitHook(func(status backend.ExitStatus) {
			sink.Warn(fmt.Sprintf("%s closed (exit code %d)", backend.ConsoleName, status.Code))
		}),
	)

	prober := backend.NewProber(supervisor, sink, backend.WithDefaultTimeout(cfg.Timeout()))

	return &consoleRuntime{sink: sink, supervisor: supervisor, prober: prober}
}
