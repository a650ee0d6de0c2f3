package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/musher-dev/zxdb-adapter/internal/bridge"
	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/output"
	"github.com/musher-dev/zxdb-adapter/internal/terminal"
)

// stdio joins stdin and stdout into the front-end connection.
type stdio struct {
	io.Reader
	io.Writer
}

func newServeCmd() *cobra.Command {
	var (
		listen  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as the debug adapter for an editor",
		Long: `Run as a Debug Adapter Protocol server for the zxdb console.

By default the adapter speaks DAP on stdin/stdout, which is how editors start
debug adapters. The first message from the editor starts the zxdb console;
once its debug adapter server accepts connections, messages are relayed in
both directions until the session ends. The console is stopped at the end of
the session unless the editor asked for a restart.

With --listen the adapter accepts editor connections on a TCP address and
serves them one at a time, reusing a live console across restarts.`,
		Example: `  zxdb-adapter serve
  zxdb-adapter serve --listen 127.0.0.1:4711
  zxdb-adapter serve --timeout 1m`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if timeout <= 0 {
				timeout = cfg.Timeout()
			}

			rt := newConsoleRuntime(ctx, cfg, nil, nil)
			defer rt.supervisor.Stop()

			b := bridge.New(bridge.Options{
				Supervisor: rt.supervisor,
				Prober:     rt.prober,
				Sink:       rt.sink,
				Command:    cfg.Command(),
				Timeout:    timeout,
			})

			if listen != "" {
				ln, err := net.Listen("tcp", listen)
				if err != nil {
					return &clierrors.CLIError{
						Message: fmt.Sprintf("Cannot listen on %s", listen),
						Hint:    "Choose a free address with --listen",
						Cause:   err,
						Code:    clierrors.ExitUsage,
					}
				}

				out := output.FromContext(ctx)
				rt.sink.SetSurface(out)
				out.Info("Listening for debug sessions on %s", ln.Addr())

				return b.ServeListener(ctx, ln)
			}

			if !terminal.Detect().SpeaksDAPOnStdio() {
				output.Protocol().Warning("serve speaks the Debug Adapter Protocol on stdin/stdout; it is meant to be started by an editor")
			}

			return b.Serve(ctx, stdio{Reader: os.Stdin, Writer: os.Stdout})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Accept debug sessions on this TCP address instead of stdio")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the console to accept connections (default: console.timeout)")

	return cmd
}

// usesStdioProtocol reports whether cmd is serve speaking DAP on stdout, in
// which case nothing else may be written there.
func usesStdioProtocol(cmd *cobra.Command) bool {
	if cmd == nil || cmd.Name() != "serve" {
		return false
	}

	listen := cmd.Flags().Lookup("listen")

	return listen == nil || listen.Value.String() == ""
}
