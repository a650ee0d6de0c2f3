package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/musher-dev/zxdb-adapter/internal/output"
)

const defaultProbeTimeout = 10 * time.Minute

// ProbeResult is the JSON output of probe.
type ProbeResult struct {
	Ready      bool   `json:"ready"`
	Address    string `json:"address"`
	Command    string `json:"command"`
	ElapsedMS  int64  `json:"elapsedMs"`
	Error      string `json:"error,omitempty"`
	ConsoleLog string `json:"consoleLog,omitempty"`
}

func newProbeCmd() *cobra.Command {
	var (
		timeout     time.Duration
		showConsole bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Start the zxdb console and wait until it is ready",
		Long: `Start the zxdb console, wait for its debug adapter server to accept
connections, report the result, and stop the console again.

Use it to check that the console command works on this machine before
debugging from an editor.`,
		Example: `  zxdb-adapter probe
  zxdb-adapter probe --timeout 2m --show-console
  zxdb-adapter probe --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var mirror io.Writer
			if showConsole && !out.JSON {
				mirror = out
			}

			rt := newConsoleRuntime(ctx, cfg, out, mirror)
			defer rt.supervisor.Stop()

			command := cfg.Command()
			started := time.Now()

			if !out.JSON {
				rt.sink.Announce("Starting zxdb.command test")
			}

			err := rt.supervisor.Start(ctx, command)
			if err == nil {
				err = waitWithProgress(ctx, out, rt, timeout, mirror != nil)
			}

			if out.JSON {
				result := ProbeResult{
					Ready:      err == nil,
					Address:    rt.prober.Address(),
					Command:    command,
					ElapsedMS:  time.Since(started).Milliseconds(),
					ConsoleLog: rt.supervisor.ConsoleLog(),
				}

				if err != nil {
					result.Error = err.Error()
				}

				if printErr := out.PrintJSON(result); printErr != nil {
					return printErr
				}
			} else if path := rt.supervisor.ConsoleLog(); err != nil && path != "" {
				out.Muted("Console output: %s", path)
			}

			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultProbeTimeout, "How long to wait for the console")
	cmd.Flags().BoolVar(&showConsole, "show-console", false, "Copy console output to stdout")

	return cmd
}

func waitWithProgress(ctx context.Context, out *output.Writer, rt *consoleRuntime, timeout time.Duration, plain bool) error {
	if out.JSON {
		return rt.prober.WaitUntilReady(ctx, timeout)
	}

	if plain {
		out.Info("Waiting for zxdb console on %s", rt.prober.Address())

		if err := rt.prober.WaitUntilReady(ctx, timeout); err != nil {
			return err
		}

		out.Success("zxdb.command test successful!")

		return nil
	}

	spin := out.Spinner(fmt.Sprintf("Waiting for zxdb console on %s", rt.prober.Address()))
	spin.Start()

	if err := rt.prober.WaitUntilReady(ctx, timeout); err != nil {
		spin.StopWithFailure("zxdb.command test failed")
		return err
	}

	spin.StopWithSuccess("zxdb.command test successful!")

	return nil
}
