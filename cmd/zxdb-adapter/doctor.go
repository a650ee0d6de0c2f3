package main

import (
	"github.com/spf13/cobra"

	"github.com/musher-dev/zxdb-adapter/internal/doctor"
	"github.com/musher-dev/zxdb-adapter/internal/output"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues",
		Long: `Run diagnostic checks to identify problems hosting the zxdb console.

Checks performed:
  - Platform support for pseudo-terminals and process groups
  - Shell and child-process lookup availability
  - Console command resolution
  - Whether the debug adapter port is already in use
  - Config file presence`,
		Example: `  zxdb-adapter doctor
  zxdb-adapter doctor --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())

			results := doctor.New(cfg).Run(cmd.Context())

			if out.JSON {
				return out.PrintJSON(results)
			}

			renderDoctor(out, results)

			return nil
		},
	}
}

func renderDoctor(out *output.Writer, results []doctor.Result) {
	out.Println("zxdb-adapter Doctor")
	out.Println("===================")
	out.Println()

	doctor.RenderResults(results, out.Print, out.Success, out.Warning, out.Failure, out.Muted)

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()
}
