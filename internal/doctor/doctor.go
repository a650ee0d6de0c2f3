// Package doctor provides diagnostic checks for zxdb-adapter.
//
// The checks cover what the console needs on this machine:
//   - an interactive shell to host the console
//   - pgrep, to find processes launched from the debugger's terminal
//   - the backend command on PATH
//   - a free debug adapter port
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/musher-dev/zxdb-adapter/internal/buildinfo"
	"github.com/musher-dev/zxdb-adapter/internal/config"
	"github.com/musher-dev/zxdb-adapter/internal/paths"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// String returns the lower-case status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result holds the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// Env holds the lookups the default checks depend on.
type Env struct {
	LookPath func(file string) (string, error)
	Dial     func(ctx context.Context, network, address string) (net.Conn, error)
	GOOS     string
}

func defaultEnv() Env {
	var d net.Dialer

	return Env{LookPath: exec.LookPath, Dial: d.DialContext, GOOS: runtime.GOOS}
}

// New creates a runner with the default checks for cfg.
func New(cfg *config.Config) *Runner {
	return NewWithEnv(cfg, defaultEnv())
}

// NewWithEnv creates a runner whose checks use env.
func NewWithEnv(cfg *config.Config, env Env) *Runner {
	r := &Runner{}

	r.AddCheck("Platform", func(context.Context) Result { return checkPlatform(env.GOOS) })
	r.AddCheck("Shell", func(context.Context) Result { return checkShell(env, cfg.Shell()) })
	r.AddCheck("Child Lookup", func(context.Context) Result { return checkPgrep(env) })
	r.AddCheck("Backend Command", func(context.Context) Result { return checkBackendCommand(env, cfg.Command()) })
	r.AddCheck("Adapter Port", func(ctx context.Context) Result { return checkPort(ctx, env, config.ServerAddress()) })
	r.AddCheck("Config File", func(context.Context) Result { return checkConfigFile() })
	r.AddCheck("CLI Version", func(context.Context) Result { return checkVersion(buildinfo.Version) })

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

func checkPlatform(goos string) Result {
	if goos == "windows" {
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not supported", goos),
			Detail:  "The zxdb console needs a pseudo-terminal and process groups",
		}
	}

	return Result{Status: StatusPass, Message: goos}
}

func checkShell(env Env, shell string) Result {
	path, err := env.LookPath(shell)
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s not found", shell),
			Detail:  "Set console.shell or SHELL to an installed shell",
		}
	}

	return Result{Status: StatusPass, Message: path}
}

func checkPgrep(env Env) Result {
	path, err := env.LookPath("pgrep")
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: "pgrep not found",
			Detail:  "Processes launched in the debugger's terminal will be tracked by their own pid only",
		}
	}

	return Result{Status: StatusPass, Message: path}
}

// checkBackendCommand looks up the first word of the console command. The
// console runs it in an interactive shell whose PATH may differ, so a miss
// is only a warning.
func checkBackendCommand(env Env, command string) Result {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Result{Status: StatusFail, Message: "console.command is empty"}
	}

	path, err := env.LookPath(fields[0])
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found in PATH", fields[0]),
			Detail:  "It may still be available once your shell profile is loaded",
		}
	}

	return Result{Status: StatusPass, Message: fmt.Sprintf("%s (%s)", fields[0], path)}
}

// checkPort warns when something already accepts connections on the adapter
// port, which usually means a stale console.
func checkPort(ctx context.Context, env Env, address string) Result {
	dialCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	conn, err := env.Dial(dialCtx, "tcp", address)
	if err != nil {
		return Result{Status: StatusPass, Message: fmt.Sprintf("%s is free", address)}
	}

	_ = conn.Close()

	return Result{
		Status:  StatusWarn,
		Message: fmt.Sprintf("%s is already accepting connections", address),
		Detail:  "A zxdb console may still be running from an earlier session",
	}
}

func checkConfigFile() Result {
	path, err := paths.ConfigFile()
	if err != nil {
		return Result{Status: StatusWarn, Message: "Config directory is not resolvable", Detail: err.Error()}
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return Result{Status: StatusPass, Message: "Using defaults", Detail: path}
	}

	return Result{Status: StatusPass, Message: path}
}

func checkVersion(current string) Result {
	if current == "" || current == "dev" {
		return Result{Status: StatusWarn, Message: "Development build"}
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		return Result{Status: StatusWarn, Message: current, Detail: "Version is not semantic: " + err.Error()}
	}

	if v.Prerelease() != "" {
		return Result{Status: StatusWarn, Message: "v" + v.String(), Detail: "Pre-release build"}
	}

	return Result{Status: StatusPass, Message: "v" + v.String()}
}

// RenderResults formats diagnostic results to the given output writer.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		width := maxNameLen + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", width, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", width, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", width, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", r.Status.Symbol(), width, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "\u2713" // ✓
	xMark       = "\u2717" // ✗
	warningMark = "\u26A0" // ⚠
)
