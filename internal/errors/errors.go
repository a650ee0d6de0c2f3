// Package errors provides structured CLI error types for zxdb-adapter.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// so that launch failures reach the user with actionable guidance, whether
// they surface in a terminal or as a DAP error response.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess   = 0  // Successful execution
	ExitGeneral   = 1  // General error
	ExitConfig    = 4  // Configuration error
	ExitTimeout   = 5  // Backend readiness timeout
	ExitExecution = 6  // Backend could not be spawned
	ExitUsage     = 64 // Command line usage error (BSD convention)
)

// TroubleshootingURL is shown whenever the backend fails to come up.
const TroubleshootingURL = "https://tinyurl.com/zxdb-troubleshooting"

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// UserMessage joins message and hint into a single line for surfaces that
// cannot render them separately (DAP error responses, editor popups).
func (e *CLIError) UserMessage() string {
	if e.Hint == "" {
		return e.Message
	}

	return e.Message + ". " + e.Hint
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// SpawnFailed returns an error for a backend console that could not be created.
func SpawnFailed(command string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to start zxdb console (%s)", command),
		Hint:    "Check that the command runs in your shell, or set console.command with 'zxdb-adapter config set'",
		Cause:   cause,
		Code:    ExitExecution,
	}
}

// ReadinessTimeout returns the error raised when the backend never accepted
// a connection before the deadline.
func ReadinessTimeout(cause error) *CLIError {
	return &CLIError{
		Message: "Timeout starting zxdb console",
		Hint:    "See " + TroubleshootingURL,
		Cause:   cause,
		Code:    ExitTimeout,
	}
}

// BackendStopped returns the error raised when the backend was torn down
// while a launch was still waiting for it.
func BackendStopped() *CLIError {
	return &CLIError{
		Message: "zxdb console was stopped before it became ready",
		Hint:    "See " + TroubleshootingURL,
		Code:    ExitExecution,
	}
}

// InvalidLaunchConfig returns an error for a debug configuration that
// cannot be used to start a session.
func InvalidLaunchConfig(reason string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid zxdb debug configuration: %s", reason),
		Hint:    `Set "request" to "launch" or "attach" in your launch configuration`,
		Code:    ExitConfig,
	}
}

// ShellNotFound returns an error when no interactive shell can host the console.
func ShellNotFound(shell string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Shell not found: %s", shell),
		Hint:    "Set console.shell or the SHELL environment variable to an installed shell",
		Code:    ExitConfig,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your zxdb-adapter config directory or run 'zxdb-adapter doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// UnknownConfigKey returns an error for a key that zxdb-adapter does not read.
func UnknownConfigKey(key string, known []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown configuration key: %s", key),
		Hint:    fmt.Sprintf("Known keys: %s", strings.Join(known, ", ")),
		Code:    ExitUsage,
	}
}

// Unsupported returns an error for a feature that is unavailable on this OS.
func Unsupported(feature string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("%s is not supported on this operating system", feature),
		Hint:    "Run zxdb-adapter on a Unix-like OS (macOS/Linux)",
		Code:    ExitUsage,
	}
}
