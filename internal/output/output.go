// Package output writes zxdb-adapter's human-facing CLI output.
//
// A Writer wraps the two output streams with color, quiet and JSON modes and
// a spinner for the readiness wait. When stdout carries the debug adapter
// protocol, Protocol mode routes everything to stderr so the wire stays
// clean. Writer also implements observability.Surface, so notifications
// raised by the backend and session packages land in the terminal.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/musher-dev/zxdb-adapter/internal/observability"
	"github.com/musher-dev/zxdb-adapter/internal/terminal"
)

// Status symbols
const (
	CheckMark   = "\u2713" // ✓
	XMark       = "\u2717" // ✗
	WarningMark = "\u26A0" // ⚠
	InfoMark    = "\u2139" // ℹ
)

type contextKey struct{}

// Writer handles CLI output.
type Writer struct {
	Out     io.Writer
	Err     io.Writer
	JSON    bool
	Quiet   bool
	Verbose bool

	terminal *terminal.Info
	mu       sync.Mutex

	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
	muted   *color.Color
}

var _ observability.Surface = (*Writer)(nil)

// Default returns a Writer for stdout and stderr.
func Default() *Writer {
	return NewWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// Protocol returns a Writer that never touches stdout. Use it when stdout is
// the debug adapter protocol channel.
func Protocol() *Writer {
	info := terminal.Detect()
	info.IsTTY = false

	return NewWriter(os.Stderr, os.Stderr, info)
}

// NewWriter creates a Writer with custom streams and terminal info.
func NewWriter(out, errOut io.Writer, term *terminal.Info) *Writer {
	w := &Writer{
		Out:      out,
		Err:      errOut,
		terminal: term,
		success:  color.New(color.FgGreen),
		failure:  color.New(color.FgRed),
		warning:  color.New(color.FgYellow),
		info:     color.New(color.FgCyan),
		muted:    color.New(color.FgHiBlack),
	}

	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return w
}

// WithContext stores the Writer in ctx.
func (w *Writer) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, w)
}

// FromContext returns the Writer stored in ctx, or Default().
func FromContext(ctx context.Context) *Writer {
	if w, ok := ctx.Value(contextKey{}).(*Writer); ok {
		return w
	}

	return Default()
}

// Terminal returns the terminal info.
func (w *Writer) Terminal() *terminal.Info {
	return w.terminal
}

// SetNoColor disables colored output.
func (w *Writer) SetNoColor(disabled bool) {
	w.terminal.ForceFlag = disabled
	if disabled {
		color.NoColor = true
	}
}

// Print writes to Out unless quiet.
func (w *Writer) Print(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.Out, format, args...)
}

// Println writes a line to Out unless quiet.
func (w *Writer) Println(args ...any) {
	if w.Quiet {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintln(w.Out, args...)
}

// PrintJSON writes v as indented JSON.
func (w *Writer) PrintJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// Write implements io.Writer on Out, so console output can be mirrored.
func (w *Writer) Write(p []byte) (int, error) {
	if w.Quiet {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.Out.Write(p)
}

// Debug writes to Out only in verbose mode.
func (w *Writer) Debug(format string, args ...any) {
	if !w.Verbose {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.muted.Fprintf(w.Out, "[debug] "+format+"\n", args...)
}

// Success writes a message with a check mark.
func (w *Writer) Success(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.status(w.Out, w.success, CheckMark, fmt.Sprintf(format, args...))
}

// Failure writes a message with an X mark to Err. It ignores quiet mode.
func (w *Writer) Failure(format string, args ...any) {
	w.status(w.Err, w.failure, XMark, fmt.Sprintf(format, args...))
}

// Warning writes a warning message.
func (w *Writer) Warning(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.status(w.Out, w.warning, WarningMark, fmt.Sprintf(format, args...))
}

// Info writes an informational message.
func (w *Writer) Info(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.status(w.Out, w.info, InfoMark, fmt.Sprintf(format, args...))
}

// Muted writes gray text.
func (w *Writer) Muted(format string, args ...any) {
	if w.Quiet {
		return
	}

	msg := fmt.Sprintf(format, args...)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminal.ColorEnabled() {
		w.muted.Fprintln(w.Out, msg)
		return
	}

	fmt.Fprintln(w.Out, msg)
}

// Show implements observability.Surface.
func (w *Writer) Show(severity observability.Severity, message string) {
	switch severity {
	case observability.SeverityError:
		w.Failure("%s", message)
	case observability.SeverityWarning:
		w.Warning("%s", message)
	default:
		w.Info("%s", message)
	}
}

func (w *Writer) status(dst io.Writer, tone *color.Color, mark, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminal.ColorEnabled() {
		tone.Fprint(dst, mark+" ")
		fmt.Fprintln(dst, message)

		return
	}

	fmt.Fprintln(dst, mark+" "+message)
}

// Spinner returns a spinner for a long wait. Without a TTY, or in quiet
// mode, it degrades to plain "message... done" lines.
func (w *Writer) Spinner(message string) *Spinner {
	if w.Quiet || !w.terminal.SpinnersEnabled() {
		return &Spinner{disabled: true, message: message, writer: w}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = w.Out
	s.Suffix = " " + message

	return &Spinner{spinner: s, message: message, writer: w}
}

// Spinner wraps briandowns/spinner.
type Spinner struct {
	spinner  *spinner.Spinner
	message  string
	writer   *Writer
	disabled bool
}

// Start begins the animation.
func (s *Spinner) Start() {
	if s.disabled {
		s.writer.Print("%s... ", s.message)
		return
	}

	s.spinner.Start()
}

// Stop ends the animation.
func (s *Spinner) Stop() {
	if !s.disabled {
		s.spinner.Stop()
	}
}

// StopWithSuccess stops the spinner and prints a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.finish("done", message, s.writer.Success)
}

// StopWithFailure stops the spinner and prints a failure message.
func (s *Spinner) StopWithFailure(message string) {
	s.finish("failed", message, s.writer.Failure)
}

func (s *Spinner) finish(plain, message string, report func(string, ...any)) {
	if s.disabled {
		s.writer.Println(plain)
	} else {
		s.spinner.Stop()
	}

	if message != "" {
		report("%s", message)
	}
}

// UpdateMessage changes the spinner text.
func (s *Spinner) UpdateMessage(message string) {
	s.message = message
	if !s.disabled {
		s.spinner.Suffix = " " + message
	}
}
