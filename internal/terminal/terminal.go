// Package terminal provides terminal detection and capabilities.
//
// This package handles:
//   - TTY detection for stdout and stdin
//   - NO_COLOR environment variable support
//   - Terminal dimensions for the backend console PTY
package terminal

import (
	"os"

	"golang.org/x/term"
)

// Default PTY geometry used when the controlling stream is not a terminal.
const (
	DefaultWidth  = 120
	DefaultHeight = 40
)

// Info holds terminal capability information.
type Info struct {
	IsTTY      bool
	StdinIsTTY bool
	NoColor    bool
	Width      int
	Height     int
	ForceFlag  bool // Set when --no-color flag is used
}

// Detect returns terminal information for the current environment.
func Detect() *Info {
	stdoutFD := int(os.Stdout.Fd())
	isTTY := term.IsTerminal(stdoutFD)

	width, height := DefaultWidth, DefaultHeight

	if isTTY {
		if w, h, err := term.GetSize(stdoutFD); err == nil {
			width, height = w, h
		}
	}

	// Check NO_COLOR environment variable (https://no-color.org/)
	_, noColor := os.LookupEnv("NO_COLOR")

	// Treat TERM=dumb as no-color (terminals that don't support escape sequences)
	if os.Getenv("TERM") == "dumb" {
		noColor = true
	}

	return &Info{
		IsTTY:      isTTY,
		StdinIsTTY: term.IsTerminal(int(os.Stdin.Fd())),
		NoColor:    noColor,
		Width:      width,
		Height:     height,
	}
}

// ColorEnabled returns true if colored output should be used.
func (t *Info) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}

	return t.IsTTY && !t.NoColor
}

// SpinnersEnabled returns true if spinners should be used.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}

// SpeaksDAPOnStdio reports whether stdin and stdout look like a debugger
// front-end pipe rather than an interactive user.
func (t *Info) SpeaksDAPOnStdio() bool {
	return !t.IsTTY && !t.StdinIsTTY
}
