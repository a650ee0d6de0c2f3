package backend

import "errors"

// Signal is a portable process signal.
type Signal int

const (
	// SignalTerminate requests termination (SIGTERM).
	SignalTerminate Signal = iota
	// SignalInterrupt interrupts the process (SIGINT).
	SignalInterrupt
	// SignalKill kills the process (SIGKILL).
	SignalKill
	// SignalHangup reports a terminal hangup (SIGHUP). Interactive shells
	// exit on it where they ignore SIGTERM.
	SignalHangup
)

func (s Signal) String() string {
	switch s {
	case SignalInterrupt:
		return "SIGINT"
	case SignalKill:
		return "SIGKILL"
	case SignalHangup:
		return "SIGHUP"
	default:
		return "SIGTERM"
	}
}

// ErrProcessGone is returned when the target process no longer exists.
var ErrProcessGone = errors.New("process not found")

// ErrNoChild is returned by ChildPID when the process has no children.
var ErrNoChild = errors.New("process has no children")

// ErrChildLookupUnsupported is returned by ChildPID on platforms without
// parent/child process queries.
var ErrChildLookupUnsupported = errors.New("child process lookup is not supported on this platform")

// Signaler delivers sig to the process group rooted at pid.
type Signaler func(pid int, sig Signal) error
