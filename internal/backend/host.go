package backend

import "context"

// ExitStatus describes how a console process ended. Code is -1 when the
// process was terminated by a signal.
type ExitStatus struct {
	Code   int
	Signal string
}

// Terminal is a console spawned by a Host.
type Terminal interface {
	// Name is the display name of the console.
	Name() string

	// ProcessID blocks until the host knows the shell pid. Callers must not
	// assume it is available when Spawn returns.
	ProcessID(ctx context.Context) (int, error)

	// Dispose releases the console. It is safe to call more than once and
	// from within an ExitListener callback.
	Dispose() error
}

// Transcript is implemented by terminals that capture their output to a file.
type Transcript interface {
	LogPath() string
}

// ExitListener is notified by a Host when a console it spawned ends on its
// own (for example, the user closed it).
type ExitListener interface {
	OnBackendProcessEnded(t Terminal, status ExitStatus)
}

// Host spawns an interactive shell, types command into it, and reports the
// console's end to listener.
type Host interface {
	Spawn(ctx context.Context, name, command string, listener ExitListener) (Terminal, error)
}
